package promwire

// EncodeSeries builds one ChunkedSeries for a sensor's labels and float
// points, encoding the points as a single XOR chunk. An empty points slice
// still yields a series with zero chunks (no chunk is emitted for an empty
// sample set), so callers short-circuit before calling this when they want
// to skip the series entirely.
func EncodeSeries(labels []Label, points []Point) ChunkedSeries {
	series := ChunkedSeries{Labels: labels}
	if len(points) == 0 {
		return series
	}
	minT := points[0].TimestampMS
	maxT := points[len(points)-1].TimestampMS
	series.Chunks = []Chunk{{
		MinTimeMS: minT,
		MaxTimeMS: maxT,
		Type:      ChunkEncodingXOR,
		Data:      EncodeXORChunk(points),
	}}
	return series
}

// CreateChunkedReadResponse assembles the response for one query index.
// Callers filter out series with zero chunks before calling this; a matched
// sensor with no points in range contributes nothing to the response.
func CreateChunkedReadResponse(queryIndex int64, series []ChunkedSeries) ChunkedReadResponse {
	return ChunkedReadResponse{QueryIndex: queryIndex, ChunkedSeries: series}
}

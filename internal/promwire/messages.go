package promwire

// Label mirrors prometheus.Label: {name, value} string pair.
type Label struct {
	Name  string
	Value string
}

func (l Label) marshal() []byte {
	var buf []byte
	buf = appendStringField(buf, 1, l.Name)
	buf = appendStringField(buf, 2, l.Value)
	return buf
}

func unmarshalLabel(buf []byte) (Label, error) {
	fields, err := parseFields(buf)
	if err != nil {
		return Label{}, err
	}
	var l Label
	for _, f := range fields {
		switch f.num {
		case 1:
			l.Name = string(f.bytes)
		case 2:
			l.Value = string(f.bytes)
		}
	}
	return l, nil
}

// Sample mirrors prometheus.Sample: {value, timestamp_ms}.
type Sample struct {
	Value       float64
	TimestampMS int64
}

func (s Sample) marshal() []byte {
	var buf []byte
	buf = appendDoubleField(buf, 1, s.Value)
	buf = appendInt64Field(buf, 2, s.TimestampMS)
	return buf
}

func unmarshalSample(buf []byte) (Sample, error) {
	fields, err := parseFields(buf)
	if err != nil {
		return Sample{}, err
	}
	var s Sample
	for _, f := range fields {
		switch f.num {
		case 1:
			s.Value = fieldDouble(f)
		case 2:
			s.TimestampMS = int64(f.varint)
		}
	}
	return s, nil
}

// TimeSeries mirrors prometheus.TimeSeries: labels plus samples.
type TimeSeries struct {
	Labels  []Label
	Samples []Sample
}

func (t TimeSeries) marshal() []byte {
	var buf []byte
	for _, l := range t.Labels {
		buf = appendMessageField(buf, 1, l.marshal())
	}
	for _, s := range t.Samples {
		buf = appendMessageField(buf, 2, s.marshal())
	}
	return buf
}

func unmarshalTimeSeries(buf []byte) (TimeSeries, error) {
	fields, err := parseFields(buf)
	if err != nil {
		return TimeSeries{}, err
	}
	var ts TimeSeries
	for _, f := range fields {
		switch f.num {
		case 1:
			l, err := unmarshalLabel(f.bytes)
			if err != nil {
				return TimeSeries{}, err
			}
			ts.Labels = append(ts.Labels, l)
		case 2:
			s, err := unmarshalSample(f.bytes)
			if err != nil {
				return TimeSeries{}, err
			}
			ts.Samples = append(ts.Samples, s)
		}
	}
	return ts, nil
}

// WriteRequest mirrors prometheus.WriteRequest.
type WriteRequest struct {
	Timeseries []TimeSeries
}

func (w WriteRequest) Marshal() []byte {
	var buf []byte
	for _, ts := range w.Timeseries {
		buf = appendMessageField(buf, 1, ts.marshal())
	}
	return buf
}

func UnmarshalWriteRequest(buf []byte) (WriteRequest, error) {
	fields, err := parseFields(buf)
	if err != nil {
		return WriteRequest{}, err
	}
	var w WriteRequest
	for _, f := range fields {
		if f.num == 1 {
			ts, err := unmarshalTimeSeries(f.bytes)
			if err != nil {
				return WriteRequest{}, err
			}
			w.Timeseries = append(w.Timeseries, ts)
		}
	}
	return w, nil
}

// MatchType mirrors prometheus.LabelMatcher.Type.
type MatchType int

const (
	MatchEqual MatchType = iota
	MatchNotEqual
	MatchRegexp
	MatchNotRegexp
)

type LabelMatcher struct {
	Type  MatchType
	Name  string
	Value string
}

func unmarshalLabelMatcher(buf []byte) (LabelMatcher, error) {
	fields, err := parseFields(buf)
	if err != nil {
		return LabelMatcher{}, err
	}
	var m LabelMatcher
	for _, f := range fields {
		switch f.num {
		case 1:
			m.Type = MatchType(f.varint)
		case 2:
			m.Name = string(f.bytes)
		case 3:
			m.Value = string(f.bytes)
		}
	}
	return m, nil
}

func (m LabelMatcher) marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(m.Type))
	buf = appendStringField(buf, 2, m.Name)
	buf = appendStringField(buf, 3, m.Value)
	return buf
}

// Query mirrors prometheus.Query.
type Query struct {
	StartTimestampMS int64
	EndTimestampMS   int64
	Matchers         []LabelMatcher
}

func unmarshalQuery(buf []byte) (Query, error) {
	fields, err := parseFields(buf)
	if err != nil {
		return Query{}, err
	}
	var q Query
	for _, f := range fields {
		switch f.num {
		case 1:
			q.StartTimestampMS = int64(f.varint)
		case 2:
			q.EndTimestampMS = int64(f.varint)
		case 3:
			m, err := unmarshalLabelMatcher(f.bytes)
			if err != nil {
				return Query{}, err
			}
			q.Matchers = append(q.Matchers, m)
		}
	}
	return q, nil
}

// ResponseType mirrors prometheus.ReadRequest.ResponseType.
type ResponseType int

const (
	ResponseTypeSamples ResponseType = iota
	ResponseTypeStreamedXORChunks
)

// ReadRequest mirrors prometheus.ReadRequest.
type ReadRequest struct {
	Queries               []Query
	AcceptedResponseTypes []ResponseType
}

func UnmarshalReadRequest(buf []byte) (ReadRequest, error) {
	fields, err := parseFields(buf)
	if err != nil {
		return ReadRequest{}, err
	}
	var r ReadRequest
	for _, f := range fields {
		switch f.num {
		case 1:
			q, err := unmarshalQuery(f.bytes)
			if err != nil {
				return ReadRequest{}, err
			}
			r.Queries = append(r.Queries, q)
		case 2:
			r.AcceptedResponseTypes = append(r.AcceptedResponseTypes, ResponseType(f.varint))
		}
	}
	return r, nil
}

// ChunkEncoding mirrors prometheus.Chunk.Encoding.
type ChunkEncoding int

const (
	ChunkEncodingUnknown ChunkEncoding = iota
	ChunkEncodingXOR
)

// Chunk mirrors prometheus.Chunk: a span of samples encoded with a given
// chunk encoding (only XOR is produced by this module).
type Chunk struct {
	MinTimeMS int64
	MaxTimeMS int64
	Type      ChunkEncoding
	Data      []byte
}

func (c Chunk) marshal() []byte {
	var buf []byte
	buf = appendInt64Field(buf, 1, c.MinTimeMS)
	buf = appendInt64Field(buf, 2, c.MaxTimeMS)
	buf = appendVarintField(buf, 3, uint64(c.Type))
	buf = appendBytesField(buf, 4, c.Data)
	return buf
}

// ChunkedSeries mirrors prometheus.ChunkedSeries: labels plus chunks.
type ChunkedSeries struct {
	Labels []Label
	Chunks []Chunk
}

func (s ChunkedSeries) marshal() []byte {
	var buf []byte
	for _, l := range s.Labels {
		buf = appendMessageField(buf, 1, l.marshal())
	}
	for _, c := range s.Chunks {
		buf = appendMessageField(buf, 2, c.marshal())
	}
	return buf
}

// ChunkedReadResponse mirrors prometheus.ChunkedReadResponse.
type ChunkedReadResponse struct {
	ChunkedSeries []ChunkedSeries
	QueryIndex    int64
}

func (r ChunkedReadResponse) Marshal() []byte {
	var buf []byte
	for _, s := range r.ChunkedSeries {
		buf = appendMessageField(buf, 1, s.marshal())
	}
	buf = appendInt64Field(buf, 2, r.QueryIndex)
	return buf
}

package promwire

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 16384, 1 << 40}
	for _, v := range cases {
		buf := AppendUvarint(nil, v)
		got, n, err := ReadUvarint(buf, 0)
		if err != nil {
			t.Fatalf("v=%d: %v", v, err)
		}
		if got != v || n != len(buf) {
			t.Fatalf("v=%d: got %d (consumed %d of %d)", v, got, n, len(buf))
		}
	}
}

func TestVarintKnownEncodings(t *testing.T) {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xAC, 0x02}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, c := range cases {
		got := AppendUvarint(nil, c.v)
		if !bytes.Equal(got, c.want) {
			t.Fatalf("v=%d: got % x, want % x", c.v, got, c.want)
		}
	}
}

func TestXORChunkRoundTrip(t *testing.T) {
	points := []Point{
		{TimestampMS: 1500, Value: 42.0},
		{TimestampMS: 2500, Value: 42.5},
		{TimestampMS: 3600, Value: 41.9},
		{TimestampMS: 10000, Value: -3.25},
	}
	data := EncodeXORChunk(points)
	decoded, err := DecodeXORChunk(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(points) {
		t.Fatalf("expected %d points, got %d", len(points), len(decoded))
	}
	for i, p := range points {
		if decoded[i] != p {
			t.Fatalf("point %d: got %+v, want %+v", i, decoded[i], p)
		}
	}
}

func TestXORChunkSinglePoint(t *testing.T) {
	points := []Point{{TimestampMS: 1500, Value: 42.0}}
	data := EncodeXORChunk(points)
	decoded, err := DecodeXORChunk(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0] != points[0] {
		t.Fatalf("got %+v, want %+v", decoded, points)
	}
}

func TestCRC32CMatchesCastagnoli(t *testing.T) {
	payload := []byte("hello chunked read")
	var buf bytes.Buffer
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	framed := buf.Bytes()

	_, off, err := ReadUvarint(framed, 0)
	if err != nil {
		t.Fatalf("read len varint: %v", err)
	}
	body := framed[off : len(framed)-4]
	if !bytes.Equal(body, payload) {
		t.Fatalf("expected framed payload to round-trip")
	}
	gotCRC := binary.BigEndian.Uint32(framed[len(framed)-4:])
	wantCRC := crc32.Checksum(payload, crc32.MakeTable(crc32.Castagnoli))
	if gotCRC != wantCRC {
		t.Fatalf("crc mismatch: got %x want %x", gotCRC, wantCRC)
	}
}

func TestSeedScenarioSingleSampleResponse(t *testing.T) {
	labels := []Label{{Name: "__name__", Value: "test_metric"}, {Name: "job", Value: "test_job"}}
	series := EncodeSeries(labels, []Point{{TimestampMS: 1500, Value: 42.0}})
	resp := CreateChunkedReadResponse(0, []ChunkedSeries{series})

	if resp.QueryIndex != 0 {
		t.Fatalf("expected query_index 0")
	}
	if len(resp.ChunkedSeries) != 1 {
		t.Fatalf("expected one series")
	}
	s := resp.ChunkedSeries[0]
	if len(s.Chunks) != 1 {
		t.Fatalf("expected one chunk")
	}
	c := s.Chunks[0]
	if c.MinTimeMS != 1500 || c.MaxTimeMS != 1500 {
		t.Fatalf("expected min=max=1500, got min=%d max=%d", c.MinTimeMS, c.MaxTimeMS)
	}
	decoded, err := DecodeXORChunk(c.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0].TimestampMS != 1500 || decoded[0].Value != 42.0 {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
}

func TestWriteRequestRoundTrip(t *testing.T) {
	wr := WriteRequest{Timeseries: []TimeSeries{{
		Labels:  []Label{{Name: "__name__", Value: "cpu_usage"}, {Name: "host", Value: "server1"}},
		Samples: []Sample{{Value: 0.5, TimestampMS: 1700000000000}},
	}}}
	buf := wr.Marshal()
	decoded, err := UnmarshalWriteRequest(buf)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Timeseries) != 1 || len(decoded.Timeseries[0].Samples) != 1 {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
	if decoded.Timeseries[0].Samples[0].Value != 0.5 {
		t.Fatalf("expected value 0.5, got %v", decoded.Timeseries[0].Samples[0].Value)
	}
}

func TestReadRequestRoundTrip(t *testing.T) {
	req := ReadRequest{
		Queries: []Query{{
			StartTimestampMS: 0,
			EndTimestampMS:   2000000000000,
			Matchers: []LabelMatcher{
				{Type: MatchEqual, Name: "__name__", Value: "cpu_usage"},
				{Type: MatchEqual, Name: "host", Value: "server1"},
			},
		}},
		AcceptedResponseTypes: []ResponseType{ResponseTypeStreamedXORChunks},
	}
	var buf []byte
	for _, q := range req.Queries {
		qbuf := marshalQueryForTest(q)
		buf = appendMessageField(buf, 1, qbuf)
	}
	for _, rt := range req.AcceptedResponseTypes {
		buf = appendVarintField(buf, 2, uint64(rt))
	}
	decoded, err := UnmarshalReadRequest(buf)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Queries) != 1 || len(decoded.Queries[0].Matchers) != 2 {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
	if len(decoded.AcceptedResponseTypes) != 1 || decoded.AcceptedResponseTypes[0] != ResponseTypeStreamedXORChunks {
		t.Fatalf("unexpected response types: %+v", decoded.AcceptedResponseTypes)
	}
}

func marshalQueryForTest(q Query) []byte {
	var buf []byte
	buf = appendInt64Field(buf, 1, q.StartTimestampMS)
	buf = appendInt64Field(buf, 2, q.EndTimestampMS)
	for _, m := range q.Matchers {
		buf = appendMessageField(buf, 3, m.marshal())
	}
	return buf
}

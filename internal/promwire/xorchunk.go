package promwire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Point is one (timestamp_ms, value) pair encoded into or decoded from an
// XOR chunk.
type Point struct {
	TimestampMS int64
	Value       float64
}

// EncodeXORChunk packs points into the Gorilla-style XOR chunk body used by
// the Prometheus streaming remote-read path: the first point is stored
// verbatim, every later timestamp is delta-of-delta encoded and every later
// value is XORed against its predecessor, both varint/zigzag packed. This is
// self-describing (it carries its own point count) so DecodeXORChunk never
// needs the caller to track how many points a chunk holds.
func EncodeXORChunk(points []Point) []byte {
	buf := AppendUvarint(nil, uint64(len(points)))
	if len(points) == 0 {
		return buf
	}

	buf = appendZigzag(buf, points[0].TimestampMS)
	buf = appendRawFloat(buf, points[0].Value)

	if len(points) == 1 {
		return buf
	}

	prevDelta := points[1].TimestampMS - points[0].TimestampMS
	buf = appendZigzag(buf, prevDelta)
	buf = appendXORValue(buf, points[0].Value, points[1].Value)

	for i := 2; i < len(points); i++ {
		delta := points[i].TimestampMS - points[i-1].TimestampMS
		dod := delta - prevDelta
		buf = appendZigzag(buf, dod)
		buf = appendXORValue(buf, points[i-1].Value, points[i].Value)
		prevDelta = delta
	}
	return buf
}

// DecodeXORChunk reverses EncodeXORChunk.
func DecodeXORChunk(data []byte) ([]Point, error) {
	count, off, err := ReadUvarint(data, 0)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	points := make([]Point, 0, count)

	t0, off, err := readZigzag(data, off)
	if err != nil {
		return nil, err
	}
	v0, off, err := readRawFloat(data, off)
	if err != nil {
		return nil, err
	}
	points = append(points, Point{TimestampMS: t0, Value: v0})
	if count == 1 {
		return points, nil
	}

	firstDelta, off, err := readZigzag(data, off)
	if err != nil {
		return nil, err
	}
	t1 := t0 + firstDelta
	xv, off, err := readXORValue(data, off)
	if err != nil {
		return nil, err
	}
	v1 := math.Float64frombits(math.Float64bits(v0) ^ xv)
	points = append(points, Point{TimestampMS: t1, Value: v1})

	prevDelta := firstDelta
	prevT := t1
	prevV := v1
	for i := uint64(2); i < count; i++ {
		dod, next, err := readZigzag(data, off)
		if err != nil {
			return nil, err
		}
		off = next
		delta := prevDelta + dod
		t := prevT + delta
		xv, next2, err := readXORValue(data, off)
		if err != nil {
			return nil, err
		}
		off = next2
		v := math.Float64frombits(math.Float64bits(prevV) ^ xv)
		points = append(points, Point{TimestampMS: t, Value: v})
		prevDelta = delta
		prevT = t
		prevV = v
	}
	return points, nil
}

func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

func appendZigzag(buf []byte, v int64) []byte {
	return AppendUvarint(buf, zigzagEncode(v))
}

func readZigzag(buf []byte, off int) (int64, int, error) {
	u, next, err := ReadUvarint(buf, off)
	if err != nil {
		return 0, 0, err
	}
	return zigzagDecode(u), next, nil
}

func appendRawFloat(buf []byte, v float64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	return append(buf, b[:]...)
}

func readRawFloat(buf []byte, off int) (float64, int, error) {
	if off+8 > len(buf) {
		return 0, 0, fmt.Errorf("promwire: truncated chunk value")
	}
	bits := binary.BigEndian.Uint64(buf[off : off+8])
	return math.Float64frombits(bits), off + 8, nil
}

func appendXORValue(buf []byte, prev, cur float64) []byte {
	xor := math.Float64bits(prev) ^ math.Float64bits(cur)
	return AppendUvarint(buf, xor)
}

func readXORValue(buf []byte, off int) (uint64, int, error) {
	return ReadUvarint(buf, off)
}

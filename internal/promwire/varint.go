// Package promwire implements the Prometheus remote-write/remote-read wire
// format by hand: a minimal protobuf codec for the small fixed message set,
// Gorilla/XOR chunk encoding, and the varint+CRC32C streaming frame format.
// No protoc step runs in this build, so the messages are encoded and decoded
// directly against the protobuf wire format rather than through generated
// code.
package promwire

import "fmt"

// AppendUvarint appends v to buf using protobuf's base-128 varint encoding.
func AppendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// ReadUvarint reads a varint from buf starting at offset, returning the
// value and the offset just past it.
func ReadUvarint(buf []byte, offset int) (uint64, int, error) {
	var result uint64
	var shift uint
	for i := offset; i < len(buf); i++ {
		b := buf[i]
		result |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return result, i + 1, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, fmt.Errorf("promwire: varint overflow")
		}
	}
	return 0, 0, fmt.Errorf("promwire: truncated varint")
}

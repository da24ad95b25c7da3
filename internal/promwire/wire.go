package promwire

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

func tag(fieldNum int, wireType int) uint64 {
	return uint64(fieldNum)<<3 | uint64(wireType)
}

func appendTag(buf []byte, fieldNum, wireType int) []byte {
	return AppendUvarint(buf, tag(fieldNum, wireType))
}

func appendVarintField(buf []byte, fieldNum int, v uint64) []byte {
	buf = appendTag(buf, fieldNum, wireVarint)
	return AppendUvarint(buf, v)
}

func appendInt64Field(buf []byte, fieldNum int, v int64) []byte {
	return appendVarintField(buf, fieldNum, uint64(v))
}

func appendDoubleField(buf []byte, fieldNum int, v float64) []byte {
	buf = appendTag(buf, fieldNum, wireFixed64)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return append(buf, b[:]...)
}

func appendBytesField(buf []byte, fieldNum int, v []byte) []byte {
	buf = appendTag(buf, fieldNum, wireBytes)
	buf = AppendUvarint(buf, uint64(len(v)))
	return append(buf, v...)
}

func appendStringField(buf []byte, fieldNum int, v string) []byte {
	return appendBytesField(buf, fieldNum, []byte(v))
}

func appendMessageField(buf []byte, fieldNum int, msg []byte) []byte {
	return appendBytesField(buf, fieldNum, msg)
}

// wireField is one decoded (field number, wire type, payload) unit. For
// varint/fixed32/fixed64 payload holds the raw numeric bytes as a uint64;
// for length-delimited fields it holds the raw slice.
type wireField struct {
	num      int
	wireType int
	varint   uint64
	bytes    []byte
}

// parseFields walks buf's top-level protobuf fields without knowing the
// message's schema in advance, matching how a hand-rolled decoder has to
// work without generated descriptors.
func parseFields(buf []byte) ([]wireField, error) {
	var fields []wireField
	off := 0
	for off < len(buf) {
		key, next, err := ReadUvarint(buf, off)
		if err != nil {
			return nil, err
		}
		off = next
		fieldNum := int(key >> 3)
		wireType := int(key & 0x7)
		f := wireField{num: fieldNum, wireType: wireType}
		switch wireType {
		case wireVarint:
			v, next, err := ReadUvarint(buf, off)
			if err != nil {
				return nil, err
			}
			f.varint = v
			off = next
		case wireFixed64:
			if off+8 > len(buf) {
				return nil, fmt.Errorf("promwire: truncated fixed64")
			}
			f.varint = binary.LittleEndian.Uint64(buf[off : off+8])
			off += 8
		case wireFixed32:
			if off+4 > len(buf) {
				return nil, fmt.Errorf("promwire: truncated fixed32")
			}
			f.varint = uint64(binary.LittleEndian.Uint32(buf[off : off+4]))
			off += 4
		case wireBytes:
			ln, next, err := ReadUvarint(buf, off)
			if err != nil {
				return nil, err
			}
			off = next
			if off+int(ln) > len(buf) {
				return nil, fmt.Errorf("promwire: truncated length-delimited field")
			}
			f.bytes = buf[off : off+int(ln)]
			off += int(ln)
		default:
			return nil, fmt.Errorf("promwire: unsupported wire type %d", wireType)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func fieldDouble(f wireField) float64 {
	return math.Float64frombits(f.varint)
}

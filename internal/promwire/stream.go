package promwire

import (
	"encoding/binary"
	"hash/crc32"
	"io"
)

// crc32cTable is the Castagnoli polynomial table (0x82F63B78) the chunked
// remote-read framing requires. The standard library ships this table
// built-in; no third-party CRC32C implementation is needed.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// WriteFrame writes one streamed remote-read message as
// varint(len) ‖ payload ‖ uint32_be(crc32c(payload)).
func WriteFrame(w io.Writer, payload []byte) error {
	framed := AppendUvarint(nil, uint64(len(payload)))
	framed = append(framed, payload...)
	var crc [4]byte
	binary.BigEndian.PutUint32(crc[:], crc32.Checksum(payload, crc32cTable))
	framed = append(framed, crc[:]...)
	_, err := w.Write(framed)
	return err
}

// WriteChunkedReadResponses writes one frame per response, in order.
func WriteChunkedReadResponses(w io.Writer, responses []ChunkedReadResponse) error {
	for _, r := range responses {
		if err := WriteFrame(w, r.Marshal()); err != nil {
			return err
		}
	}
	return nil
}

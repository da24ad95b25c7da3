// Package compress decompresses ingestion payloads ahead of parsing, per the
// content-encoding values each wire format accepts (gzip, snappy block,
// snappy framed, zstd, or plain passthrough).
package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Encoding names a content-encoding value accepted by an ingestion endpoint.
type Encoding string

const (
	Plain        Encoding = "plain"
	Gzip         Encoding = "gzip"
	Snappy       Encoding = "snappy"
	SnappyFramed Encoding = "snappy-framed"
	Zstd         Encoding = "zstd"
)

// ParseEncoding maps a content-encoding header value (case-insensitive) to
// an Encoding, defaulting to Plain for an empty header.
func ParseEncoding(header string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(header)) {
	case "", "identity", "plain":
		return Plain, nil
	case "gzip":
		return Gzip, nil
	case "snappy":
		return Snappy, nil
	case "snappy-framed":
		return SnappyFramed, nil
	case "zstd":
		return Zstd, nil
	default:
		return "", fmt.Errorf("compress: unsupported content-encoding %q", header)
	}
}

// Decompress returns data decompressed according to enc. Snappy here means
// the block format used by Prometheus remote-write; SnappyFramed is the
// streaming framed format some SenML producers use.
func Decompress(enc Encoding, data []byte) ([]byte, error) {
	switch enc {
	case Plain, "":
		return data, nil
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("compress: gzip: %w", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("compress: gzip: %w", err)
		}
		return out, nil
	case Snappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("compress: snappy: %w", err)
		}
		return out, nil
	case SnappyFramed:
		r := snappy.NewReader(bytes.NewReader(data))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("compress: snappy-framed: %w", err)
		}
		return out, nil
	case Zstd:
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("compress: zstd: %w", err)
		}
		defer dec.Close()
		out, err := io.ReadAll(dec)
		if err != nil {
			return nil, fmt.Errorf("compress: zstd: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("compress: unsupported encoding %q", enc)
	}
}

// IsGzipMagic reports whether data begins with the gzip magic number, for
// content-encoding autodetection when the header is absent.
func IsGzipMagic(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

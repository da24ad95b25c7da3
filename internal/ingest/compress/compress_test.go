package compress

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/golang/snappy"
)

func TestParseEncoding(t *testing.T) {
	cases := map[string]Encoding{
		"":              Plain,
		"identity":      Plain,
		"plain":         Plain,
		"GZIP":          Gzip,
		"snappy":        Snappy,
		"snappy-framed": SnappyFramed,
		"zstd":          Zstd,
	}
	for in, want := range cases {
		got, err := ParseEncoding(in)
		if err != nil {
			t.Fatalf("ParseEncoding(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseEncoding(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseEncoding("brotli"); err == nil {
		t.Error("expected an error for an unsupported encoding")
	}
}

func TestDecompressPlain(t *testing.T) {
	out, err := Decompress(Plain, []byte("hello"))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != "hello" {
		t.Errorf("Decompress(Plain) = %q, want %q", out, "hello")
	}
}

func TestDecompressGzip(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte("hello gzip")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := Decompress(Gzip, buf.Bytes())
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != "hello gzip" {
		t.Errorf("Decompress(Gzip) = %q, want %q", out, "hello gzip")
	}
}

func TestDecompressSnappy(t *testing.T) {
	encoded := snappy.Encode(nil, []byte("hello snappy"))
	out, err := Decompress(Snappy, encoded)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != "hello snappy" {
		t.Errorf("Decompress(Snappy) = %q, want %q", out, "hello snappy")
	}
}

func TestIsGzipMagic(t *testing.T) {
	if !IsGzipMagic([]byte{0x1f, 0x8b, 0x08}) {
		t.Error("expected gzip magic to be detected")
	}
	if IsGzipMagic([]byte{0x00, 0x01}) {
		t.Error("expected non-gzip data to not match")
	}
	if IsGzipMagic(nil) {
		t.Error("expected empty data to not match")
	}
}

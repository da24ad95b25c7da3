package lineprotocol

import (
	"context"
	"testing"

	"github.com/pv/sensapp/internal/batching"
)

func TestParsePrecision(t *testing.T) {
	cases := map[string]Precision{
		"":   Nanosecond,
		"ns": Nanosecond,
		"us": Microsecond,
		"ms": Millisecond,
		"s":  Second,
	}
	for in, want := range cases {
		got, err := ParsePrecision(in)
		if err != nil {
			t.Fatalf("ParsePrecision(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParsePrecision(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParsePrecision("fortnights"); err == nil {
		t.Error("expected an error for an unsupported precision")
	}
}

func TestParseIntAndTagFields(t *testing.T) {
	p := &Parser{Precision: Millisecond, Salt: "sensapp"}
	builder := batching.New(8192)
	line := []byte("cpu,host=a usage=42i 1000\n")

	if err := p.Parse(context.Background(), line, nil, builder); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if builder.Len() != 1 {
		t.Fatalf("expected 1 sample accumulated, got %d", builder.Len())
	}
}

func TestParseFloatAsNumeric(t *testing.T) {
	p := &Parser{FloatsAsNumeric: true, Salt: "sensapp"}
	builder := batching.New(8192)
	line := []byte("temperature value=21.5 1000000000\n")

	if err := p.Parse(context.Background(), line, nil, builder); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if builder.Len() != 1 {
		t.Fatalf("expected 1 sample accumulated, got %d", builder.Len())
	}
}

func TestParseMixedFieldKinds(t *testing.T) {
	p := &Parser{Salt: "sensapp"}
	builder := batching.New(8192)
	line := []byte("sensor count=3i,ratio=1.5,label=\"ok\",active=true 1000000000\n")

	if err := p.Parse(context.Background(), line, nil, builder); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if builder.Len() != 4 {
		t.Fatalf("expected 4 samples (one per field), got %d", builder.Len())
	}
}

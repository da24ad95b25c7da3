package senml

import (
	"context"
	"testing"

	"github.com/pv/sensapp/internal/batching"
)

func TestParseBaseNameAndValue(t *testing.T) {
	payload := []byte(`[
		{"bn":"temperature-", "bu":"Cel", "bt": 1609459200},
		{"n":"room1", "v": 21.5, "t": 0},
		{"n":"room2", "v": 22.1, "t": 1}
	]`)

	p := &Parser{Salt: "sensapp"}
	builder := batching.New(8192)
	if err := p.Parse(context.Background(), payload, nil, builder); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if builder.Len() != 2 {
		t.Fatalf("expected 2 samples (one per sensor), got %d", builder.Len())
	}
}

func TestParseStringBoolAndBlob(t *testing.T) {
	payload := []byte(`[
		{"bn":"status", "vs": "ok", "t": 1609459200},
		{"bn":"alarm", "vb": true, "t": 1609459200},
		{"bn":"blob", "vd": "aGVsbG8=", "t": 1609459200}
	]`)

	p := &Parser{Salt: "sensapp"}
	builder := batching.New(8192)
	if err := p.Parse(context.Background(), payload, nil, builder); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if builder.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", builder.Len())
	}
}

func TestParseMissingName(t *testing.T) {
	payload := []byte(`[{"v": 1, "t": 0}]`)
	p := &Parser{Salt: "sensapp"}
	builder := batching.New(8192)
	if err := p.Parse(context.Background(), payload, nil, builder); err == nil {
		t.Error("expected an error for a record with no resolvable name")
	}
}

func TestParseExtraFieldsBecomeLabels(t *testing.T) {
	payload := []byte(`[{"bn":"temperature", "v": 21.5, "t": 0, "host": "sensor-a"}]`)
	p := &Parser{Salt: "sensapp"}
	builder := batching.New(8192)
	if err := p.Parse(context.Background(), payload, nil, builder); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if builder.Len() != 1 {
		t.Fatalf("expected 1 sample, got %d", builder.Len())
	}
}

func TestSenmlTimeAbsoluteVsRelative(t *testing.T) {
	absolute := senmlTime(1609459200)
	if absolute.Year() != 2021 {
		t.Errorf("expected an absolute timestamp to resolve to 2021, got %v", absolute)
	}

	relative := senmlTime(5)
	if relative.Before(absolute) {
		t.Errorf("expected a small relative offset to resolve near now, got %v", relative)
	}
}

package csv

import (
	"context"
	"testing"

	"github.com/pv/sensapp/internal/batching"
)

func TestParseSimpleColumns(t *testing.T) {
	data := []byte("name,temperature,active\n" +
		"room1,21.5,true\n" +
		"room2,22.0,false\n")

	p := &Parser{Salt: "sensapp"}
	builder := batching.New(8192)
	if err := p.Parse(context.Background(), data, nil, builder); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// 3 columns * 2 rows each = 6 samples total.
	if builder.Len() != 6 {
		t.Fatalf("expected 6 samples, got %d", builder.Len())
	}
}

func TestParseWithTimestampColumn(t *testing.T) {
	data := []byte("timestamp,value\n" +
		"1609459200,1\n" +
		"1609459260,2\n")

	p := &Parser{Salt: "sensapp"}
	builder := batching.New(8192)
	if err := p.Parse(context.Background(), data, nil, builder); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// timestamp column is consumed as the time axis, not its own sensor.
	if builder.Len() != 2 {
		t.Fatalf("expected 2 samples (one sensor column), got %d", builder.Len())
	}
}

func TestParseWithLatLonColumns(t *testing.T) {
	data := []byte("lat,lon,reading\n" +
		"45.0,-120.0,1\n" +
		"46.0,-121.0,2\n")

	p := &Parser{Salt: "sensapp"}
	builder := batching.New(8192)
	if err := p.Parse(context.Background(), data, nil, builder); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// one location sensor (2 samples) plus one reading sensor (2 samples).
	if builder.Len() != 4 {
		t.Fatalf("expected 4 samples, got %d", builder.Len())
	}
}

func TestParseRequiresHeaderAndDataRow(t *testing.T) {
	p := &Parser{Salt: "sensapp"}
	builder := batching.New(8192)
	if err := p.Parse(context.Background(), []byte("header_only\n"), nil, builder); err == nil {
		t.Error("expected an error when no data rows are present")
	}
}

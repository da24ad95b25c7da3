package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/storage"
)

func sampleData() *storage.SensorData {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &storage.SensorData{
		Sensor: &datamodel.Sensor{
			UUID:   uuid.New(),
			Name:   "temperature",
			Kind:   datamodel.KindFloat,
			Unit:   &datamodel.Unit{Name: "Cel"},
			Labels: []datamodel.Label{{Key: "room", Value: "kitchen"}},
		},
		Samples: datamodel.TypedSamples{
			Kind: datamodel.KindFloat,
			Floats: []datamodel.FloatSample{
				{Time: t0, Value: 21.5},
				{Time: t0.Add(time.Minute), Value: 21.7},
			},
		},
	}
}

func TestParseFormatDefaultsToSenML(t *testing.T) {
	f, err := ParseFormat("")
	if err != nil || f != SenML {
		t.Fatalf("got %v, %v", f, err)
	}
}

func TestParseFormatRejectsUnknown(t *testing.T) {
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWriteSenML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, SenML, sampleData()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var rows []senmlRecord
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 records, got %d", len(rows))
	}
	if rows[0].BaseName != "temperature" {
		t.Fatalf("expected bn on first record, got %q", rows[0].BaseName)
	}
	if rows[1].Value == nil || *rows[1].Value != 21.7 {
		t.Fatalf("unexpected value: %+v", rows[1].Value)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, CSV, sampleData()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, JSONL, sampleData()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 jsonl rows, got %d", len(lines))
	}
	var row jsonlRow
	if err := json.Unmarshal([]byte(lines[0]), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if row.Kind != "float" {
		t.Fatalf("unexpected kind: %q", row.Kind)
	}
}

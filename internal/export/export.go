// Package export renders a storage.SensorData window as SenML, CSV, or
// JSON-Lines for the series download and simple-query endpoints. Arrow is
// downgraded to a schema-stable JSON-Lines-with-typed-columns rendering
// (JSONL with an explicit "kind" field) since no Arrow library appears
// anywhere in the retrieved pack; see DESIGN.md.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/storage"
)

// Format names a response format selectable via the "format" query
// parameter.
type Format string

const (
	SenML Format = "senml"
	CSV   Format = "csv"
	JSONL Format = "jsonl"
	Arrow Format = "arrow"
)

// ParseFormat maps a query-parameter value to a Format, defaulting to SenML.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", SenML:
		return SenML, nil
	case CSV, JSONL, Arrow:
		return Format(s), nil
	default:
		return "", fmt.Errorf("export: unsupported format %q", s)
	}
}

// ContentType returns the HTTP content-type for f.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv"
	case JSONL, Arrow:
		return "application/x-ndjson"
	default:
		return "application/senml+json"
	}
}

// record is one flattened (timestamp, value) row ready for any renderer.
type record struct {
	timestampMS int64
	value       interface{}
}

func flatten(d *storage.SensorData) []record {
	s := d.Samples
	out := make([]record, 0, s.Len())
	switch s.Kind {
	case datamodel.KindInteger:
		for _, v := range s.Integers {
			out = append(out, record{v.Time.UnixMilli(), v.Value})
		}
	case datamodel.KindNumeric:
		for _, v := range s.Numerics {
			out = append(out, record{v.Time.UnixMilli(), v.Value.String()})
		}
	case datamodel.KindFloat:
		for _, v := range s.Floats {
			out = append(out, record{v.Time.UnixMilli(), v.Value})
		}
	case datamodel.KindString:
		for _, v := range s.Strings {
			out = append(out, record{v.Time.UnixMilli(), v.Value})
		}
	case datamodel.KindBoolean:
		for _, v := range s.Booleans {
			out = append(out, record{v.Time.UnixMilli(), v.Value})
		}
	case datamodel.KindLocation:
		for _, v := range s.Locations {
			out = append(out, record{v.Time.UnixMilli(), [2]float64{v.Value[1], v.Value[0]}})
		}
	case datamodel.KindBlob:
		for _, v := range s.Blobs {
			out = append(out, record{v.Time.UnixMilli(), v.Value})
		}
	case datamodel.KindJSON:
		for _, v := range s.JSONs {
			out = append(out, record{v.Time.UnixMilli(), json.RawMessage(v.Value)})
		}
	}
	return out
}

// Write renders d in format f to w.
func Write(w io.Writer, f Format, d *storage.SensorData) error {
	switch f {
	case SenML:
		return writeSenML(w, d)
	case CSV:
		return writeCSV(w, d)
	case JSONL, Arrow:
		return writeJSONL(w, d)
	default:
		return fmt.Errorf("export: unsupported format %q", f)
	}
}

// senmlRecord uses RFC 8428's bn, n, u, t, v, vs and vb field names plus a
// `_labels` extension field; one object per sample. Every record carries the
// full sensor name in n and the unit in u; the first record also carries the
// name in bn.
type senmlRecord struct {
	BaseName    string   `json:"bn,omitempty"`
	Name        string   `json:"n,omitempty"`
	Unit        string   `json:"u,omitempty"`
	Time        float64  `json:"t"`
	Value       *float64 `json:"v,omitempty"`
	StringValue *string  `json:"vs,omitempty"`
	BoolValue   *bool    `json:"vb,omitempty"`
	Labels      string   `json:"_labels,omitempty"`
}

func writeSenML(w io.Writer, d *storage.SensorData) error {
	unit := ""
	if d.Sensor.Unit != nil {
		unit = d.Sensor.Unit.Name
	}
	labels := labelsDescriptor(d.Sensor)

	var out []senmlRecord
	for i, rec := range flatten(d) {
		r := senmlRecord{
			Name:   d.Sensor.Name,
			Unit:   unit,
			Time:   float64(rec.timestampMS) / 1000,
			Labels: labels,
		}
		if i == 0 {
			r.BaseName = d.Sensor.Name
		}
		switch v := rec.value.(type) {
		case int64:
			f := float64(v)
			r.Value = &f
		case float64:
			r.Value = &v
		case bool:
			r.BoolValue = &v
		default:
			s := fmt.Sprintf("%v", v)
			r.StringValue = &s
		}
		out = append(out, r)
	}

	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func writeCSV(w io.Writer, d *storage.SensorData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp_ms", "value"}); err != nil {
		return err
	}
	for _, rec := range flatten(d) {
		if err := cw.Write([]string{strconv.FormatInt(rec.timestampMS, 10), fmt.Sprintf("%v", rec.value)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonlRow struct {
	TimestampMS int64       `json:"timestamp_ms"`
	Value       interface{} `json:"value"`
	Kind        string      `json:"kind"`
}

func writeJSONL(w io.Writer, d *storage.SensorData) error {
	enc := json.NewEncoder(w)
	kind := d.Sensor.Kind.String()
	for _, rec := range flatten(d) {
		if err := enc.Encode(jsonlRow{TimestampMS: rec.timestampMS, Value: rec.value, Kind: kind}); err != nil {
			return err
		}
	}
	return nil
}

// WriteMulti renders several sensors' data as one response, for the simple
// query endpoint where a selector can resolve to more than one sensor.
// metricName is the selector's resolved name, carried in SenML's "_name"
// field per spec.md §4.8 so that distinct sensors sharing it are
// disambiguated by "_labels" rather than colliding on "n".
func WriteMulti(w io.Writer, f Format, metricName string, items []*storage.SensorData) error {
	switch f {
	case SenML:
		return writeMultiSenML(w, metricName, items)
	case CSV:
		return writeMultiCSV(w, items)
	case JSONL, Arrow:
		return writeMultiJSONL(w, items)
	default:
		return fmt.Errorf("export: unsupported format %q", f)
	}
}

type multiSenMLRecord struct {
	senmlRecord
	MetricName string `json:"_name,omitempty"`
}

func writeMultiSenML(w io.Writer, metricName string, items []*storage.SensorData) error {
	var out []multiSenMLRecord
	for _, d := range items {
		unit := ""
		if d.Sensor.Unit != nil {
			unit = d.Sensor.Unit.Name
		}
		labels := labelsDescriptor(d.Sensor)
		for i, rec := range flatten(d) {
			r := multiSenMLRecord{
				senmlRecord: senmlRecord{
					Name:   d.Sensor.Name,
					Unit:   unit,
					Time:   float64(rec.timestampMS) / 1000,
					Labels: labels,
				},
				MetricName: metricName,
			}
			if i == 0 {
				r.BaseName = d.Sensor.Name
			}
			switch v := rec.value.(type) {
			case int64:
				f := float64(v)
				r.Value = &f
			case float64:
				r.Value = &v
			case bool:
				r.BoolValue = &v
			default:
				s := fmt.Sprintf("%v", v)
				r.StringValue = &s
			}
			out = append(out, r)
		}
	}
	return json.NewEncoder(w).Encode(out)
}

func writeMultiCSV(w io.Writer, items []*storage.SensorData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"sensor_uuid", "timestamp_ms", "value"}); err != nil {
		return err
	}
	for _, d := range items {
		id := d.Sensor.UUID.String()
		for _, rec := range flatten(d) {
			if err := cw.Write([]string{id, strconv.FormatInt(rec.timestampMS, 10), fmt.Sprintf("%v", rec.value)}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

type multiJSONLRow struct {
	SensorUUID  string      `json:"sensor_uuid"`
	TimestampMS int64       `json:"timestamp_ms"`
	Value       interface{} `json:"value"`
	Kind        string      `json:"kind"`
}

func writeMultiJSONL(w io.Writer, items []*storage.SensorData) error {
	enc := json.NewEncoder(w)
	for _, d := range items {
		id := d.Sensor.UUID.String()
		kind := d.Sensor.Kind.String()
		for _, rec := range flatten(d) {
			if err := enc.Encode(multiJSONLRow{SensorUUID: id, TimestampMS: rec.timestampMS, Value: rec.value, Kind: kind}); err != nil {
				return err
			}
		}
	}
	return nil
}

func labelsDescriptor(s *datamodel.Sensor) string {
	if len(s.Labels) == 0 {
		return ""
	}
	out := ""
	for i, l := range s.Labels {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%s=%q", l.Key, l.Value)
	}
	return out
}

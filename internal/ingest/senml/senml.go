// Package senml parses SenML (RFC 8428) JSON payloads into sensapp sensors
// and samples. Unlike the original implementation (which leans on a
// third-party SenML crate), no SenML library exists anywhere in the
// retrieved pack, so this decodes the JSON array directly against
// encoding/json and resolves the RFC 8428 base-value rules by hand; see
// DESIGN.md.
package senml

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pv/sensapp/internal/batching"
	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/ingest"
)

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// record mirrors one element of a SenML Pack, using the RFC 8428 field
// names. Base fields (bn, bt, bu, bver) apply to every record until a later
// record overrides them.
type record struct {
	BaseName    string   `json:"bn,omitempty"`
	BaseTime    float64  `json:"bt,omitempty"`
	BaseUnit    string   `json:"bu,omitempty"`
	BaseVersion int      `json:"bver,omitempty"`
	Name        string   `json:"n,omitempty"`
	Unit        string   `json:"u,omitempty"`
	Value       *float64 `json:"v,omitempty"`
	StringValue *string  `json:"vs,omitempty"`
	BoolValue   *bool    `json:"vb,omitempty"`
	DataValue   *string  `json:"vd,omitempty"` // base64
	Sum         *float64 `json:"s,omitempty"`
	Time        float64  `json:"t,omitempty"`

	Extra map[string]interface{} `json:"-"`
}

// UnmarshalJSON captures every field not named by RFC 8428 into Extra, so
// producer-supplied attributes (e.g. "host") become labels.
func (r *record) UnmarshalJSON(data []byte) error {
	type alias record
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = record(a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	known := map[string]bool{
		"bn": true, "bt": true, "bu": true, "bver": true,
		"n": true, "u": true, "v": true, "vs": true, "vb": true,
		"vd": true, "s": true, "t": true,
	}
	r.Extra = make(map[string]interface{})
	for k, v := range raw {
		if known[k] {
			continue
		}
		var val interface{}
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		r.Extra[k] = val
	}
	return nil
}

// Parser parses SenML JSON payloads.
type Parser struct {
	Salt string
}

var _ ingest.Parser = (*Parser)(nil)

// Parse implements ingest.Parser.
func (p *Parser) Parse(ctx context.Context, data []byte, labelContext map[string]string, builder *batching.BatchBuilder) error {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("senml: %w", err)
	}

	var baseName string
	var baseTime float64
	var baseUnit string

	for i, r := range records {
		if r.BaseName != "" {
			baseName = r.BaseName
		}
		if r.BaseTime != 0 {
			baseTime = r.BaseTime
		}
		if r.BaseUnit != "" {
			baseUnit = r.BaseUnit
		}
		if r.Name == "" && r.Value == nil && r.StringValue == nil && r.BoolValue == nil &&
			r.DataValue == nil && r.Sum == nil {
			// A record with only base fields sets context for later records.
			continue
		}

		name := baseName + r.Name
		if name == "" {
			return fmt.Errorf("senml: record %d has no resolvable name", i)
		}
		unit := r.Unit
		if unit == "" {
			unit = baseUnit
		}

		sensapTime := senmlTime(baseTime + r.Time)

		kind, samples, err := convertValue(r, sensapTime)
		if err != nil {
			return fmt.Errorf("senml: record %d: %w", i, err)
		}

		var sensorUnit *datamodel.Unit
		if unit != "" {
			sensorUnit = &datamodel.Unit{Name: unit}
		}

		tags := make([]datamodel.Label, 0, len(r.Extra))
		for k, v := range r.Extra {
			tags = append(tags, datamodel.Label{Key: k, Value: fmt.Sprintf("%v", v)})
		}
		labels := ingest.BuildLabels(labelContext, tags)

		sensor := datamodel.NewDerivedSensor(name, kind, sensorUnit, labels, p.Salt)
		if err := builder.Add(sensor, samples); err != nil {
			return err
		}
	}
	return nil
}

func convertValue(r record, t time.Time) (datamodel.SampleKind, datamodel.TypedSamples, error) {
	switch {
	case r.Sum != nil:
		if r.Value != nil {
			return 0, datamodel.TypedSamples{}, fmt.Errorf("cannot have both v and s")
		}
		return datamodel.KindFloat, datamodel.TypedSamples{
			Kind:   datamodel.KindFloat,
			Floats: []datamodel.FloatSample{{Time: t, Value: *r.Sum}},
		}, nil
	case r.Value != nil:
		return datamodel.KindFloat, datamodel.TypedSamples{
			Kind:   datamodel.KindFloat,
			Floats: []datamodel.FloatSample{{Time: t, Value: *r.Value}},
		}, nil
	case r.StringValue != nil:
		return datamodel.KindString, datamodel.TypedSamples{
			Kind:    datamodel.KindString,
			Strings: []datamodel.StringSample{{Time: t, Value: *r.StringValue}},
		}, nil
	case r.BoolValue != nil:
		return datamodel.KindBoolean, datamodel.TypedSamples{
			Kind:     datamodel.KindBoolean,
			Booleans: []datamodel.BooleanSample{{Time: t, Value: *r.BoolValue}},
		}, nil
	case r.DataValue != nil:
		blob, err := decodeBase64(*r.DataValue)
		if err != nil {
			return 0, datamodel.TypedSamples{}, err
		}
		return datamodel.KindBlob, datamodel.TypedSamples{
			Kind:  datamodel.KindBlob,
			Blobs: []datamodel.BlobSample{{Time: t, Value: blob}},
		}, nil
	default:
		return 0, datamodel.TypedSamples{}, fmt.Errorf("no value or sum found")
	}
}

// senmlTime converts a SenML time value (seconds, absolute if >= 2^28 per
// RFC 8428, otherwise relative to the current instant) to a UTC time.Time.
func senmlTime(seconds float64) time.Time {
	const absoluteThreshold = 1 << 28
	if seconds >= absoluteThreshold || seconds <= -absoluteThreshold {
		whole := int64(seconds)
		frac := seconds - float64(whole)
		return time.Unix(whole, int64(frac*1e9)).UTC()
	}
	return time.Now().UTC().Add(time.Duration(seconds * float64(time.Second)))
}

// Package lineprotocol adapts InfluxDB line protocol payloads (the
// /api/v2/write ingestion surface) into sensapp sensors and samples, grounded
// on the original Rust InfluxParser.
package lineprotocol

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"
	"github.com/shopspring/decimal"

	"github.com/pv/sensapp/internal/batching"
	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/ingest"
)

// Precision names the unit of a line's timestamp, mirroring InfluxDB's
// precision query parameter.
type Precision int

const (
	Nanosecond Precision = iota
	Microsecond
	Millisecond
	Second
)

// ParsePrecision maps the InfluxDB v2 write API's precision query parameter
// (ns|us|ms|s, default ns) to a Precision.
func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "", "ns":
		return Nanosecond, nil
	case "us":
		return Microsecond, nil
	case "ms":
		return Millisecond, nil
	case "s":
		return Second, nil
	default:
		return 0, fmt.Errorf("lineprotocol: unsupported precision %q", s)
	}
}

func (p Precision) unit() lineprotocol.Precision {
	switch p {
	case Microsecond:
		return lineprotocol.Microsecond
	case Millisecond:
		return lineprotocol.Millisecond
	case Second:
		return lineprotocol.Second
	default:
		return lineprotocol.Nanosecond
	}
}

// Parser parses InfluxDB line protocol. When FloatsAsNumeric is set, float
// fields are stored as arbitrary-precision Numeric samples instead of Float,
// matching the original implementation's floats_as_numeric option.
type Parser struct {
	Precision       Precision
	FloatsAsNumeric bool
	Salt            string
}

var _ ingest.Parser = (*Parser)(nil)

// Parse implements ingest.Parser. data must already be decompressed text.
func (p *Parser) Parse(ctx context.Context, data []byte, labelContext map[string]string, builder *batching.BatchBuilder) error {
	dec := lineprotocol.NewDecoderWithBytes(data)
	for dec.Next() {
		measurement, err := dec.Measurement()
		if err != nil {
			return fmt.Errorf("lineprotocol: measurement: %w", err)
		}
		encodedMeasurement := url.QueryEscape(string(measurement))

		var tags []datamodel.Label
		for {
			key, value, err := dec.NextTag()
			if err != nil {
				return fmt.Errorf("lineprotocol: tag: %w", err)
			}
			if key == nil {
				break
			}
			tags = append(tags, datamodel.Label{Key: string(key), Value: string(value)})
		}
		labels := ingest.BuildLabels(labelContext, tags)

		t, err := dec.Time(p.unit(), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("lineprotocol: time: %w", err)
		}

		for {
			key, value, err := dec.NextField()
			if err != nil {
				return fmt.Errorf("lineprotocol: field: %w", err)
			}
			if key == nil {
				break
			}
			sensorName := fmt.Sprintf("%s %s", encodedMeasurement, url.QueryEscape(string(key)))
			kind, samples, err := p.convertField(value, t)
			if err != nil {
				return fmt.Errorf("lineprotocol: field %s: %w", key, err)
			}
			sensor := datamodel.NewDerivedSensor(sensorName, kind, nil, labels, p.Salt)
			if err := builder.Add(sensor, samples); err != nil {
				return err
			}
		}
	}
	if err := dec.Err(); err != nil {
		return fmt.Errorf("lineprotocol: %w", err)
	}
	return nil
}

func (p *Parser) convertField(value lineprotocol.Value, t time.Time) (datamodel.SampleKind, datamodel.TypedSamples, error) {
	switch value.Kind() {
	case lineprotocol.Int:
		return datamodel.KindInteger, oneInteger(value.IntV(), t), nil
	case lineprotocol.Uint:
		u := value.UintV()
		if u > 1<<63-1 {
			return 0, datamodel.TypedSamples{}, fmt.Errorf("u64 value %d too big to convert to i64", u)
		}
		return datamodel.KindInteger, oneInteger(int64(u), t), nil
	case lineprotocol.Float:
		f := value.FloatV()
		if p.FloatsAsNumeric {
			return datamodel.KindNumeric, oneNumeric(decimal.NewFromFloat(f), t), nil
		}
		return datamodel.KindFloat, oneFloat(f, t), nil
	case lineprotocol.String:
		return datamodel.KindString, oneString(value.StringV(), t), nil
	case lineprotocol.Bool:
		return datamodel.KindBoolean, oneBoolean(value.BoolV(), t), nil
	default:
		return 0, datamodel.TypedSamples{}, fmt.Errorf("unsupported field kind %v", value.Kind())
	}
}

func oneInteger(v int64, t time.Time) datamodel.TypedSamples {
	return datamodel.TypedSamples{Kind: datamodel.KindInteger, Integers: []datamodel.IntegerSample{{Time: t, Value: v}}}
}

func oneNumeric(v decimal.Decimal, t time.Time) datamodel.TypedSamples {
	return datamodel.TypedSamples{Kind: datamodel.KindNumeric, Numerics: []datamodel.NumericSample{{Time: t, Value: v}}}
}

func oneFloat(v float64, t time.Time) datamodel.TypedSamples {
	return datamodel.TypedSamples{Kind: datamodel.KindFloat, Floats: []datamodel.FloatSample{{Time: t, Value: v}}}
}

func oneString(v string, t time.Time) datamodel.TypedSamples {
	return datamodel.TypedSamples{Kind: datamodel.KindString, Strings: []datamodel.StringSample{{Time: t, Value: v}}}
}

func oneBoolean(v bool, t time.Time) datamodel.TypedSamples {
	return datamodel.TypedSamples{Kind: datamodel.KindBoolean, Booleans: []datamodel.BooleanSample{{Time: t, Value: v}}}
}

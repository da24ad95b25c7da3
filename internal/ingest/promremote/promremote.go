// Package promremote adapts Prometheus remote-write WriteRequest payloads
// into sensapp sensors and samples. The wire codec itself lives in
// internal/promwire; this package only maps labels/samples onto the domain
// model and drops Prometheus stale markers.
package promremote

import (
	"context"
	"fmt"
	"time"

	"github.com/pv/sensapp/internal/batching"
	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/ingest"
	"github.com/pv/sensapp/internal/promwire"
)

// Parser parses Prometheus remote-write WriteRequest protobufs.
type Parser struct {
	Salt string
}

var _ ingest.Parser = (*Parser)(nil)

// Parse implements ingest.Parser. data is the raw (already snappy-decoded)
// protobuf body.
func (p *Parser) Parse(ctx context.Context, data []byte, labelContext map[string]string, builder *batching.BatchBuilder) error {
	req, err := promwire.UnmarshalWriteRequest(data)
	if err != nil {
		return fmt.Errorf("promremote: %w", err)
	}

	for _, ts := range req.Timeseries {
		name, unit, tags, err := splitLabels(ts.Labels)
		if err != nil {
			return err
		}
		if name == "" {
			return fmt.Errorf("promremote: time series missing __name__ label")
		}
		labels := ingest.BuildLabels(labelContext, tags)

		var floats []datamodel.FloatSample
		for _, s := range ts.Samples {
			if datamodel.IsStaleMarker(s.Value) {
				continue
			}
			floats = append(floats, datamodel.FloatSample{
				Time:  time.UnixMilli(s.TimestampMS).UTC(),
				Value: s.Value,
			})
		}
		if len(floats) == 0 {
			continue
		}

		var sensorUnit *datamodel.Unit
		if unit != "" {
			sensorUnit = &datamodel.Unit{Name: unit}
		}
		sensor := datamodel.NewDerivedSensor(name, datamodel.KindFloat, sensorUnit, labels, p.Salt)
		samples := datamodel.TypedSamples{Kind: datamodel.KindFloat, Floats: floats}
		if err := builder.Add(sensor, samples); err != nil {
			return err
		}
	}
	return nil
}

// splitLabels pulls the reserved __name__ and unit labels out of a
// Prometheus label set, returning the remaining tags.
func splitLabels(in []promwire.Label) (name, unit string, tags []datamodel.Label, err error) {
	tags = make([]datamodel.Label, 0, len(in))
	for _, l := range in {
		switch l.Name {
		case datamodel.ReservedNameLabel:
			name = l.Value
		case "unit":
			unit = l.Value
		default:
			tags = append(tags, datamodel.Label{Key: l.Name, Value: l.Value})
		}
	}
	return name, unit, tags, nil
}

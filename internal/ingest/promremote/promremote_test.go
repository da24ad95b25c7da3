package promremote

import (
	"context"
	"math"
	"testing"

	"github.com/pv/sensapp/internal/batching"
	"github.com/pv/sensapp/internal/promwire"
)

// staleMarker is Prometheus's reserved "stale" NaN bit pattern.
var staleMarker = math.Float64frombits(0x7ff0000000000002)

func TestParseWriteRequest(t *testing.T) {
	req := promwire.WriteRequest{
		Timeseries: []promwire.TimeSeries{
			{
				Labels: []promwire.Label{
					{Name: "__name__", Value: "cpu_usage"},
					{Name: "host", Value: "a"},
				},
				Samples: []promwire.Sample{
					{TimestampMS: 1000, Value: 42.5},
					{TimestampMS: 2000, Value: staleMarker},
				},
			},
		},
	}
	data := req.Marshal()

	p := &Parser{Salt: "sensapp"}
	builder := batching.New(8192)
	if err := p.Parse(context.Background(), data, nil, builder); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if builder.Len() != 1 {
		t.Fatalf("expected 1 sample (stale marker dropped), got %d", builder.Len())
	}
}

func TestParseWriteRequestMissingName(t *testing.T) {
	req := promwire.WriteRequest{
		Timeseries: []promwire.TimeSeries{
			{
				Labels:  []promwire.Label{{Name: "host", Value: "a"}},
				Samples: []promwire.Sample{{TimestampMS: 1000, Value: 1}},
			},
		},
	}
	p := &Parser{Salt: "sensapp"}
	builder := batching.New(8192)
	if err := p.Parse(context.Background(), req.Marshal(), nil, builder); err == nil {
		t.Error("expected an error for a time series missing __name__")
	}
}

func TestParseWriteRequestAllStaleSkipsSensor(t *testing.T) {
	req := promwire.WriteRequest{
		Timeseries: []promwire.TimeSeries{
			{
				Labels:  []promwire.Label{{Name: "__name__", Value: "cpu_usage"}},
				Samples: []promwire.Sample{{TimestampMS: 1000, Value: staleMarker}},
			},
		},
	}
	p := &Parser{Salt: "sensapp"}
	builder := batching.New(8192)
	if err := p.Parse(context.Background(), req.Marshal(), nil, builder); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if builder.Len() != 0 {
		t.Fatalf("expected 0 samples, got %d", builder.Len())
	}
}

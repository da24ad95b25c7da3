package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(context.Background(), Config{Source: "file::memory:?cache=shared"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.CreateOrMigrate(context.Background()); err != nil {
		t.Fatalf("CreateOrMigrate: %v", err)
	}
	return store
}

func publishOne(t *testing.T, store *Store, sensor *datamodel.Sensor, samples datamodel.TypedSamples) {
	t.Helper()
	batch := &datamodel.Batch{Sensors: []*datamodel.SingleSensorBatch{
		datamodel.NewSingleSensorBatch(sensor, samples),
	}}
	syncCh := make(chan storage.Sync, 1)
	if err := store.Publish(context.Background(), batch, syncCh); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	<-syncCh
}

func TestCreateOrMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateOrMigrate(context.Background()); err != nil {
		t.Fatalf("second CreateOrMigrate: %v", err)
	}
}

func TestPublishAndQuerySensorData(t *testing.T) {
	store := newTestStore(t)
	sensor := datamodel.NewDerivedSensor("temperature", datamodel.KindFloat, nil,
		[]datamodel.Label{{Key: "room", Value: "kitchen"}}, "sensapp")

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := datamodel.TypedSamples{
		Kind: datamodel.KindFloat,
		Floats: []datamodel.FloatSample{
			{Time: t0, Value: 21.5},
			{Time: t0.Add(time.Minute), Value: 22.0},
		},
	}
	publishOne(t, store, sensor, samples)

	data, err := store.QuerySensorData(context.Background(), sensor.UUID.String(), 0, 0, 0)
	if err != nil {
		t.Fatalf("QuerySensorData: %v", err)
	}
	if data == nil {
		t.Fatal("expected sensor data, got nil")
	}
	if data.Samples.Len() != 2 {
		t.Fatalf("expected 2 samples, got %d", data.Samples.Len())
	}
}

func TestQuerySensorDataMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)
	data, err := store.QuerySensorData(context.Background(), "00000000-0000-0000-0000-000000000000", 0, 0, 0)
	if err != nil {
		t.Fatalf("QuerySensorData: %v", err)
	}
	if data != nil {
		t.Fatal("expected nil for an unknown sensor")
	}
}

func TestListMetricsAndSeries(t *testing.T) {
	store := newTestStore(t)
	sensor := datamodel.NewDerivedSensor("cpu_usage", datamodel.KindFloat, nil, nil, "sensapp")
	publishOne(t, store, sensor, datamodel.TypedSamples{
		Kind:   datamodel.KindFloat,
		Floats: []datamodel.FloatSample{{Time: time.Now().UTC(), Value: 1.0}},
	})

	metrics, err := store.ListMetrics(context.Background())
	if err != nil {
		t.Fatalf("ListMetrics: %v", err)
	}
	found := false
	for _, m := range metrics {
		if m.Name == "cpu_usage" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected cpu_usage to appear in ListMetrics")
	}

	series, err := store.ListSeries(context.Background(), "cpu_usage")
	if err != nil {
		t.Fatalf("ListSeries: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("expected 1 series, got %d", len(series))
	}
}

func TestQueryPrometheusTimeSeriesMatchesByName(t *testing.T) {
	store := newTestStore(t)
	sensor := datamodel.NewDerivedSensor("disk_free", datamodel.KindFloat, nil,
		[]datamodel.Label{{Key: "mount", Value: "/data"}}, "sensapp")
	publishOne(t, store, sensor, datamodel.TypedSamples{
		Kind:   datamodel.KindFloat,
		Floats: []datamodel.FloatSample{{Time: time.Now().UTC(), Value: 100.0}},
	})

	matcher := datamodel.SensorMatcher{
		NameMatcher: datamodel.StringMatcher{Value: "disk_free", Op: datamodel.OpEqual},
	}
	results, err := store.QueryPrometheusTimeSeries(context.Background(), matcher, 0, 0)
	if err != nil {
		t.Fatalf("QueryPrometheusTimeSeries: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 matching series, got %d", len(results))
	}
}

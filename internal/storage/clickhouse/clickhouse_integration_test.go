package clickhouse

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/storage"
)

// Requires env CLICKHOUSE_TEST_DSN pointing to a writable test database.
func TestPublishAndQuery_ClickHouse(t *testing.T) {
	dsn := os.Getenv("CLICKHOUSE_TEST_DSN")
	if dsn == "" {
		t.Skip("CLICKHOUSE_TEST_DSN is not set; skipping integration test")
	}
	ctx := context.Background()

	store, err := New(ctx, Config{DSN: dsn})
	if err != nil {
		t.Fatalf("clickhouse.New: %v", err)
	}
	defer store.Close()

	if err := store.CreateOrMigrate(ctx); err != nil {
		t.Fatalf("CreateOrMigrate: %v", err)
	}

	sensor := datamodel.NewDerivedSensor("integration_humidity", datamodel.KindFloat, nil, nil, "sensapp")
	batch := &datamodel.Batch{Sensors: []*datamodel.SingleSensorBatch{
		datamodel.NewSingleSensorBatch(sensor, datamodel.TypedSamples{
			Kind:   datamodel.KindFloat,
			Floats: []datamodel.FloatSample{{Time: time.Now().UTC(), Value: 55.2}},
		}),
	}}
	syncCh := make(chan storage.Sync, 1)
	if err := store.Publish(ctx, batch, syncCh); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	<-syncCh

	data, err := store.QuerySensorData(ctx, sensor.UUID.String(), 0, 0, 0)
	if err != nil {
		t.Fatalf("QuerySensorData: %v", err)
	}
	if data == nil || data.Samples.Len() != 1 {
		t.Fatalf("expected 1 persisted sample, got %v", data)
	}
}

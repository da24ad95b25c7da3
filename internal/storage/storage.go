// Package storage defines the backend-agnostic contract every storage
// implementation satisfies, plus the shared error taxonomy.
package storage

import (
	"context"
	"time"

	"github.com/pv/sensapp/internal/datamodel"
)

// Sync is broadcast by a backend once it has durably committed (or made its
// best synchronous effort for) a published batch.
type Sync struct{}

// Storage is the contract every backend implements. All operations are
// suspension points; context cancellation must be honored promptly.
type Storage interface {
	// CreateOrMigrate brings the backend's schema to the current version.
	// Idempotent.
	CreateOrMigrate(ctx context.Context) error

	// Publish commits batch atomically. On success it sends one Sync value
	// on syncCh within the configured sync timeout.
	Publish(ctx context.Context, batch *datamodel.Batch, syncCh chan<- Sync) error

	// Sync is an optional durability barrier; on return it sends one Sync
	// value on syncCh.
	Sync(ctx context.Context, syncCh chan<- Sync) error

	// Vacuum performs optional compaction; backends without one are no-ops.
	Vacuum(ctx context.Context) error

	// ListSeries enumerates sensors, optionally filtered by metric name.
	ListSeries(ctx context.Context, metricFilter string) ([]*datamodel.Sensor, error)

	// ListMetrics enumerates distinct (name, kind, unit) with series counts.
	ListMetrics(ctx context.Context) ([]MetricSummary, error)

	// QuerySensorData returns a sensor's samples within [start, end]
	// (millisecond epochs; zero means unbounded), up to limit samples
	// (0 means unbounded). Returns (nil, nil) if the sensor does not exist.
	QuerySensorData(ctx context.Context, nameOrUUID string, startMS, endMS, limit int64) (*SensorData, error)

	// QueryPrometheusTimeSeries resolves matchers to sensors and returns
	// their samples within [startMS, endMS].
	QueryPrometheusTimeSeries(ctx context.Context, matchers datamodel.SensorMatcher, startMS, endMS int64) ([]SensorData, error)
}

// MetricSummary describes a distinct (name, kind, unit) with its series
// count.
type MetricSummary struct {
	Name        string
	Kind        datamodel.SampleKind
	UnitName    string
	SeriesCount int64
}

// SensorData pairs a sensor with a window of its samples.
type SensorData struct {
	Sensor  *datamodel.Sensor
	Samples datamodel.TypedSamples
}

// FloatPoint is the projection of a stored sample used by the Prometheus
// read path: only float-compatible types participate there.
type FloatPoint struct {
	TimestampMS int64
	Value       float64
}

// ToFloatPoints projects d.Samples to (timestamp_ms, value) pairs for the
// Prometheus remote-read path. Only Integer promotes to float; every other
// variant, including Numeric, is skipped and does not participate in
// Prometheus responses.
func (d *SensorData) ToFloatPoints() []FloatPoint {
	var out []FloatPoint
	switch d.Samples.Kind {
	case datamodel.KindInteger:
		for _, s := range d.Samples.Integers {
			out = append(out, FloatPoint{TimestampMS: s.Time.UnixMilli(), Value: float64(s.Value)})
		}
	case datamodel.KindFloat:
		for _, s := range d.Samples.Floats {
			out = append(out, FloatPoint{TimestampMS: s.Time.UnixMilli(), Value: s.Value})
		}
	}
	return out
}

// DefaultSyncTimeout equals the 15s default that internal/config gives
// StorageSyncTimeout when storage_sync_timeout_seconds is not set; config
// holds its own copy of the value and does not read this constant.
const DefaultSyncTimeout = 15 * time.Second

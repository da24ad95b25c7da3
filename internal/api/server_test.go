package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pv/sensapp/internal/bus"
	"github.com/pv/sensapp/internal/config"
	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/storage"
)

// fakeStorage is a minimal in-memory storage.Storage for handler tests; it
// does not attach to the event bus, so a request that reaches publish sees
// zero subscribers and its WaitForAll completes immediately.
type fakeStorage struct {
	sensors []*datamodel.Sensor
	series  map[string]*storage.SensorData
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{series: make(map[string]*storage.SensorData)}
}

func (f *fakeStorage) CreateOrMigrate(ctx context.Context) error { return nil }
func (f *fakeStorage) Publish(ctx context.Context, batch *datamodel.Batch, syncCh chan<- storage.Sync) error {
	syncCh <- storage.Sync{}
	return nil
}
func (f *fakeStorage) Sync(ctx context.Context, syncCh chan<- storage.Sync) error {
	syncCh <- storage.Sync{}
	return nil
}
func (f *fakeStorage) Vacuum(ctx context.Context) error { return nil }
func (f *fakeStorage) ListSeries(ctx context.Context, metricFilter string) ([]*datamodel.Sensor, error) {
	return f.sensors, nil
}
func (f *fakeStorage) ListMetrics(ctx context.Context) ([]storage.MetricSummary, error) {
	return []storage.MetricSummary{{Name: "temperature", Kind: datamodel.KindFloat, UnitName: "Cel", SeriesCount: 1}}, nil
}
func (f *fakeStorage) QuerySensorData(ctx context.Context, nameOrUUID string, startMS, endMS, limit int64) (*storage.SensorData, error) {
	return f.series[nameOrUUID], nil
}
func (f *fakeStorage) QueryPrometheusTimeSeries(ctx context.Context, matcher datamodel.SensorMatcher, startMS, endMS int64) ([]storage.SensorData, error) {
	var out []storage.SensorData
	for _, d := range f.series {
		if storage.MatchSensor(matcher, d.Sensor) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func testServer() (*Server, *fakeStorage) {
	fs := newFakeStorage()
	cfg := &config.Config{BatchSize: 8192, SensorSalt: "sensapp", StorageSyncTimeout: time.Second}
	s := NewServer(fs, bus.NewEventBus("test", 4), cfg, slog.Default())
	return s, fs
}

func TestHealthz(t *testing.T) {
	s, _ := testServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleSeriesDataNotFound(t *testing.T) {
	s, _ := testServer()
	req := httptest.NewRequest(http.MethodGet, "/series/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleSeriesDataFound(t *testing.T) {
	s, fs := testServer()
	sensor := datamodel.NewDerivedSensor("temperature", datamodel.KindFloat, nil, nil, "sensapp")
	data := &storage.SensorData{
		Sensor: sensor,
		Samples: datamodel.TypedSamples{
			Kind:   datamodel.KindFloat,
			Floats: []datamodel.FloatSample{{Time: time.Now(), Value: 21.5}},
		},
	}
	fs.series[sensor.UUID.String()] = data

	req := httptest.NewRequest(http.MethodGet, "/series/"+sensor.UUID.String()+"?format=jsonl", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected a non-empty body")
	}
}

func TestHandleSimpleQueryMissingParam(t *testing.T) {
	s, _ := testServer()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/query", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSimpleQueryRejectsFunctionCall(t *testing.T) {
	s, _ := testServer()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/query?query=sum(cpu_usage)", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleListMetrics(t *testing.T) {
	s, _ := testServer()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleInfluxWriteRequiresBucket(t *testing.T) {
	s, _ := testServer()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/write?org=myorg", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

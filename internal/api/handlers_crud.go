package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/export"
	"github.com/pv/sensapp/internal/storage"
)

// handleListMetrics implements GET /metrics: a DCAT catalog of distinct
// metrics (name, kind, unit) with their series counts.
func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.store.ListMetrics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	datasets := make([]map[string]any, 0, len(metrics))
	for _, m := range metrics {
		datasets = append(datasets, map[string]any{
			"@type":                "dcat:Dataset",
			"dct:title":            m.Name,
			"dct:identifier":       m.Name,
			"sensapp:kind":         m.Kind.String(),
			"sensapp:unit":         m.UnitName,
			"sensapp:series_count": m.SeriesCount,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"@type":        "dcat:Catalog",
		"dct:title":    "SensApp metrics",
		"dcat:dataset": datasets,
	})
}

// handleListSeries implements GET /series[?metric=X]: a DCAT catalog of
// series, each carrying a Prometheus-style @id and download distributions.
func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	metricFilter := r.URL.Query().Get("metric")
	sensors, err := s.store.ListSeries(r.Context(), metricFilter)
	if err != nil {
		writeError(w, err)
		return
	}

	datasets := make([]map[string]any, 0, len(sensors))
	for _, sensor := range sensors {
		id := sensor.UUID.String()
		datasets = append(datasets, map[string]any{
			"@type":             "dcat:Dataset",
			"@id":                promStyleID(sensor.Name, sensor.Labels),
			"dct:identifier":     id,
			"dct:title":          sensor.Name,
			"dcat:distribution":  seriesDistributions(id),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"@type":        "dcat:Catalog",
		"dct:title":    "SensApp series",
		"dcat:dataset": datasets,
	})
}

func promStyleID(name string, labels []datamodel.Label) string {
	if len(labels) == 0 {
		return name
	}
	s := name + "{"
	for i, l := range labels {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%s=%q", l.Key, l.Value)
	}
	return s + "}"
}

func seriesDistributions(uuid string) []map[string]string {
	formats := []string{"senml", "csv", "jsonl"}
	out := make([]map[string]string, 0, len(formats))
	for _, f := range formats {
		out = append(out, map[string]string{
			"dcat:accessURL": fmt.Sprintf("/series/%s?format=%s", uuid, f),
			"dct:format":     f,
		})
	}
	return out
}

// handleSeriesData implements GET /series/{uuid}[?format=][&start=&end=]: a
// single sensor's samples in the requested format.
func (s *Server) handleSeriesData(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("uuid")
	if id == "" {
		writeError(w, storage.BadRequest("missing series uuid"))
		return
	}

	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, storage.BadRequest("%v", err))
		return
	}

	startMS, err := parseOptionalRFC3339(q.Get("start"))
	if err != nil {
		writeError(w, storage.BadRequest("invalid start: %v", err))
		return
	}
	endMS, err := parseOptionalRFC3339(q.Get("end"))
	if err != nil {
		writeError(w, storage.BadRequest("invalid end: %v", err))
		return
	}

	data, err := s.store.QuerySensorData(r.Context(), id, startMS, endMS, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	if data == nil {
		writeError(w, storage.SensorNotFound(id))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, format, data); err != nil {
		s.logger.Error("series data: writing response", "error", err)
	}
}

func parseOptionalRFC3339(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

package api

import (
	"net/http"
	"time"

	"github.com/pv/sensapp/internal/export"
	"github.com/pv/sensapp/internal/promql"
	"github.com/pv/sensapp/internal/storage"
)

// handleSimpleQuery implements GET /api/v1/query per spec.md §4.8: a
// restricted PromQL selector resolved against stored sensors, rendered in
// the requested format.
func (s *Server) handleSimpleQuery(w http.ResponseWriter, r *http.Request) {
	queryExpr := r.URL.Query().Get("query")
	if queryExpr == "" {
		writeError(w, storage.BadRequest("missing required query parameter: query"))
		return
	}

	sel, err := promql.Parse(queryExpr)
	if err != nil {
		writeError(w, storage.BadRequest("%v", err))
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, storage.BadRequest("%v", err))
		return
	}

	window := promql.DefaultRange
	if sel.Range != nil {
		window = *sel.Range
	}
	now := time.Now().UTC()
	startMS := now.Add(-window).UnixMilli()
	endMS := now.UnixMilli()

	results, err := s.store.QueryPrometheusTimeSeries(r.Context(), sel.Matcher, startMS, endMS)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]*storage.SensorData, len(results))
	for i := range results {
		items[i] = &results[i]
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if err := export.WriteMulti(w, format, sel.Matcher.NameMatcher.Value, items); err != nil {
		s.logger.Error("simple query: writing response", "error", err)
	}
}

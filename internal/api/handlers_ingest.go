package api

import (
	"net/http"

	"github.com/pv/sensapp/internal/ingest/lineprotocol"
	"github.com/pv/sensapp/internal/ingest/promremote"
	"github.com/pv/sensapp/internal/ingest/senml"
	"github.com/pv/sensapp/internal/storage"
)

// handlePrometheusRemoteWrite implements POST /api/v1/prometheus_remote_write
// per spec.md §6: snappy block compression, protobuf WriteRequest body.
func (s *Server) handlePrometheusRemoteWrite(w http.ResponseWriter, r *http.Request) {
	if err := requireHeaders(r, map[string]string{
		"Content-Encoding":                  "snappy",
		"Content-Type":                      "application/x-protobuf",
		"X-Prometheus-Remote-Write-Version": "0.1.0",
	}); err != nil {
		writeError(w, err)
		return
	}

	data, err := s.readBody(r, false)
	if err != nil {
		writeError(w, err)
		return
	}

	parser := &promremote.Parser{Salt: s.cfg.DerivationSalt()}
	if err := s.ingestPayload(r.Context(), parser, data, nil); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInfluxWrite implements POST /api/v2/write per spec.md §6.
func (s *Server) handleInfluxWrite(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bucket := q.Get("bucket")
	if bucket == "" {
		writeError(w, storage.BadRequest("missing required query parameter: bucket"))
		return
	}
	org := q.Get("org")
	orgID := q.Get("orgID")
	if org == "" && orgID == "" {
		writeError(w, storage.BadRequest("missing required query parameter: org or orgID"))
		return
	}
	if org == "" {
		org = orgID
	}

	precision, err := lineprotocol.ParsePrecision(q.Get("precision"))
	if err != nil {
		writeError(w, storage.BadRequest("%v", err))
		return
	}

	data, err := s.readBody(r, true)
	if err != nil {
		writeError(w, err)
		return
	}

	labelContext := map[string]string{
		"influxdb_bucket": bucket,
		"influxdb_org":    org,
	}
	parser := &lineprotocol.Parser{Precision: precision, Salt: s.cfg.DerivationSalt()}
	if err := s.ingestPayload(r.Context(), parser, data, labelContext); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSenMLWrite implements POST /api/v1/senml per spec.md §6.
func (s *Server) handleSenMLWrite(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	parser := &senml.Parser{Salt: s.cfg.DerivationSalt()}
	if err := s.ingestPayload(r.Context(), parser, data, nil); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requireHeaders(r *http.Request, want map[string]string) error {
	for name, value := range want {
		if got := r.Header.Get(name); got != value {
			return storage.BadRequest("expected header %s: %q, got %q", name, value, got)
		}
	}
	return nil
}

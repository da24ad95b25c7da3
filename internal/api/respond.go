package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pv/sensapp/internal/storage"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto the HTTP status taxonomy from spec.md §7:
// BadRequest/TypeMismatch -> 400, SensorNotFound/MetricNotFound -> 404,
// everything else -> 500.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch storage.KindOf(err) {
	case storage.KindBadRequest, storage.KindTypeMismatch:
		code = http.StatusBadRequest
	case storage.KindStorage:
		var e *storage.Error
		if errors.As(err, &e) && (e.SubKind == storage.SubKindSensorNotFound || e.SubKind == storage.SubKindMetricNotFound) {
			code = http.StatusNotFound
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

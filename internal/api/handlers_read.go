package api

import (
	"net/http"

	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/promwire"
	"github.com/pv/sensapp/internal/storage"
)

// handlePrometheusRemoteRead implements POST /api/v1/prometheus_remote_read
// per spec.md §4.7: snappy block compressed ReadRequest in, a framed stream
// of ChunkedReadResponse out.
func (s *Server) handlePrometheusRemoteRead(w http.ResponseWriter, r *http.Request) {
	if err := requireHeaders(r, map[string]string{
		"Content-Encoding":                 "snappy",
		"Content-Type":                     "application/x-protobuf",
		"X-Prometheus-Remote-Read-Version": "0.1.0",
	}); err != nil {
		writeError(w, err)
		return
	}

	data, err := s.readBody(r, false)
	if err != nil {
		writeError(w, err)
		return
	}

	req, err := promwire.UnmarshalReadRequest(data)
	if err != nil {
		writeError(w, storage.BadRequest("invalid ReadRequest: %v", err))
		return
	}

	if len(req.Queries) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}

	if !acceptsStreamedXOR(req.AcceptedResponseTypes) {
		writeError(w, storage.BadRequest("server only supports STREAMED_XOR_CHUNKS responses"))
		return
	}

	responses := make([]promwire.ChunkedReadResponse, 0, len(req.Queries))
	for i, q := range req.Queries {
		matcher := matchersToSensorMatcher(q.Matchers)
		sensorData, err := s.store.QueryPrometheusTimeSeries(r.Context(), matcher, q.StartTimestampMS, q.EndTimestampMS)
		if err != nil {
			writeError(w, err)
			return
		}

		var series []promwire.ChunkedSeries
		for _, d := range sensorData {
			points := toWirePoints(d.ToFloatPoints())
			if len(points) == 0 {
				continue
			}
			labels := sensorLabels(d.Sensor)
			series = append(series, promwire.EncodeSeries(labels, points))
		}
		responses = append(responses, promwire.CreateChunkedReadResponse(int64(i), series))
	}

	w.Header().Set("Content-Type", "application/x-streamed-protobuf; proto=prometheus.ChunkedReadResponse")
	w.WriteHeader(http.StatusOK)
	if err := promwire.WriteChunkedReadResponses(w, responses); err != nil {
		s.logger.Error("remote read: writing response stream", "error", err)
	}
}

func acceptsStreamedXOR(types []promwire.ResponseType) bool {
	if len(types) == 1 && types[0] == promwire.ResponseTypeSamples {
		return false
	}
	for _, t := range types {
		if t == promwire.ResponseTypeStreamedXORChunks {
			return true
		}
	}
	return len(types) == 0
}

func matchersToSensorMatcher(in []promwire.LabelMatcher) datamodel.SensorMatcher {
	matcher := datamodel.SensorMatcher{NameMatcher: datamodel.MatchAll()}
	for _, m := range in {
		op := promMatchOpToDatamodel(m.Type)
		if m.Name == datamodel.ReservedNameLabel {
			matcher.NameMatcher = datamodel.StringMatcher{Value: m.Value, Op: op}
			continue
		}
		matcher.LabelMatchers = append(matcher.LabelMatchers, datamodel.LabelMatcher{Name: m.Name, Value: m.Value, Op: op})
	}
	return matcher
}

func promMatchOpToDatamodel(t promwire.MatchType) datamodel.MatchOp {
	switch t {
	case promwire.MatchNotEqual:
		return datamodel.OpNotEqual
	case promwire.MatchRegexp:
		return datamodel.OpMatch
	case promwire.MatchNotRegexp:
		return datamodel.OpNotMatch
	default:
		return datamodel.OpEqual
	}
}

func toWirePoints(points []storage.FloatPoint) []promwire.Point {
	out := make([]promwire.Point, len(points))
	for i, p := range points {
		out[i] = promwire.Point{TimestampMS: p.TimestampMS, Value: p.Value}
	}
	return out
}

func sensorLabels(sensor *datamodel.Sensor) []promwire.Label {
	labels := make([]promwire.Label, 0, len(sensor.Labels)+1)
	labels = append(labels, promwire.Label{Name: datamodel.ReservedNameLabel, Value: sensor.Name})
	for _, l := range sensor.Labels {
		labels = append(labels, promwire.Label{Name: l.Key, Value: l.Value})
	}
	return labels
}

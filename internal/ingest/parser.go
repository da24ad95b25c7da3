// Package ingest defines the common contract every wire-format adapter
// implements: consume a byte payload plus an optional label context and
// feed sensors and samples into a batch builder.
package ingest

import (
	"context"

	"github.com/pv/sensapp/internal/batching"
)

// Parser consumes data (already decompressed) and a context map of labels
// that get merged onto every sensor it derives (e.g. {influxdb_bucket,
// influxdb_org}), writing results into builder.
type Parser interface {
	Parse(ctx context.Context, data []byte, labelContext map[string]string, builder *batching.BatchBuilder) error
}

// MergeLabels returns context merged with extra, extra's keys winning on
// collision. Either map may be nil.
func MergeLabels(context map[string]string, extra map[string]string) map[string]string {
	if len(context) == 0 {
		return extra
	}
	if len(extra) == 0 {
		return context
	}
	out := make(map[string]string, len(context)+len(extra))
	for k, v := range context {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

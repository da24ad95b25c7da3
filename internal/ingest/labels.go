package ingest

import (
	"sort"

	"github.com/pv/sensapp/internal/datamodel"
)

// BuildLabels assembles a sensor's label list from the context map forwarded
// by the HTTP layer (e.g. influxdb_bucket/influxdb_org) plus the wire
// format's own tags, context first in sorted key order for determinism, then
// the format-specific tags in their original order.
func BuildLabels(labelContext map[string]string, tags []datamodel.Label) []datamodel.Label {
	if len(labelContext) == 0 {
		return tags
	}
	keys := make([]string, 0, len(labelContext))
	for k := range labelContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	labels := make([]datamodel.Label, 0, len(labelContext)+len(tags))
	for _, k := range keys {
		labels = append(labels, datamodel.Label{Key: k, Value: labelContext[k]})
	}
	labels = append(labels, tags...)
	return labels
}

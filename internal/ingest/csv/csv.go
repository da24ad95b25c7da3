// Package csv adapts CSV payloads (header row plus data rows) into sensapp
// sensors and samples, using internal/ingest/infer to classify each
// non-timestamp, non-geo column.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"

	"github.com/pv/sensapp/internal/batching"
	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/ingest"
	"github.com/pv/sensapp/internal/ingest/infer"
)

// Parser parses a CSV document: the first row is the header; one column may
// be a timestamp (detected by header affinity plus value plausibility), and
// a lat/lon column pair may be detected the same way. Every other column
// becomes its own sensor, named after its header.
type Parser struct {
	PreferNumeric bool
	Salt          string
}

var _ ingest.Parser = (*Parser)(nil)

// Parse implements ingest.Parser.
func (p *Parser) Parse(ctx context.Context, data []byte, labelContext map[string]string, builder *batching.BatchBuilder) error {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	if len(rows) < 2 {
		return fmt.Errorf("csv: need a header row and at least one data row")
	}
	header := rows[0]
	data2 := rows[1:]

	timeCol, latCol, lonCol := detectSpecialColumns(header, data2)

	times, err := resolveTimestamps(header, data2, timeCol)
	if err != nil {
		return err
	}

	labels := ingest.BuildLabels(labelContext, nil)

	if latCol >= 0 && lonCol >= 0 {
		locSamples, err := buildLocationSamples(data2, latCol, lonCol, times)
		if err != nil {
			return fmt.Errorf("csv: location columns: %w", err)
		}
		locSensor := datamodel.NewDerivedSensor("location", datamodel.KindLocation, nil, labels, p.Salt)
		if err := builder.Add(locSensor, datamodel.TypedSamples{Kind: datamodel.KindLocation, Locations: locSamples}); err != nil {
			return err
		}
	}

	for col, name := range header {
		if col == timeCol || col == latCol || col == lonCol {
			continue
		}
		cells := make([]string, len(data2))
		for i, row := range data2 {
			if col < len(row) {
				cells[i] = row[col]
			}
		}
		kinds := make([]infer.CellKind, len(cells))
		for i, c := range cells {
			kinds[i] = infer.ClassifyCell(c)
		}
		colKind := infer.RollupColumn(kinds, p.PreferNumeric)

		samples, sampleKind, err := buildColumnSamples(colKind, cells, times)
		if err != nil {
			return fmt.Errorf("csv: column %q: %w", name, err)
		}

		sensor := datamodel.NewDerivedSensor(name, sampleKind, nil, labels, p.Salt)
		if err := builder.Add(sensor, samples); err != nil {
			return err
		}
	}
	return nil
}

func detectSpecialColumns(header []string, rows [][]string) (timeCol, latCol, lonCol int) {
	timeCol, latCol, lonCol = -1, -1, -1
	bestTimeScore := 0
	bestLatScore, bestLonScore := -1, -1

	for col, name := range header {
		if score := infer.DatetimeHeaderScore(name); score > bestTimeScore && columnPlausibleAsTime(rows, col) {
			bestTimeScore = score
			timeCol = col
		}
		if axis, ok := infer.GeoHeaderAxis(name); ok {
			switch axis {
			case "lat":
				if columnPlausibleAsGeo("lat", rows, col) {
					bestLatScore = col
				}
			case "lon":
				if columnPlausibleAsGeo("lon", rows, col) {
					bestLonScore = col
				}
			}
		}
	}
	if bestLatScore >= 0 && bestLonScore >= 0 {
		latCol, lonCol = bestLatScore, bestLonScore
	}
	return timeCol, latCol, lonCol
}

func columnPlausibleAsTime(rows [][]string, col int) bool {
	for _, row := range rows {
		if col >= len(row) {
			return false
		}
		v, err := strconv.ParseFloat(row[col], 64)
		if err != nil {
			return false
		}
		if !infer.DatetimeValuePlausible(v) {
			return false
		}
	}
	return true
}

func columnPlausibleAsGeo(axis string, rows [][]string, col int) bool {
	for _, row := range rows {
		if col >= len(row) {
			return false
		}
		v, err := strconv.ParseFloat(row[col], 64)
		if err != nil {
			return false
		}
		if !infer.GeoValuePlausible(axis, v) {
			return false
		}
	}
	return true
}

func resolveTimestamps(header []string, rows [][]string, timeCol int) ([]time.Time, error) {
	times := make([]time.Time, len(rows))
	if timeCol < 0 {
		now := time.Now().UTC()
		for i := range times {
			times[i] = now
		}
		return times, nil
	}
	for i, row := range rows {
		v, err := strconv.ParseFloat(row[timeCol], 64)
		if err != nil {
			return nil, fmt.Errorf("timestamp column %q row %d: %w", header[timeCol], i, err)
		}
		whole := int64(v)
		frac := v - float64(whole)
		times[i] = time.Unix(whole, int64(frac*1e9)).UTC()
	}
	return times, nil
}

func buildColumnSamples(kind infer.ColumnKind, cells []string, times []time.Time) (datamodel.TypedSamples, datamodel.SampleKind, error) {
	switch kind {
	case infer.ColumnInteger:
		var samples []datamodel.IntegerSample
		for i, c := range cells {
			v, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
			if err != nil {
				return datamodel.TypedSamples{}, 0, err
			}
			samples = append(samples, datamodel.IntegerSample{Time: times[i], Value: v})
		}
		return datamodel.TypedSamples{Kind: datamodel.KindInteger, Integers: samples}, datamodel.KindInteger, nil
	case infer.ColumnNumeric:
		var samples []datamodel.NumericSample
		for i, c := range cells {
			v, err := decimal.NewFromString(strings.TrimSpace(c))
			if err != nil {
				return datamodel.TypedSamples{}, 0, err
			}
			samples = append(samples, datamodel.NumericSample{Time: times[i], Value: v})
		}
		return datamodel.TypedSamples{Kind: datamodel.KindNumeric, Numerics: samples}, datamodel.KindNumeric, nil
	case infer.ColumnFloat:
		var samples []datamodel.FloatSample
		for i, c := range cells {
			v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
			if err != nil {
				return datamodel.TypedSamples{}, 0, err
			}
			samples = append(samples, datamodel.FloatSample{Time: times[i], Value: v})
		}
		return datamodel.TypedSamples{Kind: datamodel.KindFloat, Floats: samples}, datamodel.KindFloat, nil
	case infer.ColumnBoolean:
		var samples []datamodel.BooleanSample
		for i, c := range cells {
			samples = append(samples, datamodel.BooleanSample{Time: times[i], Value: strings.EqualFold(strings.TrimSpace(c), "true")})
		}
		return datamodel.TypedSamples{Kind: datamodel.KindBoolean, Booleans: samples}, datamodel.KindBoolean, nil
	case infer.ColumnDateTime:
		var samples []datamodel.StringSample
		for i, c := range cells {
			samples = append(samples, datamodel.StringSample{Time: times[i], Value: c})
		}
		return datamodel.TypedSamples{Kind: datamodel.KindString, Strings: samples}, datamodel.KindString, nil
	case infer.ColumnJSON:
		var samples []datamodel.JSONSample
		for i, c := range cells {
			samples = append(samples, datamodel.JSONSample{Time: times[i], Value: c})
		}
		return datamodel.TypedSamples{Kind: datamodel.KindJSON, JSONs: samples}, datamodel.KindJSON, nil
	default:
		var samples []datamodel.StringSample
		for i, c := range cells {
			samples = append(samples, datamodel.StringSample{Time: times[i], Value: c})
		}
		return datamodel.TypedSamples{Kind: datamodel.KindString, Strings: samples}, datamodel.KindString, nil
	}
}

func buildLocationSamples(rows [][]string, latCol, lonCol int, times []time.Time) ([]datamodel.LocationSample, error) {
	samples := make([]datamodel.LocationSample, len(rows))
	for i, row := range rows {
		lat, err := strconv.ParseFloat(row[latCol], 64)
		if err != nil {
			return nil, err
		}
		lon, err := strconv.ParseFloat(row[lonCol], 64)
		if err != nil {
			return nil, err
		}
		samples[i] = datamodel.LocationSample{Time: times[i], Value: orb.Point{lon, lat}}
	}
	return samples, nil
}

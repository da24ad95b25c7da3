// Package infer classifies CSV columns into sensapp sample kinds, grounded
// on original_source/src/infer/{infer,columns,datetime_guesser,geo_guesser}.rs.
// Per-row values are classified first; a column then rolls up to the
// variant that can represent every row plus separate header/value scoring
// picks out timestamp and geo-coordinate columns.
package infer

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CellKind is the per-row classification used before column rollup.
type CellKind int

const (
	CellInteger CellKind = iota
	CellFloat
	CellBoolean
	CellDateTime
	CellJSON
	CellString
)

// ClassifyCell applies spec.md §4.1's per-row precedence: Integer, Float,
// Boolean, DateTime (explicit-zone ISO 8601), JSON, then String fallback.
// PreferNumeric lets the caller ask for arbitrary-precision Numeric instead
// of Float for non-integer numbers; that distinction is made by the caller
// at rollup time since CellKind has no Numeric variant of its own (a cell
// that is Float-shaped is always classified CellFloat here).
func ClassifyCell(s string) CellKind {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return CellString
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return CellInteger
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return CellFloat
	}
	if isBoolean(trimmed) {
		return CellBoolean
	}
	if _, err := parseISO8601WithZone(trimmed); err == nil {
		return CellDateTime
	}
	if looksLikeJSON(trimmed) && json.Valid([]byte(trimmed)) {
		return CellJSON
	}
	return CellString
}

func isBoolean(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	default:
		return false
	}
}

func looksLikeJSON(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}

func parseISO8601WithZone(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05Z0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errNotISO8601
}

var errNotISO8601 = &parseError{"not an ISO 8601 timestamp with explicit zone"}

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }

// ColumnKind is the rolled-up type of an entire CSV column.
type ColumnKind int

const (
	ColumnInteger ColumnKind = iota
	ColumnNumeric
	ColumnFloat
	ColumnBoolean
	ColumnDateTime
	ColumnJSON
	ColumnString
)

// RollupColumn applies spec.md §4.1's column rollup rule: any String row
// forces String; any Json row (with no String row) forces Json; mixed
// Boolean with numeric forces String; mixed Integer/Float promotes to
// Float; a pure column keeps its single variant. preferNumeric upgrades a
// pure-Float rollup to Numeric, mirroring the caller-selected preference in
// spec.md (Numeric only wins over Float when requested).
func RollupColumn(cells []CellKind, preferNumeric bool) ColumnKind {
	var hasString, hasJSON, hasBoolean, hasInteger, hasFloat, hasDateTime bool
	for _, c := range cells {
		switch c {
		case CellString:
			hasString = true
		case CellJSON:
			hasJSON = true
		case CellBoolean:
			hasBoolean = true
		case CellInteger:
			hasInteger = true
		case CellFloat:
			hasFloat = true
		case CellDateTime:
			hasDateTime = true
		}
	}

	if hasString {
		return ColumnString
	}
	if hasJSON {
		return ColumnJSON
	}
	if hasBoolean && (hasInteger || hasFloat || hasDateTime) {
		return ColumnString
	}
	if hasBoolean {
		return ColumnBoolean
	}
	if hasDateTime && !hasInteger && !hasFloat {
		return ColumnDateTime
	}
	if hasDateTime {
		// A mix of datetime-shaped and plain numeric cells is ambiguous;
		// fall back to the safe, always-representable variant.
		return ColumnString
	}
	if hasFloat {
		if preferNumeric {
			return ColumnNumeric
		}
		return ColumnFloat
	}
	if hasInteger {
		return ColumnInteger
	}
	return ColumnString
}

// Datetime-column header affinity, per spec.md §4.1.
var (
	exactDatetimeHeaders = map[string]int{
		"timestamp": 100, "datetime": 100, "created_at": 100, "time": 90, "date": 80,
	}
	substringDatetimeHeaders = []string{"date", "time"}

	// Plausible epoch-seconds range: 2000-01-01 .. 2118-01-01.
	minEpochSeconds = int64(946_684_800)
	maxEpochSeconds = int64(4_670_438_400)
)

// DatetimeHeaderScore scores a column header by name affinity for holding
// timestamps: exact matches score highest, substrings lower, anything else
// zero.
func DatetimeHeaderScore(header string) int {
	lower := strings.ToLower(strings.TrimSpace(header))
	if score, ok := exactDatetimeHeaders[lower]; ok {
		return score
	}
	for _, sub := range substringDatetimeHeaders {
		if strings.Contains(lower, sub) {
			return 30
		}
	}
	return 0
}

// DatetimeValuePlausible reports whether a numeric value (interpreted as
// seconds since epoch) falls within a plausible real-world range.
func DatetimeValuePlausible(seconds float64) bool {
	return seconds >= float64(minEpochSeconds) && seconds <= float64(maxEpochSeconds)
}

// geoHeaderPattern matches headers like lat, latitude, geo_lat, pos_lon,
// coord_longitude, per spec.md §4.1.
var geoHeaderPattern = regexp.MustCompile(`(?i)^(gps|geo|pos|coord)?_?(lat|lon|long|lng|latitude|longitude)$`)

// GeoHeaderAxis reports whether header names a latitude or longitude column
// ("lat" or "lon"), and whether it matched at all.
func GeoHeaderAxis(header string) (axis string, ok bool) {
	m := geoHeaderPattern.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return "", false
	}
	switch m[2] {
	case "lat", "latitude":
		return "lat", true
	case "lon", "long", "lng", "longitude":
		return "lon", true
	default:
		return "", false
	}
}

// GeoValuePlausible reports whether a value is within the valid coordinate
// range for its axis.
func GeoValuePlausible(axis string, value float64) bool {
	switch axis {
	case "lat":
		return value >= -90 && value <= 90
	case "lon":
		return value >= -180 && value <= 180
	default:
		return false
	}
}

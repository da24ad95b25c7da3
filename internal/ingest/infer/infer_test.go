package infer

import "testing"

func TestClassifyCell(t *testing.T) {
	cases := map[string]CellKind{
		"":                     CellString,
		"42":                   CellInteger,
		"-17":                  CellInteger,
		"3.14":                 CellFloat,
		"true":                 CellBoolean,
		"FALSE":                CellBoolean,
		"2021-01-01T00:00:00Z": CellDateTime,
		`{"a":1}`:              CellJSON,
		"[1,2,3]":              CellJSON,
		"hello world":          CellString,
		"not json {":           CellString,
	}
	for in, want := range cases {
		if got := ClassifyCell(in); got != want {
			t.Errorf("ClassifyCell(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRollupColumnPurePaths(t *testing.T) {
	cases := []struct {
		name          string
		cells         []CellKind
		preferNumeric bool
		want          ColumnKind
	}{
		{"pure integer", []CellKind{CellInteger, CellInteger}, false, ColumnInteger},
		{"mixed int/float promotes", []CellKind{CellInteger, CellFloat}, false, ColumnFloat},
		{"pure float prefer numeric", []CellKind{CellFloat, CellFloat}, true, ColumnNumeric},
		{"pure boolean", []CellKind{CellBoolean, CellBoolean}, false, ColumnBoolean},
		{"boolean mixed with numeric forces string", []CellKind{CellBoolean, CellInteger}, false, ColumnString},
		{"any string forces string", []CellKind{CellInteger, CellString}, false, ColumnString},
		{"pure json, no string", []CellKind{CellJSON, CellJSON}, false, ColumnJSON},
		{"pure datetime", []CellKind{CellDateTime, CellDateTime}, false, ColumnDateTime},
		{"datetime mixed with numeric falls back to string", []CellKind{CellDateTime, CellInteger}, false, ColumnString},
		{"empty column defaults to string", nil, false, ColumnString},
	}
	for _, c := range cases {
		if got := RollupColumn(c.cells, c.preferNumeric); got != c.want {
			t.Errorf("%s: RollupColumn(...) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestDatetimeHeaderScore(t *testing.T) {
	if DatetimeHeaderScore("timestamp") != 100 {
		t.Error("expected an exact match to score 100")
	}
	if DatetimeHeaderScore("event_time") == 0 {
		t.Error("expected a substring match to score above 0")
	}
	if DatetimeHeaderScore("name") != 0 {
		t.Error("expected an unrelated header to score 0")
	}
}

func TestDatetimeValuePlausible(t *testing.T) {
	if !DatetimeValuePlausible(1609459200) {
		t.Error("expected a 2021 epoch-seconds value to be plausible")
	}
	if DatetimeValuePlausible(100) {
		t.Error("expected a tiny epoch value to be implausible")
	}
}

func TestGeoHeaderAxis(t *testing.T) {
	cases := map[string]string{
		"lat":             "lat",
		"latitude":        "lat",
		"geo_lat":         "lat",
		"lon":             "lon",
		"longitude":       "lon",
		"coord_longitude": "lon",
	}
	for header, want := range cases {
		axis, ok := GeoHeaderAxis(header)
		if !ok || axis != want {
			t.Errorf("GeoHeaderAxis(%q) = (%q, %v), want (%q, true)", header, axis, ok, want)
		}
	}
	if _, ok := GeoHeaderAxis("name"); ok {
		t.Error("expected an unrelated header to not match")
	}
}

func TestGeoValuePlausible(t *testing.T) {
	if !GeoValuePlausible("lat", 45.0) {
		t.Error("expected 45.0 to be a plausible latitude")
	}
	if GeoValuePlausible("lat", 100.0) {
		t.Error("expected 100.0 to be implausible for latitude")
	}
	if !GeoValuePlausible("lon", -120.0) {
		t.Error("expected -120.0 to be a plausible longitude")
	}
	if GeoValuePlausible("lon", 200.0) {
		t.Error("expected 200.0 to be implausible for longitude")
	}
}

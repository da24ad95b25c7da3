package storage

import (
	"regexp"

	"github.com/pv/sensapp/internal/datamodel"
)

// MatchSensor reports whether sensor satisfies matcher. Backends resolve a
// matcher's candidate sensor set by loading sensor identities (name, kind,
// unit, labels) and filtering with this function rather than compiling
// regex matchers into backend-specific SQL: SQLite's driver here
// (modernc.org/sqlite) has no portable way to register a Go REGEXP
// function, so Eq/Neq/Re/Nre are all evaluated uniformly in Go once
// candidate rows are loaded. See DESIGN.md.
func MatchSensor(matcher datamodel.SensorMatcher, sensor *datamodel.Sensor) bool {
	if !matchString(matcher.NameMatcher, sensor.Name) {
		return false
	}
	for _, lm := range matcher.LabelMatchers {
		value, present := sensor.Label(lm.Name)
		negated := lm.Op == datamodel.OpNotEqual || lm.Op == datamodel.OpNotMatch
		if !present {
			// A missing label satisfies Neq/Nre (nothing to equal/match) and
			// fails Eq/Re.
			if negated {
				continue
			}
			return false
		}
		sm := datamodel.StringMatcher{Value: lm.Value, Op: lm.Op}
		if !matchString(sm, value) {
			return false
		}
	}
	return true
}

func matchString(m datamodel.StringMatcher, value string) bool {
	if m.All {
		return true
	}
	switch m.Op {
	case datamodel.OpEqual:
		return value == m.Value
	case datamodel.OpNotEqual:
		return value != m.Value
	case datamodel.OpMatch:
		return anchoredMatch(m.Value, value)
	case datamodel.OpNotMatch:
		return !anchoredMatch(m.Value, value)
	default:
		return false
	}
}

func anchoredMatch(pattern, value string) bool {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

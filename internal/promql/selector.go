// Package promql parses the restricted PromQL subset the simple query
// endpoint accepts: instant and range vector selectors only. Aggregations,
// function calls, binary operations and subqueries are rejected with a
// descriptive error naming the disallowed construct. No existing PromQL
// parser in the retrieved pack exposes a selector-only grammar, so this is a
// small hand-written recursive-descent parser; see DESIGN.md.
package promql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pv/sensapp/internal/datamodel"
)

// Selector is a parsed vector selector: a SensorMatcher plus an optional
// range-vector duration (nil for an instant selector).
type Selector struct {
	Matcher datamodel.SensorMatcher
	Range   *time.Duration
}

var identRe = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*`)
var durationRe = regexp.MustCompile(`^[0-9]+[smhdwy]`)

// Parse parses expr as a restricted PromQL selector. Disallowed constructs
// (function calls, binary operators, aggregations, subqueries) produce an
// error naming the construct.
func Parse(expr string) (*Selector, error) {
	p := &parser{input: strings.TrimSpace(expr)}
	sel, err := p.parseSelector()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		if rest := p.input[p.pos:]; looksLikeBinaryOp(rest) {
			return nil, fmt.Errorf("promql: binary operations are not supported (found %q)", rest)
		}
		return nil, fmt.Errorf("promql: unexpected trailing input %q", p.input[p.pos:])
	}
	return sel, nil
}

func looksLikeBinaryOp(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") ||
		strings.HasPrefix(s, "*") || strings.HasPrefix(s, "/") ||
		strings.HasPrefix(s, "and") || strings.HasPrefix(s, "or")
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n') {
		p.pos++
	}
}

func (p *parser) rest() string { return p.input[p.pos:] }

func (p *parser) parseSelector() (*Selector, error) {
	p.skipSpace()

	matcher := datamodel.SensorMatcher{NameMatcher: datamodel.MatchAll()}

	if !strings.HasPrefix(p.rest(), "{") {
		loc := identRe.FindString(p.rest())
		if loc == "" {
			return nil, fmt.Errorf("promql: expected a metric name or label matcher at %q", p.rest())
		}

		// An identifier directly followed by '(' is a function call / aggregation.
		after := p.input[p.pos+len(loc):]
		if strings.HasPrefix(strings.TrimLeft(after, " \t"), "(") {
			return nil, fmt.Errorf("promql: function calls and aggregations are not supported (found %q)", loc)
		}

		name := loc
		p.pos += len(loc)
		p.skipSpace()
		matcher.NameMatcher = datamodel.StringMatcher{Op: datamodel.OpEqual, Value: name}
	}

	if strings.HasPrefix(p.rest(), "{") {
		labelMatchers, err := p.parseLabelMatchers()
		if err != nil {
			return nil, err
		}
		for _, lm := range labelMatchers {
			if lm.Name == datamodel.ReservedNameLabel {
				// A bare selector's identifier already pinned the name; an
				// explicit __name__ matcher inside {} overrides it.
				matcher.NameMatcher = datamodel.StringMatcher{Value: lm.Value, Op: lm.Op}
				continue
			}
			matcher.LabelMatchers = append(matcher.LabelMatchers, lm)
		}
	}

	p.skipSpace()

	var rng *time.Duration
	if strings.HasPrefix(p.rest(), "[") {
		d, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		rng = &d
	}

	p.skipSpace()
	if strings.HasPrefix(p.rest(), "[") {
		return nil, fmt.Errorf("promql: subqueries are not supported")
	}

	return &Selector{Matcher: matcher, Range: rng}, nil
}

func (p *parser) parseLabelMatchers() ([]datamodel.LabelMatcher, error) {
	if p.input[p.pos] != '{' {
		return nil, fmt.Errorf("promql: expected '{'")
	}
	p.pos++
	var matchers []datamodel.LabelMatcher

	for {
		p.skipSpace()
		if strings.HasPrefix(p.rest(), "}") {
			p.pos++
			return matchers, nil
		}
		label := identRe.FindString(p.rest())
		if label == "" {
			return nil, fmt.Errorf("promql: expected a label name at %q", p.rest())
		}
		p.pos += len(label)
		p.skipSpace()

		op, err := p.parseMatchOp()
		if err != nil {
			return nil, err
		}
		p.skipSpace()

		value, err := p.parseQuotedString()
		if err != nil {
			return nil, err
		}

		matchers = append(matchers, datamodel.LabelMatcher{Name: label, Value: value, Op: op})

		p.skipSpace()
		if strings.HasPrefix(p.rest(), ",") {
			p.pos++
			continue
		}
		if strings.HasPrefix(p.rest(), "}") {
			p.pos++
			return matchers, nil
		}
		return nil, fmt.Errorf("promql: expected ',' or '}' at %q", p.rest())
	}
}

func (p *parser) parseMatchOp() (datamodel.MatchOp, error) {
	rest := p.rest()
	switch {
	case strings.HasPrefix(rest, "!="):
		p.pos += 2
		return datamodel.OpNotEqual, nil
	case strings.HasPrefix(rest, "=~"):
		p.pos += 2
		return datamodel.OpMatch, nil
	case strings.HasPrefix(rest, "!~"):
		p.pos += 2
		return datamodel.OpNotMatch, nil
	case strings.HasPrefix(rest, "="):
		p.pos += 1
		return datamodel.OpEqual, nil
	default:
		return 0, fmt.Errorf("promql: expected a match operator at %q", rest)
	}
}

func (p *parser) parseQuotedString() (string, error) {
	rest := p.rest()
	if len(rest) == 0 || rest[0] != '"' {
		return "", fmt.Errorf("promql: expected a quoted string at %q", rest)
	}
	var sb strings.Builder
	i := 1
	for i < len(rest) {
		c := rest[i]
		if c == '\\' && i+1 < len(rest) {
			sb.WriteByte(rest[i+1])
			i += 2
			continue
		}
		if c == '"' {
			p.pos += i + 1
			return sb.String(), nil
		}
		sb.WriteByte(c)
		i++
	}
	return "", fmt.Errorf("promql: unterminated string literal")
}

func (p *parser) parseRange() (time.Duration, error) {
	if p.input[p.pos] != '[' {
		return 0, fmt.Errorf("promql: expected '['")
	}
	p.pos++
	p.skipSpace()

	rest := p.rest()
	durStr := durationRe.FindString(rest)
	if durStr == "" {
		return 0, fmt.Errorf("promql: expected a duration at %q", rest)
	}
	p.pos += len(durStr)
	p.skipSpace()

	if strings.HasPrefix(p.rest(), ":") {
		return 0, fmt.Errorf("promql: subqueries are not supported")
	}
	if len(p.rest()) == 0 || p.rest()[0] != ']' {
		return 0, fmt.Errorf("promql: expected ']'")
	}
	p.pos++

	return parseGoDuration(durStr)
}

func parseGoDuration(s string) (time.Duration, error) {
	unit := s[len(s)-1]
	numStr := s[:len(s)-1]
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, fmt.Errorf("promql: invalid duration %q", s)
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'y':
		return time.Duration(n) * 365 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("promql: unsupported duration unit %q", string(unit))
	}
}

// DefaultRange is the bounded recent window used for bare instant selectors
// (those without a [range] suffix), per spec.md §4.8.
const DefaultRange = time.Hour

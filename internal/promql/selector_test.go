package promql

import (
	"testing"
	"time"

	"github.com/pv/sensapp/internal/datamodel"
)

func TestParseBareMetricName(t *testing.T) {
	sel, err := Parse("cpu_usage")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if sel.Matcher.NameMatcher.Value != "cpu_usage" || sel.Matcher.NameMatcher.Op != datamodel.OpEqual {
		t.Fatalf("unexpected name matcher: %+v", sel.Matcher.NameMatcher)
	}
	if sel.Range != nil {
		t.Fatalf("expected instant selector, got range %v", *sel.Range)
	}
}

func TestParseLabelMatchersAndRange(t *testing.T) {
	sel, err := Parse(`cpu_usage{host="server1",region=~"us-.*"}[5m]`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(sel.Matcher.LabelMatchers) != 2 {
		t.Fatalf("expected 2 label matchers, got %d", len(sel.Matcher.LabelMatchers))
	}
	if sel.Range == nil || *sel.Range != 5*time.Minute {
		t.Fatalf("expected range 5m, got %v", sel.Range)
	}
}

func TestParseNameLabelInsideBraces(t *testing.T) {
	sel, err := Parse(`{__name__="cpu_usage",host="server1"}`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if sel.Matcher.NameMatcher.Value != "cpu_usage" {
		t.Fatalf("expected __name__ matcher to resolve to NameMatcher, got %+v", sel.Matcher.NameMatcher)
	}
	if len(sel.Matcher.LabelMatchers) != 1 {
		t.Fatalf("expected 1 remaining label matcher, got %d", len(sel.Matcher.LabelMatchers))
	}
}

func TestRejectsFunctionCalls(t *testing.T) {
	if _, err := Parse(`sum(cpu_usage)`); err == nil {
		t.Fatal("expected error for aggregation")
	}
}

func TestRejectsBinaryOperations(t *testing.T) {
	if _, err := Parse(`cpu_usage + mem_usage`); err == nil {
		t.Fatal("expected error for binary operation")
	}
}

func TestRejectsSubqueries(t *testing.T) {
	if _, err := Parse(`cpu_usage[5m:1m]`); err == nil {
		t.Fatal("expected error for subquery")
	}
}

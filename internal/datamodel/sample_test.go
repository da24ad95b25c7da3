package datamodel

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestAppendTypeMismatch(t *testing.T) {
	ts := TypedSamples{Kind: KindInteger, Integers: []IntegerSample{{Time: time.Unix(0, 0), Value: 0}}}
	numeric := TypedSamples{Kind: KindNumeric, Numerics: []NumericSample{{Time: time.Unix(1, 0), Value: decimal.NewFromFloat(1.0)}}}

	err := ts.Append(numeric)
	if err == nil {
		t.Fatalf("expected TypeMismatch appending Numeric onto Integer")
	}
	var mismatch *ErrTypeMismatch
	if !asTypeMismatch(err, &mismatch) {
		t.Fatalf("expected *ErrTypeMismatch, got %T: %v", err, err)
	}
	if mismatch.Have != KindNumeric || mismatch.Want != KindInteger {
		t.Fatalf("unexpected mismatch fields: %+v", mismatch)
	}
}

func asTypeMismatch(err error, target **ErrTypeMismatch) bool {
	if e, ok := err.(*ErrTypeMismatch); ok {
		*target = e
		return true
	}
	return false
}

func TestAppendSameVariant(t *testing.T) {
	a := TypedSamples{Kind: KindFloat, Floats: []FloatSample{{Time: time.Unix(0, 0), Value: 1.5}}}
	b := TypedSamples{Kind: KindFloat, Floats: []FloatSample{{Time: time.Unix(1, 0), Value: 2.5}}}
	if err := a.Append(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Len() != 2 {
		t.Fatalf("expected 2 samples, got %d", a.Len())
	}
}

func TestCloneEmptyRetainsVariant(t *testing.T) {
	a := TypedSamples{Kind: KindString, Strings: []StringSample{{Time: time.Unix(0, 0), Value: "x"}}}
	empty := a.CloneEmpty()
	if empty.Kind != KindString {
		t.Fatalf("expected Kind to survive clone-empty, got %v", empty.Kind)
	}
	if empty.Len() != 0 {
		t.Fatalf("expected empty clone, got %d", empty.Len())
	}
}

func TestChunkPreservesOrderAndBounds(t *testing.T) {
	samples := TypedSamples{Kind: KindInteger}
	for i := 0; i < 7; i++ {
		samples.Integers = append(samples.Integers, IntegerSample{Time: time.Unix(int64(i), 0), Value: int64(i)})
	}
	chunks := samples.Chunk(3)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	lengths := []int{chunks[0].Len(), chunks[1].Len(), chunks[2].Len()}
	want := []int{3, 3, 1}
	for i := range want {
		if lengths[i] != want[i] {
			t.Fatalf("chunk %d: want len %d, got %d", i, want[i], lengths[i])
		}
	}
	if chunks[2].Integers[0].Value != 6 {
		t.Fatalf("expected last chunk to start at value 6, got %d", chunks[2].Integers[0].Value)
	}
}

func TestIsStaleMarker(t *testing.T) {
	stale := math.Float64frombits(staleNaNBits)
	if !IsStaleMarker(stale) {
		t.Fatalf("expected stale marker bit pattern to be detected")
	}
	if IsStaleMarker(1.0) {
		t.Fatalf("ordinary float must not be reported as stale")
	}
}

// Package datamodel holds the type-preserving sample and sensor model shared
// by every ingestion format and every storage backend.
package datamodel

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
)

// SampleKind discriminates the eight semantic value types a sensor can carry.
// A sensor's kind is fixed at creation and never changes.
type SampleKind int

const (
	KindInteger SampleKind = iota
	KindNumeric
	KindFloat
	KindString
	KindBoolean
	KindLocation
	KindBlob
	KindJSON
)

func (k SampleKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindNumeric:
		return "numeric"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindLocation:
		return "location"
	case KindBlob:
		return "blob"
	case KindJSON:
		return "json"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// staleNaNBits is the Prometheus stale-marker bit pattern; samples carrying it
// must be dropped on ingest rather than stored.
const staleNaNBits uint64 = 0x7ff0000000000002

// IsStaleMarker reports whether v is the Prometheus "stale" NaN.
func IsStaleMarker(v float64) bool {
	return math.Float64bits(v) == staleNaNBits
}

// IntegerSample, NumericSample, ... pair a UTC timestamp with a typed value.
// Timestamps carry nanosecond precision in memory; backends persist at
// millisecond resolution.
type IntegerSample struct {
	Time  time.Time
	Value int64
}

type NumericSample struct {
	Time  time.Time
	Value decimal.Decimal
}

type FloatSample struct {
	Time  time.Time
	Value float64
}

type StringSample struct {
	Time  time.Time
	Value string
}

type BooleanSample struct {
	Time  time.Time
	Value bool
}

type LocationSample struct {
	Time  time.Time
	Value orb.Point // Value[0] = lon, Value[1] = lat
}

type BlobSample struct {
	Time  time.Time
	Value []byte
}

type JSONSample struct {
	Time  time.Time
	Value string // canonical text
}

// TypedSamples is a tagged union over the eight sample sequence variants.
// Exactly one of the slices is populated, selected by Kind; this mirrors a
// closed sum type via an explicit discriminator so publishers and queriers
// can exhaustively switch on Kind instead of relying on open polymorphism.
type TypedSamples struct {
	Kind SampleKind

	Integers  []IntegerSample
	Numerics  []NumericSample
	Floats    []FloatSample
	Strings   []StringSample
	Booleans  []BooleanSample
	Locations []LocationSample
	Blobs     []BlobSample
	JSONs     []JSONSample
}

// ErrTypeMismatch is returned by Append when the supplied samples belong to a
// different variant than the receiver's.
type ErrTypeMismatch struct {
	Have SampleKind
	Want SampleKind
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("cannot append %s samples to %s batch", e.Have, e.Want)
}

func NewTypedSamples(kind SampleKind) TypedSamples {
	return TypedSamples{Kind: kind}
}

// Len returns the number of samples held, regardless of variant.
func (t *TypedSamples) Len() int {
	switch t.Kind {
	case KindInteger:
		return len(t.Integers)
	case KindNumeric:
		return len(t.Numerics)
	case KindFloat:
		return len(t.Floats)
	case KindString:
		return len(t.Strings)
	case KindBoolean:
		return len(t.Booleans)
	case KindLocation:
		return len(t.Locations)
	case KindBlob:
		return len(t.Blobs)
	case KindJSON:
		return len(t.JSONs)
	default:
		return 0
	}
}

// CloneEmpty returns an empty TypedSamples retaining the receiver's variant.
func (t *TypedSamples) CloneEmpty() TypedSamples {
	return TypedSamples{Kind: t.Kind}
}

// Append adds other's elements to t. Both must share the same Kind, else
// ErrTypeMismatch is returned and t is left unmodified.
func (t *TypedSamples) Append(other TypedSamples) error {
	if t.Len() == 0 && other.Len() == 0 {
		// Two empty containers of possibly-differing declared kinds merge
		// trivially only when the kinds agree; otherwise this is still a
		// mismatch by the invariant that an empty TypedSamples retains its
		// variant.
		if t.Kind != other.Kind {
			return &ErrTypeMismatch{Have: other.Kind, Want: t.Kind}
		}
		return nil
	}
	if t.Kind != other.Kind {
		return &ErrTypeMismatch{Have: other.Kind, Want: t.Kind}
	}
	switch t.Kind {
	case KindInteger:
		t.Integers = append(t.Integers, other.Integers...)
	case KindNumeric:
		t.Numerics = append(t.Numerics, other.Numerics...)
	case KindFloat:
		t.Floats = append(t.Floats, other.Floats...)
	case KindString:
		t.Strings = append(t.Strings, other.Strings...)
	case KindBoolean:
		t.Booleans = append(t.Booleans, other.Booleans...)
	case KindLocation:
		t.Locations = append(t.Locations, other.Locations...)
	case KindBlob:
		t.Blobs = append(t.Blobs, other.Blobs...)
	case KindJSON:
		t.JSONs = append(t.JSONs, other.JSONs...)
	default:
		return fmt.Errorf("datamodel: unknown sample kind %v", t.Kind)
	}
	return nil
}

// Chunk splits t into contiguous runs of at most size elements, preserving
// order. Used by the batch builder's FFD bin-packing pass.
func (t *TypedSamples) Chunk(size int) []TypedSamples {
	n := t.Len()
	if n == 0 {
		return nil
	}
	if size <= 0 {
		size = n
	}
	var chunks []TypedSamples
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, t.slice(start, end))
	}
	return chunks
}

func (t *TypedSamples) slice(start, end int) TypedSamples {
	out := TypedSamples{Kind: t.Kind}
	switch t.Kind {
	case KindInteger:
		out.Integers = append([]IntegerSample(nil), t.Integers[start:end]...)
	case KindNumeric:
		out.Numerics = append([]NumericSample(nil), t.Numerics[start:end]...)
	case KindFloat:
		out.Floats = append([]FloatSample(nil), t.Floats[start:end]...)
	case KindString:
		out.Strings = append([]StringSample(nil), t.Strings[start:end]...)
	case KindBoolean:
		out.Booleans = append([]BooleanSample(nil), t.Booleans[start:end]...)
	case KindLocation:
		out.Locations = append([]LocationSample(nil), t.Locations[start:end]...)
	case KindBlob:
		out.Blobs = append([]BlobSample(nil), t.Blobs[start:end]...)
	case KindJSON:
		out.JSONs = append([]JSONSample(nil), t.JSONs[start:end]...)
	}
	return out
}

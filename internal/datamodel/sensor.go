package datamodel

import (
	"crypto/sha1"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ReservedNameLabel is the matcher-level label key that addresses a sensor's
// name. It must never appear among a Sensor's persisted Labels.
const ReservedNameLabel = "__name__"

// Label is an ordered (key, value) pair; the full label list participates in
// sensor identity.
type Label struct {
	Key   string
	Value string
}

// Unit optionally names the physical unit a sensor's values are measured in.
type Unit struct {
	Name        string
	Description string
}

// Sensor is the immutable identity of a named time series.
type Sensor struct {
	UUID   uuid.UUID
	Name   string
	Kind   SampleKind
	Unit   *Unit
	Labels []Label
}

// DeriveUUID computes the deterministic identity UUID for a sensor created
// without an explicit one, so that identical logical sensors produced by
// different parsers collapse onto the same row. The derivation is a
// name-based (v5-style) UUID over SHA-1 of the canonical encoding of
// (name, kind, unit, labels, salt); salt bundles the configured sensor salt
// string and instance id so that distinct deployments can opt into disjoint
// identity spaces.
func DeriveUUID(name string, kind SampleKind, unit *Unit, labels []Label, salt string) uuid.UUID {
	sorted := append([]Label(nil), labels...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	h := sha1.New()
	fmt.Fprintf(h, "salt=%s\x1f", salt)
	fmt.Fprintf(h, "name=%s\x1f", name)
	fmt.Fprintf(h, "kind=%s\x1f", kind)
	if unit != nil {
		fmt.Fprintf(h, "unit=%s\x1f", unit.Name)
	}
	for _, l := range sorted {
		fmt.Fprintf(h, "label=%s=%s\x1f", l.Key, l.Value)
	}
	sum := h.Sum(nil)
	return uuid.NewSHA1(uuid.Nil, sum)
}

// NewSensor builds a Sensor with an explicit UUID (for producers that carry
// their own, e.g. a pre-assigned time-ordered id).
func NewSensor(id uuid.UUID, name string, kind SampleKind, unit *Unit, labels []Label) *Sensor {
	return &Sensor{UUID: id, Name: name, Kind: kind, Unit: unit, Labels: append([]Label(nil), labels...)}
}

// NewDerivedSensor builds a Sensor whose UUID is derived deterministically
// from its identity tuple and the given salt.
func NewDerivedSensor(name string, kind SampleKind, unit *Unit, labels []Label, salt string) *Sensor {
	id := DeriveUUID(name, kind, unit, labels, salt)
	return NewSensor(id, name, kind, unit, labels)
}

// NewTimeOrderedUUID mints a fresh UUID v7 for producers that want explicit,
// time-ordered sensor identities instead of deterministic derivation.
func NewTimeOrderedUUID() (uuid.UUID, error) {
	return uuid.NewV7()
}

// Label looks up a label's value by key.
func (s *Sensor) Label(key string) (string, bool) {
	for _, l := range s.Labels {
		if l.Key == key {
			return l.Value, true
		}
	}
	return "", false
}

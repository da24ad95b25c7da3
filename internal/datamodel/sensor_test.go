package datamodel

import (
	"testing"

	"github.com/pv/sensapp/internal/config"
)

func TestDeriveUUIDStableAcrossRuns(t *testing.T) {
	labels := []Label{{Key: "host", Value: "server1"}, {Key: "region", Value: "west"}}
	u1 := DeriveUUID("cpu_usage", KindFloat, nil, labels, "sensapp")
	u2 := DeriveUUID("cpu_usage", KindFloat, nil, labels, "sensapp")
	if u1 != u2 {
		t.Fatalf("expected identical derivation, got %s vs %s", u1, u2)
	}
}

func TestDeriveUUIDOrderIndependentLabels(t *testing.T) {
	a := []Label{{Key: "host", Value: "server1"}, {Key: "region", Value: "west"}}
	b := []Label{{Key: "region", Value: "west"}, {Key: "host", Value: "server1"}}
	if DeriveUUID("cpu_usage", KindFloat, nil, a, "sensapp") != DeriveUUID("cpu_usage", KindFloat, nil, b, "sensapp") {
		t.Fatalf("expected label order to not affect identity")
	}
}

func TestDeriveUUIDDiffersOnSalt(t *testing.T) {
	u1 := DeriveUUID("cpu_usage", KindFloat, nil, nil, "sensapp")
	u2 := DeriveUUID("cpu_usage", KindFloat, nil, nil, "other-salt")
	if u1 == u2 {
		t.Fatalf("expected different salts to produce different identities")
	}
}

func TestDeriveUUIDDiffersOnLabelValue(t *testing.T) {
	a := []Label{{Key: "host", Value: "server1"}}
	b := []Label{{Key: "host", Value: "server2"}}
	if DeriveUUID("cpu_usage", KindFloat, nil, a, "sensapp") == DeriveUUID("cpu_usage", KindFloat, nil, b, "sensapp") {
		t.Fatalf("expected different label values to produce different identities")
	}
}

// TestDeriveUUIDDiffersOnInstanceID proves that two deployments sharing a
// SensorSalt but configured with distinct INSTANCE_ID values derive
// different UUIDs for an otherwise identical sensor, via the combined salt
// config.Config.DerivationSalt() feeds into DeriveUUID.
func TestDeriveUUIDDiffersOnInstanceID(t *testing.T) {
	labels := []Label{{Key: "host", Value: "server1"}}
	cfgA := config.Config{SensorSalt: "sensapp", InstanceID: 1}
	cfgB := config.Config{SensorSalt: "sensapp", InstanceID: 2}

	u1 := DeriveUUID("cpu_usage", KindFloat, nil, labels, cfgA.DerivationSalt())
	u2 := DeriveUUID("cpu_usage", KindFloat, nil, labels, cfgB.DerivationSalt())
	if u1 == u2 {
		t.Fatalf("expected different instance ids to produce different identities, got %s for both", u1)
	}
}

package topology

import "testing"

func TestDeriveSDPsPairsReciprocalAliases(t *testing.T) {
	a := Candidate{StpID: "a", InboundAlias: "z-out", OutboundAlias: "z-in", InboundPort: "a-in", OutboundPort: "a-out"}
	z := Candidate{StpID: "z", InboundAlias: "a-out", OutboundAlias: "a-in", InboundPort: "z-in", OutboundPort: "z-out"}
	unrelated := Candidate{StpID: "u"}

	pairs := DeriveSDPs([]Candidate{a, z, unrelated})
	if len(pairs) != 1 {
		t.Fatalf("len(pairs) = %d, want 1", len(pairs))
	}
	if pairs[0].A.StpID != "a" || pairs[0].Z.StpID != "z" {
		t.Errorf("pair = %+v, want A=a Z=z", pairs[0])
	}
}

func TestDeriveSDPsSkipsCandidatesWithoutBothAliases(t *testing.T) {
	partial := Candidate{StpID: "p", InboundAlias: "q-out"}
	other := Candidate{StpID: "q", OutboundAlias: "p-in"}

	pairs := DeriveSDPs([]Candidate{partial, other})
	if len(pairs) != 0 {
		t.Fatalf("len(pairs) = %d, want 0 for candidates missing one alias side", len(pairs))
	}
}

func TestDeriveSDPsDoesNotReuseAConsumedZSide(t *testing.T) {
	a := Candidate{StpID: "a", InboundAlias: "z-out", OutboundAlias: "z-in", InboundPort: "a-in", OutboundPort: "a-out"}
	z := Candidate{StpID: "z", InboundAlias: "a-out", OutboundAlias: "a-in", InboundPort: "z-in", OutboundPort: "z-out"}
	b := Candidate{StpID: "b", InboundAlias: "z-out", OutboundAlias: "z-in", InboundPort: "b-in", OutboundPort: "b-out"}

	pairs := DeriveSDPs([]Candidate{a, z, b})
	if len(pairs) != 1 {
		t.Fatalf("len(pairs) = %d, want 1 (z should only be consumed once)", len(pairs))
	}
}

package vlan

import "testing"

func TestParseAndString(t *testing.T) {
	cases := []string{
		"3,4,6-9",
		"100-200,1000",
		"",
		"0-4096",
	}
	for _, s := range cases {
		r, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", s, err)
		}
		r2, err := Parse(r.String())
		if err != nil {
			t.Fatalf("Parse(String()) round trip failed for %q: %v", s, err)
		}
		if r.String() != r2.String() {
			t.Fatalf("round trip mismatch: %q -> %q -> %q", s, r.String(), r2.String())
		}
	}
}

func TestParseMergesOverlapsAndAdjacency(t *testing.T) {
	r, err := Parse("5-10, 8-12, 13")
	if err != nil {
		t.Fatal(err)
	}
	want := "5-13"
	if got := r.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseRejectsOutOfRange(t *testing.T) {
	for _, s := range []string{"-1", "4097", "5-4097"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("expected error parsing %q", s)
		}
	}
}

func TestSetAlgebra(t *testing.T) {
	a, _ := Parse("1-10")
	b, _ := Parse("5-15")

	if got := a.Union(b).String(); got != "1-15" {
		t.Fatalf("union = %q", got)
	}
	if got := a.Intersect(b).String(); got != "5-10" {
		t.Fatalf("intersect = %q", got)
	}
	if got := a.Difference(b).String(); got != "1-4" {
		t.Fatalf("difference = %q", got)
	}
	if got := a.SymmetricDifference(b).String(); got != "1-4,11-15" {
		t.Fatalf("symmetric difference = %q", got)
	}
}

func TestContains(t *testing.T) {
	r, _ := Parse("100-200,1000")
	if !r.Contains(100) || !r.Contains(200) || !r.Contains(1000) {
		t.Fatal("expected boundary members to be contained")
	}
	if r.Contains(201) || r.Contains(99) || r.Contains(999) {
		t.Fatal("unexpected membership")
	}
}

func TestValidateReservationVLANBoundaries(t *testing.T) {
	for _, id := range []int{1, 4095, 4096} {
		if err := ValidateReservationVLAN(id); err == nil {
			t.Fatalf("expected %d to be rejected", id)
		}
	}
	for _, id := range []int{2, 4094} {
		if err := ValidateReservationVLAN(id); err != nil {
			t.Fatalf("expected %d to be accepted: %v", id, err)
		}
	}
}

// Package vlan implements the compact VLAN set algebra used to track free
// and reserved VLAN ids on a Service Termination Point.
package vlan

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// MinVLAN and MaxVLAN bound the legal VLAN id space accepted by Parse.
// The wire protocol additionally restricts reservation VLANs to [2, 4094]
// (see ValidateReservationVLAN); the set algebra itself accepts the wider
// [0, 4096] range so that topology-reported ranges aren't clipped.
const (
	MinVLAN = 0
	MaxVLAN = 4096
)

// span is an inclusive [lo, hi] interval.
type span struct {
	lo, hi int
}

// Ranges is an immutable, normalized set of VLAN ids: sorted, disjoint,
// non-adjacent-merged spans. The zero value is the empty set.
type Ranges struct {
	spans []span
}

// Parse accepts strings of the form "3, 4, 6-9" and returns the normalized
// set. It rejects values outside [MinVLAN, MaxVLAN] and malformed tokens.
func Parse(s string) (Ranges, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ranges{}, nil
	}

	var spans []span
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		var a, b int
		var err error
		if i := strings.IndexByte(tok, '-'); i >= 0 {
			a, err = strconv.Atoi(strings.TrimSpace(tok[:i]))
			if err == nil {
				b, err = strconv.Atoi(strings.TrimSpace(tok[i+1:]))
			}
		} else {
			a, err = strconv.Atoi(tok)
			b = a
		}
		if err != nil {
			return Ranges{}, fmt.Errorf("vlan: invalid range token %q: %w", tok, err)
		}
		if a > b {
			a, b = b, a
		}
		if a < MinVLAN || b > MaxVLAN {
			return Ranges{}, fmt.Errorf("vlan: range %d-%d outside [%d, %d]", a, b, MinVLAN, MaxVLAN)
		}
		spans = append(spans, span{a, b})
	}

	return normalize(spans), nil
}

func normalize(spans []span) Ranges {
	if len(spans) == 0 {
		return Ranges{}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].lo < spans[j].lo })

	out := make([]span, 0, len(spans))
	cur := spans[0]
	for _, s := range spans[1:] {
		if s.lo <= cur.hi+1 {
			if s.hi > cur.hi {
				cur.hi = s.hi
			}
			continue
		}
		out = append(out, cur)
		cur = s
	}
	out = append(out, cur)
	return Ranges{spans: out}
}

// String renders the canonical form, e.g. "100-200,1000".
func (r Ranges) String() string {
	parts := lo.Map(r.spans, func(s span, _ int) string {
		if s.lo == s.hi {
			return strconv.Itoa(s.lo)
		}
		return fmt.Sprintf("%d-%d", s.lo, s.hi)
	})
	return strings.Join(parts, ",")
}

// Contains reports whether id is a member of the set.
func (r Ranges) Contains(id int) bool {
	for _, s := range r.spans {
		if id >= s.lo && id <= s.hi {
			return true
		}
		if id < s.lo {
			break
		}
	}
	return false
}

// Empty reports whether the set has no members.
func (r Ranges) Empty() bool {
	return len(r.spans) == 0
}

// Each calls fn once for every member id in ascending order.
func (r Ranges) Each(fn func(id int)) {
	for _, s := range r.spans {
		for id := s.lo; id <= s.hi; id++ {
			fn(id)
		}
	}
}

func (r Ranges) toSet() map[int]struct{} {
	m := make(map[int]struct{})
	r.Each(func(id int) { m[id] = struct{}{} })
	return m
}

func fromSet(m map[int]struct{}) Ranges {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var spans []span
	for _, id := range ids {
		if n := len(spans); n > 0 && spans[n-1].hi+1 == id {
			spans[n-1].hi = id
			continue
		}
		spans = append(spans, span{id, id})
	}
	return Ranges{spans: spans}
}

// Union returns the set of ids in r or other.
func (r Ranges) Union(other Ranges) Ranges {
	return normalize(append(append([]span{}, r.spans...), other.spans...))
}

// Intersect returns the set of ids in both r and other.
func (r Ranges) Intersect(other Ranges) Ranges {
	a, b := r.toSet(), other.toSet()
	out := make(map[int]struct{})
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return fromSet(out)
}

// Difference returns the ids in r that are not in other.
func (r Ranges) Difference(other Ranges) Ranges {
	b := other.toSet()
	out := make(map[int]struct{})
	for id := range r.toSet() {
		if _, ok := b[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return fromSet(out)
}

// SymmetricDifference returns the ids in exactly one of r or other.
func (r Ranges) SymmetricDifference(other Ranges) Ranges {
	return r.Difference(other).Union(other.Difference(r))
}

// ValidateReservationVLAN enforces the reservation-time bound 2..4094,
// distinct from the wider [0,4096] the algebra itself accepts for
// topology-reported ranges.
func ValidateReservationVLAN(id int) error {
	if id < 2 || id > 4094 {
		return fmt.Errorf("vlan %d out of range: must be 2..4094", id)
	}
	return nil
}

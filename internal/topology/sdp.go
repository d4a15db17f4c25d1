package topology

// SDPPair is two STP candidates found to be connected end-to-end by
// reciprocal NML alias relations: the z side's inbound/outbound ports are
// exactly the a side's outbound/inbound aliases, and vice versa.
type SDPPair struct {
	A, Z Candidate
}

func hasAlias(c Candidate) bool {
	return c.InboundAlias != "" && c.OutboundAlias != ""
}

func isSDP(a, z Candidate) bool {
	return hasAlias(a) && hasAlias(z) &&
		a.InboundAlias == z.OutboundPort && a.OutboundAlias == z.InboundPort &&
		z.InboundAlias == a.OutboundPort && z.OutboundAlias == a.InboundPort
}

// DeriveSDPs pairs STP candidates into SDPs by reciprocal alias relation.
// Once a candidate is consumed as a Z side it is excluded from further
// pairing, mirroring the reference implementation's list-removal approach
// without mutating the input slice.
func DeriveSDPs(candidates []Candidate) []SDPPair {
	used := make([]bool, len(candidates))
	var pairs []SDPPair

	for i, a := range candidates {
		if used[i] {
			continue
		}
		for j, z := range candidates {
			if i == j || used[j] {
				continue
			}
			if isSDP(a, z) {
				pairs = append(pairs, SDPPair{A: a, Z: z})
				used[j] = true
				break
			}
		}
	}
	return pairs
}

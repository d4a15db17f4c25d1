package topology

import (
	"fmt"
	"strings"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/workfloworchestrator/nsi-aura/internal/nsi"
)

// NML relation type URNs used to classify a PortGroup's direction and
// alias linkage.
const (
	hasInboundPort  = "http://schemas.ogf.org/nml/2013/05/base#hasInboundPort"
	hasOutboundPort = "http://schemas.ogf.org/nml/2013/05/base#hasOutboundPort"
	isAlias         = "http://schemas.ogf.org/nml/2013/05/base#isAlias"
)

// Candidate is a topology-derived STP before it is reconciled against the
// database: the NML port-pairing and alias-relation fields later used to
// derive SDPs.
type Candidate struct {
	StpID         string
	InboundPort   string
	OutboundPort  string
	InboundAlias  string
	OutboundAlias string
	VlanRange     string
	Description   string
}

// ParseTopology derives the STP candidates for one NML topology document.
// Individual malformed ports still yield a candidate, with the fields that
// cannot be derived left empty, plus a warning folded into the returned
// multierror; a structurally absent document (no Relation of a
// required direction) returns a nil slice and a plain error.
func ParseTopology(topologyID string, raw []byte) ([]Candidate, error) {
	flat, err := nsi.Flatten(raw)
	if err != nil {
		return nil, fmt.Errorf("topology %s: %w", topologyID, err)
	}
	root := nsi.Unwrap(flat)

	bidi := indexByID(asList(root["BidirectionalPort"]))
	relations := indexByType(asList(root["Relation"]))

	inRel, ok := relations[hasInboundPort]
	if !ok {
		return nil, fmt.Errorf("topology %s: no hasInboundPort relation", topologyID)
	}
	outRel, ok := relations[hasOutboundPort]
	if !ok {
		return nil, fmt.Errorf("topology %s: no hasOutboundPort relation", topologyID)
	}
	inbound := indexByID(asList(inRel["PortGroup"]))
	outbound := indexByID(asList(outRel["PortGroup"]))

	var warnings error
	var out []Candidate

	for bidiID, port := range bidi {
		c := Candidate{StpID: stripURN(bidiID), Description: asString(port["name"])}

		var inPort, outPort map[string]any
		for _, upID := range idsOf(asList(port["PortGroup"])) {
			switch {
			case inbound[upID] != nil:
				inPort = inbound[upID]
			case outbound[upID] != nil:
				outPort = outbound[upID]
			default:
				warnings = multierror.Append(warnings, fmt.Errorf("topology %s: unidirectional port %s not found", topologyID, upID))
			}
		}

		if inPort != nil && outPort != nil {
			if labelGroupText(inPort["LabelGroup"]) != labelGroupText(outPort["LabelGroup"]) {
				warnings = multierror.Append(warnings, fmt.Errorf("topology %s: LabelGroups on in- and outbound ports of %s do not match", topologyID, bidiID))
			}
			c.VlanRange = labelGroupText(inPort["LabelGroup"])

			if _, isList := inPort["Relation"].([]any); isList {
				warnings = multierror.Append(warnings, fmt.Errorf("topology %s: port %s has multiple relations, alias skipped", topologyID, asString(inPort["id"])))
			} else if rel, ok := asMap(inPort["Relation"]); ok && asString(rel["type"]) == isAlias {
				c.InboundPort = stripURN(asString(inPort["id"]))
				if pg, ok := asMap(rel["PortGroup"]); ok {
					c.InboundAlias = stripURN(asString(pg["id"]))
				}
			}

			if _, isList := outPort["Relation"].([]any); isList {
				warnings = multierror.Append(warnings, fmt.Errorf("topology %s: port %s has multiple relations, alias skipped", topologyID, asString(outPort["id"])))
			} else if rel, ok := asMap(outPort["Relation"]); ok && asString(rel["type"]) == isAlias {
				c.OutboundPort = stripURN(asString(outPort["id"]))
				if pg, ok := asMap(rel["PortGroup"]); ok {
					c.OutboundAlias = stripURN(asString(pg["id"]))
				}
			}
		}

		out = append(out, c)
	}

	return out, warnings
}

func indexByID(items []map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(items))
	for _, it := range items {
		out[asString(it["id"])] = it
	}
	return out
}

func indexByType(items []map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(items))
	for _, it := range items {
		out[asString(it["type"])] = it
	}
	return out
}

func idsOf(items []map[string]any) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, asString(it["id"]))
	}
	return ids
}

// asList normalizes the single-vs-list ambiguity inherent in encoding/xml
// unmarshalling of repeated siblings: a lone child decodes to a single
// map, two or more to a slice.
func asList(v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{t}
	default:
		return nil
	}
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func labelGroupText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return asString(t["_text"])
	default:
		return ""
	}
}

func stripURN(urn string) string {
	return strings.TrimPrefix(urn, "urn:ogf:network:")
}

package topology

import (
	"strings"
	"testing"
)

const sampleTopology = `<?xml version="1.0" encoding="UTF-8"?>
<nml:Topology xmlns:nml="http://schemas.ogf.org/nml/2013/05/base#" id="urn:ogf:network:example.net:2023:topology">
  <BidirectionalPort id="urn:ogf:network:example.net:2023:port-a">
    <name>port a</name>
    <PortGroup id="urn:ogf:network:example.net:2023:port-a:in"/>
    <PortGroup id="urn:ogf:network:example.net:2023:port-a:out"/>
  </BidirectionalPort>
  <BidirectionalPort id="urn:ogf:network:example.net:2023:port-b">
    <name>port b</name>
    <PortGroup id="urn:ogf:network:example.net:2023:port-b:in"/>
    <PortGroup id="urn:ogf:network:example.net:2023:port-b:out"/>
  </BidirectionalPort>
  <Relation type="http://schemas.ogf.org/nml/2013/05/base#hasInboundPort">
    <PortGroup id="urn:ogf:network:example.net:2023:port-a:in">
      <LabelGroup>3,4,6-9</LabelGroup>
      <Relation type="http://schemas.ogf.org/nml/2013/05/base#isAlias">
        <PortGroup id="urn:ogf:network:example.net:2023:port-b:out"/>
      </Relation>
    </PortGroup>
    <PortGroup id="urn:ogf:network:example.net:2023:port-b:in">
      <LabelGroup>3,4,6-9</LabelGroup>
      <Relation type="http://schemas.ogf.org/nml/2013/05/base#isAlias">
        <PortGroup id="urn:ogf:network:example.net:2023:port-a:out"/>
      </Relation>
    </PortGroup>
  </Relation>
  <Relation type="http://schemas.ogf.org/nml/2013/05/base#hasOutboundPort">
    <PortGroup id="urn:ogf:network:example.net:2023:port-a:out">
      <LabelGroup>3,4,6-9</LabelGroup>
      <Relation type="http://schemas.ogf.org/nml/2013/05/base#isAlias">
        <PortGroup id="urn:ogf:network:example.net:2023:port-b:in"/>
      </Relation>
    </PortGroup>
    <PortGroup id="urn:ogf:network:example.net:2023:port-b:out">
      <LabelGroup>3,4,6-9</LabelGroup>
      <Relation type="http://schemas.ogf.org/nml/2013/05/base#isAlias">
        <PortGroup id="urn:ogf:network:example.net:2023:port-a:in"/>
      </Relation>
    </PortGroup>
  </Relation>
</nml:Topology>`

func TestParseTopologyDerivesAliasedCandidates(t *testing.T) {
	candidates, err := ParseTopology("example.net", []byte(sampleTopology))
	if err != nil {
		t.Fatalf("ParseTopology: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("len(candidates) = %d, want 2", len(candidates))
	}

	byID := map[string]Candidate{}
	for _, c := range candidates {
		byID[c.StpID] = c
	}

	a, ok := byID["example.net:2023:port-a"]
	if !ok {
		t.Fatalf("port-a candidate missing: %#v", byID)
	}
	if a.VlanRange != "3,4,6-9" {
		t.Errorf("port-a VlanRange = %q, want %q", a.VlanRange, "3,4,6-9")
	}
	if a.InboundAlias != "example.net:2023:port-b:out" {
		t.Errorf("port-a InboundAlias = %q", a.InboundAlias)
	}
	if a.OutboundAlias != "example.net:2023:port-b:in" {
		t.Errorf("port-a OutboundAlias = %q", a.OutboundAlias)
	}
}

func TestParseTopologyWarnsOnUnmatchedPort(t *testing.T) {
	doc := `<Topology>
  <BidirectionalPort id="urn:ogf:network:x:port-a">
    <PortGroup id="urn:ogf:network:x:port-a:in"/>
  </BidirectionalPort>
  <Relation type="http://schemas.ogf.org/nml/2013/05/base#hasInboundPort">
  </Relation>
  <Relation type="http://schemas.ogf.org/nml/2013/05/base#hasOutboundPort">
  </Relation>
</Topology>`

	candidates, err := ParseTopology("x", []byte(doc))
	if err == nil {
		t.Fatal("expected a warning error for the unmatched unidirectional port")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("warning text = %q, want it to mention the port was not found", err.Error())
	}
	if len(candidates) != 1 {
		t.Fatalf("len(candidates) = %d, want 1 (the port should still produce a bare candidate)", len(candidates))
	}
}

func TestParseTopologyMissingRelationIsFatal(t *testing.T) {
	doc := `<Topology><BidirectionalPort id="urn:ogf:network:x:a"/></Topology>`
	if _, err := ParseTopology("x", []byte(doc)); err == nil {
		t.Fatal("expected a fatal error when no hasInboundPort/hasOutboundPort relation is present")
	}
}

func TestParseTopologySkipsAliasOnMultipleRelations(t *testing.T) {
	doc := `<Topology>
  <BidirectionalPort id="urn:ogf:network:x:port-a">
    <PortGroup id="urn:ogf:network:x:port-a:in"/>
    <PortGroup id="urn:ogf:network:x:port-a:out"/>
  </BidirectionalPort>
  <Relation type="http://schemas.ogf.org/nml/2013/05/base#hasInboundPort">
    <PortGroup id="urn:ogf:network:x:port-a:in">
      <LabelGroup>3,4</LabelGroup>
      <Relation type="http://schemas.ogf.org/nml/2013/05/base#isAlias"><PortGroup id="urn:ogf:network:x:port-z:out"/></Relation>
      <Relation type="http://schemas.ogf.org/nml/2013/05/base#isAlias"><PortGroup id="urn:ogf:network:x:port-y:out"/></Relation>
    </PortGroup>
  </Relation>
  <Relation type="http://schemas.ogf.org/nml/2013/05/base#hasOutboundPort">
    <PortGroup id="urn:ogf:network:x:port-a:out">
      <LabelGroup>3,4</LabelGroup>
    </PortGroup>
  </Relation>
</Topology>`

	candidates, err := ParseTopology("x", []byte(doc))
	if err == nil {
		t.Fatal("expected a warning for the port carrying multiple Relation elements")
	}
	if !strings.Contains(err.Error(), "multiple relations") {
		t.Errorf("warning text = %q, want it to mention multiple relations", err.Error())
	}
	if len(candidates) != 1 || candidates[0].InboundAlias != "" {
		t.Errorf("candidate alias should be left empty when its relation is ambiguous: %#v", candidates)
	}
}

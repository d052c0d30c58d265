package codec

import (
	"strings"
	"testing"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
)

const yamlDoc = `
reference:
  source: Example Registry
  url: https://example.org/dump.yaml
nodes:
  - ref: as
    labels: [AS]
    properties: {asn: 65000}
    external_ids:
      - {namespace: PeeringDB, id: 42}
  - ref: pfx
    labels: [PREFIX]
    properties: {prefix: 192.0.2.0/24, af: 4}
links:
  - type: ORIGINATE
    from: as
    to: pfx
    properties: {count: 3}
`

const jsonDoc = `{
  "nodes": [
    {"ref": "a", "labels": ["AS"], "properties": {"asn": 65000, "weight": 0.5}},
    {"ref": "b", "labels": ["AS"], "properties": {"asn": "65001"}}
  ],
  "links": [{"type": "PEERS_WITH", "from": "a", "to": "b"}]
}`

func TestYAMLCodecParse(t *testing.T) {
	doc, err := NewYAMLCodec().Parse(strings.NewReader(yamlDoc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if doc.Reference == nil || doc.Reference.Source != "Example Registry" {
		t.Fatalf("Reference = %+v", doc.Reference)
	}
	if len(doc.Nodes) != 2 || len(doc.Links) != 1 {
		t.Fatalf("got %d nodes, %d links", len(doc.Nodes), len(doc.Links))
	}
	if doc.Nodes[0].Properties["asn"] != domain.Int(65000) {
		t.Errorf("asn = %v, want 65000", doc.Nodes[0].Properties["asn"])
	}
	if len(doc.Nodes[0].ExternalIDs) != 1 || doc.Nodes[0].ExternalIDs[0].ID != domain.Int(42) {
		t.Errorf("ExternalIDs = %+v", doc.Nodes[0].ExternalIDs)
	}
	if doc.Links[0].Properties["count"] != domain.Int(3) {
		t.Errorf("count = %v, want 3", doc.Links[0].Properties["count"])
	}
}

func TestJSONCodecParse(t *testing.T) {
	doc, err := NewJSONCodec().Parse(strings.NewReader(jsonDoc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if doc.Reference != nil {
		t.Error("expected no reference")
	}
	if doc.Nodes[0].Properties["asn"] != domain.Int(65000) {
		t.Errorf("asn = %v, want integer 65000", doc.Nodes[0].Properties["asn"])
	}
	if doc.Nodes[0].Properties["weight"] != domain.Float(0.5) {
		t.Errorf("weight = %v, want 0.5", doc.Nodes[0].Properties["weight"])
	}
	if doc.Nodes[1].Properties["asn"] != domain.String("65001") {
		t.Errorf("asn = %v, want string, normalization happens later", doc.Nodes[1].Properties["asn"])
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing ref", `{"nodes": [{"labels": ["AS"]}]}`},
		{"duplicate ref", `{"nodes": [{"ref": "a", "labels": ["AS"]}, {"ref": "a", "labels": ["AS"]}]}`},
		{"no labels", `{"nodes": [{"ref": "a"}]}`},
		{"dangling link", `{"nodes": [{"ref": "a", "labels": ["AS"]}], "links": [{"type": "X", "from": "a", "to": "b"}]}`},
		{"incomplete reference", `{"reference": {"source": "x"}, "nodes": []}`},
		{"nested property", `{"nodes": [{"ref": "a", "labels": ["AS"], "properties": {"x": {"y": 1}}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewJSONCodec().Parse(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path    string
		format  string
		wantErr bool
	}{
		{"dump.yaml", "yaml", false},
		{"dump.YML", "yaml", false},
		{"dump.json", "json", false},
		{"dump.csv", "", true},
	}

	for _, tt := range tests {
		imp, err := ForPath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ForPath(%s) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if err == nil && imp.Format() != tt.format {
			t.Errorf("ForPath(%s).Format() = %s, want %s", tt.path, imp.Format(), tt.format)
		}
	}
}

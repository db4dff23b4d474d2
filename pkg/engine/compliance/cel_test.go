package compliance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/findings"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/graph"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/netspace"
)

func TestCompileAndEvaluateDynamicRule(t *testing.T) {
	rules, err := CompileDynamicRules([]DynamicRule{{
		ID:        "no-default-vpc-name",
		Severity:  "error",
		Condition: `kind == "VPC" && name.startsWith("default")`,
		Message:   "default VPC names are forbidden",
	}})
	if err != nil {
		t.Fatalf("CompileDynamicRules: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected one compiled rule, got %d", len(rules))
	}

	g := graph.New()
	g.AddNode(&graph.Node{ID: "vpc-1", Name: "default-vpc", Kind: graph.KindVPC})
	g.AddNode(&graph.Node{ID: "vpc-2", Name: "shared-services", Kind: graph.KindVPC})
	g.AddNode(&graph.Node{ID: "sn-1", Name: "default-subnet", Kind: graph.KindSubnet})
	g.Seal()

	fs := rules[0].Evaluate(g)
	if len(fs) != 1 {
		t.Fatalf("expected one finding, got %+v", fs)
	}
	if fs[0].NodeIDs[0] != "vpc-1" {
		t.Errorf("matched wrong node: %+v", fs[0])
	}
	if fs[0].Severity != findings.SeverityError {
		t.Errorf("severity mapping: got %s", fs[0].Severity)
	}
	if fs[0].Message != "default VPC names are forbidden" {
		t.Errorf("message not carried: %q", fs[0].Message)
	}
}

func TestDynamicRuleVariables(t *testing.T) {
	rules, err := CompileDynamicRules([]DynamicRule{{
		ID:        "tagged-subnet",
		Condition: `kind == "Subnet" && attrs["tier"] == "edge" && cidrs.size() > 0`,
	}})
	if err != nil {
		t.Fatalf("CompileDynamicRules: %v", err)
	}

	g := graph.New()
	g.AddNode(&graph.Node{
		ID:     "sn-edge",
		Kind:   graph.KindSubnet,
		Attrs:  map[string]string{"tier": "edge"},
		Blocks: []netspace.Block{blk("10.0.1.0/24")},
	})
	g.AddNode(&graph.Node{ID: "sn-plain", Kind: graph.KindSubnet})
	g.Seal()

	fs := rules[0].Evaluate(g)
	if len(fs) != 1 || fs[0].NodeIDs[0] != "sn-edge" {
		t.Fatalf("expected sn-edge only, got %+v", fs)
	}
	if fs[0].Severity != findings.SeverityWarning {
		t.Errorf("unspecified severity defaults to warning, got %s", fs[0].Severity)
	}
	if fs[0].Message == "" {
		t.Errorf("empty message must be synthesized")
	}
}

func TestCompileDynamicRulesBatchFailure(t *testing.T) {
	_, err := CompileDynamicRules([]DynamicRule{
		{ID: "good", Condition: `kind == "VPC"`},
		{ID: "bad", Condition: `kind ==`},
	})
	if err == nil {
		t.Fatal("one broken condition must fail the whole batch")
	}
}

func TestCompileDynamicRulesRequiresID(t *testing.T) {
	if _, err := CompileDynamicRules([]DynamicRule{{Condition: "true"}}); err == nil {
		t.Fatal("rule without id must be rejected")
	}
}

func TestLoadDynamicRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := `rules:
  - id: zebra
    severity: info
    condition: 'role == "Perimeter"'
  - id: alpha
    condition: 'kind == "TransitGateway"'
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadDynamicRules(path)
	if err != nil {
		t.Fatalf("LoadDynamicRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected two rules, got %d", len(rules))
	}
	if rules[0].ID() != "alpha" || rules[1].ID() != "zebra" {
		t.Errorf("rules must come back sorted by id: %s, %s", rules[0].ID(), rules[1].ID())
	}
}

func TestLoadDynamicRulesMissingFile(t *testing.T) {
	if _, err := LoadDynamicRules(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing rule file must error")
	}
}

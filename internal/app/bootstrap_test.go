package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/config"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/storage"
)

const recordsYAML = `
vpcs:
  - id: vpc-net
    name: network-perimeter
    cidrs: ["10.0.0.0/16"]
    singleAz: true
  - id: vpc-app
    name: application
    cidrs: ["10.1.0.0/16"]
subnets:
  - id: sn-edge-a
    name: edge-a
    vpc: vpc-net
    cidr: 10.0.1.0/24
    az: eu-west-1a
  - id: sn-app-a
    name: app-a
    vpc: vpc-app
    cidr: 10.1.1.0/24
    az: eu-west-1a
  - id: sn-app-b
    name: app-b
    vpc: vpc-app
    cidr: 10.1.2.0/24
    az: eu-west-1b
transitGateways:
  - id: tgw-main
    name: main
    asn: 64512
attachments:
  - id: att-net
    vpc: vpc-net
    transitGateway: tgw-main
  - id: att-app
    vpc: vpc-app
    transitGateway: tgw-main
routeTables:
  - id: rt-net
    owner: vpc-net
    routes:
      - destination: 10.0.0.0/16
        nextHop: vpc-net
      - destination: 10.1.0.0/16
        nextHop: tgw-main
  - id: rt-app
    owner: vpc-app
    routes:
      - destination: 10.1.0.0/16
        nextHop: vpc-app
      - destination: 10.0.0.0/16
        nextHop: tgw-main
  - id: rt-tgw
    owner: tgw-main
    routes:
      - destination: 10.0.0.0/16
        nextHop: att-net
        origin: propagated
      - destination: 10.1.0.0/16
        nextHop: att-app
        origin: propagated
`

func writeRecords(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.yaml")
	if err := os.WriteFile(path, []byte(recordsYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunEndToEnd(t *testing.T) {
	out := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Source.Path = writeRecords(t)
	cfg.Output = out

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Artifact == nil || res.RunKey == "" {
		t.Fatalf("incomplete result: %+v", res)
	}
	if len(res.Artifact.Nodes) == 0 || len(res.Artifact.Flows) == 0 {
		t.Errorf("artifact is empty: %s", res.Artifact.Summary())
	}

	// The stored latest artifact must be the run output.
	store, err := storage.Open(context.Background(), out)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := storage.Latest(context.Background(), store)
	if err != nil {
		t.Fatalf("latest artifact missing: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("stored artifact is not JSON: %v", err)
	}
	if _, ok := decoded["metadata"]; !ok {
		t.Error("stored artifact lacks metadata")
	}
}

func TestRunWithDynamicRules(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	doc := `rules:
  - id: no-unnamed-vpcs
    severity: warning
    condition: 'kind == "VPC" && name == ""'
`
	if err := os.WriteFile(rules, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Source.Path = writeRecords(t)
	cfg.Output = filepath.Join(dir, "out")
	cfg.RulesFile = rules

	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run with operator rules: %v", err)
	}
}

func TestRunRejectsBrokenRuleFile(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(rules, []byte("rules:\n  - id: bad\n    condition: 'kind =='\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Source.Path = writeRecords(t)
	cfg.Output = filepath.Join(dir, "out")
	cfg.RulesFile = rules

	if _, err := Run(context.Background(), cfg); err == nil {
		t.Fatal("broken rule file must fail the run")
	}
}

func TestRunUnknownSourceKind(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Kind = "carrier-pigeon"

	if _, err := Run(context.Background(), cfg); err == nil {
		t.Fatal("unknown source kind must fail")
	}
}

func TestRunMissingRecordsFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Path = filepath.Join(t.TempDir(), "absent.yaml")

	if _, err := Run(context.Background(), cfg); err == nil {
		t.Fatal("missing records file must fail")
	}
}

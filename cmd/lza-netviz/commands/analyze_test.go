package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runWith(t *testing.T, records string) error {
	t.Helper()
	cfg = config.DefaultConfig()
	cfg.Source.Path = records
	cfg.Output = t.TempDir()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return runAnalysis(cmd)
}

func TestRunAnalysisGatesOnErrorFindings(t *testing.T) {
	// Two VPCs claiming the same block with no declared peering produce
	// an error finding, which must surface as the gate sentinel rather
	// than a direct process exit.
	records := writeFile(t, "records.yaml", `
vpcs:
  - id: vpc-a
    cidrs: ["10.2.0.0/16"]
  - id: vpc-b
    cidrs: ["10.2.0.0/16"]
`)

	err := runWith(t, records)
	if !errors.Is(err, errFindingsGate) {
		t.Fatalf("expected the findings gate error, got %v", err)
	}
}

func TestRunAnalysisCleanInput(t *testing.T) {
	records := writeFile(t, "records.yaml", `
vpcs:
  - id: vpc-a
    cidrs: ["10.0.0.0/16"]
    singleAz: true
subnets:
  - id: sn-1
    vpc: vpc-a
    cidr: 10.0.1.0/24
    az: eu-west-1a
routeTables:
  - id: rt-a
    owner: vpc-a
    routes:
      - destination: 10.0.0.0/16
        nextHop: vpc-a
`)

	if err := runWith(t, records); err != nil {
		t.Fatalf("clean input must not gate: %v", err)
	}
}

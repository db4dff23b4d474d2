package commands

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/p3dr0zz/LZA-Network-Visualizer/internal/app"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/artifact"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/config"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/findings"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/telemetry"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/version"
)

// errFindingsGate signals that the analysis finished but reported
// error-severity findings. It travels up as a regular error so deferred
// cleanup (telemetry flush) runs before the process exits nonzero.
var errFindingsGate = errors.New("analysis reported error findings")

var analyzeCmd = &cobra.Command{
	Use:   "analyze <records-file>",
	Short: "Analyze a landing zone network configuration file",
	Long: `Builds the topology graph from a resolved record file (YAML or
JSON), runs the compliance catalog, connectivity validation and flow
resolution, and stores the artifact.

Example:
  lza-netviz analyze network-config.yaml
  lza-netviz analyze records.json -o s3://my-bucket/netviz`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Source.Kind = config.SourceFile
		cfg.Source.Path = args[0]
		return runAnalysis(cmd)
	},
}

func runAnalysis(cmd *cobra.Command) error {
	ctx := cmd.Context()

	shutdown, err := telemetry.Init(ctx, version.Version, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer shutdown(ctx)

	res, err := app.Run(ctx, cfg)
	if err != nil {
		return err
	}

	printSummary(res)

	// CI runs gate on the exit code.
	if countBySeverity(res.Artifact, findings.SeverityError) > 0 {
		return errFindingsGate
	}
	return nil
}

func printSummary(res *app.Result) {
	headStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00B7FF"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))

	fmt.Println(headStyle.Render("ANALYSIS " + res.RunKey))
	fmt.Printf("  %s\n\n", res.Artifact.Summary())

	for _, f := range res.Artifact.Findings {
		line := fmt.Sprintf("  [%s] %s: %s", f.Severity, f.RuleID, f.Message)
		switch f.Severity {
		case findings.SeverityError:
			fmt.Println(errStyle.Render(line))
		case findings.SeverityWarning:
			fmt.Println(warnStyle.Render(line))
		default:
			fmt.Println(line)
		}
	}
}

func countBySeverity(a *artifact.Artifact, sev findings.Severity) int {
	n := 0
	for _, f := range a.Findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

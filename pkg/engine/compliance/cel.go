package compliance

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
	"gopkg.in/yaml.v3"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/findings"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/graph"
)

// DynamicRule is an operator-defined compliance check loaded from YAML.
// The condition is a CEL expression evaluated once per graph node; a true
// result raises a finding against that node.
type DynamicRule struct {
	ID        string `yaml:"id" json:"id"`
	Severity  string `yaml:"severity" json:"severity"` // "info", "warning", "error"
	Condition string `yaml:"condition" json:"condition"`
	Message   string `yaml:"message" json:"message"`
}

// celRule wraps one compiled DynamicRule behind the Rule interface so the
// engine treats operator rules and built-in rules uniformly.
type celRule struct {
	rule DynamicRule
	prg  cel.Program
}

func (r *celRule) ID() string { return r.rule.ID }

func (r *celRule) Evaluate(g *graph.Graph) []findings.Finding {
	var out []findings.Finding
	for _, n := range g.Nodes() {
		match, err := r.eval(n)
		if err != nil {
			slog.Error("dynamic rule evaluation failed", "rule", r.rule.ID, "node", n.ID, "error", err)
			continue
		}
		if !match {
			continue
		}
		msg := r.rule.Message
		if msg == "" {
			msg = fmt.Sprintf("%s matched %s", r.rule.ID, n.ID)
		}
		out = append(out, findings.Finding{
			Severity: severityOf(r.rule.Severity),
			RuleID:   r.rule.ID,
			NodeIDs:  []string{n.ID},
			Message:  msg,
		})
	}
	return out
}

func (r *celRule) eval(n *graph.Node) (bool, error) {
	cidrs := make([]string, 0, len(n.Blocks))
	for _, b := range n.Blocks {
		cidrs = append(cidrs, b.Prefix.String())
	}
	attrs := n.Attrs
	if attrs == nil {
		attrs = map[string]string{}
	}
	out, _, err := r.prg.Eval(map[string]interface{}{
		"id":    n.ID,
		"name":  n.Name,
		"kind":  string(n.Kind),
		"role":  string(n.Role),
		"az":    n.AZ,
		"attrs": attrs,
		"cidrs": cidrs,
	})
	if err != nil {
		return false, err
	}
	match, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition returned %T, want bool", out.Value())
	}
	return match, nil
}

func severityOf(s string) findings.Severity {
	switch s {
	case "error":
		return findings.SeverityError
	case "info":
		return findings.SeverityInfo
	default:
		return findings.SeverityWarning
	}
}

func newCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Declarations(
			decls.NewVar("id", decls.String),
			decls.NewVar("name", decls.String),
			decls.NewVar("kind", decls.String),
			decls.NewVar("role", decls.String),
			decls.NewVar("az", decls.String),
			decls.NewVar("attrs", decls.NewMapType(decls.String, decls.String)),
			decls.NewVar("cidrs", decls.NewListType(decls.String)),
		),
	)
}

// CompileDynamicRules turns operator rule definitions into Rules ready for
// registration. A single broken condition fails the whole batch so the
// operator learns about it at load time, not mid-evaluation.
func CompileDynamicRules(rules []DynamicRule) ([]Rule, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	env, err := newCELEnv()
	if err != nil {
		return nil, fmt.Errorf("create rule environment: %w", err)
	}

	compiled := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("dynamic rule without id")
		}
		ast, issues := env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		compiled = append(compiled, &celRule{rule: r, prg: prg})
	}

	sort.Slice(compiled, func(i, j int) bool { return compiled[i].ID() < compiled[j].ID() })
	return compiled, nil
}

// LoadDynamicRules reads a YAML rule file and compiles its entries.
func LoadDynamicRules(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	var doc struct {
		Rules []DynamicRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}
	return CompileDynamicRules(doc.Rules)
}

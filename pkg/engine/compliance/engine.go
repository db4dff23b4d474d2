// Package compliance evaluates a fixed, ordered catalog of independent
// rules against the sealed graph. No rule assumes another has run, none may
// mutate the graph, and none may panic past the engine boundary: a broken
// rule degrades its own coverage, never the catalog.
package compliance

import (
	"log/slog"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/findings"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/graph"
)

// Rule is one independent compliance check. Evaluate only reads the graph
// and returns its findings.
type Rule interface {
	ID() string
	Evaluate(g *graph.Graph) []findings.Finding
}

type Engine struct {
	rules []Rule
}

// NewEngine returns an engine loaded with the built-in catalog in its fixed
// evaluation order.
func NewEngine() *Engine {
	e := &Engine{}
	e.Register(cidrOverlapRule{})
	e.Register(containmentRule{})
	e.Register(perimeterInspectionRule{})
	e.Register(routeLimitsRule{})
	e.Register(ambiguousRouteRule{})
	return e
}

func (e *Engine) Register(r Rule) {
	e.rules = append(e.rules, r)
}

// Evaluate runs the catalog in registration order.
func (e *Engine) Evaluate(g *graph.Graph) []findings.Finding {
	var out []findings.Finding
	for _, r := range e.rules {
		out = append(out, runRule(r, g)...)
	}
	slog.Debug("Compliance evaluated", "rules", len(e.rules), "findings", len(out))
	return out
}

func runRule(r Rule, g *graph.Graph) (out []findings.Finding) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Rule panicked", "id", r.ID(), "panic", rec)
			out = nil
		}
	}()
	return r.Evaluate(g)
}

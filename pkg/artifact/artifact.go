// Package artifact assembles the JSON analysis artifact: the full graph
// listing, every finding, and the resolved traffic flows, plus run metadata
// a downstream renderer needs to trust or distrust the data.
package artifact

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/engine/flows"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/findings"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/graph"
)

type Metadata struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Version     string    `json:"version"`

	// Partial marks an artifact built from degraded input. Consumers
	// must render it with a caveat, not as ground truth.
	Partial          bool     `json:"partial"`
	GenerationErrors []string `json:"generationErrors,omitempty"`
}

type NodeItem struct {
	ID        string            `json:"id"`
	Name      string            `json:"name,omitempty"`
	Kind      string            `json:"kind"`
	Role      string            `json:"role,omitempty"`
	AZ        string            `json:"az,omitempty"`
	CIDRs     []string          `json:"cidrs,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	Synthetic bool              `json:"synthetic,omitempty"`
}

type EdgeItem struct {
	SourceID    string `json:"sourceId"`
	TargetID    string `json:"targetId"`
	Type        string `json:"type"`
	Destination string `json:"destination,omitempty"`
}

type RouteItem struct {
	Destination string `json:"destination"`
	NextHop     string `json:"nextHop"`
	Origin      string `json:"origin"`
}

type RouteTableItem struct {
	ID     string      `json:"id"`
	Owner  string      `json:"owner"`
	Routes []RouteItem `json:"routes"`
}

type Artifact struct {
	Metadata    Metadata           `json:"metadata"`
	Nodes       []NodeItem         `json:"nodes"`
	Edges       []EdgeItem         `json:"edges"`
	RouteTables []RouteTableItem   `json:"routeTables"`
	Findings    []findings.Finding `json:"findings"`
	Flows       []flows.FlowPath   `json:"flows"`
}

// Build flattens a sealed graph and the analyzer outputs into an artifact.
// Every list is sorted so two runs over the same input produce the same
// bytes.
func Build(g *graph.Graph, fs []findings.Finding, fp []flows.FlowPath, version string, now time.Time) *Artifact {
	meta := g.Metadata()
	a := &Artifact{
		Metadata: Metadata{
			GeneratedAt:      now.UTC(),
			Version:          version,
			Partial:          meta.Partial,
			GenerationErrors: meta.GenerationErrors,
		},
		Findings: fs,
		Flows:    fp,
	}

	for _, n := range g.Nodes() {
		item := NodeItem{
			ID:        n.ID,
			Name:      n.Name,
			Kind:      string(n.Kind),
			Role:      string(n.Role),
			AZ:        n.AZ,
			Attrs:     n.Attrs,
			Synthetic: n.Placeholder,
		}
		for _, b := range n.Blocks {
			item.CIDRs = append(item.CIDRs, b.Prefix.String())
		}
		a.Nodes = append(a.Nodes, item)

		for _, e := range g.Edges(n.ID) {
			ei := EdgeItem{SourceID: n.ID, TargetID: e.TargetID, Type: string(e.Type)}
			if e.Type == graph.EdgeRoutesTo {
				ei.Destination = e.Destination.Prefix.String()
			}
			a.Edges = append(a.Edges, ei)
		}
	}

	for _, t := range g.RouteTables() {
		ti := RouteTableItem{ID: t.ID, Owner: t.Owner}
		for _, r := range t.Routes {
			ti.Routes = append(ti.Routes, RouteItem{
				Destination: r.Destination.Prefix.String(),
				NextHop:     r.NextHop,
				Origin:      string(r.Origin),
			})
		}
		a.RouteTables = append(a.RouteTables, ti)
	}

	sort.Slice(a.Nodes, func(i, j int) bool { return a.Nodes[i].ID < a.Nodes[j].ID })
	sort.Slice(a.Edges, func(i, j int) bool {
		x, y := a.Edges[i], a.Edges[j]
		if x.SourceID != y.SourceID {
			return x.SourceID < y.SourceID
		}
		if x.TargetID != y.TargetID {
			return x.TargetID < y.TargetID
		}
		if x.Type != y.Type {
			return x.Type < y.Type
		}
		return x.Destination < y.Destination
	})
	sort.Slice(a.RouteTables, func(i, j int) bool { return a.RouteTables[i].Owner < a.RouteTables[j].Owner })

	return a
}

// MarshalIndent renders the artifact as indented JSON.
func (a *Artifact) MarshalIndent() ([]byte, error) {
	raw, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal artifact: %w", err)
	}
	return append(raw, '\n'), nil
}

// Summary is the one-line operator view of a run.
func (a *Artifact) Summary() string {
	errs, warns := 0, 0
	for _, f := range a.Findings {
		switch f.Severity {
		case findings.SeverityError:
			errs++
		case findings.SeverityWarning:
			warns++
		}
	}
	return fmt.Sprintf("%d nodes, %d edges, %d flows, %d errors, %d warnings",
		len(a.Nodes), len(a.Edges), len(a.Flows), errs, warns)
}

// Package flows enumerates concrete packet-flow paths between canonical
// source/destination pairs and annotates every traversed hop with the
// control gating it.
package flows

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/findings"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/graph"
)

type Category string

const (
	CategoryNorthSouth Category = "north-south"
	CategoryEastWest   Category = "east-west"
	CategoryHybrid     Category = "hybrid"
)

// Hop is one traversed node plus the applied control, if any.
type Hop struct {
	NodeID    string `json:"nodeId"`
	ControlID string `json:"controlId,omitempty"`
}

// FlowPath reports one path (or the absence of any) for a requested pair.
// Every requested pair yields at least one entry: an unresolvable pair is
// an explicit blocked report, never an omission.
type FlowPath struct {
	Category      Category `json:"category"`
	SourceID      string   `json:"sourceId"`
	DestinationID string   `json:"destinationId"`
	Hops          []Hop    `json:"hops"`
	Blocked       bool     `json:"blocked"`
}

// Resolve walks every declared traffic category over the sealed graph.
// The result ordering is fully deterministic: category, then source id,
// then destination id, then hop count, then hop ids.
func Resolve(g *graph.Graph) ([]FlowPath, []findings.Finding) {
	var out []FlowPath
	var found []findings.Finding

	resolvePair := func(cat Category, srcID, dstID string) {
		res := g.Walk(srcID, dstID)

		if res.LoopSuspected {
			found = append(found, findings.Finding{
				Severity: findings.SeverityError,
				RuleID:   findings.RuleRouteLoop,
				NodeIDs:  []string{srcID, dstID},
				Message:  (&graph.RouteLoopError{SourceID: srcID, DestinationID: dstID}).Error(),
			})
		}

		if len(res.Paths) == 0 {
			out = append(out, FlowPath{Category: cat, SourceID: srcID, DestinationID: dstID, Blocked: true})
			return
		}
		for _, path := range res.Paths {
			out = append(out, FlowPath{
				Category:      cat,
				SourceID:      srcID,
				DestinationID: dstID,
				Hops:          annotate(g, path),
			})
		}
	}

	workloads := workloadSubnets(g)

	// North-south: external gateway into each workload subnet.
	for _, gw := range g.NodesOfKind(graph.KindExternalGateway) {
		for _, ws := range workloads {
			resolvePair(CategoryNorthSouth, gw.ID, ws.ID)
		}
	}

	// East-west: every ordered VPC pair connected through a TGW.
	for _, pair := range g.ConnectedVPCPairs() {
		resolvePair(CategoryEastWest, pair[0], pair[1])
	}

	// Hybrid: each on-prem link into each workload subnet.
	for _, link := range g.NodesOfKind(graph.KindOnPremLink) {
		for _, ws := range workloads {
			resolvePair(CategoryHybrid, link.ID, ws.ID)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Category != b.Category {
			return categoryRank(a.Category) < categoryRank(b.Category)
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.DestinationID != b.DestinationID {
			return a.DestinationID < b.DestinationID
		}
		return false // Walk already ordered the paths of one pair
	})

	slog.Debug("Flows resolved", "paths", len(out), "findings", len(found))
	return out, found
}

func categoryRank(c Category) int {
	switch c {
	case CategoryNorthSouth:
		return 0
	case CategoryEastWest:
		return 1
	default:
		return 2
	}
}

func workloadSubnets(g *graph.Graph) []*graph.Node {
	var out []*graph.Node
	for _, n := range g.NodesOfKind(graph.KindSubnet) {
		if n.Role == graph.RoleWorkload {
			out = append(out, n)
		}
	}
	return out
}

// annotate attaches the applied control to each hop. When several controls
// protect one node the most significant gate wins: firewall endpoint, then
// NACL, then security group; ties break on id.
func annotate(g *graph.Graph, path []string) []Hop {
	hops := make([]Hop, 0, len(path))
	for _, id := range path {
		hops = append(hops, Hop{NodeID: id, ControlID: controlFor(g, id)})
	}
	return hops
}

func controlFor(g *graph.Graph, nodeID string) string {
	n := g.Node(nodeID)
	if n == nil {
		return ""
	}
	// A traversed inspection endpoint is its own applied control.
	if n.Kind == graph.KindFirewallEndpoint {
		return n.ID
	}

	best := ""
	bestRank := -1
	for _, e := range g.Edges(nodeID, graph.EdgeProtectedBy) {
		ctrl := g.Node(e.TargetID)
		if ctrl == nil {
			continue
		}
		rank := controlRank(ctrl.Kind)
		if rank > bestRank || (rank == bestRank && ctrl.ID < best) {
			best, bestRank = ctrl.ID, rank
		}
	}
	return best
}

func controlRank(k graph.Kind) int {
	switch k {
	case graph.KindFirewallEndpoint:
		return 3
	case graph.KindNACL:
		return 2
	case graph.KindSecurityGroup:
		return 1
	default:
		return 0
	}
}

// HasControlOfKind reports whether any hop of the path is gated by (or is)
// a control node of the given kind.
func HasControlOfKind(g *graph.Graph, fp FlowPath, kind graph.Kind) bool {
	for _, h := range fp.Hops {
		if h.ControlID == "" {
			continue
		}
		if n := g.Node(h.ControlID); n != nil && n.Kind == kind {
			return true
		}
	}
	return false
}

// String renders a compact textual form for logs.
func (fp FlowPath) String() string {
	if fp.Blocked {
		return fmt.Sprintf("%s %s -> %s [blocked]", fp.Category, fp.SourceID, fp.DestinationID)
	}
	ids := make([]string, 0, len(fp.Hops))
	for _, h := range fp.Hops {
		ids = append(ids, h.NodeID)
	}
	return fmt.Sprintf("%s %s", fp.Category, joinArrow(ids))
}

func joinArrow(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += " -> "
		}
		out += id
	}
	return out
}

package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/netspace"
)

// MaxTraversalHops bounds every path search. Cyclic route configurations
// must surface as RouteLoopError, never as unbounded expansion.
const MaxTraversalHops = 16

// RouteLoopError reports a traversal that hit the hop cap, which on a
// finite topology means a suspected routing loop.
type RouteLoopError struct {
	SourceID      string
	DestinationID string
}

func (e *RouteLoopError) Error() string {
	return fmt.Sprintf("route loop suspected between %s and %s: traversal exceeded %d hops", e.SourceID, e.DestinationID, MaxTraversalHops)
}

// WalkResult is the outcome of a path enumeration between one node pair.
type WalkResult struct {
	Paths [][]string
	// LoopSuspected is set when at least one branch hit the hop cap.
	LoopSuspected bool
}

// Walk enumerates every distinct path from sourceID to destID over
// ROUTES_TO/ATTACHES_TO edges. At each Subnet or Attachment hop the owning
// route table is consulted with longest-prefix-match toward the
// destination's block; a miss kills that branch. Paths are returned ordered
// by hop count ascending, then lexicographically by node ids, so the result
// is deterministic.
func (g *Graph) Walk(sourceID, destID string) WalkResult {
	dest := g.Node(destID)
	if dest == nil || g.Node(sourceID) == nil {
		return WalkResult{}
	}

	var res WalkResult
	seen := map[string]bool{}

	var visit func(path []string)
	visit = func(path []string) {
		at := path[len(path)-1]
		if at == destID {
			key := strings.Join(path, "|")
			if !seen[key] {
				seen[key] = true
				res.Paths = append(res.Paths, append([]string(nil), path...))
			}
			return
		}
		if len(path) > MaxTraversalHops {
			res.LoopSuspected = true
			return
		}

		for _, e := range g.viableEdges(at, dest.PrimaryBlock()) {
			// A node may legitimately appear twice when tables hand
			// traffic back and forth; the hop cap handles that. A node
			// appearing three times is pure cycling.
			if countOf(path, e.TargetID) >= 2 {
				res.LoopSuspected = true
				continue
			}
			next := append(append([]string(nil), path...), e.TargetID)
			visit(next)
		}
	}
	visit([]string{sourceID})

	sort.Slice(res.Paths, func(i, j int) bool {
		if len(res.Paths[i]) != len(res.Paths[j]) {
			return len(res.Paths[i]) < len(res.Paths[j])
		}
		return strings.Join(res.Paths[i], "|") < strings.Join(res.Paths[j], "|")
	})
	return res
}

// viableEdges applies the routing gate. A node owning or inheriting a route
// table (VPC, Subnet, Attachment, Transit Gateway) may only follow its
// active route; every other kind forwards on all of its
// ROUTES_TO/ATTACHES_TO edges.
func (g *Graph) viableEdges(nodeID string, dest netspace.Block) []Edge {
	n := g.Node(nodeID)
	if n == nil {
		return nil
	}

	all := g.Edges(nodeID, EdgeRoutesTo, EdgeAttachesTo)

	if !isRoutingLocus(n.Kind) {
		return all
	}
	table := g.OwningRouteTable(nodeID)
	if table == nil {
		return all
	}

	route, state := table.Lookup(dest)
	if state == LookupMiss {
		return nil
	}

	// A route pointing at its own holder is local delivery: traffic leaves
	// the routing fabric downward, toward the contained subnet or the
	// attached VPC. Edges back into the fabric are not delivery.
	if route.NextHop == n.ID {
		var out []Edge
		for _, e := range all {
			switch e.Type {
			case EdgeRoutesTo:
				if e.Destination.IsValid() && netspace.Contains(e.Destination, dest) {
					out = append(out, e)
				}
			case EdgeAttachesTo:
				if t := g.Node(e.TargetID); t != nil && (t.Kind == KindVPC || t.Kind == KindSubnet) {
					out = append(out, e)
				}
			}
		}
		return out
	}

	var out []Edge
	for _, e := range all {
		switch {
		case e.Type == EdgeRoutesTo && e.Destination.IsValid() && e.Destination.Prefix == route.Destination.Prefix:
			out = append(out, e)
		case e.TargetID == route.NextHop:
			out = append(out, e)
		}
	}
	return out
}

func isRoutingLocus(k Kind) bool {
	switch k {
	case KindVPC, KindSubnet, KindAttachment, KindTransitGateway:
		return true
	}
	return false
}

func countOf(path []string, id string) int {
	n := 0
	for _, p := range path {
		if p == id {
			n++
		}
	}
	return n
}

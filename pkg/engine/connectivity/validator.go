// Package connectivity answers reachability questions over the sealed
// graph and validates the structural wiring of attachments, hybrid links,
// and availability zones.
package connectivity

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/findings"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/graph"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/netspace"
)

// ReachabilityResult reports one reachability query. Connected means a
// forward path exists AND every hop on it can route back toward the
// source's block; a forward-only path is asymmetric routing, not success.
type ReachabilityResult struct {
	SourceID      string
	DestinationID string
	Connected     bool
	ForwardPath   []string
	Asymmetric    bool
	LoopSuspected bool
}

// IsReachable runs the path search from source to destination and applies
// the return-path check to the shortest forward path found.
func IsReachable(g *graph.Graph, fromID, toID string) ReachabilityResult {
	res := ReachabilityResult{SourceID: fromID, DestinationID: toID}

	src := g.Node(fromID)
	if src == nil || g.Node(toID) == nil {
		return res
	}

	walk := g.Walk(fromID, toID)
	res.LoopSuspected = walk.LoopSuspected
	if len(walk.Paths) == 0 {
		return res
	}
	res.ForwardPath = walk.Paths[0]

	if returnPathHolds(g, res.ForwardPath, src.PrimaryBlock()) {
		res.Connected = true
	} else {
		res.Asymmetric = true
	}
	return res
}

// returnPathHolds verifies that every routing hop of the forward path holds
// an active route back toward the source block.
func returnPathHolds(g *graph.Graph, path []string, sourceBlock netspace.Block) bool {
	for _, id := range path[1:] {
		n := g.Node(id)
		if n == nil {
			return false
		}
		switch n.Kind {
		case graph.KindVPC, graph.KindSubnet, graph.KindAttachment, graph.KindTransitGateway:
		default:
			continue
		}
		if _, state := g.OwningRouteTable(id).Lookup(sourceBlock); state == graph.LookupMiss {
			return false
		}
	}
	return true
}

// Validate runs the structural connectivity checks and the symmetric
// reachability sweep over every TGW-connected VPC pair.
func Validate(g *graph.Graph) []findings.Finding {
	var out []findings.Finding
	out = append(out, orphanedAttachments(g)...)
	out = append(out, unreachableOnPrem(g)...)
	out = append(out, multiAZ(g)...)
	out = append(out, pairSweep(g)...)
	slog.Debug("Connectivity validated", "findings", len(out))
	return out
}

// orphanedAttachments flags TGW attachments that no TGW route table entry
// references: traffic can enter them but nothing is ever routed their way.
func orphanedAttachments(g *graph.Graph) []findings.Finding {
	var out []findings.Finding
	for _, tgw := range g.NodesOfKind(graph.KindTransitGateway) {
		table := g.RouteTable(tgw.ID)

		referenced := map[string]bool{}
		if table != nil {
			for _, r := range table.Routes {
				referenced[r.NextHop] = true
			}
		}

		for _, e := range g.Edges(tgw.ID, graph.EdgeAttachesTo) {
			att := g.Node(e.TargetID)
			if att == nil || att.Kind != graph.KindAttachment || referenced[att.ID] {
				continue
			}
			out = append(out, findings.Finding{
				Severity: findings.SeverityWarning,
				RuleID:   findings.RuleOrphanedAttachment,
				NodeIDs:  []string{tgw.ID, att.ID},
				Message:  fmt.Sprintf("attachment %s is not referenced by any route table entry of %s", att.ID, tgw.ID),
			})
		}
	}
	return out
}

// unreachableOnPrem verifies that each VPC declaring hybrid connectivity
// actually routes toward the prefixes of the declared OnPremLink.
func unreachableOnPrem(g *graph.Graph) []findings.Finding {
	var out []findings.Finding
	for _, vpc := range g.NodesOfKind(graph.KindVPC) {
		declared := vpc.Attrs["hybridLinks"]
		if declared == "" {
			continue
		}
		table := g.RouteTable(vpc.ID)

		for _, linkID := range strings.Split(declared, ",") {
			link := g.Node(linkID)
			if link == nil || link.Kind != graph.KindOnPremLink {
				out = append(out, findings.Finding{
					Severity: findings.SeverityError,
					RuleID:   findings.RuleUnreachableOnPrem,
					NodeIDs:  []string{vpc.ID, linkID},
					Message:  fmt.Sprintf("%s declares hybrid connectivity to unknown link %s", vpc.ID, linkID),
				})
				continue
			}

			if !routesTowardLink(table, link) {
				out = append(out, findings.Finding{
					Severity: findings.SeverityError,
					RuleID:   findings.RuleUnreachableOnPrem,
					NodeIDs:  []string{vpc.ID, link.ID},
					Message:  fmt.Sprintf("%s has no route toward on-prem link %s", vpc.ID, link.ID),
				})
			}
		}
	}
	return out
}

func routesTowardLink(table *graph.RouteTable, link *graph.Node) bool {
	if len(link.Blocks) == 0 {
		return false
	}
	for _, prefix := range link.Blocks {
		if _, state := table.Lookup(prefix); state == graph.LookupMiss {
			return false
		}
	}
	return true
}

// multiAZ checks the high availability posture: a VPC must spread at least
// one subnet role over two availability zones unless it opted out.
func multiAZ(g *graph.Graph) []findings.Finding {
	var out []findings.Finding
	for _, vpc := range g.NodesOfKind(graph.KindVPC) {
		if vpc.Attrs["singleAz"] == "true" {
			continue
		}

		subnets := subnetsOf(g, vpc.ID)
		if len(subnets) == 0 {
			continue
		}

		azsByRole := map[graph.Role]map[string]bool{}
		for _, s := range subnets {
			if s.AZ == "" {
				continue
			}
			if azsByRole[s.Role] == nil {
				azsByRole[s.Role] = map[string]bool{}
			}
			azsByRole[s.Role][s.AZ] = true
		}

		spread := false
		for _, azs := range azsByRole {
			if len(azs) >= 2 {
				spread = true
				break
			}
		}
		if !spread {
			out = append(out, findings.Finding{
				Severity: findings.SeverityWarning,
				RuleID:   findings.RuleMultiAZ,
				NodeIDs:  []string{vpc.ID},
				Message:  fmt.Sprintf("%s has no subnet role spanning two availability zones", vpc.ID),
			})
		}
	}
	return out
}

func subnetsOf(g *graph.Graph, vpcID string) []*graph.Node {
	var out []*graph.Node
	for _, e := range g.Edges(vpcID, graph.EdgeContains) {
		if n := g.Node(e.TargetID); n != nil && n.Kind == graph.KindSubnet {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// pairSweep runs IsReachable over every TGW-connected VPC pair and surfaces
// asymmetric routing and suspected loops.
func pairSweep(g *graph.Graph) []findings.Finding {
	var out []findings.Finding
	for _, pair := range g.ConnectedVPCPairs() {
		res := IsReachable(g, pair[0], pair[1])

		if res.LoopSuspected {
			out = append(out, findings.Finding{
				Severity: findings.SeverityError,
				RuleID:   findings.RuleRouteLoop,
				NodeIDs:  []string{pair[0], pair[1]},
				Message:  (&graph.RouteLoopError{SourceID: pair[0], DestinationID: pair[1]}).Error(),
			})
		}
		if res.Asymmetric {
			out = append(out, findings.Finding{
				Severity: findings.SeverityWarning,
				RuleID:   findings.RuleAsymmetricRouting,
				NodeIDs:  []string{pair[0], pair[1]},
				Message:  fmt.Sprintf("traffic from %s reaches %s but no return route toward %s exists", pair[0], pair[1], pair[0]),
			})
		}
	}
	return out
}

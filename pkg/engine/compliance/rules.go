package compliance

import (
	"fmt"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/engine/flows"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/findings"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/graph"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/netspace"
)

// Resource limit thresholds. AWS default quotas, kept as named constants so
// the warnings and their tests agree on one number.
const (
	MaxRoutesPerTable = 50
	MaxSubnetsPerVPC  = 200
	MaxBlocksPerVPC   = 5
)

// cidrOverlapRule: no two VPCs and no two Subnets may occupy intersecting
// address space, unless the pair are VPCs explicitly declared as peered.
type cidrOverlapRule struct{}

func (cidrOverlapRule) ID() string { return findings.RuleCIDROverlap }

func (r cidrOverlapRule) Evaluate(g *graph.Graph) []findings.Finding {
	var out []findings.Finding
	out = append(out, r.pairwise(g, graph.KindVPC, true)...)
	out = append(out, r.pairwise(g, graph.KindSubnet, false)...)
	return out
}

func (cidrOverlapRule) pairwise(g *graph.Graph, kind graph.Kind, peeringExempts bool) []findings.Finding {
	nodes := g.NodesOfKind(kind)

	var out []findings.Finding
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := nodes[i], nodes[j]
			if peeringExempts && arePeered(g, a.ID, b.ID) {
				continue
			}
			blkA, blkB, hit := blocksOverlap(a, b)
			if !hit {
				continue
			}
			out = append(out, findings.Finding{
				Severity: findings.SeverityError,
				RuleID:   findings.RuleCIDROverlap,
				NodeIDs:  []string{a.ID, b.ID},
				Message:  fmt.Sprintf("%s (%s) overlaps %s (%s)", a.ID, blkA, b.ID, blkB),
			})
		}
	}
	return out
}

func blocksOverlap(a, b *graph.Node) (netspace.Block, netspace.Block, bool) {
	for _, ba := range a.Blocks {
		for _, bb := range b.Blocks {
			if netspace.Overlaps(ba, bb) {
				return ba, bb, true
			}
		}
	}
	return netspace.Block{}, netspace.Block{}, false
}

func arePeered(g *graph.Graph, a, b string) bool {
	for _, e := range g.Edges(a, graph.EdgePeersWith) {
		if e.TargetID == b {
			return true
		}
	}
	return false
}

// containmentRule: every Subnet block must lie fully inside a block of its
// parent VPC. The rule stays silent when the parent is a placeholder or
// carries no parseable block: those conditions already have their own
// findings.
type containmentRule struct{}

func (containmentRule) ID() string { return findings.RuleSubnetContainment }

func (containmentRule) Evaluate(g *graph.Graph) []findings.Finding {
	var out []findings.Finding
	for _, sn := range g.NodesOfKind(graph.KindSubnet) {
		if len(sn.Blocks) == 0 {
			continue
		}
		vpc := g.Parent(sn.ID)
		if vpc == nil || vpc.Placeholder || len(vpc.Blocks) == 0 {
			continue
		}

		contained := false
		for _, vb := range vpc.Blocks {
			if netspace.Subtractable(sn.Blocks[0], vb) {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, findings.Finding{
				Severity: findings.SeverityError,
				RuleID:   findings.RuleSubnetContainment,
				NodeIDs:  []string{sn.ID},
				Message:  fmt.Sprintf("subnet %s block %s lies outside the address space of %s", sn.ID, sn.Blocks[0], vpc.ID),
			})
		}
	}
	return out
}

// perimeterInspectionRule: every resolvable internet-to-workload flow must
// pass the expected security inspection boundary (the Palo Alto CNFGW
// pattern). A pair is compliant when at least one of its paths carries a
// firewall endpoint control.
type perimeterInspectionRule struct{}

func (perimeterInspectionRule) ID() string { return findings.RulePerimeterInspection }

func (perimeterInspectionRule) Evaluate(g *graph.Graph) []findings.Finding {
	paths, _ := flows.Resolve(g)

	type pair struct{ src, dst string }
	inspected := map[pair]bool{}
	resolvable := map[pair]bool{}

	for _, fp := range paths {
		if fp.Category != flows.CategoryNorthSouth || fp.Blocked {
			continue
		}
		p := pair{fp.SourceID, fp.DestinationID}
		resolvable[p] = true
		if flows.HasControlOfKind(g, fp, graph.KindFirewallEndpoint) {
			inspected[p] = true
		}
	}

	var out []findings.Finding
	for _, fp := range paths {
		if fp.Category != flows.CategoryNorthSouth {
			continue
		}
		p := pair{fp.SourceID, fp.DestinationID}
		if !resolvable[p] || inspected[p] {
			continue
		}
		resolvable[p] = false // one finding per pair
		out = append(out, findings.Finding{
			Severity: findings.SeverityError,
			RuleID:   findings.RulePerimeterInspection,
			NodeIDs:  []string{fp.SourceID, fp.DestinationID},
			Message:  fmt.Sprintf("no security inspection boundary on any path from %s to %s", fp.SourceID, fp.DestinationID),
		})
	}
	return out
}

// routeLimitsRule warns when fixed resource thresholds are exceeded.
type routeLimitsRule struct{}

func (routeLimitsRule) ID() string { return findings.RuleRouteTableLimits }

func (routeLimitsRule) Evaluate(g *graph.Graph) []findings.Finding {
	var out []findings.Finding

	for _, t := range g.RouteTables() {
		if len(t.Routes) > MaxRoutesPerTable {
			out = append(out, findings.Finding{
				Severity: findings.SeverityWarning,
				RuleID:   findings.RuleRouteTableLimits,
				NodeIDs:  []string{t.Owner},
				Message:  fmt.Sprintf("route table of %s holds %d entries, limit is %d", t.Owner, len(t.Routes), MaxRoutesPerTable),
			})
		}
	}

	for _, vpc := range g.NodesOfKind(graph.KindVPC) {
		subnets := 0
		for _, e := range g.Edges(vpc.ID, graph.EdgeContains) {
			if n := g.Node(e.TargetID); n != nil && n.Kind == graph.KindSubnet {
				subnets++
			}
		}
		if subnets > MaxSubnetsPerVPC {
			out = append(out, findings.Finding{
				Severity: findings.SeverityWarning,
				RuleID:   findings.RuleRouteTableLimits,
				NodeIDs:  []string{vpc.ID},
				Message:  fmt.Sprintf("%s holds %d subnets, limit is %d", vpc.ID, subnets, MaxSubnetsPerVPC),
			})
		}
		if len(vpc.Blocks) > MaxBlocksPerVPC {
			out = append(out, findings.Finding{
				Severity: findings.SeverityWarning,
				RuleID:   findings.RuleRouteTableLimits,
				NodeIDs:  []string{vpc.ID},
				Message:  fmt.Sprintf("%s declares %d CIDR blocks, limit is %d", vpc.ID, len(vpc.Blocks), MaxBlocksPerVPC),
			})
		}
	}
	return out
}

// ambiguousRouteRule surfaces equal-prefix same-origin routes targeting
// different next hops. The lookup structure returns a deterministic winner,
// but the tie itself is a configuration smell the operator must resolve.
type ambiguousRouteRule struct{}

func (ambiguousRouteRule) ID() string { return findings.RuleAmbiguousRoute }

func (ambiguousRouteRule) Evaluate(g *graph.Graph) []findings.Finding {
	var out []findings.Finding
	for _, t := range g.RouteTables() {
		for _, pair := range t.AmbiguousDestinations() {
			out = append(out, findings.Finding{
				Severity: findings.SeverityWarning,
				RuleID:   findings.RuleAmbiguousRoute,
				NodeIDs:  []string{t.Owner, pair[0].NextHop, pair[1].NextHop},
				Message: fmt.Sprintf("route table of %s holds equal routes for %s via %s and %s",
					t.Owner, pair[0].Destination, pair[0].NextHop, pair[1].NextHop),
			})
		}
	}
	return out
}

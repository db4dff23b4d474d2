package flows

import (
	"testing"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/graph"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/netspace"
)

func blk(s string) netspace.Block { return netspace.MustParseBlock(s) }

// landingZone wires an internet gateway, a hybrid link, and two
// TGW-connected VPCs. sn-a is the only workload subnet and carries a
// firewall endpoint control; sn-x is a workload subnet nothing routes to.
func landingZone() *graph.Graph {
	g := graph.New()

	g.AddNode(&graph.Node{ID: "vpc-a", Kind: graph.KindVPC, Blocks: []netspace.Block{blk("10.1.0.0/16")}})
	g.AddNode(&graph.Node{ID: "sn-a", Kind: graph.KindSubnet, Role: graph.RoleWorkload, Blocks: []netspace.Block{blk("10.1.1.0/24")}})
	g.AddNode(&graph.Node{ID: "vpc-b", Kind: graph.KindVPC, Blocks: []netspace.Block{blk("10.2.0.0/16")}})
	g.AddNode(&graph.Node{ID: "sn-b", Kind: graph.KindSubnet, Blocks: []netspace.Block{blk("10.2.1.0/24")}})
	g.AddNode(&graph.Node{ID: "sn-x", Kind: graph.KindSubnet, Role: graph.RoleWorkload, Blocks: []netspace.Block{blk("172.16.0.0/24")}})
	g.AddNode(&graph.Node{ID: "tgw-1", Kind: graph.KindTransitGateway})
	g.AddNode(&graph.Node{ID: "att-a", Kind: graph.KindAttachment})
	g.AddNode(&graph.Node{ID: "att-b", Kind: graph.KindAttachment})
	g.AddNode(&graph.Node{ID: "igw-1", Kind: graph.KindExternalGateway})
	g.AddNode(&graph.Node{ID: "vpn-1", Kind: graph.KindOnPremLink, Blocks: []netspace.Block{blk("192.168.0.0/16")}})
	g.AddNode(&graph.Node{ID: "fw-1", Kind: graph.KindFirewallEndpoint})

	g.AddEdge("vpc-a", "sn-a", graph.EdgeContains)
	g.AddEdge("vpc-b", "sn-b", graph.EdgeContains)
	g.AddEdge("vpc-b", "sn-x", graph.EdgeContains)
	g.AddRouteEdge("vpc-a", "sn-a", blk("10.1.1.0/24"))
	g.AddRouteEdge("vpc-b", "sn-b", blk("10.2.1.0/24"))
	g.AddEdge("sn-a", "fw-1", graph.EdgeProtectedBy)

	for _, pair := range [][2]string{
		{"att-a", "vpc-a"}, {"att-a", "tgw-1"},
		{"att-b", "vpc-b"}, {"att-b", "tgw-1"},
		{"igw-1", "vpc-a"}, {"vpn-1", "vpc-a"},
	} {
		g.AddEdge(pair[0], pair[1], graph.EdgeAttachesTo)
		g.AddEdge(pair[1], pair[0], graph.EdgeAttachesTo)
	}

	g.SetRouteTable(&graph.RouteTable{ID: "vpc-a-rt", Owner: "vpc-a", Routes: []graph.Route{
		{Destination: blk("10.1.0.0/16"), NextHop: "vpc-a", Origin: graph.OriginStatic},
		{Destination: blk("10.2.0.0/16"), NextHop: "att-a", Origin: graph.OriginStatic},
	}})
	g.SetRouteTable(&graph.RouteTable{ID: "vpc-b-rt", Owner: "vpc-b", Routes: []graph.Route{
		{Destination: blk("10.2.0.0/16"), NextHop: "vpc-b", Origin: graph.OriginStatic},
		{Destination: blk("10.1.0.0/16"), NextHop: "att-b", Origin: graph.OriginStatic},
	}})
	g.SetRouteTable(&graph.RouteTable{ID: "tgw-rt", Owner: "tgw-1", Routes: []graph.Route{
		{Destination: blk("10.1.0.0/16"), NextHop: "att-a", Origin: graph.OriginPropagated},
		{Destination: blk("10.2.0.0/16"), NextHop: "att-b", Origin: graph.OriginPropagated},
	}})

	g.AddRouteEdge("sn-a", "att-a", blk("10.2.0.0/16"))
	g.AddRouteEdge("sn-b", "att-b", blk("10.1.0.0/16"))
	g.AddRouteEdge("att-a", "att-b", blk("10.2.0.0/16"))
	g.AddRouteEdge("att-b", "att-a", blk("10.1.0.0/16"))

	g.Seal()
	return g
}

func TestResolveCategoriesAndOrdering(t *testing.T) {
	g := landingZone()
	paths, found := Resolve(g)
	if len(found) != 0 {
		t.Fatalf("clean fabric must not raise loop findings: %+v", found)
	}
	if len(paths) == 0 {
		t.Fatal("no flow paths resolved")
	}

	lastRank := -1
	for _, fp := range paths {
		r := categoryRank(fp.Category)
		if r < lastRank {
			t.Fatalf("category ordering violated at %+v", fp)
		}
		lastRank = r
	}

	// Every requested pair must appear, resolvable or not.
	seen := map[[2]string]bool{}
	for _, fp := range paths {
		seen[[2]string{fp.SourceID, fp.DestinationID}] = true
	}
	for _, want := range [][2]string{
		{"igw-1", "sn-a"}, {"igw-1", "sn-x"},
		{"vpc-a", "vpc-b"}, {"vpc-b", "vpc-a"},
		{"vpn-1", "sn-a"}, {"vpn-1", "sn-x"},
	} {
		if !seen[want] {
			t.Errorf("missing flow entry for pair %v", want)
		}
	}
}

func TestResolveBlockedPair(t *testing.T) {
	g := landingZone()
	paths, _ := Resolve(g)

	for _, fp := range paths {
		switch fp.DestinationID {
		case "sn-x":
			if !fp.Blocked {
				t.Errorf("nothing routes to sn-x, entry must be blocked: %+v", fp)
			}
			if len(fp.Hops) != 0 {
				t.Errorf("blocked entries carry no hops: %+v", fp)
			}
		case "sn-a":
			if fp.Blocked {
				t.Errorf("sn-a is reachable, got blocked entry: %+v", fp)
			}
		}
	}
}

func TestResolveAnnotatesControls(t *testing.T) {
	g := landingZone()
	paths, _ := Resolve(g)

	var northSouth *FlowPath
	for i := range paths {
		if paths[i].Category == CategoryNorthSouth && paths[i].DestinationID == "sn-a" && !paths[i].Blocked {
			northSouth = &paths[i]
			break
		}
	}
	if northSouth == nil {
		t.Fatal("no resolvable north-south flow to sn-a")
	}

	last := northSouth.Hops[len(northSouth.Hops)-1]
	if last.NodeID != "sn-a" || last.ControlID != "fw-1" {
		t.Errorf("terminal hop must carry the firewall control: %+v", last)
	}

	if !HasControlOfKind(g, *northSouth, graph.KindFirewallEndpoint) {
		t.Error("HasControlOfKind must see the firewall endpoint")
	}
	if HasControlOfKind(g, *northSouth, graph.KindNACL) {
		t.Error("no NACL gates this path")
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	g := landingZone()
	first, _ := Resolve(g)
	second, _ := Resolve(g)

	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].String() != second[i].String() {
			t.Fatalf("entry %d differs: %s vs %s", i, first[i], second[i])
		}
		if len(first[i].Hops) != len(second[i].Hops) {
			t.Fatalf("hop counts differ at %d", i)
		}
		for j := range first[i].Hops {
			if first[i].Hops[j] != second[i].Hops[j] {
				t.Fatalf("hop %d of entry %d differs", j, i)
			}
		}
	}
}

func TestControlRanking(t *testing.T) {
	g := graph.New()
	g.AddNode(&graph.Node{ID: "sn-1", Kind: graph.KindSubnet})
	g.AddNode(&graph.Node{ID: "sg-1", Kind: graph.KindSecurityGroup})
	g.AddNode(&graph.Node{ID: "acl-1", Kind: graph.KindNACL})
	g.AddEdge("sn-1", "sg-1", graph.EdgeProtectedBy)
	g.AddEdge("sn-1", "acl-1", graph.EdgeProtectedBy)
	g.Seal()

	if got := controlFor(g, "sn-1"); got != "acl-1" {
		t.Errorf("NACL outranks security group, got %q", got)
	}
	if got := controlFor(g, "absent"); got != "" {
		t.Errorf("unknown node has no control, got %q", got)
	}
}

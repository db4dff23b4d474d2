package graph

import (
	"testing"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/netspace"
)

// twoVPCFabric builds the canonical east-west topology: two VPCs, one
// subnet each, attached to a shared Transit Gateway.
func twoVPCFabric() *Graph {
	g := New()

	g.AddNode(&Node{ID: "vpc-a", Kind: KindVPC, Blocks: []netspace.Block{blk("10.1.0.0/16")}})
	g.AddNode(&Node{ID: "sn-a", Kind: KindSubnet, Blocks: []netspace.Block{blk("10.1.1.0/24")}})
	g.AddNode(&Node{ID: "vpc-b", Kind: KindVPC, Blocks: []netspace.Block{blk("10.2.0.0/16")}})
	g.AddNode(&Node{ID: "sn-b", Kind: KindSubnet, Blocks: []netspace.Block{blk("10.2.1.0/24")}})
	g.AddNode(&Node{ID: "tgw-1", Kind: KindTransitGateway})
	g.AddNode(&Node{ID: "att-a", Kind: KindAttachment})
	g.AddNode(&Node{ID: "att-b", Kind: KindAttachment})

	g.AddEdge("vpc-a", "sn-a", EdgeContains)
	g.AddEdge("vpc-b", "sn-b", EdgeContains)
	g.AddRouteEdge("vpc-a", "sn-a", blk("10.1.1.0/24"))
	g.AddRouteEdge("vpc-b", "sn-b", blk("10.2.1.0/24"))

	for _, pair := range [][2]string{
		{"att-a", "vpc-a"}, {"att-a", "tgw-1"},
		{"att-b", "vpc-b"}, {"att-b", "tgw-1"},
	} {
		g.AddEdge(pair[0], pair[1], EdgeAttachesTo)
		g.AddEdge(pair[1], pair[0], EdgeAttachesTo)
	}

	g.SetRouteTable(&RouteTable{ID: "vpc-a-rt", Owner: "vpc-a", Routes: []Route{
		{Destination: blk("10.1.0.0/16"), NextHop: "vpc-a", Origin: OriginStatic},
		{Destination: blk("10.2.0.0/16"), NextHop: "att-a", Origin: OriginStatic},
	}})
	g.SetRouteTable(&RouteTable{ID: "vpc-b-rt", Owner: "vpc-b", Routes: []Route{
		{Destination: blk("10.2.0.0/16"), NextHop: "vpc-b", Origin: OriginStatic},
		{Destination: blk("10.1.0.0/16"), NextHop: "att-b", Origin: OriginStatic},
	}})
	g.SetRouteTable(&RouteTable{ID: "tgw-rt", Owner: "tgw-1", Routes: []Route{
		{Destination: blk("10.1.0.0/16"), NextHop: "att-a", Origin: OriginPropagated},
		{Destination: blk("10.2.0.0/16"), NextHop: "att-b", Origin: OriginPropagated},
	}})

	g.AddRouteEdge("sn-a", "att-a", blk("10.2.0.0/16"))
	g.AddRouteEdge("sn-b", "att-b", blk("10.1.0.0/16"))
	g.AddRouteEdge("att-a", "att-b", blk("10.2.0.0/16"))
	g.AddRouteEdge("att-b", "att-a", blk("10.1.0.0/16"))

	return g
}

func TestWalkEastWest(t *testing.T) {
	g := twoVPCFabric()
	g.Seal()

	res := g.Walk("sn-a", "sn-b")
	if res.LoopSuspected {
		t.Error("clean fabric must not suspect a loop")
	}
	if len(res.Paths) == 0 {
		t.Fatal("no path found across the fabric")
	}

	want := []string{"sn-a", "att-a", "att-b", "vpc-b", "sn-b"}
	got := res.Paths[0]
	if len(got) != len(want) {
		t.Fatalf("shortest path = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("shortest path = %v, want %v", got, want)
		}
	}
}

func TestWalkRouteMissBlocks(t *testing.T) {
	// Unroutable destination: nothing covers 172.16.0.0/24.
	g := twoVPCFabric()
	g.AddNode(&Node{ID: "sn-x", Kind: KindSubnet, Blocks: []netspace.Block{blk("172.16.0.0/24")}})
	g.AddEdge("vpc-b", "sn-x", EdgeContains)
	g.Seal()

	res := g.Walk("sn-a", "sn-x")
	if len(res.Paths) != 0 {
		t.Errorf("route miss must kill the branch, got paths %v", res.Paths)
	}
	if res.LoopSuspected {
		t.Error("a plain miss is not a loop")
	}
}

func TestWalkUnknownEndpoints(t *testing.T) {
	g := twoVPCFabric()
	g.Seal()

	if res := g.Walk("nope", "sn-b"); len(res.Paths) != 0 || res.LoopSuspected {
		t.Errorf("unknown source must return empty result: %+v", res)
	}
	if res := g.Walk("sn-a", "nope"); len(res.Paths) != 0 {
		t.Errorf("unknown destination must return empty result: %+v", res)
	}
}

func TestWalkDetectsRouteLoop(t *testing.T) {
	g := twoVPCFabric()
	// Misconfigure the TGW: traffic for vpc-b's space is handed back to
	// the attachment it came from.
	g.SetRouteTable(&RouteTable{ID: "tgw-rt", Owner: "tgw-1", Routes: []Route{
		{Destination: blk("10.1.0.0/16"), NextHop: "att-a", Origin: OriginStatic},
		{Destination: blk("10.2.0.0/16"), NextHop: "att-a", Origin: OriginStatic},
	}})
	g.Seal()

	res := g.Walk("sn-a", "sn-b")
	if len(res.Paths) != 0 {
		t.Errorf("misrouted fabric should find no path, got %v", res.Paths)
	}
	if !res.LoopSuspected {
		t.Error("cycling traversal must set LoopSuspected")
	}
}

func TestWalkVPCPair(t *testing.T) {
	g := twoVPCFabric()
	g.Seal()

	res := g.Walk("vpc-a", "vpc-b")
	if len(res.Paths) == 0 {
		t.Fatal("VPC pair should be connected through the fabric")
	}
	want := []string{"vpc-a", "att-a", "att-b", "vpc-b"}
	got := res.Paths[0]
	if len(got) != len(want) {
		t.Fatalf("shortest path = %v, want %v", got, want)
	}
}

package graph

import (
	"testing"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/netspace"
)

func TestAddNodeMergesPlaceholder(t *testing.T) {
	g := New()
	g.AddEdge("vpc-a", "sn-1", EdgeContains) // creates placeholders

	n := g.Node("vpc-a")
	if n == nil || !n.Placeholder || n.Kind != KindUnknown {
		t.Fatalf("edge endpoint should be an Unknown placeholder: %+v", n)
	}

	g.AddNode(&Node{
		ID:     "vpc-a",
		Name:   "network vpc",
		Kind:   KindVPC,
		Role:   RoleCentral,
		Blocks: []netspace.Block{blk("10.0.0.0/16")},
	})

	n = g.Node("vpc-a")
	if n.Kind != KindVPC || n.Placeholder {
		t.Errorf("real record must upgrade the placeholder: %+v", n)
	}
	if n.Name != "network vpc" || n.Role != RoleCentral || len(n.Blocks) != 1 {
		t.Errorf("merge lost fields: %+v", n)
	}
}

func TestAddEdgeDeduplicates(t *testing.T) {
	g := New()
	g.AddEdge("a", "b", EdgeAttachesTo)
	g.AddEdge("a", "b", EdgeAttachesTo)
	g.AddEdge("a", "b", EdgePeersWith)

	if got := len(g.Edges("a")); got != 2 {
		t.Errorf("duplicate edge of same type must be dropped, got %d edges", got)
	}
	if got := len(g.ReverseEdges("b")); got != 2 {
		t.Errorf("reverse index out of step, got %d edges", got)
	}
}

func TestSealFreezesGraph(t *testing.T) {
	g := New()
	g.AddNode(&Node{ID: "vpc-a", Kind: KindVPC})
	g.Seal()

	g.AddNode(&Node{ID: "vpc-b", Kind: KindVPC})
	g.AddEdge("vpc-a", "vpc-b", EdgePeersWith)
	g.SetRouteTable(&RouteTable{ID: "rt", Owner: "vpc-a"})

	if g.Node("vpc-b") != nil {
		t.Error("sealed graph accepted a node")
	}
	if len(g.Edges("vpc-a")) != 0 {
		t.Error("sealed graph accepted an edge")
	}
	if g.RouteTable("vpc-a") != nil {
		t.Error("sealed graph accepted a route table")
	}
}

func TestSetRouteTableMergesOnReRegister(t *testing.T) {
	g := New()
	g.SetRouteTable(&RouteTable{ID: "rt-1", Owner: "vpc-a", Routes: []Route{
		{Destination: blk("10.0.0.0/16"), NextHop: "vpc-a", Origin: OriginStatic},
	}})
	g.SetRouteTable(&RouteTable{ID: "rt-2", Owner: "vpc-a", Routes: []Route{
		{Destination: blk("0.0.0.0/0"), NextHop: "igw", Origin: OriginStatic},
	}})

	table := g.RouteTable("vpc-a")
	if table == nil || len(table.Routes) != 2 {
		t.Fatalf("second registration must merge routes: %+v", table)
	}
}

func TestOwningRouteTable(t *testing.T) {
	g := New()
	g.AddNode(&Node{ID: "vpc-a", Kind: KindVPC})
	g.AddNode(&Node{ID: "sn-1", Kind: KindSubnet})
	g.AddNode(&Node{ID: "tgw-1", Kind: KindTransitGateway})
	g.AddNode(&Node{ID: "att-1", Kind: KindAttachment})
	g.AddEdge("vpc-a", "sn-1", EdgeContains)
	g.AddEdge("att-1", "tgw-1", EdgeAttachesTo)
	g.SetRouteTable(&RouteTable{ID: "vpc-rt", Owner: "vpc-a"})
	g.SetRouteTable(&RouteTable{ID: "tgw-rt", Owner: "tgw-1"})
	g.Seal()

	if tb := g.OwningRouteTable("sn-1"); tb == nil || tb.ID != "vpc-rt" {
		t.Errorf("subnet must defer to its VPC table, got %+v", tb)
	}
	if tb := g.OwningRouteTable("att-1"); tb == nil || tb.ID != "tgw-rt" {
		t.Errorf("attachment must defer to its TGW table, got %+v", tb)
	}
	if tb := g.OwningRouteTable("vpc-a"); tb == nil || tb.ID != "vpc-rt" {
		t.Errorf("owner consults its own table, got %+v", tb)
	}
}

func TestConnectedVPCPairs(t *testing.T) {
	g := New()
	g.AddNode(&Node{ID: "tgw-1", Kind: KindTransitGateway})
	for _, vpc := range []string{"vpc-a", "vpc-b", "vpc-c"} {
		g.AddNode(&Node{ID: vpc, Kind: KindVPC})
		att := vpc + "-att"
		g.AddNode(&Node{ID: att, Kind: KindAttachment})
		g.AddEdge("tgw-1", att, EdgeAttachesTo)
		g.AddEdge(att, "tgw-1", EdgeAttachesTo)
		g.AddEdge(att, vpc, EdgeAttachesTo)
		g.AddEdge(vpc, att, EdgeAttachesTo)
	}
	g.Seal()

	pairs := g.ConnectedVPCPairs()
	if len(pairs) != 6 {
		t.Fatalf("three VPCs make six ordered pairs, got %d", len(pairs))
	}
	if pairs[0] != [2]string{"vpc-a", "vpc-b"} {
		t.Errorf("pairs must be sorted, first was %v", pairs[0])
	}
}

func TestAddErrorMarksPartial(t *testing.T) {
	g := New()
	g.AddError("snapshot:eu-west-1", errTest)
	g.Seal()

	meta := g.Metadata()
	if !meta.Partial || len(meta.GenerationErrors) != 1 {
		t.Errorf("error must mark the snapshot partial: %+v", meta)
	}
}

var errTest = &RouteLoopError{SourceID: "a", DestinationID: "b"}

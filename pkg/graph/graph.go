// Package graph holds the immutable topology snapshot every analyzer reads.
// The builder constructs it, Seal() freezes it, and from then on any number
// of readers may traverse it concurrently without locking.
package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/netspace"
)

type Kind string

const (
	KindVPC              Kind = "VPC"
	KindSubnet           Kind = "Subnet"
	KindTransitGateway   Kind = "TransitGateway"
	KindAttachment       Kind = "Attachment"
	KindOnPremLink       Kind = "OnPremLink"
	KindSecurityGroup    Kind = "SecurityGroup"
	KindNACL             Kind = "NACL"
	KindFirewallEndpoint Kind = "FirewallEndpoint"
	KindExternalGateway  Kind = "ExternalGateway"
	KindUnknown          Kind = "Unknown"
)

// Role is the inferred deployment role of a VPC or Subnet.
type Role string

const (
	RolePerimeter    Role = "Perimeter"
	RoleEndpoint     Role = "Endpoint"
	RoleCentral      Role = "Central"
	RoleWorkload     Role = "Workload"
	RoleUnclassified Role = "Unclassified"
)

type EdgeType string

const (
	EdgeContains    EdgeType = "CONTAINS"
	EdgeRoutesTo    EdgeType = "ROUTES_TO"
	EdgeAttachesTo  EdgeType = "ATTACHES_TO"
	EdgePeersWith   EdgeType = "PEERS_WITH"
	EdgeProtectedBy EdgeType = "PROTECTED_BY"
)

type Node struct {
	ID     string
	Name   string
	Kind   Kind
	Role   Role
	AZ     string
	Blocks []netspace.Block
	Attrs  map[string]string

	// Placeholder marks a node synthesized for a dangling reference so
	// traversal can continue past it.
	Placeholder bool
}

// PrimaryBlock returns the address block used when this node is the
// destination of a route lookup. Gateways and other blockless nodes match
// the default route.
func (n *Node) PrimaryBlock() netspace.Block {
	if len(n.Blocks) > 0 {
		return n.Blocks[0]
	}
	return defaultRoute
}

var defaultRoute = netspace.MustParseBlock("0.0.0.0/0")

type Edge struct {
	TargetID string
	Type     EdgeType

	// Destination carries the route destination block on ROUTES_TO edges.
	Destination netspace.Block
}

// Metadata records run-level diagnostics that are not graph content:
// problems that degraded generation without aborting it.
type Metadata struct {
	Partial          bool
	GenerationErrors []string
}

type Graph struct {
	mu           sync.RWMutex
	sealed       bool
	nodes        map[string]*Node
	edges        map[string][]Edge
	reverseEdges map[string][]Edge
	routeTables  map[string]*RouteTable // keyed by owner node id
	metadata     Metadata
}

func New() *Graph {
	return &Graph{
		nodes:        make(map[string]*Node),
		edges:        make(map[string][]Edge),
		reverseEdges: make(map[string][]Edge),
		routeTables:  make(map[string]*RouteTable),
	}
}

// AddNode inserts or merges a node. Merging keeps the first non-Unknown
// kind and fills empty fields, so record order does not matter.
func (g *Graph) AddNode(n *Node) {
	if n == nil || n.ID == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return
	}

	existing, ok := g.nodes[n.ID]
	if !ok {
		if n.Attrs == nil {
			n.Attrs = make(map[string]string)
		}
		g.nodes[n.ID] = n
		return
	}

	if existing.Kind == KindUnknown && n.Kind != KindUnknown {
		existing.Kind = n.Kind
		existing.Placeholder = n.Placeholder
	}
	if existing.Name == "" {
		existing.Name = n.Name
	}
	if existing.AZ == "" {
		existing.AZ = n.AZ
	}
	if existing.Role == "" || existing.Role == RoleUnclassified {
		if n.Role != "" {
			existing.Role = n.Role
		}
	}
	existing.Blocks = append(existing.Blocks, n.Blocks...)
	for k, v := range n.Attrs {
		existing.Attrs[k] = v
	}
}

// AddEdge inserts a directed typed edge, creating Unknown placeholder
// endpoints when necessary. Duplicate edges are dropped.
func (g *Graph) AddEdge(sourceID, targetID string, edgeType EdgeType) {
	g.addEdge(sourceID, targetID, Edge{TargetID: targetID, Type: edgeType})
}

// AddRouteEdge is AddEdge for ROUTES_TO relations carrying the destination
// block of the originating route entry.
func (g *Graph) AddRouteEdge(sourceID, targetID string, dest netspace.Block) {
	g.addEdge(sourceID, targetID, Edge{TargetID: targetID, Type: EdgeRoutesTo, Destination: dest})
}

func (g *Graph) addEdge(sourceID, targetID string, e Edge) {
	if sourceID == "" || targetID == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return
	}

	for _, id := range []string{sourceID, targetID} {
		if _, ok := g.nodes[id]; !ok {
			g.nodes[id] = &Node{ID: id, Kind: KindUnknown, Attrs: make(map[string]string), Placeholder: true}
		}
	}

	for _, existing := range g.edges[sourceID] {
		if existing.TargetID == targetID && existing.Type == e.Type {
			return
		}
	}
	g.edges[sourceID] = append(g.edges[sourceID], e)
	g.reverseEdges[targetID] = append(g.reverseEdges[targetID], Edge{TargetID: sourceID, Type: e.Type, Destination: e.Destination})
}

// SetRouteTable registers the route table owned by ownerID. Each owner holds
// at most one table; a second registration merges its entries.
func (g *Graph) SetRouteTable(t *RouteTable) {
	if t == nil || t.Owner == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return
	}

	if existing, ok := g.routeTables[t.Owner]; ok {
		existing.Routes = append(existing.Routes, t.Routes...)
		return
	}
	g.routeTables[t.Owner] = t
}

// AddError records a run-level generation problem and marks the snapshot
// partial.
func (g *Graph) AddError(scope string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return
	}
	g.metadata.Partial = true
	g.metadata.GenerationErrors = append(g.metadata.GenerationErrors, fmt.Sprintf("%s: %v", scope, err))
}

// Seal freezes the graph. Route tables are sorted for longest-prefix-match
// lookup here, once, instead of on every query.
func (g *Graph) Seal() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return
	}
	for _, t := range g.routeTables {
		t.seal()
	}
	for id := range g.edges {
		sortEdges(g.edges[id])
	}
	for id := range g.reverseEdges {
		sortEdges(g.reverseEdges[id])
	}
	sort.Strings(g.metadata.GenerationErrors)
	g.sealed = true
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].TargetID != edges[j].TargetID {
			return edges[i].TargetID < edges[j].TargetID
		}
		return edges[i].Type < edges[j].Type
	})
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// Nodes returns every node ordered by id.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodesOfKind returns all nodes of the given kind ordered by id.
func (g *Graph) NodesOfKind(k Kind) []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns the outgoing edges of a node, optionally filtered by type.
func (g *Graph) Edges(id string, types ...EdgeType) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterEdges(g.edges[id], types)
}

// ReverseEdges returns the incoming edges of a node, optionally filtered by
// type. The TargetID of a reverse edge is the original source.
func (g *Graph) ReverseEdges(id string, types ...EdgeType) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterEdges(g.reverseEdges[id], types)
}

func filterEdges(edges []Edge, types []EdgeType) []Edge {
	if len(types) == 0 {
		out := make([]Edge, len(edges))
		copy(out, edges)
		return out
	}
	var out []Edge
	for _, e := range edges {
		for _, t := range types {
			if e.Type == t {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// RouteTable returns the table owned by the given node id, or nil.
func (g *Graph) RouteTable(ownerID string) *RouteTable {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.routeTables[ownerID]
}

// RouteTables returns every table ordered by owner id.
func (g *Graph) RouteTables() []*RouteTable {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*RouteTable, 0, len(g.routeTables))
	for _, t := range g.routeTables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// Parent returns the node containing id via a CONTAINS edge, or nil.
func (g *Graph) Parent(id string) *Node {
	for _, e := range g.ReverseEdges(id, EdgeContains) {
		return g.Node(e.TargetID)
	}
	return nil
}

// OwningRouteTable resolves the table consulted when traffic leaves the
// given node: a Subnet defers to its VPC's table, an Attachment to its
// Transit Gateway's.
func (g *Graph) OwningRouteTable(id string) *RouteTable {
	n := g.Node(id)
	if n == nil {
		return nil
	}

	switch n.Kind {
	case KindSubnet:
		if t := g.RouteTable(n.ID); t != nil {
			return t
		}
		if parent := g.Parent(n.ID); parent != nil {
			return g.RouteTable(parent.ID)
		}
	case KindAttachment:
		for _, e := range g.Edges(n.ID, EdgeAttachesTo) {
			if target := g.Node(e.TargetID); target != nil && target.Kind == KindTransitGateway {
				return g.RouteTable(target.ID)
			}
		}
	}
	return g.RouteTable(n.ID)
}

// ConnectedVPCPairs returns every ordered pair of distinct VPCs attached to
// the same Transit Gateway, sorted for deterministic iteration.
func (g *Graph) ConnectedVPCPairs() [][2]string {
	var pairs [][2]string
	seen := map[[2]string]bool{}

	for _, tgw := range g.NodesOfKind(KindTransitGateway) {
		var vpcs []string
		for _, e := range g.Edges(tgw.ID, EdgeAttachesTo) {
			att := g.Node(e.TargetID)
			if att == nil || att.Kind != KindAttachment {
				continue
			}
			for _, ae := range g.Edges(att.ID, EdgeAttachesTo) {
				if v := g.Node(ae.TargetID); v != nil && v.Kind == KindVPC {
					vpcs = append(vpcs, v.ID)
				}
			}
		}
		sort.Strings(vpcs)

		for _, a := range vpcs {
			for _, b := range vpcs {
				if a == b || seen[[2]string{a, b}] {
					continue
				}
				seen[[2]string{a, b}] = true
				pairs = append(pairs, [2]string{a, b})
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}

// Metadata returns a copy of the run-level diagnostics.
func (g *Graph) Metadata() Metadata {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := Metadata{Partial: g.metadata.Partial}
	out.GenerationErrors = append(out.GenerationErrors, g.metadata.GenerationErrors...)
	return out
}

// Stats summarizes the snapshot for log output.
func (g *Graph) Stats() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edgeCount := 0
	for _, es := range g.edges {
		edgeCount += len(es)
	}
	return fmt.Sprintf("Nodes: %d | Edges: %d | RouteTables: %d", len(g.nodes), edgeCount, len(g.routeTables))
}

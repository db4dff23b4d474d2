package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/findings"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/graph"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/netspace"
)

// ErrEmptyRecordSet is the one fatal input condition: nothing to analyze.
var ErrEmptyRecordSet = errors.New("record set contains no analyzable records")

// UnresolvedReferenceError describes a cross-reference whose target record
// does not exist. These are collected, never thrown per-reference; the
// builder leaves a placeholder node so downstream analysis still runs.
type UnresolvedReferenceError struct {
	From  string
	Field string
	Ref   string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("record %s references unknown %s %q", e.From, e.Field, e.Ref)
}

type builder struct {
	rs    *RecordSet
	g     *graph.Graph
	known map[string]graph.Kind
	found []findings.Finding
	refs  []*UnresolvedReferenceError
}

// Build constructs the sealed topology snapshot from the record set.
// Per-record problems (malformed addresses, dangling references) surface in
// the returned Findings; the only error conditions are template residue and
// a completely empty input.
func Build(rs *RecordSet) (*graph.Graph, []findings.Finding, error) {
	if rs.Empty() {
		return nil, nil, ErrEmptyRecordSet
	}
	if err := checkTemplateResidue(rs); err != nil {
		return nil, nil, err
	}

	b := &builder{
		rs:    rs,
		g:     graph.New(),
		known: make(map[string]graph.Kind),
	}

	b.index()
	b.addNodes()
	b.addAttachments()
	b.addOnPremLinks()
	b.addPeerings()
	b.addRouteTables()
	b.reportDanglingRefs()

	b.g.Seal()
	slog.Debug("Graph built", "stats", b.g.Stats(), "findings", len(b.found))
	return b.g, b.found, nil
}

// checkTemplateResidue guards the programmatic entry point the same way
// DecodeRecords guards file input: any surviving placeholder fails the run.
func checkTemplateResidue(rs *RecordSet) error {
	raw, err := yaml.Marshal(rs)
	if err != nil {
		return fmt.Errorf("failed to serialize records for validation: %w", err)
	}
	if snippet, found := templateResidue(string(raw)); found {
		return &UnresolvedTemplateError{Where: "record set", Snippet: snippet}
	}
	return nil
}

func (b *builder) index() {
	for _, r := range b.rs.VPCs {
		b.known[r.ID] = graph.KindVPC
		if r.InternetGateway {
			b.known[igwID(r.ID)] = graph.KindExternalGateway
		}
	}
	for _, r := range b.rs.Subnets {
		b.known[r.ID] = graph.KindSubnet
	}
	for _, r := range b.rs.TransitGateways {
		b.known[r.ID] = graph.KindTransitGateway
	}
	for _, r := range b.rs.Attachments {
		b.known[r.ID] = graph.KindAttachment
	}
	for _, r := range b.rs.SecurityGroups {
		b.known[r.ID] = graph.KindSecurityGroup
	}
	for _, r := range b.rs.NACLs {
		b.known[r.ID] = graph.KindNACL
	}
	for _, r := range b.rs.OnPremLinks {
		b.known[r.ID] = graph.KindOnPremLink
	}
}

func igwID(vpcID string) string { return vpcID + "-igw" }

// isFirewallEndpoint matches the Palo Alto CNFGW endpoint naming
// convention. Such targets become control nodes even without a record of
// their own, mirroring how the resolver discovers them in route tables.
func isFirewallEndpoint(id string) bool {
	return strings.Contains(strings.ToLower(id), "cnfgw")
}

func (b *builder) addNodes() {
	for _, r := range b.rs.VPCs {
		n := &graph.Node{
			ID:   r.ID,
			Name: r.Name,
			Kind: graph.KindVPC,
			Role: ClassifyRole(r.Name, r.Role).Role,
			Attrs: map[string]string{
				"account": r.Account,
				"region":  r.Region,
			},
		}
		if r.SingleAZ {
			n.Attrs["singleAz"] = "true"
		}
		if len(r.HybridLinks) > 0 {
			n.Attrs["hybridLinks"] = strings.Join(r.HybridLinks, ",")
		}
		n.Blocks = b.parseBlocks(r.ID, r.CIDRs)
		b.g.AddNode(n)

		if r.InternetGateway {
			b.g.AddNode(&graph.Node{
				ID:   igwID(r.ID),
				Name: r.Name + " internet gateway",
				Kind: graph.KindExternalGateway,
			})
			b.g.AddEdge(igwID(r.ID), r.ID, graph.EdgeAttachesTo)
			b.g.AddEdge(r.ID, igwID(r.ID), graph.EdgeAttachesTo)
		}
	}

	for _, r := range b.rs.Subnets {
		n := &graph.Node{
			ID:   r.ID,
			Name: r.Name,
			Kind: graph.KindSubnet,
			Role: ClassifyRole(r.Name, r.Role).Role,
			AZ:   r.AZ,
		}
		n.Blocks = b.parseBlocks(r.ID, []string{r.CIDR})
		b.g.AddNode(n)

		vpcID := b.resolve(r.ID, "vpc", r.VPC)
		b.g.AddEdge(vpcID, r.ID, graph.EdgeContains)
		// Local delivery: the VPC router hands traffic destined for the
		// subnet's block straight to it.
		if len(n.Blocks) > 0 {
			b.g.AddRouteEdge(vpcID, r.ID, n.Blocks[0])
		}

		for _, ctrl := range r.Controls {
			b.addControl(r.ID, ctrl)
		}
	}

	for _, r := range b.rs.TransitGateways {
		b.g.AddNode(&graph.Node{
			ID:   r.ID,
			Name: r.Name,
			Kind: graph.KindTransitGateway,
			Attrs: map[string]string{
				"account": r.Account,
				"region":  r.Region,
				"asn":     fmt.Sprintf("%d", r.ASN),
			},
		})
	}

	for _, r := range b.rs.SecurityGroups {
		b.g.AddNode(&graph.Node{
			ID:    r.ID,
			Name:  r.Name,
			Kind:  graph.KindSecurityGroup,
			Attrs: map[string]string{"description": r.Description},
		})
	}
	for _, r := range b.rs.NACLs {
		b.g.AddNode(&graph.Node{ID: r.ID, Name: r.Name, Kind: graph.KindNACL})
	}
}

// addControl wires a PROTECTED_BY edge, synthesizing a firewall endpoint
// node when the referenced control follows the CNFGW convention but has no
// record of its own.
func (b *builder) addControl(subnetID, ctrlID string) {
	if _, ok := b.known[ctrlID]; !ok {
		if isFirewallEndpoint(ctrlID) {
			b.g.AddNode(&graph.Node{ID: ctrlID, Name: ctrlID, Kind: graph.KindFirewallEndpoint})
			b.known[ctrlID] = graph.KindFirewallEndpoint
		} else {
			b.danglingRef(subnetID, "control", ctrlID)
		}
	}
	b.g.AddEdge(subnetID, ctrlID, graph.EdgeProtectedBy)
}

func (b *builder) addAttachments() {
	for _, r := range b.rs.Attachments {
		b.g.AddNode(&graph.Node{ID: r.ID, Name: r.Name, Kind: graph.KindAttachment, Attrs: map[string]string{
			"associations": strings.Join(r.Associations, ","),
			"propagations": strings.Join(r.Propagations, ","),
		}})

		vpcID := b.resolve(r.ID, "vpc", r.VPC)
		tgwID := b.resolve(r.ID, "transitGateway", r.TransitGateway)

		b.g.AddEdge(r.ID, vpcID, graph.EdgeAttachesTo)
		b.g.AddEdge(vpcID, r.ID, graph.EdgeAttachesTo)
		b.g.AddEdge(r.ID, tgwID, graph.EdgeAttachesTo)
		b.g.AddEdge(tgwID, r.ID, graph.EdgeAttachesTo)

		for _, sn := range r.Subnets {
			snID := b.resolve(r.ID, "subnet", sn)
			b.g.AddEdge(r.ID, snID, graph.EdgeAttachesTo)
			b.g.AddEdge(snID, r.ID, graph.EdgeAttachesTo)
		}
	}
}

func (b *builder) addOnPremLinks() {
	for _, r := range b.rs.OnPremLinks {
		n := &graph.Node{
			ID:    r.ID,
			Name:  r.Name,
			Kind:  graph.KindOnPremLink,
			Attrs: map[string]string{"kind": r.Kind},
		}
		n.Blocks = b.parseBlocks(r.ID, r.Prefixes)
		b.g.AddNode(n)

		if r.TransitGateway != "" {
			tgwID := b.resolve(r.ID, "transitGateway", r.TransitGateway)
			b.g.AddEdge(r.ID, tgwID, graph.EdgeAttachesTo)
			b.g.AddEdge(tgwID, r.ID, graph.EdgeAttachesTo)
		}
	}
}

func (b *builder) addPeerings() {
	for _, r := range b.rs.VPCs {
		for _, peer := range r.PeeredWith {
			peerID := b.resolve(r.ID, "peer", peer)
			b.g.AddEdge(r.ID, peerID, graph.EdgePeersWith)
			b.g.AddEdge(peerID, r.ID, graph.EdgePeersWith)
		}
	}
}

func (b *builder) addRouteTables() {
	for _, r := range b.rs.RouteTables {
		ownerKind, ok := b.known[r.Owner]
		if !ok {
			b.danglingRef(r.ID, "owner", r.Owner)
			continue
		}

		table := &graph.RouteTable{ID: r.ID, Owner: r.Owner}
		for _, rr := range r.Routes {
			dest, err := netspace.ParseBlock(rr.Destination)
			if err != nil {
				b.malformed(r.ID, err)
				continue
			}

			origin := graph.RouteOrigin(rr.Origin)
			if origin == "" {
				origin = graph.OriginStatic
			}

			nextHop := rr.NextHop
			if nextHop == "local" || nextHop == "" {
				nextHop = r.Owner
			}
			table.Routes = append(table.Routes, graph.Route{Destination: dest, NextHop: nextHop, Origin: origin})

			if nextHop == r.Owner {
				continue
			}
			switch ownerKind {
			case graph.KindVPC:
				b.addVPCRouteEdges(r.Owner, dest, nextHop)
			case graph.KindTransitGateway:
				b.addTGWRouteEdges(r.Owner, dest, nextHop)
			default:
				b.addSubnetRouteEdge(r.Owner, dest, nextHop)
			}
		}
		b.g.SetRouteTable(table)
	}
}

// addVPCRouteEdges fans a VPC route out to each subnet of the VPC, since
// subnets are the traversal locus that consults the VPC's table. A next hop
// naming a Transit Gateway is rewritten to the VPC's attachment: that is
// the node traffic physically enters.
func (b *builder) addVPCRouteEdges(vpcID string, dest netspace.Block, nextHop string) {
	target := nextHop
	if b.known[nextHop] == graph.KindTransitGateway {
		if att := b.attachmentFor(vpcID, nextHop); att != "" {
			target = att
		}
	}
	if _, ok := b.known[target]; !ok {
		b.danglingRef(vpcID, "nextHop", target)
	}

	for _, sn := range b.subnetsOf(vpcID) {
		b.g.AddRouteEdge(sn, target, dest)
		// Gateways deliver ingress traffic back through the same subnets
		// that route to them.
		if b.known[target] == graph.KindExternalGateway {
			if sub := b.g.Node(sn); sub != nil && len(sub.Blocks) > 0 {
				b.g.AddRouteEdge(target, sn, sub.Blocks[0])
			}
		}
	}
}

// addTGWRouteEdges gives every attachment of the TGW an edge toward the
// route target, because attachments consult the TGW table mid-path.
func (b *builder) addTGWRouteEdges(tgwID string, dest netspace.Block, nextHop string) {
	if _, ok := b.known[nextHop]; !ok {
		if isFirewallEndpoint(nextHop) {
			b.g.AddNode(&graph.Node{ID: nextHop, Name: nextHop, Kind: graph.KindFirewallEndpoint})
			b.known[nextHop] = graph.KindFirewallEndpoint
			// Inspection endpoints hand traffic back to the TGW fabric.
			b.g.AddEdge(nextHop, tgwID, graph.EdgeAttachesTo)
			b.g.AddEdge(tgwID, nextHop, graph.EdgeAttachesTo)
		} else {
			b.danglingRef(tgwID, "nextHop", nextHop)
		}
	}

	for _, att := range b.attachmentsOf(tgwID) {
		if att == nextHop {
			continue
		}
		b.g.AddRouteEdge(att, nextHop, dest)
	}
}

func (b *builder) addSubnetRouteEdge(ownerID string, dest netspace.Block, nextHop string) {
	if _, ok := b.known[nextHop]; !ok {
		b.danglingRef(ownerID, "nextHop", nextHop)
	}
	b.g.AddRouteEdge(ownerID, nextHop, dest)
}

func (b *builder) subnetsOf(vpcID string) []string {
	var out []string
	for _, r := range b.rs.Subnets {
		if r.VPC == vpcID {
			out = append(out, r.ID)
		}
	}
	return out
}

func (b *builder) attachmentsOf(tgwID string) []string {
	var out []string
	for _, r := range b.rs.Attachments {
		if r.TransitGateway == tgwID {
			out = append(out, r.ID)
		}
	}
	return out
}

func (b *builder) attachmentFor(vpcID, tgwID string) string {
	for _, r := range b.rs.Attachments {
		if r.VPC == vpcID && r.TransitGateway == tgwID {
			return r.ID
		}
	}
	return ""
}

// resolve checks a cross-reference and records a dangling one. The id is
// returned either way: edge creation leaves a placeholder node behind so
// traversal and reporting still see the reference.
func (b *builder) resolve(from, field, ref string) string {
	if _, ok := b.known[ref]; !ok {
		b.danglingRef(from, field, ref)
	}
	return ref
}

func (b *builder) danglingRef(from, field, ref string) {
	b.refs = append(b.refs, &UnresolvedReferenceError{From: from, Field: field, Ref: ref})
}

func (b *builder) malformed(nodeID string, err error) {
	b.found = append(b.found, findings.Finding{
		Severity: findings.SeverityError,
		RuleID:   findings.RuleMalformedAddress,
		NodeIDs:  []string{nodeID},
		Message:  err.Error(),
	})
}

func (b *builder) parseBlocks(nodeID string, cidrs []string) []netspace.Block {
	var out []netspace.Block
	for _, c := range cidrs {
		if strings.TrimSpace(c) == "" {
			continue
		}
		blk, err := netspace.ParseBlock(c)
		if err != nil {
			b.malformed(nodeID, err)
			continue
		}
		out = append(out, blk)
	}
	return out
}

func (b *builder) reportDanglingRefs() {
	seen := map[string]bool{}
	for _, ref := range b.refs {
		key := ref.From + "|" + ref.Ref
		if seen[key] {
			continue
		}
		seen[key] = true
		b.found = append(b.found, findings.Finding{
			Severity: findings.SeverityError,
			RuleID:   findings.RuleUnresolvedReference,
			NodeIDs:  []string{ref.From, ref.Ref},
			Message:  ref.Error(),
		})
	}
}

// Package awslive snapshots a running AWS network into the record set the
// analyzer consumes, as an alternative to parsing landing zone
// configuration files. One snapshot covers a single account and region.
package awslive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/ingest"
)

type EC2Client interface {
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
	DescribeInternetGateways(ctx context.Context, params *ec2.DescribeInternetGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInternetGatewaysOutput, error)
	DescribeTransitGateways(ctx context.Context, params *ec2.DescribeTransitGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeTransitGatewaysOutput, error)
	DescribeTransitGatewayVpcAttachments(ctx context.Context, params *ec2.DescribeTransitGatewayVpcAttachmentsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeTransitGatewayVpcAttachmentsOutput, error)
	DescribeRouteTables(ctx context.Context, params *ec2.DescribeRouteTablesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
	DescribeNetworkAcls(ctx context.Context, params *ec2.DescribeNetworkAclsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNetworkAclsOutput, error)
	DescribeVpnConnections(ctx context.Context, params *ec2.DescribeVpnConnectionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpnConnectionsOutput, error)
}

type Provider struct {
	client  EC2Client
	account string
	region  string
}

// New loads default AWS credentials and returns a provider for the region.
func New(ctx context.Context, region, profile, account string) (*Provider, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Provider{client: ec2.NewFromConfig(cfg), account: account, region: region}, nil
}

func NewWithClient(client EC2Client, account, region string) *Provider {
	return &Provider{client: client, account: account, region: region}
}

// Snapshot walks the EC2 network APIs and normalizes the result. The
// record set leaves here fully resolved, so the builder treats a live
// snapshot and a parsed config file identically.
func (p *Provider) Snapshot(ctx context.Context) (*ingest.RecordSet, error) {
	rs := &ingest.RecordSet{}

	igws, err := p.internetGateways(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.vpcs(ctx, rs, igws); err != nil {
		return nil, err
	}
	if err := p.subnets(ctx, rs); err != nil {
		return nil, err
	}
	if err := p.transitGateways(ctx, rs); err != nil {
		return nil, err
	}
	if err := p.attachments(ctx, rs); err != nil {
		return nil, err
	}
	if err := p.routeTables(ctx, rs); err != nil {
		return nil, err
	}
	if err := p.securityGroups(ctx, rs); err != nil {
		return nil, err
	}
	if err := p.networkACLs(ctx, rs); err != nil {
		return nil, err
	}
	if err := p.vpnConnections(ctx, rs); err != nil {
		return nil, err
	}

	slog.Info("Live snapshot complete",
		"region", p.region,
		"vpcs", len(rs.VPCs),
		"subnets", len(rs.Subnets),
		"transitGateways", len(rs.TransitGateways),
		"attachments", len(rs.Attachments))
	return rs, nil
}

func (p *Provider) internetGateways(ctx context.Context) (map[string]bool, error) {
	attached := make(map[string]bool)
	paginator := ec2.NewDescribeInternetGatewaysPaginator(p.client, &ec2.DescribeInternetGatewaysInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe internet gateways: %w", err)
		}
		for _, igw := range page.InternetGateways {
			for _, att := range igw.Attachments {
				if att.VpcId != nil {
					attached[*att.VpcId] = true
				}
			}
		}
	}
	return attached, nil
}

func (p *Provider) vpcs(ctx context.Context, rs *ingest.RecordSet, igws map[string]bool) error {
	paginator := ec2.NewDescribeVpcsPaginator(p.client, &ec2.DescribeVpcsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("describe vpcs: %w", err)
		}
		for _, vpc := range page.Vpcs {
			rec := ingest.VPCRecord{
				ID:              aws.ToString(vpc.VpcId),
				Name:            nameTag(vpc.Tags),
				Account:         p.account,
				Region:          p.region,
				InternetGateway: igws[aws.ToString(vpc.VpcId)],
			}
			for _, assoc := range vpc.CidrBlockAssociationSet {
				if assoc.CidrBlock != nil {
					rec.CIDRs = append(rec.CIDRs, *assoc.CidrBlock)
				}
			}
			if len(rec.CIDRs) == 0 && vpc.CidrBlock != nil {
				rec.CIDRs = append(rec.CIDRs, *vpc.CidrBlock)
			}
			rs.VPCs = append(rs.VPCs, rec)
		}
	}
	return nil
}

func (p *Provider) subnets(ctx context.Context, rs *ingest.RecordSet) error {
	paginator := ec2.NewDescribeSubnetsPaginator(p.client, &ec2.DescribeSubnetsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("describe subnets: %w", err)
		}
		for _, sn := range page.Subnets {
			rs.Subnets = append(rs.Subnets, ingest.SubnetRecord{
				ID:   aws.ToString(sn.SubnetId),
				Name: nameTag(sn.Tags),
				VPC:  aws.ToString(sn.VpcId),
				CIDR: aws.ToString(sn.CidrBlock),
				AZ:   aws.ToString(sn.AvailabilityZone),
			})
		}
	}
	return nil
}

func (p *Provider) transitGateways(ctx context.Context, rs *ingest.RecordSet) error {
	paginator := ec2.NewDescribeTransitGatewaysPaginator(p.client, &ec2.DescribeTransitGatewaysInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("describe transit gateways: %w", err)
		}
		for _, tgw := range page.TransitGateways {
			rec := ingest.TransitGatewayRecord{
				ID:      aws.ToString(tgw.TransitGatewayId),
				Name:    nameTag(tgw.Tags),
				Account: p.account,
				Region:  p.region,
			}
			if tgw.Options != nil && tgw.Options.AmazonSideAsn != nil {
				rec.ASN = int(*tgw.Options.AmazonSideAsn)
			}
			rs.TransitGateways = append(rs.TransitGateways, rec)
		}
	}
	return nil
}

func (p *Provider) attachments(ctx context.Context, rs *ingest.RecordSet) error {
	paginator := ec2.NewDescribeTransitGatewayVpcAttachmentsPaginator(p.client, &ec2.DescribeTransitGatewayVpcAttachmentsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("describe transit gateway attachments: %w", err)
		}
		for _, att := range page.TransitGatewayVpcAttachments {
			rs.Attachments = append(rs.Attachments, ingest.AttachmentRecord{
				ID:             aws.ToString(att.TransitGatewayAttachmentId),
				Name:           nameTag(att.Tags),
				VPC:            aws.ToString(att.VpcId),
				TransitGateway: aws.ToString(att.TransitGatewayId),
				Subnets:        att.SubnetIds,
			})
		}
	}
	return nil
}

func (p *Provider) routeTables(ctx context.Context, rs *ingest.RecordSet) error {
	paginator := ec2.NewDescribeRouteTablesPaginator(p.client, &ec2.DescribeRouteTablesInput{})
	merged := make(map[string]*ingest.RouteTableRecord)
	var order []string

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("describe route tables: %w", err)
		}
		for _, rt := range page.RouteTables {
			owner := aws.ToString(rt.VpcId)
			if owner == "" {
				continue
			}
			// A VPC can spread its routes over several AWS route tables;
			// the analyzer models one table per owner, so merge them.
			rec, ok := merged[owner]
			if !ok {
				rec = &ingest.RouteTableRecord{ID: aws.ToString(rt.RouteTableId), Owner: owner}
				merged[owner] = rec
				order = append(order, owner)
			}
			for _, r := range rt.Routes {
				dest := aws.ToString(r.DestinationCidrBlock)
				hop := nextHopOf(r)
				if dest == "" || hop == "" {
					continue
				}
				origin := "static"
				if r.Origin == types.RouteOriginEnableVgwRoutePropagation {
					origin = "propagated"
				}
				rec.Routes = append(rec.Routes, ingest.RouteRecord{
					Destination: dest,
					NextHop:     hop,
					Origin:      origin,
				})
			}
		}
	}

	for _, owner := range order {
		rs.RouteTables = append(rs.RouteTables, *merged[owner])
	}
	return nil
}

func nextHopOf(r types.Route) string {
	switch {
	case r.TransitGatewayId != nil:
		return *r.TransitGatewayId
	case r.VpcPeeringConnectionId != nil:
		return *r.VpcPeeringConnectionId
	case r.NatGatewayId != nil:
		return *r.NatGatewayId
	case r.GatewayId != nil:
		return *r.GatewayId
	case r.NetworkInterfaceId != nil:
		return *r.NetworkInterfaceId
	}
	return ""
}

func (p *Provider) securityGroups(ctx context.Context, rs *ingest.RecordSet) error {
	paginator := ec2.NewDescribeSecurityGroupsPaginator(p.client, &ec2.DescribeSecurityGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("describe security groups: %w", err)
		}
		for _, sg := range page.SecurityGroups {
			rs.SecurityGroups = append(rs.SecurityGroups, ingest.SecurityGroupRecord{
				ID:          aws.ToString(sg.GroupId),
				Name:        aws.ToString(sg.GroupName),
				VPC:         aws.ToString(sg.VpcId),
				Description: aws.ToString(sg.Description),
			})
		}
	}
	return nil
}

func (p *Provider) networkACLs(ctx context.Context, rs *ingest.RecordSet) error {
	paginator := ec2.NewDescribeNetworkAclsPaginator(p.client, &ec2.DescribeNetworkAclsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("describe network acls: %w", err)
		}
		for _, acl := range page.NetworkAcls {
			rs.NACLs = append(rs.NACLs, ingest.NACLRecord{
				ID:   aws.ToString(acl.NetworkAclId),
				Name: nameTag(acl.Tags),
				VPC:  aws.ToString(acl.VpcId),
			})
		}
	}
	return nil
}

// vpnConnections is not paginated by the EC2 API.
func (p *Provider) vpnConnections(ctx context.Context, rs *ingest.RecordSet) error {
	out, err := p.client.DescribeVpnConnections(ctx, &ec2.DescribeVpnConnectionsInput{})
	if err != nil {
		return fmt.Errorf("describe vpn connections: %w", err)
	}
	for _, vpn := range out.VpnConnections {
		rec := ingest.OnPremLinkRecord{
			ID:             aws.ToString(vpn.VpnConnectionId),
			Name:           nameTag(vpn.Tags),
			Kind:           "vpn",
			TransitGateway: aws.ToString(vpn.TransitGatewayId),
		}
		for _, route := range vpn.Routes {
			if route.DestinationCidrBlock != nil {
				rec.Prefixes = append(rec.Prefixes, *route.DestinationCidrBlock)
			}
		}
		rs.OnPremLinks = append(rs.OnPremLinks, rec)
	}
	return nil
}

func nameTag(tags []types.Tag) string {
	for _, t := range tags {
		if aws.ToString(t.Key) == "Name" {
			return aws.ToString(t.Value)
		}
	}
	return ""
}

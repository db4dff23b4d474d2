// Package ingest turns the normalized record set produced by the parsing
// collaborator into the typed topology graph.
package ingest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RecordSet is the input contract: flat lists of fully-resolved records,
// cross-referencing each other by stable id. No template placeholder may
// remain in any field.
type RecordSet struct {
	VPCs            []VPCRecord            `yaml:"vpcs" json:"vpcs"`
	Subnets         []SubnetRecord         `yaml:"subnets" json:"subnets"`
	TransitGateways []TransitGatewayRecord `yaml:"transitGateways" json:"transitGateways"`
	Attachments     []AttachmentRecord     `yaml:"attachments" json:"attachments"`
	RouteTables     []RouteTableRecord     `yaml:"routeTables" json:"routeTables"`
	SecurityGroups  []SecurityGroupRecord  `yaml:"securityGroups" json:"securityGroups"`
	NACLs           []NACLRecord           `yaml:"nacls" json:"nacls"`
	OnPremLinks     []OnPremLinkRecord     `yaml:"onPremLinks" json:"onPremLinks"`
}

type VPCRecord struct {
	ID              string   `yaml:"id" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	Account         string   `yaml:"account" json:"account"`
	Region          string   `yaml:"region" json:"region"`
	CIDRs           []string `yaml:"cidrs" json:"cidrs"`
	Role            string   `yaml:"role" json:"role"`
	InternetGateway bool     `yaml:"internetGateway" json:"internetGateway"`
	// SingleAZ opts the VPC out of the multi-AZ high availability check.
	SingleAZ   bool     `yaml:"singleAz" json:"singleAz"`
	PeeredWith []string `yaml:"peeredWith" json:"peeredWith"`
	// HybridLinks names the OnPremLink ids this VPC declares connectivity to.
	HybridLinks []string `yaml:"hybridLinks" json:"hybridLinks"`
}

type SubnetRecord struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	VPC  string `yaml:"vpc" json:"vpc"`
	CIDR string `yaml:"cidr" json:"cidr"`
	AZ   string `yaml:"az" json:"az"`
	Role string `yaml:"role" json:"role"`
	// Controls references SecurityGroup/NACL/firewall-endpoint ids gating
	// this subnet.
	Controls []string `yaml:"controls" json:"controls"`
}

type TransitGatewayRecord struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Account string `yaml:"account" json:"account"`
	Region  string `yaml:"region" json:"region"`
	ASN     int    `yaml:"asn" json:"asn"`
}

type AttachmentRecord struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	VPC            string   `yaml:"vpc" json:"vpc"`
	TransitGateway string   `yaml:"transitGateway" json:"transitGateway"`
	Subnets        []string `yaml:"subnets" json:"subnets"`
	Associations   []string `yaml:"associations" json:"associations"`
	Propagations   []string `yaml:"propagations" json:"propagations"`
}

type RouteTableRecord struct {
	ID     string        `yaml:"id" json:"id"`
	Owner  string        `yaml:"owner" json:"owner"`
	Routes []RouteRecord `yaml:"routes" json:"routes"`
}

type RouteRecord struct {
	Destination string `yaml:"destination" json:"destination"`
	NextHop     string `yaml:"nextHop" json:"nextHop"`
	// Origin is "static" or "propagated"; empty defaults to static.
	Origin string `yaml:"origin" json:"origin"`
}

type SecurityGroupRecord struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	VPC         string `yaml:"vpc" json:"vpc"`
	Description string `yaml:"description" json:"description"`
}

type NACLRecord struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	VPC  string `yaml:"vpc" json:"vpc"`
}

type OnPremLinkRecord struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// Kind is "vpn" (customer gateway tunnel) or "directconnect".
	Kind           string   `yaml:"kind" json:"kind"`
	TransitGateway string   `yaml:"transitGateway" json:"transitGateway"`
	Prefixes       []string `yaml:"prefixes" json:"prefixes"`
	Associations   []string `yaml:"associations" json:"associations"`
	Propagations   []string `yaml:"propagations" json:"propagations"`
}

// UnresolvedTemplateError means the upstream template substitution left a
// `{{ ... }}` or `${ ... }` placeholder behind. The record set is not
// analyzable until the producer resolves it.
type UnresolvedTemplateError struct {
	Where   string
	Snippet string
}

func (e *UnresolvedTemplateError) Error() string {
	return fmt.Sprintf("unresolved template placeholder in %s: %q", e.Where, e.Snippet)
}

// LoadRecords reads a YAML or JSON record file. YAML is a superset of JSON,
// so one decoder covers both.
func LoadRecords(path string) (*RecordSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return DecodeRecords(raw, path)
}

// DecodeRecords parses a raw record document, rejecting template residue
// before the decoder ever sees it.
func DecodeRecords(raw []byte, where string) (*RecordSet, error) {
	if snippet, found := templateResidue(string(raw)); found {
		return nil, &UnresolvedTemplateError{Where: where, Snippet: snippet}
	}

	var rs RecordSet
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("failed to decode records %s: %w", where, err)
	}
	return &rs, nil
}

func templateResidue(s string) (string, bool) {
	for _, marker := range []string{"{{", "${"} {
		if i := strings.Index(s, marker); i >= 0 {
			end := i + 24
			if end > len(s) {
				end = len(s)
			}
			return s[i:end], true
		}
	}
	return "", false
}

// Empty reports whether the set carries no analyzable records at all, the
// single fatal condition for a run. Subnets do not count: without a VPC,
// gateway, or hybrid link to anchor them there is no topology to analyze.
func (rs *RecordSet) Empty() bool {
	return rs == nil || (len(rs.VPCs) == 0 &&
		len(rs.TransitGateways) == 0 && len(rs.OnPremLinks) == 0)
}

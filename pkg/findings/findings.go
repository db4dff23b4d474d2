// Package findings defines the result type shared by every analyzer.
package findings

import (
	"sort"
	"sync"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is a single compliance or connectivity result. It is consumed by
// the external reporting layer, so every field is JSON-visible.
type Finding struct {
	Severity Severity `json:"severity"`
	RuleID   string   `json:"ruleId"`
	NodeIDs  []string `json:"nodeIds,omitempty"`
	Message  string   `json:"message"`
}

// Rule ids used across the analyzers. Builder-level problems surface here
// too: a dangling reference degrades to a Finding, not a failed run.
const (
	RuleCIDROverlap         = "cidr-overlap"
	RuleSubnetContainment   = "subnet-containment"
	RulePerimeterInspection = "perimeter-inspection"
	RuleRouteTableLimits    = "route-table-limits"
	RuleAmbiguousRoute      = "ambiguous-route"
	RuleAsymmetricRouting   = "asymmetric-routing"
	RuleOrphanedAttachment  = "orphaned-attachment"
	RuleUnreachableOnPrem   = "unreachable-onprem"
	RuleMultiAZ             = "multi-az"
	RuleRouteLoop           = "route-loop"
	RuleUnresolvedReference = "unresolved-reference"
	RuleMalformedAddress    = "malformed-address"
)

// Collector is an append-only, concurrency-safe Finding sink. The three
// analyzers run in parallel against the sealed graph and share one Collector.
type Collector struct {
	mu   sync.Mutex
	list []Finding
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Add(f ...Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = append(c.list, f...)
}

// All returns the collected findings ordered by rule id, then severity, then
// message, so repeated runs over the same graph emit identical reports.
func (c *Collector) All() []Finding {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Finding, len(c.list))
	copy(out, c.list)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RuleID != out[j].RuleID {
			return out[i].RuleID < out[j].RuleID
		}
		if out[i].Severity != out[j].Severity {
			return out[i].Severity < out[j].Severity
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// Len reports the current number of findings.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.list)
}

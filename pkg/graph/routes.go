package graph

import (
	"sort"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/netspace"
)

type RouteOrigin string

const (
	OriginStatic     RouteOrigin = "static"
	OriginPropagated RouteOrigin = "propagated"
)

type Route struct {
	Destination netspace.Block
	NextHop     string
	Origin      RouteOrigin
}

// RouteTable is the ordered route set owned by exactly one VPC or Transit
// Gateway. Lookup runs over a pre-sorted route list (longest prefix first,
// static before propagated) so that longest-prefix-match is a linear scan
// with an early exit, not a nest of conditionals.
type RouteTable struct {
	ID     string
	Owner  string
	Routes []Route
}

// LookupState distinguishes a clean match from a miss and from a tie the
// table cannot resolve on its own.
type LookupState int

const (
	LookupMiss LookupState = iota
	LookupHit
	LookupAmbiguous
)

func (t *RouteTable) seal() {
	sort.SliceStable(t.Routes, func(i, j int) bool {
		a, b := t.Routes[i], t.Routes[j]
		if a.Destination.Bits() != b.Destination.Bits() {
			return a.Destination.Bits() > b.Destination.Bits()
		}
		if a.Origin != b.Origin {
			return a.Origin == OriginStatic
		}
		return a.NextHop < b.NextHop
	})
}

// Lookup finds the active route toward the destination block.
// Longest-prefix-match wins; on equal prefix length a static route beats a
// propagated one. Two surviving routes of the same origin pointing at
// different next hops are an ambiguity: the first (deterministic) candidate
// is returned together with LookupAmbiguous so callers can surface a
// Finding instead of silently picking one.
func (t *RouteTable) Lookup(dest netspace.Block) (Route, LookupState) {
	if t == nil {
		return Route{}, LookupMiss
	}

	var candidates []Route
	bestBits := -1
	for _, r := range t.Routes {
		if !r.Destination.IsValid() || !netspace.Contains(r.Destination, dest) {
			continue
		}
		if r.Destination.Bits() < bestBits {
			break // sorted by prefix length, nothing longer follows
		}
		if r.Destination.Bits() > bestBits {
			bestBits = r.Destination.Bits()
			candidates = candidates[:0]
		}
		candidates = append(candidates, r)
	}

	if len(candidates) == 0 {
		return Route{}, LookupMiss
	}

	// Static routes sort ahead of propagated ones, so candidates[0] is the
	// strongest claim. It is only ambiguous if another candidate of the
	// same origin targets a different next hop.
	best := candidates[0]
	for _, r := range candidates[1:] {
		if r.Origin == best.Origin && r.NextHop != best.NextHop {
			return best, LookupAmbiguous
		}
	}
	return best, LookupHit
}

// AmbiguousDestinations returns one representative route pair per
// unresolvable tie in the table, for the compliance catalog. Routes are
// grouped by destination and origin; the sealed sort order does not keep
// equal destinations adjacent, so neighbor comparison is not enough.
func (t *RouteTable) AmbiguousDestinations() [][2]Route {
	type key struct {
		dest   string
		origin RouteOrigin
	}
	first := make(map[key]Route)
	reported := make(map[key]bool)

	var out [][2]Route
	for _, r := range t.Routes {
		if !r.Destination.IsValid() {
			continue
		}
		k := key{r.Destination.Prefix.String(), r.Origin}
		prev, seen := first[k]
		if !seen {
			first[k] = r
			continue
		}
		if prev.NextHop != r.NextHop && !reported[k] {
			reported[k] = true
			out = append(out, [2]Route{prev, r})
		}
	}
	return out
}

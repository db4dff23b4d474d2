// Package netspace implements interval algebra over CIDR address blocks.
// All comparisons operate on the normalized numeric interval, never on the
// textual prefix, so "10.0.0.0/24" and "10.0.0.0/24 " can never diverge.
package netspace

import (
	"fmt"
	"net/netip"
	"strings"
)

// MalformedAddressError reports a CIDR that cannot participate in interval
// algebra: unparsable text, an out-of-range prefix length, or non-zero host
// bits (the address does not sit on the network boundary its prefix implies).
type MalformedAddressError struct {
	Input  string
	Reason string
}

func (e *MalformedAddressError) Error() string {
	return fmt.Sprintf("malformed address %q: %s", e.Input, e.Reason)
}

// Block is a CIDR value plus its derived numeric interval [First, Last].
type Block struct {
	Prefix netip.Prefix
	First  netip.Addr
	Last   netip.Addr
}

// ParseBlock normalizes a CIDR string into a Block.
// Surrounding whitespace is tolerated; host bits are not.
func ParseBlock(s string) (Block, error) {
	trimmed := strings.TrimSpace(s)

	p, err := netip.ParsePrefix(trimmed)
	if err != nil {
		return Block{}, &MalformedAddressError{Input: s, Reason: err.Error()}
	}

	// netip accepts prefixes with host bits set (e.g. 10.0.0.1/24). For
	// routing and containment math those are ambiguous, so reject them.
	if p.Addr() != p.Masked().Addr() {
		return Block{}, &MalformedAddressError{Input: s, Reason: "non-zero host bits"}
	}

	return Block{
		Prefix: p,
		First:  p.Masked().Addr(),
		Last:   lastAddr(p),
	}, nil
}

// MustParseBlock is ParseBlock for statically known inputs (tests, constants).
func MustParseBlock(s string) Block {
	b, err := ParseBlock(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Bits returns the prefix length.
func (b Block) Bits() int { return b.Prefix.Bits() }

// String returns the canonical CIDR text.
func (b Block) String() string { return b.Prefix.String() }

// IsValid reports whether the block was produced by a successful parse.
func (b Block) IsValid() bool { return b.Prefix.IsValid() }

// Overlaps reports whether the two blocks' intervals intersect, including
// containment and exact equality. Blocks of different IP families never
// overlap.
func Overlaps(a, b Block) bool {
	if a.First.Is4() != b.First.Is4() {
		return false
	}
	return a.First.Compare(b.Last) <= 0 && b.First.Compare(a.Last) <= 0
}

// Contains reports whether b's interval is a subset of a's.
func Contains(a, b Block) bool {
	if a.First.Is4() != b.First.Is4() {
		return false
	}
	return a.First.Compare(b.First) <= 0 && a.Last.Compare(b.Last) >= 0
}

// Subtractable reports whether a proposed subnet block lies fully inside its
// parent block. Identical blocks are considered subtractable: carving the
// whole parent is unusual but not a representation error.
func Subtractable(a, within Block) bool {
	return Contains(within, a)
}

// ContainsAddr reports whether the single address falls inside the block.
func (b Block) ContainsAddr(addr netip.Addr) bool {
	if b.First.Is4() != addr.Is4() {
		return false
	}
	return b.First.Compare(addr) <= 0 && b.Last.Compare(addr) >= 0
}

// lastAddr computes the highest address of the prefix by setting every host
// bit of the masked base address.
func lastAddr(p netip.Prefix) netip.Addr {
	raw := p.Masked().Addr().AsSlice()
	bits := p.Bits()

	for i := bits / 8; i < len(raw); i++ {
		hostBits := 8
		if i == bits/8 {
			hostBits = 8 - bits%8
		}
		raw[i] |= byte(0xFF >> (8 - hostBits))
	}

	out, _ := netip.AddrFromSlice(raw)
	return out
}

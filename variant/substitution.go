// Package variant handles single-residue missense substitutions: the compact
// text form used by stability estimators (e.g. "WA70Y"), amino-acid code
// tables, and application of a substitution to a wild-type sequence.
package variant

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSubstitution is returned for substitution strings or fields that
// do not describe a valid single-residue missense substitution.
var ErrInvalidSubstitution = errors.New("variant: invalid substitution")

// Substitution is one missense substitution: wild-type residue, chain,
// 1-based sequence position, and variant residue, all in one-letter codes.
type Substitution struct {
	WildType byte   `json:"wild_type"`
	Chain    string `json:"chain"`
	Position int    `json:"position"`
	Variant  byte   `json:"variant"`
}

// Parse reads the compact form <wt><chain><position><variant>, e.g. "WA70Y":
// tryptophan at position 70 of chain A substituted by tyrosine.
func Parse(s string) (Substitution, error) {
	if len(s) < 4 {
		return Substitution{}, fmt.Errorf("%w: %q too short", ErrInvalidSubstitution, s)
	}

	wt := s[0]
	chain := string(s[1])
	variant := s[len(s)-1]
	pos, err := strconv.Atoi(s[2 : len(s)-1])
	if err != nil {
		return Substitution{}, fmt.Errorf("%w: bad position in %q", ErrInvalidSubstitution, s)
	}

	sub := Substitution{WildType: wt, Chain: chain, Position: pos, Variant: variant}
	if err := sub.Validate(); err != nil {
		return Substitution{}, err
	}
	return sub, nil
}

// Validate checks residue codes, chain, and position.
func (s Substitution) Validate() error {
	if !ValidResidue(s.WildType) {
		return fmt.Errorf("%w: unknown wild-type residue %q", ErrInvalidSubstitution, string(s.WildType))
	}
	if !ValidResidue(s.Variant) {
		return fmt.Errorf("%w: unknown variant residue %q", ErrInvalidSubstitution, string(s.Variant))
	}
	if len(s.Chain) != 1 || s.Chain[0] < 'A' || s.Chain[0] > 'Z' {
		return fmt.Errorf("%w: bad chain %q", ErrInvalidSubstitution, s.Chain)
	}
	if s.Position < 1 {
		return fmt.Errorf("%w: position %d", ErrInvalidSubstitution, s.Position)
	}
	if s.WildType == s.Variant {
		return fmt.Errorf("%w: %s is synonymous", ErrInvalidSubstitution, s.String())
	}
	return nil
}

// String renders the compact form, e.g. "WA70Y".
func (s Substitution) String() string {
	return string(s.WildType) + s.Chain + strconv.Itoa(s.Position) + string(s.Variant)
}

// Apply rewrites a wild-type sequence with the substitution in place. It
// fails when the position lies outside the sequence or the sequence does not
// carry the expected wild-type residue there.
func (s Substitution) Apply(sequence string) (string, error) {
	if s.Position < 1 || s.Position > len(sequence) {
		return "", fmt.Errorf("%w: position %d outside sequence of length %d",
			ErrInvalidSubstitution, s.Position, len(sequence))
	}
	if got := sequence[s.Position-1]; got != s.WildType {
		return "", fmt.Errorf("%w: sequence has %q at position %d, expected %q",
			ErrInvalidSubstitution, string(got), s.Position, string(s.WildType))
	}
	return sequence[:s.Position-1] + string(s.Variant) + sequence[s.Position:], nil
}

// ParseList reads a comma-separated list of compact substitution forms.
func ParseList(s string) ([]Substitution, error) {
	var subs []Substitution
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sub, err := Parse(part)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("%w: empty substitution list", ErrInvalidSubstitution)
	}
	return subs, nil
}

// Package poseidon implements the Poseidon permutation and the sponge hash
// built on it, generic over any prime field whose elements implement
// field.Element (every gnark-crypto fr/fp element does).
//
// Padding is length driven: the input is completed with zero elements up to a
// multiple of the rate, and nothing is appended when it already is one. Inputs
// that only differ by trailing zeros inside the last block therefore hash to
// the same value.
package poseidon

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/poseidon/field"
	"github.com/vocdoni/poseidon/params"
)

var (
	// ErrInvalidRate is returned when the rate is outside [1, state size].
	ErrInvalidRate = errors.New("invalid sponge rate")
	// ErrInvalidOutputLength is returned when fewer than one output element is
	// requested.
	ErrInvalidOutputLength = errors.New("invalid output length")
	// ErrStateSize is returned when a state does not have the permutation width.
	ErrStateSize = errors.New("state size mismatch")
)

// Permutation is a validated, read-only Poseidon permutation. It is safe for
// concurrent use; every caller owns the state it permutes.
type Permutation[E any, PE field.Element[E]] struct {
	params *params.Parameters[E]
	alpha  *big.Int
}

// NewPermutation validates p and returns a permutation over a private copy of
// it.
func NewPermutation[E any, PE field.Element[E]](p *params.Parameters[E]) (*Permutation[E, PE], error) {
	if err := params.Validate(p); err != nil {
		return nil, err
	}
	return &Permutation[E, PE]{
		params: p.Clone(),
		alpha:  new(big.Int).SetUint64(p.Alpha),
	}, nil
}

// StateSize returns the width t of the permutation.
func (p *Permutation[E, PE]) StateSize() int {
	return p.params.StateSize
}

// Params returns a copy of the parameter set backing the permutation.
func (p *Permutation[E, PE]) Params() *params.Parameters[E] {
	return p.params.Clone()
}

// Permute applies the full permutation to state in place.
func (p *Permutation[E, PE]) Permute(state []E) error {
	if len(state) != p.params.StateSize {
		return fmt.Errorf("poseidon: state has %d elements, expected %d: %w", len(state), p.params.StateSize, ErrStateSize)
	}
	p.permute(state, make([]E, len(state)))
	return nil
}

// permute runs every round on state. scratch must have the state width.
func (p *Permutation[E, PE]) permute(state, scratch []E) {
	for round := 0; round < p.params.Rounds(); round++ {
		p.ark(state, round)
		if p.partialRound(round) {
			p.sbox(&state[0])
		} else {
			for i := range state {
				p.sbox(&state[i])
			}
		}
		p.mix(state, scratch)
	}
}

// partialRound reports whether round (counted over the whole permutation)
// falls in the partial window between the two halves of full rounds.
func (p *Permutation[E, PE]) partialRound(round int) bool {
	half := p.params.FullRounds / 2
	return round >= half && round < half+p.params.PartialRounds
}

// ark adds the constants of the given round.
func (p *Permutation[E, PE]) ark(state []E, round int) {
	t := p.params.StateSize
	rc := p.params.RoundConstants[round*t : (round+1)*t]
	for j := range state {
		PE(&state[j]).Add(&state[j], &rc[j])
	}
}

func (p *Permutation[E, PE]) sbox(x *E) {
	PE(x).Exp(*x, p.alpha)
}

// mix replaces state with MDS·state.
func (p *Permutation[E, PE]) mix(state, scratch []E) {
	var prod E
	for i, row := range p.params.MDS {
		sum := &scratch[i]
		PE(sum).SetZero()
		for j := range state {
			PE(&prod).Mul(&state[j], &row[j])
			PE(sum).Add(sum, &prod)
		}
	}
	copy(state, scratch)
}

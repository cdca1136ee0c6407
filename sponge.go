package poseidon

import (
	"fmt"

	"github.com/vocdoni/poseidon/field"
	"github.com/vocdoni/poseidon/params"
)

// Sponge absorbs and squeezes with a fixed rate on top of a Permutation. The
// first rate slots of the state take input and produce output; the remaining
// slots are the capacity. A Sponge holds no mutable state and is safe for
// concurrent use.
type Sponge[E any, PE field.Element[E]] struct {
	perm *Permutation[E, PE]
	rate int
}

// NewSponge validates p and rate and returns the corresponding sponge.
func NewSponge[E any, PE field.Element[E]](p *params.Parameters[E], rate int) (*Sponge[E, PE], error) {
	perm, err := NewPermutation[E, PE](p)
	if err != nil {
		return nil, err
	}
	return perm.Sponge(rate)
}

// Sponge returns a sponge with the given rate sharing this permutation.
func (p *Permutation[E, PE]) Sponge(rate int) (*Sponge[E, PE], error) {
	if rate < 1 || rate > p.params.StateSize {
		return nil, fmt.Errorf("poseidon: rate %d outside [1, %d]: %w", rate, p.params.StateSize, ErrInvalidRate)
	}
	return &Sponge[E, PE]{perm: p, rate: rate}, nil
}

// Hash absorbs input and squeezes outputLength elements with the sponge
// defined by p and rate. See Sponge.Squeeze for the exact output length.
func Hash[E any, PE field.Element[E]](input []E, p *params.Parameters[E], outputLength, rate int) ([]E, error) {
	s, err := NewSponge[E, PE](p, rate)
	if err != nil {
		return nil, err
	}
	return s.Hash(input, outputLength)
}

// Rate returns the number of state slots used per absorb or squeeze step.
func (s *Sponge[E, PE]) Rate() int {
	return s.rate
}

// Permutation returns the permutation the sponge runs.
func (s *Sponge[E, PE]) Permutation() *Permutation[E, PE] {
	return s.perm
}

// Hash runs Absorb followed by Squeeze on a fresh state.
func (s *Sponge[E, PE]) Hash(input []E, outputLength int) ([]E, error) {
	if outputLength < 1 {
		return nil, fmt.Errorf("poseidon: output length %d: %w", outputLength, ErrInvalidOutputLength)
	}
	state := s.Absorb(input)
	return s.Squeeze(state, outputLength)
}

// Absorb zero-pads input to a multiple of the rate, then adds it block by
// block into the rate part of a zero state, permuting after every block. An
// empty input leaves the state at zero.
func (s *Sponge[E, PE]) Absorb(input []E) []E {
	t := s.perm.params.StateSize
	state := make([]E, t)
	for i := range state {
		PE(&state[i]).SetZero()
	}
	scratch := make([]E, t)

	padded := pad[E, PE](input, s.rate)
	for i := 0; i < len(padded); i += s.rate {
		block := padded[i : i+s.rate]
		for k := range block {
			PE(&state[k]).Add(&state[k], &block[k])
		}
		s.perm.permute(state, scratch)
	}
	return state
}

// Squeeze reads the rate part of state and permutes it until at least
// outputLength elements were collected, then truncates. With outputLength
// above one, trailing elements are dropped while the length is not a multiple
// of outputLength, so the result may hold a multiple of outputLength (rate 5
// and outputLength 2 yield 4 elements). With outputLength one, exactly one
// element is returned. state is modified in place.
func (s *Sponge[E, PE]) Squeeze(state []E, outputLength int) ([]E, error) {
	if outputLength < 1 {
		return nil, fmt.Errorf("poseidon: output length %d: %w", outputLength, ErrInvalidOutputLength)
	}
	if len(state) != s.perm.params.StateSize {
		return nil, fmt.Errorf("poseidon: state has %d elements, expected %d: %w", len(state), s.perm.params.StateSize, ErrStateSize)
	}
	scratch := make([]E, len(state))

	var output []E
	for len(output) < outputLength {
		output = append(output, state[:s.rate]...)
		s.perm.permute(state, scratch)
	}
	if outputLength > 1 {
		for len(output)%outputLength != 0 {
			output = output[:len(output)-1]
		}
	} else {
		output = output[:1]
	}
	return output, nil
}

// pad returns a copy of input completed with zeros up to a multiple of rate.
func pad[E any, PE field.Element[E]](input []E, rate int) []E {
	n := len(input)
	if rem := n % rate; rem != 0 {
		n += rate - rem
	}
	padded := make([]E, n)
	copy(padded, input)
	for i := len(input); i < n; i++ {
		PE(&padded[i]).SetZero()
	}
	return padded
}

package poseidon

import (
	"fmt"

	"github.com/consensys/gnark/frontend"

	nativeposeidon "github.com/vocdoni/poseidon"
	"github.com/vocdoni/poseidon/field"
	"github.com/vocdoni/poseidon/params"
)

// Sponge is the in-circuit counterpart of the native sponge.
type Sponge struct {
	perm *Permutation
	rate int
}

// NewSponge builds a sponge gadget with the given rate.
func NewSponge[E any, PE field.Constant[E]](api frontend.API, p *params.Parameters[E], rate int) (*Sponge, error) {
	perm, err := NewPermutation[E, PE](api, p)
	if err != nil {
		return nil, err
	}
	if rate < 1 || rate > perm.width {
		return nil, fmt.Errorf("poseidon: rate %d outside [1, %d]: %w", rate, perm.width, nativeposeidon.ErrInvalidRate)
	}
	return &Sponge{perm: perm, rate: rate}, nil
}

// Hash computes the sponge hash of inputs inside a circuit, with the same
// padding and output length rules as the native Hash.
func Hash[E any, PE field.Constant[E]](api frontend.API, p *params.Parameters[E], inputs []frontend.Variable, outputLength, rate int) ([]frontend.Variable, error) {
	s, err := NewSponge[E, PE](api, p, rate)
	if err != nil {
		return nil, err
	}
	return s.Hash(inputs, outputLength)
}

// Hash absorbs inputs and squeezes outputLength elements.
func (s *Sponge) Hash(inputs []frontend.Variable, outputLength int) ([]frontend.Variable, error) {
	if outputLength < 1 {
		return nil, fmt.Errorf("poseidon: output length %d: %w", outputLength, nativeposeidon.ErrInvalidOutputLength)
	}
	return s.squeeze(s.absorb(inputs), outputLength), nil
}

func (s *Sponge) absorb(inputs []frontend.Variable) []frontend.Variable {
	state := make([]frontend.Variable, s.perm.width)
	for i := range state {
		state[i] = 0
	}
	for i := 0; i < len(inputs); i += s.rate {
		for k := 0; k < s.rate; k++ {
			// missing elements of the last block are zero padding
			if i+k < len(inputs) {
				state[k] = s.perm.api.Add(state[k], inputs[i+k])
			}
		}
		state = s.perm.permute(state)
	}
	return state
}

func (s *Sponge) squeeze(state []frontend.Variable, outputLength int) []frontend.Variable {
	var out []frontend.Variable
	for len(out) < outputLength {
		out = append(out, state[:s.rate]...)
		state = s.perm.permute(state)
	}
	if outputLength > 1 {
		for len(out)%outputLength != 0 {
			out = out[:len(out)-1]
		}
	} else {
		out = out[:1]
	}
	return out
}

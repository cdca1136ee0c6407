// Package poseidon provides the Poseidon sponge as a gnark gadget over an
// emulated (non-native) field, for instance BLS12-381 Fr inside a BN254
// circuit.
package poseidon

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/logger"
	"github.com/consensys/gnark/std/math/emulated"

	nativeposeidon "github.com/vocdoni/poseidon"
	"github.com/vocdoni/poseidon/field"
	"github.com/vocdoni/poseidon/params"
)

// Permutation emits the Poseidon permutation over emulated.Field[T].
type Permutation[T emulated.FieldParams] struct {
	field         *emulated.Field[T]
	width         int
	fullRounds    int
	partialRounds int
	alpha         uint64

	rc  []*emulated.Element[T]
	mds [][]*emulated.Element[T]
}

// NewPermutation validates p and turns its constants into emulated constants.
// p must be defined over the field described by T.
func NewPermutation[T emulated.FieldParams, E any, PE field.Constant[E]](api frontend.API, p *params.Parameters[E]) (*Permutation[T], error) {
	if err := params.Validate(p); err != nil {
		return nil, err
	}
	f, err := emulated.NewField[T](api)
	if err != nil {
		return nil, err
	}
	var fp T
	modulus := fp.Modulus()
	constElement := func(e *E) (*emulated.Element[T], error) {
		v := PE(e).BigInt(new(big.Int))
		if v.Cmp(modulus) >= 0 {
			return nil, fmt.Errorf("poseidon: constant does not fit emulated field %s: %w", modulus, params.ErrModulusMismatch)
		}
		return f.NewElement(v), nil
	}

	perm := &Permutation[T]{
		field:         f,
		width:         p.StateSize,
		fullRounds:    p.FullRounds,
		partialRounds: p.PartialRounds,
		alpha:         p.Alpha,
		rc:            make([]*emulated.Element[T], len(p.RoundConstants)),
		mds:           make([][]*emulated.Element[T], p.StateSize),
	}
	for i := range p.RoundConstants {
		if perm.rc[i], err = constElement(&p.RoundConstants[i]); err != nil {
			return nil, err
		}
	}
	for i := range p.MDS {
		perm.mds[i] = make([]*emulated.Element[T], p.StateSize)
		for j := range p.MDS[i] {
			if perm.mds[i][j], err = constElement(&p.MDS[i][j]); err != nil {
				return nil, err
			}
		}
	}
	log := logger.Logger()
	log.Debug().
		Int("t", perm.width).
		Int("rounds", perm.fullRounds+perm.partialRounds).
		Msg("emulated poseidon gadget initialized")
	return perm, nil
}

// Hash computes the sponge hash of inputs over the emulated field, with the
// same padding and output length rules as the native Hash. Outputs are
// reduced.
func Hash[T emulated.FieldParams, E any, PE field.Constant[E]](api frontend.API, p *params.Parameters[E], inputs []emulated.Element[T], outputLength, rate int) ([]emulated.Element[T], error) {
	perm, err := NewPermutation[T, E, PE](api, p)
	if err != nil {
		return nil, err
	}
	return perm.Hash(inputs, outputLength, rate)
}

// Hash runs the sponge with the given rate on top of the permutation.
func (p *Permutation[T]) Hash(inputs []emulated.Element[T], outputLength, rate int) ([]emulated.Element[T], error) {
	if rate < 1 || rate > p.width {
		return nil, fmt.Errorf("poseidon: rate %d outside [1, %d]: %w", rate, p.width, nativeposeidon.ErrInvalidRate)
	}
	if outputLength < 1 {
		return nil, fmt.Errorf("poseidon: output length %d: %w", outputLength, nativeposeidon.ErrInvalidOutputLength)
	}

	state := make([]*emulated.Element[T], p.width)
	for i := range state {
		state[i] = p.field.Zero()
	}
	for i := 0; i < len(inputs); i += rate {
		for k := 0; k < rate && i+k < len(inputs); k++ {
			state[k] = p.field.Add(state[k], &inputs[i+k])
		}
		state = p.permute(state)
	}

	var out []*emulated.Element[T]
	for len(out) < outputLength {
		out = append(out, state[:rate]...)
		state = p.permute(state)
	}
	if outputLength > 1 {
		for len(out)%outputLength != 0 {
			out = out[:len(out)-1]
		}
	} else {
		out = out[:1]
	}

	res := make([]emulated.Element[T], len(out))
	for i, v := range out {
		res[i] = *p.field.Reduce(v)
	}
	return res, nil
}

func (p *Permutation[T]) permute(state []*emulated.Element[T]) []*emulated.Element[T] {
	half := p.fullRounds / 2
	for round := 0; round < p.fullRounds+p.partialRounds; round++ {
		offset := round * p.width
		for i := range state {
			state[i] = p.field.Add(state[i], p.rc[offset+i])
		}
		if round >= half && round < half+p.partialRounds {
			state[0] = p.pow(state[0])
		} else {
			for i := range state {
				state[i] = p.pow(state[i])
			}
		}
		state = p.mix(state)
	}
	return state
}

func (p *Permutation[T]) mix(state []*emulated.Element[T]) []*emulated.Element[T] {
	out := make([]*emulated.Element[T], p.width)
	for i, row := range p.mds {
		sum := p.field.Zero()
		for j := range state {
			sum = p.field.Add(sum, p.field.Mul(row[j], state[j]))
		}
		out[i] = sum
	}
	return out
}

func (p *Permutation[T]) pow(x *emulated.Element[T]) *emulated.Element[T] {
	res := x
	for i := bits.Len64(p.alpha) - 2; i >= 0; i-- {
		res = p.field.Mul(res, res)
		if (p.alpha>>uint(i))&1 == 1 {
			res = p.field.Mul(res, x)
		}
	}
	return res
}

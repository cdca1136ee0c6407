// Package poseidon provides the Poseidon sponge as a gnark gadget over the
// native scalar field of the circuit. It mirrors the native implementation in
// github.com/vocdoni/poseidon step by step, so both produce the same outputs
// for the same parameter set.
package poseidon

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/logger"

	nativeposeidon "github.com/vocdoni/poseidon"
	"github.com/vocdoni/poseidon/field"
	"github.com/vocdoni/poseidon/params"
)

// Permutation emits the constraints of the Poseidon permutation.
type Permutation struct {
	api           frontend.API
	width         int
	fullRounds    int
	partialRounds int
	alpha         uint64

	rc  []*big.Int
	mds [][]*big.Int
}

// NewPermutation validates p and converts its constants for api. Every
// constant must be an element of the circuit's native field.
func NewPermutation[E any, PE field.Constant[E]](api frontend.API, p *params.Parameters[E]) (*Permutation, error) {
	if err := params.Validate(p); err != nil {
		return nil, err
	}
	modulus := api.Compiler().Field()
	toBig := func(e *E) (*big.Int, error) {
		v := PE(e).BigInt(new(big.Int))
		if v.Cmp(modulus) >= 0 {
			return nil, fmt.Errorf("poseidon: constant does not fit native field %s: %w", modulus, params.ErrModulusMismatch)
		}
		return v, nil
	}

	perm := &Permutation{
		api:           api,
		width:         p.StateSize,
		fullRounds:    p.FullRounds,
		partialRounds: p.PartialRounds,
		alpha:         p.Alpha,
		rc:            make([]*big.Int, len(p.RoundConstants)),
		mds:           make([][]*big.Int, p.StateSize),
	}
	var err error
	for i := range p.RoundConstants {
		if perm.rc[i], err = toBig(&p.RoundConstants[i]); err != nil {
			return nil, err
		}
	}
	for i := range p.MDS {
		perm.mds[i] = make([]*big.Int, p.StateSize)
		for j := range p.MDS[i] {
			if perm.mds[i][j], err = toBig(&p.MDS[i][j]); err != nil {
				return nil, err
			}
		}
	}
	log := logger.Logger()
	log.Debug().
		Int("t", perm.width).
		Int("rounds", perm.fullRounds+perm.partialRounds).
		Msg("poseidon gadget initialized")
	return perm, nil
}

// StateSize returns the width of the permutation.
func (p *Permutation) StateSize() int {
	return p.width
}

// Permute returns the permutation of state. The input slice is not modified.
func (p *Permutation) Permute(state []frontend.Variable) ([]frontend.Variable, error) {
	if len(state) != p.width {
		return nil, fmt.Errorf("poseidon: state has %d elements, expected %d: %w", len(state), p.width, nativeposeidon.ErrStateSize)
	}
	return p.permute(append([]frontend.Variable(nil), state...)), nil
}

func (p *Permutation) permute(state []frontend.Variable) []frontend.Variable {
	half := p.fullRounds / 2
	for round := 0; round < p.fullRounds+p.partialRounds; round++ {
		p.ark(state, round)
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

func (p *Permutation) ark(state []frontend.Variable, round int) {
	offset := round * p.width
	for i := range state {
		state[i] = p.api.Add(state[i], p.rc[offset+i])
	}
}

func (p *Permutation) mix(state []frontend.Variable) []frontend.Variable {
	out := make([]frontend.Variable, p.width)
	for i, row := range p.mds {
		sum := p.api.Mul(state[0], row[0])
		for j := 1; j < p.width; j++ {
			sum = p.api.Add(sum, p.api.Mul(state[j], row[j]))
		}
		out[i] = sum
	}
	return out
}

// pow raises v to alpha by square-and-multiply.
func (p *Permutation) pow(v frontend.Variable) frontend.Variable {
	res := v
	for i := bits.Len64(p.alpha) - 2; i >= 0; i-- {
		res = p.api.Mul(res, res)
		if (p.alpha>>uint(i))&1 == 1 {
			res = p.api.Mul(res, v)
		}
	}
	return res
}

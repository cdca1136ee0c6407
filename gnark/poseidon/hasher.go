package poseidon

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"

	"github.com/vocdoni/poseidon/field"
	"github.com/vocdoni/poseidon/params"
)

var _ hash.FieldHasher = (*Hasher)(nil)

// Hasher buffers written elements and hashes them on Sum with a single
// output element, so the sponge can be used wherever gnark expects a
// hash.FieldHasher.
type Hasher struct {
	sponge *Sponge
	data   []frontend.Variable
}

// Option configures a Hasher.
type Option func(*hasherConfig)

type hasherConfig struct {
	rate int
}

// WithRate sets the sponge rate. The default is the state size minus one
// (one capacity slot), or one for a single-slot state.
func WithRate(rate int) Option {
	return func(c *hasherConfig) {
		c.rate = rate
	}
}

// NewHasher returns a FieldHasher over p.
func NewHasher[E any, PE field.Constant[E]](api frontend.API, p *params.Parameters[E], opts ...Option) (*Hasher, error) {
	if err := params.Validate(p); err != nil {
		return nil, err
	}
	cfg := hasherConfig{rate: max(p.StateSize-1, 1)}
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := NewSponge[E, PE](api, p, cfg.rate)
	if err != nil {
		return nil, err
	}
	return &Hasher{sponge: s}, nil
}

// Write appends data to the buffered input.
func (h *Hasher) Write(data ...frontend.Variable) {
	h.data = append(h.data, data...)
}

// Sum hashes everything written since the last Reset. The buffer is kept.
func (h *Hasher) Sum() frontend.Variable {
	return h.sponge.squeeze(h.sponge.absorb(h.data), 1)[0]
}

// Reset clears the buffered input.
func (h *Hasher) Reset() {
	h.data = nil
}

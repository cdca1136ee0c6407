package params

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformed is returned for parameter sets whose shape cannot drive the
// permutation.
var ErrMalformed = errors.New("malformed parameter set")

// Validate checks the shape and sizes of the parameter set.
func Validate[E any](p *Parameters[E]) error {
	if p == nil {
		return fmt.Errorf("poseidon: nil parameters: %w", ErrMalformed)
	}
	width := p.StateSize
	if width < 1 {
		return fmt.Errorf("poseidon: state size must be at least 1, got %d: %w", width, ErrMalformed)
	}
	if p.FullRounds < 0 || p.PartialRounds < 0 {
		return fmt.Errorf("poseidon: negative round count (full %d, partial %d): %w", p.FullRounds, p.PartialRounds, ErrMalformed)
	}
	if p.Alpha < 1 {
		return fmt.Errorf("poseidon: alpha must be positive: %w", ErrMalformed)
	}
	if p.FullRounds > math.MaxInt-p.PartialRounds {
		return fmt.Errorf("poseidon: round count overflows (full %d, partial %d): %w", p.FullRounds, p.PartialRounds, ErrMalformed)
	}
	// compared by division so that a huge round count cannot wrap the product
	rounds := p.Rounds()
	if n := len(p.RoundConstants); n%width != 0 || n/width != rounds {
		return fmt.Errorf("poseidon: round constants length mismatch (%d, expected %d rounds of %d): %w", n, rounds, width, ErrMalformed)
	}
	if len(p.MDS) != width {
		return fmt.Errorf("poseidon: mds has %d rows, expected %d: %w", len(p.MDS), width, ErrMalformed)
	}
	for i, row := range p.MDS {
		if len(row) != width {
			return fmt.Errorf("poseidon: mds row %d has %d columns, expected %d: %w", i, len(row), width, ErrMalformed)
		}
	}
	return nil
}

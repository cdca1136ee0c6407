// Package params holds the constants of a Poseidon instance: round constants,
// MDS matrix, state width, round counts and S-box exponent.
//
// Parameter sets are produced outside this module (for instance by the
// reference parameter script, see ReadSage) and are treated as read-only once
// built: the permutation indexes constants by absolute round number and never
// consumes them, so one set can back any number of concurrent hash calls.
package params

// Parameters bundles all constants needed by the permutation over the field E.
type Parameters[E any] struct {
	StateSize     int
	FullRounds    int
	PartialRounds int
	Alpha         uint64

	// RoundConstants is round-major: constant j of round i sits at
	// StateSize*i + j.
	RoundConstants []E
	// MDS is the StateSize x StateSize linear layer, indexed [row][column].
	MDS [][]E
}

// New builds a validated parameter set. The constant slices are copied, so the
// caller may reuse them afterwards.
func New[E any](stateSize, fullRounds, partialRounds int, alpha uint64, roundConstants []E, mds [][]E) (*Parameters[E], error) {
	p := &Parameters[E]{
		StateSize:      stateSize,
		FullRounds:     fullRounds,
		PartialRounds:  partialRounds,
		Alpha:          alpha,
		RoundConstants: roundConstants,
		MDS:            mds,
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Rounds returns the total number of rounds of the permutation.
func (p *Parameters[E]) Rounds() int {
	return p.FullRounds + p.PartialRounds
}

// Clone returns a deep copy of p.
func (p *Parameters[E]) Clone() *Parameters[E] {
	out := *p
	out.RoundConstants = append([]E(nil), p.RoundConstants...)
	out.MDS = make([][]E, len(p.MDS))
	for i, row := range p.MDS {
		out.MDS[i] = append([]E(nil), row...)
	}
	return &out
}

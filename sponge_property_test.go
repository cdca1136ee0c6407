package poseidon

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func toElements(values []uint64) []fr.Element {
	out := make([]fr.Element, len(values))
	for i, v := range values {
		out[i].SetUint64(v)
	}
	return out
}

func TestSpongeProperties(t *testing.T) {
	p := loadBN254(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	parameters.MaxSize = 16
	properties := gopter.NewProperties(parameters)

	properties.Property("hash is deterministic", prop.ForAll(
		func(values []uint64, rate, outputLength int) bool {
			input := toElements(values)
			a, err := Hash(input, p, outputLength, rate)
			if err != nil {
				return false
			}
			b, err := Hash(input, p, outputLength, rate)
			if err != nil || len(a) != len(b) {
				return false
			}
			for i := range a {
				if !a[i].Equal(&b[i]) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt64()),
		gen.IntRange(1, 3),
		gen.IntRange(1, 6),
	))

	properties.Property("hash does not modify its input", prop.ForAll(
		func(values []uint64, rate int) bool {
			input := toElements(values)
			if _, err := Hash(input, p, 1, rate); err != nil {
				return false
			}
			want := toElements(values)
			for i := range input {
				if !input[i].Equal(&want[i]) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt64()),
		gen.IntRange(1, 3),
	))

	properties.Property("padding adds rate - len mod rate zeros", prop.ForAll(
		func(length, rate int) bool {
			padded := pad[fr.Element](make([]fr.Element, length), rate)
			if length%rate == 0 {
				return len(padded) == length
			}
			return len(padded) == length+rate-length%rate
		},
		gen.IntRange(0, 200),
		gen.IntRange(1, 16),
	))

	properties.Property("output holds at least one and a multiple of the requested length", prop.ForAll(
		func(rate, outputLength int) bool {
			out, err := Hash([]fr.Element{{}}, p, outputLength, rate)
			if err != nil {
				return false
			}
			if outputLength == 1 {
				return len(out) == 1
			}
			return len(out) >= outputLength && len(out)%outputLength == 0 && len(out) < outputLength+rate
		},
		gen.IntRange(1, 3),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

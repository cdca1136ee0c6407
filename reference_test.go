package poseidon

import (
	"math/big"
	"os"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	bls12377fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	bls12381fr "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/vocdoni/poseidon/field"
	"github.com/vocdoni/poseidon/params"
)

const (
	bls12381Fixture = "testdata/poseidon_bls12381_t5_alpha5_rf8_rp56.txt"
	bn254Fixture    = "testdata/poseidon_bn254_t3_alpha5_rf8_rp57.txt"
)

func mustElement(t *testing.T, s string) fr.Element {
	t.Helper()
	var e fr.Element
	if _, err := e.SetString(s); err != nil {
		t.Fatalf("parse element: %v", err)
	}
	return e
}

func loadBN254(t testing.TB) *params.Parameters[fr.Element] {
	t.Helper()
	return loadFixture[fr.Element](t, bn254Fixture, ecc.BN254.ScalarField())
}

func loadBLS12381(t testing.TB) *params.Parameters[bls12381fr.Element] {
	t.Helper()
	return loadFixture[bls12381fr.Element](t, bls12381Fixture, ecc.BLS12_381.ScalarField())
}

func loadFixture[E any, PE field.Constant[E]](t testing.TB, path string, modulus *big.Int) *params.Parameters[E] {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	p, err := params.ReadSage[E, PE](f, modulus)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return p
}

// cauchyParams derives a small deterministic parameter set: round constant k
// is k+1 and the MDS entry (i, j) is 1/(i + t + j).
func cauchyParams[E any, PE field.Constant[E]](t testing.TB, modulus *big.Int, width, fullRounds, partialRounds int, alpha uint64) *params.Parameters[E] {
	t.Helper()
	rc := make([]E, (fullRounds+partialRounds)*width)
	for k := range rc {
		PE(&rc[k]).SetBigInt(big.NewInt(int64(k + 1)))
	}
	mds := make([][]E, width)
	for i := range mds {
		mds[i] = make([]E, width)
		for j := range mds[i] {
			inv := new(big.Int).ModInverse(big.NewInt(int64(i+width+j)), modulus)
			PE(&mds[i][j]).SetBigInt(inv)
		}
	}
	p, err := params.New(width, fullRounds, partialRounds, alpha, rc, mds)
	if err != nil {
		t.Fatalf("build parameters: %v", err)
	}
	return p
}

// Reference big.Int implementation, independent from the generic code path.
func bigIntHash[E any, PE field.Constant[E]](p *params.Parameters[E], modulus *big.Int, input []*big.Int, outputLength, rate int) []*big.Int {
	t := p.StateSize
	rc := elemsToBig[E, PE](p.RoundConstants)
	mds := make([][]*big.Int, t)
	for i := range mds {
		mds[i] = elemsToBig[E, PE](p.MDS[i])
	}
	alpha := new(big.Int).SetUint64(p.Alpha)

	permute := func(state []*big.Int) []*big.Int {
		for round := 0; round < p.FullRounds+p.PartialRounds; round++ {
			for j := 0; j < t; j++ {
				state[j].Add(state[j], rc[round*t+j]).Mod(state[j], modulus)
			}
			if round >= p.FullRounds/2 && round < p.FullRounds/2+p.PartialRounds {
				state[0].Exp(state[0], alpha, modulus)
			} else {
				for j := range state {
					state[j].Exp(state[j], alpha, modulus)
				}
			}
			next := make([]*big.Int, t)
			for i := 0; i < t; i++ {
				sum := big.NewInt(0)
				for j := 0; j < t; j++ {
					sum.Add(sum, new(big.Int).Mul(mds[i][j], state[j]))
				}
				next[i] = sum.Mod(sum, modulus)
			}
			state = next
		}
		return state
	}

	padded := make([]*big.Int, 0, len(input)+rate)
	for _, v := range input {
		padded = append(padded, new(big.Int).Set(v))
	}
	for len(padded)%rate != 0 {
		padded = append(padded, big.NewInt(0))
	}
	state := make([]*big.Int, t)
	for i := range state {
		state[i] = big.NewInt(0)
	}
	for i := 0; i < len(padded); i += rate {
		for k := 0; k < rate; k++ {
			state[k].Add(state[k], padded[i+k]).Mod(state[k], modulus)
		}
		state = permute(state)
	}

	var out []*big.Int
	for len(out) < outputLength {
		for k := 0; k < rate; k++ {
			out = append(out, new(big.Int).Set(state[k]))
		}
		state = permute(state)
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

func elemsToBig[E any, PE field.Constant[E]](es []E) []*big.Int {
	out := make([]*big.Int, len(es))
	for i := range es {
		out[i] = PE(&es[i]).BigInt(new(big.Int))
	}
	return out
}

func TestMatchesBigIntReference(t *testing.T) {
	t.Run("bn254 fixture", func(t *testing.T) {
		p := loadBN254(t)
		inputs := make([]fr.Element, 11)
		for i := range inputs {
			inputs[i].SetUint64(uint64(1000 + 7*i))
		}
		compareWithReference[fr.Element](t, p, fr.Modulus(), inputs, 3, 2)
		compareWithReference[fr.Element](t, p, fr.Modulus(), inputs, 1, 3)
	})
	t.Run("bls12-377 cauchy", func(t *testing.T) {
		p := cauchyParams[bls12377fr.Element](t, bls12377fr.Modulus(), 4, 8, 31, 17)
		inputs := make([]bls12377fr.Element, 9)
		for i := range inputs {
			inputs[i].SetUint64(uint64(i * i))
		}
		compareWithReference[bls12377fr.Element](t, p, bls12377fr.Modulus(), inputs, 4, 3)
	})
	t.Run("bls12-381 fixture", func(t *testing.T) {
		p := loadBLS12381(t)
		inputs := make([]bls12381fr.Element, 7)
		for i := range inputs {
			inputs[i].SetUint64(uint64(i + 42))
		}
		compareWithReference[bls12381fr.Element](t, p, bls12381fr.Modulus(), inputs, 2, 5)
	})
}

func compareWithReference[E any, PE field.Constant[E]](t *testing.T, p *params.Parameters[E], modulus *big.Int, inputs []E, outputLength, rate int) {
	t.Helper()
	got, err := Hash[E, PE](inputs, p, outputLength, rate)
	if err != nil {
		t.Fatal(err)
	}
	want := bigIntHash[E, PE](p, modulus, elemsToBig[E, PE](inputs), outputLength, rate)
	if len(got) != len(want) {
		t.Fatalf("output length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if g := PE(&got[i]).BigInt(new(big.Int)); g.Cmp(want[i]) != 0 {
			t.Fatalf("element %d mismatch\nexpected %s\ngot      %s", i, want[i], g)
		}
	}
}

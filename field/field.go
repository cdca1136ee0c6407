// Package field describes the prime-field arithmetic the Poseidon sponge is
// generic over. The method shapes are the ones generated by gnark-crypto, so
// every fr/fp element of that library (bn254, bls12-381, bls12-377, ...) can
// be used directly: E is the value type and *E carries the methods.
package field

import "math/big"

// Element is the arithmetic needed by the permutation: the additive identity,
// addition, multiplication and exponentiation by a small positive integer.
type Element[E any] interface {
	*E
	SetZero() *E
	Add(x, y *E) *E
	Mul(x, y *E) *E
	Exp(x E, k *big.Int) *E
}

// Constant extends Element with the conversions used when parameters are read
// from text or turned into circuit constants.
type Constant[E any] interface {
	Element[E]
	SetBigInt(v *big.Int) *E
	BigInt(res *big.Int) *big.Int
}

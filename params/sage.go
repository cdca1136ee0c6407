package params

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/consensys/gnark/logger"

	"github.com/vocdoni/poseidon/field"
)

// ErrModulusMismatch is returned when a parameter file was generated for a
// different prime than the one the caller hashes over.
var ErrModulusMismatch = errors.New("parameter file modulus does not match field")

const (
	roundConstantsMarker = "Round constants for GF(p):"
	mdsMarker            = "MDS matrix:"
	maxLineSize          = 16 << 20
)

// sageHeader is the "Params:" line of a parameter file.
type sageHeader struct {
	n, t, fullRounds, partialRounds int
	alpha                           uint64
	seen                            map[string]bool
}

// ReadSage parses the text printed by the Poseidon reference parameter script
// (generate_params_poseidon.sage): a "Params:" header carrying n, t, alpha,
// R_F and R_P, the decimal modulus, the hex round constants on the line after
// "Round constants for GF(p):" and the hex MDS rows on the line after
// "MDS matrix:". Every other line is ignored.
//
// modulus is the prime of E. When non-nil it must match both the modulus and
// the bit size declared in the file, and every constant must be below it.
func ReadSage[E any, PE field.Constant[E]](r io.Reader, modulus *big.Int) (*Parameters[E], error) {
	var (
		hdr         sageHeader
		fileModulus *big.Int
		constants   []*big.Int
		mds         [][]*big.Int
		expect      string
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var err error
		switch {
		case expect == roundConstantsMarker:
			constants, err = parseHexList(line)
			expect = ""
		case expect == mdsMarker:
			mds, err = parseHexMatrix(line)
			expect = ""
		case strings.HasPrefix(line, "Params:"):
			hdr, err = parseSageHeader(strings.TrimPrefix(line, "Params:"))
		case strings.HasPrefix(line, "Modulus ="):
			v := strings.TrimSpace(strings.TrimPrefix(line, "Modulus ="))
			fileModulus = new(big.Int)
			if _, ok := fileModulus.SetString(v, 10); !ok {
				err = fmt.Errorf("poseidon: invalid modulus %q", v)
			}
		case line == roundConstantsMarker, line == mdsMarker:
			expect = line
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", err, ErrMalformed)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("poseidon: reading parameters: %w", err)
	}

	for _, key := range []string{"t", "alpha", "R_F", "R_P"} {
		if !hdr.seen[key] {
			return nil, fmt.Errorf("poseidon: parameter header lacks %s: %w", key, ErrMalformed)
		}
	}
	if constants == nil {
		return nil, fmt.Errorf("poseidon: no round constants found: %w", ErrMalformed)
	}
	if mds == nil {
		return nil, fmt.Errorf("poseidon: no mds matrix found: %w", ErrMalformed)
	}

	if modulus != nil {
		if fileModulus != nil && fileModulus.Cmp(modulus) != 0 {
			return nil, fmt.Errorf("poseidon: file modulus %s, field modulus %s: %w", fileModulus, modulus, ErrModulusMismatch)
		}
		if hdr.seen["n"] && hdr.n != modulus.BitLen() {
			return nil, fmt.Errorf("poseidon: file declares n=%d, field has %d bits: %w", hdr.n, modulus.BitLen(), ErrModulusMismatch)
		}
	} else {
		modulus = fileModulus
	}

	rc, err := toElements[E, PE](constants, modulus)
	if err != nil {
		return nil, err
	}
	matrix := make([][]E, len(mds))
	for i, row := range mds {
		if matrix[i], err = toElements[E, PE](row, modulus); err != nil {
			return nil, err
		}
	}

	p, err := New(hdr.t, hdr.fullRounds, hdr.partialRounds, hdr.alpha, rc, matrix)
	if err != nil {
		return nil, err
	}
	log := logger.Logger()
	log.Debug().
		Int("t", p.StateSize).
		Int("fullRounds", p.FullRounds).
		Int("partialRounds", p.PartialRounds).
		Uint64("alpha", p.Alpha).
		Msg("poseidon parameters loaded")
	return p, nil
}

func parseSageHeader(s string) (sageHeader, error) {
	hdr := sageHeader{seen: make(map[string]bool)}
	for _, kv := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok {
			return hdr, fmt.Errorf("poseidon: invalid header field %q", kv)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		var err error
		switch key {
		case "n":
			hdr.n, err = strconv.Atoi(value)
		case "t":
			hdr.t, err = strconv.Atoi(value)
		case "R_F":
			hdr.fullRounds, err = strconv.Atoi(value)
		case "R_P":
			hdr.partialRounds, err = strconv.Atoi(value)
		case "alpha":
			hdr.alpha, err = strconv.ParseUint(value, 10, 64)
		default:
			continue
		}
		if err != nil {
			return hdr, fmt.Errorf("poseidon: invalid header value %s=%q", key, value)
		}
		hdr.seen[key] = true
	}
	return hdr, nil
}

// parseHexList parses ['0x..', '0x..', ...].
func parseHexList(s string) ([]*big.Int, error) {
	s = stripQuotesAndSpaces(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("poseidon: expected a bracketed list")
	}
	s = s[1 : len(s)-1]
	if s == "" {
		return []*big.Int{}, nil
	}
	items := strings.Split(s, ",")
	out := make([]*big.Int, len(items))
	for i, item := range items {
		if !strings.HasPrefix(item, "0x") {
			return nil, fmt.Errorf("poseidon: constant %d is not hex: %q", i, item)
		}
		v, ok := new(big.Int).SetString(item[2:], 16)
		if !ok {
			return nil, fmt.Errorf("poseidon: invalid constant %d: %q", i, item)
		}
		out[i] = v
	}
	return out, nil
}

// parseHexMatrix parses [['0x..', ...], ['0x..', ...]].
func parseHexMatrix(s string) ([][]*big.Int, error) {
	s = stripQuotesAndSpaces(s)
	if !strings.HasPrefix(s, "[[") || !strings.HasSuffix(s, "]]") {
		return nil, fmt.Errorf("poseidon: expected a bracketed matrix")
	}
	rows := strings.Split(s[1:len(s)-1], "],[")
	out := make([][]*big.Int, len(rows))
	for i, row := range rows {
		row = strings.TrimSuffix(strings.TrimPrefix(row, "["), "]")
		var err error
		if out[i], err = parseHexList("[" + row + "]"); err != nil {
			return nil, fmt.Errorf("poseidon: mds row %d: %w", i, err)
		}
	}
	return out, nil
}

func stripQuotesAndSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\'', '"':
			return -1
		}
		return r
	}, s)
}

func toElements[E any, PE field.Constant[E]](values []*big.Int, modulus *big.Int) ([]E, error) {
	out := make([]E, len(values))
	for i, v := range values {
		if modulus != nil && v.Cmp(modulus) >= 0 {
			return nil, fmt.Errorf("poseidon: constant 0x%x is not reduced: %w", v, ErrMalformed)
		}
		PE(&out[i]).SetBigInt(v)
	}
	return out, nil
}

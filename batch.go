package poseidon

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// HashBatch hashes every input independently and in parallel, sharing the
// sponge's parameters. out[i] is the hash of inputs[i]. ctx is only checked
// before each hash starts; a permutation that has begun runs to completion.
func (s *Sponge[E, PE]) HashBatch(ctx context.Context, inputs [][]E, outputLength int) ([][]E, error) {
	if outputLength < 1 {
		return nil, fmt.Errorf("poseidon: output length %d: %w", outputLength, ErrInvalidOutputLength)
	}
	out := make([][]E, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, input := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := s.Hash(input, outputLength)
			if err != nil {
				return err
			}
			out[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

package aggregate

import (
	"context"

	"github.com/leapstack-labs/retailflow/pkg/core"
	"golang.org/x/sync/errgroup"
)

// cancelCheckInterval is how many records a worker folds between
// context checks.
const cancelCheckInterval = 4096

// bounds splits n items into at most parts contiguous [lo, hi) ranges.
func bounds(n, parts int) [][2]int {
	if parts > n {
		parts = n
	}
	if parts < 1 {
		parts = 1
	}
	out := make([][2]int, 0, parts)
	size, rem := n/parts, n%parts
	lo := 0
	for i := 0; i < parts; i++ {
		hi := lo + size
		if i < rem {
			hi++
		}
		out = append(out, [2]int{lo, hi})
		lo = hi
	}
	return out
}

// reduce folds every partition of ds concurrently into a partial, then
// merges the partials in partition order.
func reduce[P any](
	ctx context.Context,
	parts int,
	ds *core.Dataset,
	newPartial func() P,
	fold func(P, core.Record) P,
	merge func(acc, p P) P,
) (P, error) {
	ranges := bounds(ds.Len(), parts)
	partials := make([]P, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		g.Go(func() error {
			p := newPartial()
			for j := r[0]; j < r[1]; j++ {
				if (j-r[0])%cancelCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				p = fold(p, ds.At(j))
			}
			partials[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var zero P
		return zero, err
	}

	acc := newPartial()
	for _, p := range partials {
		acc = merge(acc, p)
	}
	return acc, nil
}

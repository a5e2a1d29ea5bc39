package app

import (
	"context"

	"burtrend/domain/phrase"

	"golang.org/x/sync/errgroup"
)

// Runner executes the per-phrase pass of an analysis. With one worker it runs
// sequentially; with more it fans out over an errgroup. Either way it returns
// only after every phrase is done, so families are corrected over complete
// pools.
type Runner struct {
	Workers int
}

// NewRunner creates a runner; workers below 1 mean sequential execution
func NewRunner(workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{Workers: workers}
}

// MapPhrases applies fn to every phrase and returns the results in phrase order
func MapPhrases[T any](ctx context.Context, r *Runner, phrases []phrase.Phrase, fn func(phrase.Phrase) T) ([]T, error) {
	out := make([]T, len(phrases))
	if r == nil || r.Workers <= 1 {
		for i, p := range phrases {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = fn(p)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)
	for i, p := range phrases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = fn(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

package sim

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

var ErrSharedCore = errors.New("sim: ensemble members share a core")

// Ensemble runs independent cores concurrently. Each member owns its core and
// engine, so members never touch each other's state.
type Ensemble struct {
	members []*Runner
}

func NewEnsemble(members ...*Runner) (*Ensemble, error) {
	seen := make(map[any]bool, len(members))
	for _, m := range members {
		if seen[m.core] {
			return nil, ErrSharedCore
		}
		seen[m.core] = true
	}
	return &Ensemble{members: members}, nil
}

// Run executes s on every member. The first failure cancels the others.
func (e *Ensemble) Run(ctx context.Context, s Schedule) ([]*Result, error) {
	results := make([]*Result, len(e.members))

	g, ctx := errgroup.WithContext(ctx)
	for i, m := range e.members {
		g.Go(func() error {
			res, err := m.Run(ctx, s)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

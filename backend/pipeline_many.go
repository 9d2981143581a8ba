package backend

import (
	"context"

	"golang.org/x/sync/errgroup"

	"codegen/builder"
)

// Unit pairs one function's builder with the transform it should run
// through, so ProcessMany can fan out over a batch.
type Unit struct {
	Builder     *builder.FunctionBuilder
	Mask        uint32
	Transformer Transformer
}

// ProcessMany runs be.Process over every unit concurrently. Safe only
// because each unit owns an independent FunctionBuilder/CodeHolder (§5: a
// Backend and its CodeHolder are not re-entrant per function, but
// independent functions may compile concurrently through a thread-safe
// registry — a shared TestBackend's Register/Resolve are already
// mutex-guarded for exactly this reason). Process takes no context, so a
// failing unit does not cancel the others: every unit runs to completion,
// and ProcessMany returns the first error reported.
func (be *Backend) ProcessMany(ctx context.Context, units []Unit) error {
	g, _ := errgroup.WithContext(ctx)

	for _, u := range units {
		u := u
		g.Go(func() error {
			return be.Process(u.Builder, u.Mask, u.Transformer)
		})
	}

	return g.Wait()
}

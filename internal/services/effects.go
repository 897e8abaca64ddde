package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// effect is one post-transition side effect
type effect struct {
	name string
	run  func(ctx context.Context) error
}

// EffectResult reports how one side effect went. A failed effect never
// changes the outcome of the transition that triggered it.
type EffectResult struct {
	Name string
	Err  error
}

// Failed returns the names of effects that returned an error
func Failed(results []EffectResult) []string {
	var out []string
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r.Name)
		}
	}
	return out
}

// runEffects executes effects in order on a context detached from request
// cancellation. Each effect is isolated: errors and panics are logged and
// the next effect still runs.
func runEffects(ctx context.Context, logger *zap.SugaredLogger, complaintID uuid.UUID, effects []effect) []EffectResult {
	ctx = context.WithoutCancel(ctx)
	results := make([]EffectResult, 0, len(effects))
	for _, e := range effects {
		err := runOne(ctx, e)
		if err != nil {
			logger.Warnw("Side effect failed",
				"effect", e.name,
				"complaint_id", complaintID,
				"error", err,
			)
		}
		results = append(results, EffectResult{Name: e.name, Err: err})
	}
	return results
}

func runOne(ctx context.Context, e effect) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.run(ctx)
}

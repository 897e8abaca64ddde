package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRunEffectsIsolatesFailures(t *testing.T) {
	var order []string
	step := func(name string, err error) effect {
		return effect{name: name, run: func(context.Context) error {
			order = append(order, name)
			return err
		}}
	}

	results := runEffects(context.Background(), zap.NewNop().Sugar(), uuid.New(), []effect{
		step("route", nil),
		step("notify", errors.New("smtp down")),
		{name: "points", run: func(context.Context) error {
			order = append(order, "points")
			panic("nil user")
		}},
		step("activity", nil),
	})

	assert.Equal(t, []string{"route", "notify", "points", "activity"}, order)
	assert.Equal(t, []string{"notify", "points"}, Failed(results))
	assert.Contains(t, results[2].Err.Error(), "nil user")
	assert.Empty(t, Failed(nil))
}

func TestRunEffectsIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	cancel()

	var seen error
	runEffects(ctx, zap.NewNop().Sugar(), uuid.New(), []effect{
		{name: "activity", run: func(ctx context.Context) error {
			seen = ctx.Err()
			return nil
		}},
	})
	assert.NoError(t, seen)
}

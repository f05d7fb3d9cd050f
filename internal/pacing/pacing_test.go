package pacing_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"github.com/jmehdipour/wa-bulk-sender/internal/pacing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitter_Draw(t *testing.T) {
	j := pacing.NewJitter(rand.NewPCG(1, 2))

	t.Run("stays within bounds", func(t *testing.T) {
		r := model.DelayRange{Min: 2 * time.Second, Max: 5 * time.Second}
		for i := 0; i < 1000; i++ {
			d := j.Draw(r)
			require.True(t, r.Contains(d), "delay %s outside %v", d, r)
		}
	})

	t.Run("degenerate range", func(t *testing.T) {
		r := model.DelayRange{Min: time.Second, Max: time.Second}
		assert.Equal(t, time.Second, j.Draw(r))
	})

	t.Run("zero range", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), j.Draw(model.DelayRange{}))
	})

	t.Run("deterministic for the same seed", func(t *testing.T) {
		r := model.DelayRange{Min: 0, Max: time.Minute}
		a := pacing.NewJitter(rand.NewPCG(7, 7))
		b := pacing.NewJitter(rand.NewPCG(7, 7))
		for i := 0; i < 10; i++ {
			assert.Equal(t, a.Draw(r), b.Draw(r))
		}
	})
}

func TestWallClock(t *testing.T) {
	t.Run("returns after the duration", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, pacing.WallClock.Sleep(context.Background(), 5*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	})

	t.Run("returns early on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := pacing.WallClock.Sleep(ctx, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCooldown(t *testing.T) {
	t.Run("trips after threshold and resets", func(t *testing.T) {
		c := pacing.NewCooldown(2, time.Minute)

		c.OnFailure()
		_, ok := c.Take()
		assert.False(t, ok)

		c.OnFailure()
		d, ok := c.Take()
		assert.True(t, ok)
		assert.Equal(t, time.Minute, d)

		_, ok = c.Take()
		assert.False(t, ok)
		assert.Equal(t, 0, c.ConsecutiveFails())
	})

	t.Run("success clears the streak", func(t *testing.T) {
		c := pacing.NewCooldown(2, time.Minute)

		c.OnFailure()
		c.OnSuccess()
		c.OnFailure()

		_, ok := c.Take()
		assert.False(t, ok)
	})

	t.Run("zero threshold never trips", func(t *testing.T) {
		c := pacing.NewCooldown(0, time.Minute)
		for i := 0; i < 10; i++ {
			c.OnFailure()
		}

		_, ok := c.Take()
		assert.False(t, ok)
	})
}

// Package pacing decides how long to wait between actions and performs the wait.
package pacing

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jmehdipour/wa-bulk-sender/internal/model"
)

// Jitter draws uniform random durations from a DelayRange.
type Jitter struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewJitter builds a Jitter over src; tests pass a seeded source.
func NewJitter(src rand.Source) *Jitter {
	return &Jitter{rnd: rand.New(src)}
}

// NewRandomJitter seeds from the runtime's random generator.
func NewRandomJitter() *Jitter {
	return NewJitter(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Draw returns d with r.Min <= d <= r.Max. r must be valid.
func (j *Jitter) Draw(r model.DelayRange) time.Duration {
	span := r.Max - r.Min
	if span <= 0 {
		return r.Min
	}

	j.mu.Lock()
	n := j.rnd.Int64N(int64(span) + 1)
	j.mu.Unlock()

	return r.Min + time.Duration(n)
}

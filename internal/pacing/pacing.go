// Package pacing spaces out commands sent to the host with bounded random delays.
package pacing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Range is a closed-open delay interval [Min, Max).
type Range struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// Validate rejects negative or inverted ranges.
func (r Range) Validate() error {
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("pacing range %v-%v: negative bound", r.Min, r.Max)
	}
	if r.Max < r.Min {
		return fmt.Errorf("pacing range %v-%v: max below min", r.Min, r.Max)
	}
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("%v-%v", r.Min, r.Max)
}

// Default delay ranges observed against the host.
var (
	Placement = Range{Min: 400 * time.Millisecond, Max: 700 * time.Millisecond}
	Cooldown  = Range{Min: 2500 * time.Millisecond, Max: 4500 * time.Millisecond}
	PackStep  = Range{Min: 1500 * time.Millisecond, Max: 2500 * time.Millisecond}
)

// Sleeper suspends the caller for a delay drawn from a Range.
type Sleeper interface {
	Sleep(ctx context.Context, r Range) error
}

// Pacer is the production Sleeper.
type Pacer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Pacer seeded from seed.
func New(seed uint64) *Pacer {
	return &Pacer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandom returns a Pacer with a random seed.
func NewRandom() *Pacer {
	return New(rand.Uint64())
}

// Draw picks a delay in r.
func (p *Pacer) Draw(r Range) time.Duration {
	span := r.Max - r.Min
	if span <= 0 {
		return r.Min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return r.Min + time.Duration(p.rng.Int64N(int64(span)))
}

// Sleep waits for a drawn delay or until ctx is done.
func (p *Pacer) Sleep(ctx context.Context, r Range) error {
	d := p.Draw(r)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Recorder is a Sleeper that never blocks and remembers what it was asked for.
type Recorder struct {
	mu     sync.Mutex
	Ranges []Range
	// Hook, when set, runs on every Sleep call.
	Hook func(r Range)
}

func (r *Recorder) Sleep(ctx context.Context, rg Range) error {
	r.mu.Lock()
	r.Ranges = append(r.Ranges, rg)
	hook := r.Hook
	r.mu.Unlock()
	if hook != nil {
		hook(rg)
	}
	return ctx.Err()
}

// Count returns how many sleeps with range rg were requested.
func (r *Recorder) Count(rg Range) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.Ranges {
		if got == rg {
			n++
		}
	}
	return n
}

// Package readiness tracks which host surfaces have come up in this session.
//
// The host initializes its services asynchronously and offers no notification,
// so the Gate polls. Flags are monotonic: once a surface has been seen it is
// reported ready for the rest of the session.
package readiness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Dami4lola/Ea-script/internal/logging"
	"github.com/Dami4lola/Ea-script/internal/surface"
)

// State is a snapshot of the readiness flags.
type State struct {
	Challenge bool `json:"challenge"`
	Inventory bool `json:"inventory"`
	Store     bool `json:"store"`
}

// Ready reports the flag for k.
func (s State) Ready(k surface.Kind) bool {
	switch k {
	case surface.Challenge:
		return s.Challenge
	case surface.Inventory:
		return s.Inventory
	case surface.Store:
		return s.Store
	}
	return false
}

// Mark returns ✔ for a ready surface and … otherwise.
func Mark(ready bool) string {
	if ready {
		return "✔"
	}
	return "…"
}

// Line renders the flags as the one-line services status.
func (s State) Line() string {
	return fmt.Sprintf("Services — %s:%s  %s:%s  %s:%s",
		surface.Challenge.Label(), Mark(s.Challenge),
		surface.Inventory.Label(), Mark(s.Inventory),
		surface.Store.Label(), Mark(s.Store))
}

// Gate owns the readiness flags for one session.
type Gate struct {
	services surface.Services

	mu       sync.RWMutex
	state    State
	onChange []func(State)
}

// NewGate returns a Gate with every flag down.
func NewGate(services surface.Services) *Gate {
	return &Gate{services: services}
}

// OnChange registers fn to be called after a probe raises a flag.
func (g *Gate) OnChange(fn func(State)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = append(g.onChange, fn)
}

// Probe inspects the services once and raises the flag of every surface that
// is present. It never lowers a flag. It reports whether anything changed.
func (g *Gate) Probe() bool {
	seen := State{
		Challenge: surface.Present(g.services, surface.Challenge),
		Inventory: surface.Present(g.services, surface.Inventory),
		Store:     surface.Present(g.services, surface.Store),
	}

	g.mu.Lock()
	before := g.state
	g.state.Challenge = g.state.Challenge || seen.Challenge
	g.state.Inventory = g.state.Inventory || seen.Inventory
	g.state.Store = g.state.Store || seen.Store
	after := g.state
	listeners := append([]func(State){}, g.onChange...)
	g.mu.Unlock()

	if after == before {
		return false
	}
	logging.Readiness("surfaces now challenge=%v inventory=%v store=%v", after.Challenge, after.Inventory, after.Store)
	for _, fn := range listeners {
		fn(after)
	}
	return true
}

// IsReady reports whether surface k has been observed.
func (g *Gate) IsReady(k surface.Kind) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Ready(k)
}

// State returns a snapshot of all flags.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Require returns a SurfaceUnavailable error for the first surface in kinds
// that is not ready. A surface that is not flagged yet but present right now
// is accepted after an on-demand probe.
func (g *Gate) Require(op string, kinds ...surface.Kind) error {
	for _, k := range kinds {
		if g.IsReady(k) {
			continue
		}
		g.Probe()
		if !g.IsReady(k) {
			logging.ReadinessDebug("%s blocked: %s surface not ready", op, k)
			return surface.Unavailable(op, k)
		}
	}
	return nil
}

// Run probes on a fixed cadence until ctx is done.
func (g *Gate) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 900 * time.Millisecond
	}
	g.Probe()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			g.Probe()
		}
	}
}

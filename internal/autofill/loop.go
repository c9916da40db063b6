// Package autofill runs the fill/submit loop against the live challenge.
//
// A run moves Idle → Filling → Submitting → Cooldown and back to Filling until
// the inventory runs dry or the operator stops it. The stop flag is read in one
// place only, at the Cooldown → Filling transition, so a pass that has started
// is always submitted.
package autofill

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Dami4lola/Ea-script/internal/logging"
	"github.com/Dami4lola/Ea-script/internal/pacing"
	"github.com/Dami4lola/Ea-script/internal/surface"
	"github.com/Dami4lola/Ea-script/internal/templates"
)

// State is the loop's position in its state machine.
type State int

const (
	Idle State = iota
	Filling
	Submitting
	Cooldown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Filling:
		return "filling"
	case Submitting:
		return "submitting"
	case Cooldown:
		return "cooldown"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome says why a run returned to Idle.
type Outcome int

const (
	// Stopped covers operator stops, failed preconditions and host errors.
	Stopped Outcome = iota
	// Exhausted means a pass placed nothing.
	Exhausted
)

func (o Outcome) String() string {
	if o == Exhausted {
		return "exhausted"
	}
	return "stopped"
}

// Result summarizes one run.
type Result struct {
	RunID   string
	Outcome Outcome
	// Passes is the number of challenges submitted during the run.
	Passes int
	// Placed is the number of placement commands issued.
	Placed int
	Err    error
}

// ErrRunning is returned by Start when a run is already active.
var ErrRunning = errors.New("autofill: loop already running")

// Gate is the readiness check the loop runs before starting.
type Gate interface {
	Require(op string, kinds ...surface.Kind) error
}

// TemplateSource supplies slot lists.
type TemplateSource interface {
	Get(id string) (templates.Template, bool)
}

// LockSource supplies the ids that must never be placed.
type LockSource interface {
	IDs() map[string]struct{}
}

// Config holds the loop's delay ranges.
type Config struct {
	Placement pacing.Range
	Cooldown  pacing.Range
}

// DefaultConfig returns the standard pacing.
func DefaultConfig() Config {
	return Config{Placement: pacing.Placement, Cooldown: pacing.Cooldown}
}

// Deps are the collaborators a Loop needs.
type Deps struct {
	Services  surface.Services
	Gate      Gate
	Templates TemplateSource
	Locks     LockSource
	Sleeper   pacing.Sleeper
	Config    Config
	// Audit records every command sent to the host; nil uses logging.Audit().
	Audit *logging.AuditLogger
}

// Status is what the loop reports to listeners.
type Status struct {
	State     State
	Completed int64
}

// Loop is the fill/submit automation for one session.
type Loop struct {
	deps Deps

	completed atomic.Int64

	// ctl guards running and stop. A run is running from Reserve until it
	// returns, so a Stop in that window always reaches it.
	ctl     sync.Mutex
	running bool
	stop    bool

	mu       sync.RWMutex
	state    State
	onChange []func(Status)
}

// New builds a Loop. A nil Sleeper gets a randomly seeded Pacer.
func New(deps Deps) *Loop {
	if deps.Sleeper == nil {
		deps.Sleeper = pacing.NewRandom()
	}
	if deps.Config == (Config{}) {
		deps.Config = DefaultConfig()
	}
	return &Loop{deps: deps}
}

// OnChange registers fn for state and counter changes.
func (l *Loop) OnChange(fn func(Status)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// State returns the current state.
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Completed returns the number of successful submits this session.
func (l *Loop) Completed() int64 {
	return l.completed.Load()
}

// Running reports whether a run is active.
func (l *Loop) Running() bool {
	l.ctl.Lock()
	defer l.ctl.Unlock()
	return l.running
}

// Stop asks the active or reserved run to halt after its current pass. It has
// no effect when idle.
func (l *Loop) Stop() {
	l.ctl.Lock()
	defer l.ctl.Unlock()
	if !l.running {
		logging.AutofillDebug("stop ignored: no run")
		return
	}
	l.stop = true
	logging.Autofill("stop requested")
}

func (l *Loop) stopRequested() bool {
	l.ctl.Lock()
	defer l.ctl.Unlock()
	return l.stop
}

func (l *Loop) release() {
	l.ctl.Lock()
	l.running = false
	l.stop = false
	l.ctl.Unlock()
}

// Reserve claims the loop for one run on templateID and returns the function
// that performs it. Stop requests made after Reserve returns apply to that
// run. The returned function must be called exactly once.
func (l *Loop) Reserve(templateID string) (func(context.Context) (Result, error), error) {
	l.ctl.Lock()
	defer l.ctl.Unlock()
	if l.running {
		return nil, ErrRunning
	}
	l.running = true
	l.stop = false
	return func(ctx context.Context) (Result, error) {
		defer l.release()
		return l.run(ctx, templateID)
	}, nil
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	listeners := append([]func(Status){}, l.onChange...)
	l.mu.Unlock()

	st := Status{State: s, Completed: l.completed.Load()}
	for _, fn := range listeners {
		fn(st)
	}
}

// Start runs the loop for templateID and blocks until it returns to Idle.
// The returned error is the Result's Err; an operator stop or an exhausted
// inventory returns nil.
func (l *Loop) Start(ctx context.Context, templateID string) (Result, error) {
	run, err := l.Reserve(templateID)
	if err != nil {
		return Result{Outcome: Stopped, Err: err}, err
	}
	return run(ctx)
}

func (l *Loop) run(ctx context.Context, templateID string) (Result, error) {
	res := Result{RunID: uuid.NewString(), Outcome: Stopped}
	log := logging.Get(logging.CategoryAutofill).With("run", res.RunID)
	audit := l.audit().WithRun(res.RunID)
	started := time.Now()

	finish := func(outcome Outcome, err error) (Result, error) {
		res.Outcome = outcome
		res.Err = err
		l.setState(Idle)
		audit.RunEnd(outcome.String(), res.Passes, res.Placed, time.Since(started).Milliseconds(), err)
		if err != nil {
			log.Warn("run ended %s after %d passes: %v", outcome, res.Passes, err)
		} else {
			log.Info("run ended %s after %d passes (%d placed)", outcome, res.Passes, res.Placed)
		}
		return res, err
	}

	const op = "autofill"
	if err := l.deps.Gate.Require(op, surface.Challenge, surface.Inventory); err != nil {
		return finish(Stopped, err)
	}
	tpl, ok := l.lookup(templateID)
	if !ok {
		return finish(Stopped, surface.NoTemplate(op))
	}
	log.Info("starting on template %s (%d slots)", tpl.ChallengeID, len(tpl.Positions))
	audit.RunStart(tpl.ChallengeID)

	for {
		l.setState(Filling)
		placed, err := l.fill(ctx, tpl, audit)
		res.Placed += placed
		if err != nil {
			return finish(Stopped, err)
		}
		if placed == 0 {
			return finish(Exhausted, nil)
		}

		l.setState(Submitting)
		if err := l.submit(ctx, audit); err != nil {
			return finish(Stopped, err)
		}
		res.Passes++
		l.completed.Add(1)

		l.setState(Cooldown)
		log.Debug("pass %d submitted, cooling down", res.Passes)
		if err := l.deps.Sleeper.Sleep(ctx, l.deps.Config.Cooldown); err != nil {
			return finish(Stopped, err)
		}

		if l.stopRequested() {
			return finish(Stopped, nil)
		}
	}
}

func (l *Loop) audit() *logging.AuditLogger {
	if l.deps.Audit != nil {
		return l.deps.Audit
	}
	return logging.Audit()
}

func (l *Loop) lookup(id string) (templates.Template, bool) {
	if id == "" || l.deps.Templates == nil {
		return templates.Template{}, false
	}
	tpl, ok := l.deps.Templates.Get(id)
	if !ok || len(tpl.Positions) == 0 {
		return templates.Template{}, false
	}
	return tpl, true
}

func (l *Loop) locked() map[string]struct{} {
	if l.deps.Locks == nil {
		return nil
	}
	return l.deps.Locks.IDs()
}

// fill runs one Filling pass and returns the number of items placed.
func (l *Loop) fill(ctx context.Context, tpl templates.Template, audit *logging.AuditLogger) (int, error) {
	const op = "fill pass"
	club, ok := l.deps.Services.Club()
	if !ok {
		return 0, surface.Unavailable(op, surface.Inventory)
	}
	items, err := club.RequestClubPlayers(ctx)
	if err != nil {
		return 0, fmt.Errorf("request club players: %w", err)
	}

	plan := Plan(Candidates(items, l.locked()), tpl.Positions)
	logging.AutofillDebug("pass plan: %d of %d slots matched from %d items", Matched(plan), len(plan), len(items))

	placed := 0
	for _, p := range plan {
		if !p.Matched {
			continue
		}
		ch, ok := l.deps.Services.Challenge()
		if !ok {
			logging.AutofillWarn("challenge closed after %d placements", placed)
			return placed, surface.Unavailable(op, surface.Challenge)
		}
		err := ch.PlacePlayerInSlot(ctx, tpl.ChallengeID, p.Position, p.Item.ID)
		audit.Place(tpl.ChallengeID, p.Position, p.Item.ID, err)
		if err != nil {
			logging.AutofillError("place %s in %s: %v", p.Item.ID, p.Position, err)
			return placed, fmt.Errorf("place %s in %s slot %d: %w", p.Item.ID, p.Position, p.Slot, err)
		}
		placed++
		if err := l.deps.Sleeper.Sleep(ctx, l.deps.Config.Placement); err != nil {
			return placed, err
		}
	}
	return placed, nil
}

// submit submits whichever challenge is open now.
func (l *Loop) submit(ctx context.Context, audit *logging.AuditLogger) error {
	const op = "submit"
	ch, ok := l.deps.Services.Challenge()
	if !ok {
		return surface.Unavailable(op, surface.Challenge)
	}
	info, err := ch.CurrentChallenge(ctx)
	if err != nil {
		return fmt.Errorf("read current challenge: %w", err)
	}
	err = ch.SubmitChallenge(ctx, info.ID)
	audit.Submit(info.ID, err)
	if err != nil {
		logging.AutofillError("submit %s: %v", info.ID, err)
		return fmt.Errorf("submit challenge %s: %w", info.ID, err)
	}
	return nil
}

// DryRun plans one pass for templateID without issuing any command.
func (l *Loop) DryRun(ctx context.Context, templateID string) ([]Placement, error) {
	const op = "dry run"
	if err := l.deps.Gate.Require(op, surface.Inventory); err != nil {
		return nil, err
	}
	tpl, ok := l.lookup(templateID)
	if !ok {
		return nil, surface.NoTemplate(op)
	}
	club, ok := l.deps.Services.Club()
	if !ok {
		return nil, surface.Unavailable(op, surface.Inventory)
	}
	items, err := club.RequestClubPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("request club players: %w", err)
	}
	return Plan(Candidates(items, l.locked()), tpl.Positions), nil
}

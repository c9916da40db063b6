// Package session builds and owns every core object for one operator session.
//
// A Session is constructed once at startup and passed by reference to the CLI
// and the dock. It enforces that at most one automation (the fill loop or the
// pack opener) runs at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Dami4lola/Ea-script/internal/autofill"
	"github.com/Dami4lola/Ea-script/internal/config"
	"github.com/Dami4lola/Ea-script/internal/locks"
	"github.com/Dami4lola/Ea-script/internal/logging"
	"github.com/Dami4lola/Ea-script/internal/packs"
	"github.com/Dami4lola/Ea-script/internal/pacing"
	"github.com/Dami4lola/Ea-script/internal/readiness"
	"github.com/Dami4lola/Ea-script/internal/store"
	"github.com/Dami4lola/Ea-script/internal/surface"
	"github.com/Dami4lola/Ea-script/internal/templates"
)

// ErrBusy is returned when an automation is requested while another runs.
var ErrBusy = errors.New("another automation is already running")

// Automation names used by the busy guard.
const (
	AutomationAutofill = "autofill"
	AutomationPacks    = "packs"
)

// Deps are the externally built pieces a Session wraps.
type Deps struct {
	Config   *config.Config
	Services surface.Services
	Blobs    store.BlobStore
	// Sleeper overrides pacing; nil uses a randomly seeded Pacer.
	Sleeper pacing.Sleeper
	// Closers run in reverse order on Close.
	Closers []io.Closer
}

// Session is one operator session.
type Session struct {
	// ID correlates the audit log of one session.
	ID string

	cfg      *config.Config
	audit    *logging.AuditLogger
	opened   time.Time
	services surface.Services
	closers  []io.Closer

	Gate      *readiness.Gate
	Locks     *locks.Registry
	Templates *templates.Registry
	Loop      *autofill.Loop
	Opener    *packs.Opener

	mu       sync.Mutex
	active   string
	selected string
	closed   bool
}

// New constructs a Session from deps, loading both registries.
func New(deps Deps) (*Session, error) {
	if deps.Services == nil || deps.Blobs == nil {
		return nil, errors.New("session: services and blob store are required")
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	sleeper := deps.Sleeper
	if sleeper == nil {
		sleeper = pacing.NewRandom()
	}

	lockReg, err := locks.Open(deps.Blobs)
	if err != nil {
		return nil, fmt.Errorf("open lock registry: %w", err)
	}
	tplReg, err := templates.Open(deps.Blobs)
	if err != nil {
		return nil, fmt.Errorf("open template registry: %w", err)
	}

	id := uuid.NewString()
	audit := logging.AuditWithSession(id)
	gate := readiness.NewGate(deps.Services)
	s := &Session{
		ID:        id,
		audit:     audit,
		opened:    time.Now(),
		cfg:       cfg,
		services:  deps.Services,
		closers:   deps.Closers,
		Gate:      gate,
		Locks:     lockReg,
		Templates: tplReg,
		Loop: autofill.New(autofill.Deps{
			Services:  deps.Services,
			Gate:      gate,
			Templates: tplReg,
			Locks:     lockReg,
			Sleeper:   sleeper,
			Audit:     audit,
			Config: autofill.Config{
				Placement: cfg.Pacing.Placement,
				Cooldown:  cfg.Pacing.Cooldown,
			},
		}),
		Opener: packs.NewOpener(deps.Services, gate, sleeper, cfg.Pacing.PackStep),
	}
	lockReg.SetAudit(audit.WithCategory(logging.CategoryLocks))
	tplReg.SetAudit(audit.WithCategory(logging.CategoryTemplates))
	s.Opener.SetAudit(audit.WithCategory(logging.CategoryPacks))
	if list := tplReg.List(); len(list) > 0 {
		s.selected = list[0].ChallengeID
	}
	logging.Session("session %s ready: %d templates, %d locked", id, len(tplReg.List()), lockReg.Len())
	audit.SessionStart(len(tplReg.List()), lockReg.Len())
	return s, nil
}

// Services returns the host surfaces.
func (s *Session) Services() surface.Services {
	return s.services
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Serve runs the readiness probe beside fn and returns when fn does. The probe
// is stopped once fn returns. One probe completes before fn starts.
func (s *Session) Serve(ctx context.Context, fn func(ctx context.Context) error) error {
	s.Gate.Probe()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.Gate.Run(gctx, s.cfg.GetProbeInterval())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer cancel()
		return fn(gctx)
	})
	return g.Wait()
}

func (s *Session) acquire(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != "" {
		logging.SessionWarn("%s refused: %s is running", name, s.active)
		return fmt.Errorf("%s: %w (%s)", name, ErrBusy, s.active)
	}
	s.active = name
	logging.SessionDebug("%s acquired the automation guard", name)
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	logging.SessionDebug("%s released the automation guard", s.active)
	s.active = ""
	s.mu.Unlock()
}

// Active returns the running automation, or "" when idle.
func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Select makes id the template used by RunSelected.
func (s *Session) Select(id string) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
	logging.SessionDebug("selected template %q", id)
}

// Selected returns the selected template id.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// BeginAutofill claims the automation guard and reserves the fill loop for
// templateID, returning the function that runs it. StopAutofill calls made
// after BeginAutofill returns reach that run even if it has not started yet.
// The returned function must be called exactly once.
func (s *Session) BeginAutofill(templateID string) (func(context.Context) (autofill.Result, error), error) {
	if _, ok := s.Templates.Get(templateID); !ok {
		return nil, surface.NoTemplate(AutomationAutofill)
	}
	if err := s.acquire(AutomationAutofill); err != nil {
		return nil, err
	}
	run, err := s.Loop.Reserve(templateID)
	if err != nil {
		s.release()
		return nil, fmt.Errorf("%s: %w", AutomationAutofill, err)
	}
	return func(ctx context.Context) (autofill.Result, error) {
		defer s.release()
		return run(ctx)
	}, nil
}

// BeginSelected is BeginAutofill on the selected template.
func (s *Session) BeginSelected() (func(context.Context) (autofill.Result, error), error) {
	return s.BeginAutofill(s.Selected())
}

// RunAutofill runs the fill loop on templateID until it stops.
func (s *Session) RunAutofill(ctx context.Context, templateID string) (autofill.Result, error) {
	run, err := s.BeginAutofill(templateID)
	if err != nil {
		return autofill.Result{Outcome: autofill.Stopped, Err: err}, err
	}
	return run(ctx)
}

// RunSelected runs the fill loop on the selected template.
func (s *Session) RunSelected(ctx context.Context) (autofill.Result, error) {
	return s.RunAutofill(ctx, s.Selected())
}

// StopAutofill asks the fill loop to stop after its current pass.
func (s *Session) StopAutofill() {
	s.Loop.Stop()
}

// OpenPacks opens every unopened pack.
func (s *Session) OpenPacks(ctx context.Context) (packs.Report, error) {
	if err := s.acquire(AutomationPacks); err != nil {
		return packs.Report{}, err
	}
	defer s.release()
	return s.Opener.OpenAll(ctx)
}

// CaptureTemplate saves the live challenge as a template and selects it.
func (s *Session) CaptureTemplate(ctx context.Context) (templates.Template, error) {
	t, err := s.Templates.Capture(ctx, s.services, s.Gate)
	if err != nil {
		return t, err
	}
	s.Select(t.ChallengeID)
	return t, nil
}

// Status is a snapshot for status lines.
type Status struct {
	Readiness readiness.State
	LoopState autofill.State
	Completed int64
	Active    string
	Selected  string
	Templates int
	Locked    int
}

// Status returns the current snapshot.
func (s *Session) Status() Status {
	s.mu.Lock()
	active, selected := s.active, s.selected
	s.mu.Unlock()
	return Status{
		Readiness: s.Gate.State(),
		LoopState: s.Loop.State(),
		Completed: s.Loop.Completed(),
		Active:    active,
		Selected:  selected,
		Templates: len(s.Templates.List()),
		Locked:    s.Locks.Len(),
	}
}

// Close releases the store and browser in reverse order of acquisition.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	s.audit.SessionEnd(time.Since(s.opened).Milliseconds(), err)
	return err
}

package session

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/Dami4lola/Ea-script/internal/browser"
	"github.com/Dami4lola/Ea-script/internal/config"
	"github.com/Dami4lola/Ea-script/internal/logging"
	"github.com/Dami4lola/Ea-script/internal/store"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// BrowserDir is where a launched browser's control URL is recorded.
func BrowserDir(workspace string) string {
	return filepath.Join(workspace, config.DirName, "browser")
}

// BrowserConfig maps the configuration onto the browser package, attaching to
// a browser started by "browser launch" when no debugger URL is configured.
func BrowserConfig(cfg *config.Config, workspace string) browser.Config {
	bc := browser.Config{
		DebuggerURL:       cfg.Browser.DebuggerURL,
		Launch:            cfg.Browser.Launch,
		Headless:          cfg.Browser.Headless,
		AppURL:            cfg.Browser.AppURL,
		UserDataDir:       cfg.Browser.UserDataDir,
		NavigationTimeout: cfg.GetNavigationTimeout(),
		EvalTimeout:       cfg.GetEvalTimeout(),
	}
	if bc.DebuggerURL == "" {
		bc.DebuggerURL = browser.ReadControlURL(BrowserDir(workspace))
	}
	return bc
}

// Open connects to the host app through Chrome, opens the blob database and
// builds a Session over them.
func Open(ctx context.Context, cfg *config.Config, workspace string) (*Session, *browser.Bridge, error) {
	timer := logging.StartTimer(logging.CategorySession, "Open")
	defer timer.Stop()

	blobs, err := store.NewSQLiteStore(cfg.ResolveDatabasePath(workspace))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	mgr := browser.NewManager(BrowserConfig(cfg, workspace))
	eval, err := mgr.Evaluator(ctx)
	if err != nil {
		_ = blobs.Close()
		return nil, nil, fmt.Errorf("connect to app: %w", err)
	}
	bridge := browser.NewBridge(eval)

	s, err := New(Deps{
		Config:   cfg,
		Services: bridge,
		Blobs:    blobs,
		Closers: []io.Closer{
			blobs,
			closerFunc(func() error { return mgr.Shutdown(context.Background()) }),
		},
	})
	if err != nil {
		_ = mgr.Shutdown(context.Background())
		_ = blobs.Close()
		return nil, nil, err
	}
	if info, ok := mgr.Info(); ok {
		logging.Session("bound to tab %s (%s)", info.TargetID, info.URL)
	}
	return s, bridge, nil
}

// LegacySource reads blobs stored by the in-page version of the tools.
type LegacySource interface {
	LocalStorage(ctx context.Context, key string) ([]byte, bool, error)
}

// ImportReport counts what ImportLegacy merged.
type ImportReport struct {
	Templates int
	Locks     int
}

// ImportLegacy merges templates and locks kept in the app's localStorage.
func (s *Session) ImportLegacy(ctx context.Context, src LegacySource) (ImportReport, error) {
	var rep ImportReport

	raw, ok, err := src.LocalStorage(ctx, store.KeyTemplates)
	if err != nil {
		return rep, fmt.Errorf("read legacy templates: %w", err)
	}
	if ok {
		if rep.Templates, err = s.Templates.Import(raw); err != nil {
			return rep, err
		}
	}

	raw, ok, err = src.LocalStorage(ctx, store.KeyLocks)
	if err != nil {
		return rep, fmt.Errorf("read legacy locks: %w", err)
	}
	if ok {
		if rep.Locks, err = s.Locks.Import(raw); err != nil {
			return rep, err
		}
	}

	if s.Selected() == "" {
		if list := s.Templates.List(); len(list) > 0 {
			s.Select(list[0].ChallengeID)
		}
	}
	logging.Session("imported %d templates and %d locks from localStorage", rep.Templates, rep.Locks)
	s.audit.Import(rep.Templates, rep.Locks)
	return rep, nil
}

// Package browser drives the host web app through Chrome DevTools.
//
// The Manager owns the Chrome connection and the single app tab. The Bridge
// exposes the app's in-page services as surface.Services by evaluating small
// JS functions in that tab.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"github.com/Dami4lola/Ea-script/internal/logging"
)

// ControlFile is the name of the file holding a launched browser's control URL.
const ControlFile = "control.txt"

// Config holds browser configuration.
type Config struct {
	DebuggerURL       string
	Launch            []string
	Headless          bool
	AppURL            string
	UserDataDir       string
	NavigationTimeout time.Duration
	EvalTimeout       time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		AppURL:            "https://www.ea.com/ea-sports-fc/ultimate-team/web-app/",
		NavigationTimeout: 60 * time.Second,
		EvalTimeout:       30 * time.Second,
	}
}

func (c Config) navigationTimeout() time.Duration {
	if c.NavigationTimeout <= 0 {
		return 60 * time.Second
	}
	return c.NavigationTimeout
}

func (c Config) evalTimeout() time.Duration {
	if c.EvalTimeout <= 0 {
		return 30 * time.Second
	}
	return c.EvalTimeout
}

// Info describes the connected tab.
type Info struct {
	SessionID   string    `json:"session_id"`
	TargetID    string    `json:"target_id,omitempty"`
	URL         string    `json:"url,omitempty"`
	Title       string    `json:"title,omitempty"`
	ControlURL  string    `json:"control_url"`
	Launched    bool      `json:"launched"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Manager owns the Chrome connection and the app tab.
type Manager struct {
	cfg Config

	mu         sync.RWMutex
	browser    *rod.Browser
	controlURL string
	launched   bool
	page       *rod.Page
	info       Info
}

// NewManager creates a manager. Nothing connects until Start.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Start connects to an existing Chrome or launches a new one.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("stale browser connection detected, reconnecting")
		m.resetLocked()
	}

	controlURL := m.cfg.DebuggerURL
	launched := false
	if controlURL == "" {
		url, err := m.launch()
		if err != nil {
			return err
		}
		controlURL = url
		launched = true
	}

	// The connection outlives ctx so Shutdown can still close a launched browser.
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	m.browser = browser
	m.controlURL = controlURL
	m.launched = launched
	logging.Browser("connected to chrome (launched=%v)", launched)
	return nil
}

func (m *Manager) launch() (string, error) {
	l := launcher.New().Headless(m.cfg.Headless).Leakless(false)
	if len(m.cfg.Launch) > 0 {
		l = l.Bin(m.cfg.Launch[0])
		for _, rawFlag := range m.cfg.Launch[1:] {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				l = l.Set(flags.Flag(name), val)
			} else {
				l = l.Set(flags.Flag(name))
			}
		}
	}
	if m.cfg.UserDataDir != "" {
		l = l.UserDataDir(m.cfg.UserDataDir)
	}

	url, err := l.Launch()
	if err != nil {
		logging.BrowserError("launch chrome: %v", err)
		return "", fmt.Errorf("launch chrome: %w", err)
	}
	return url, nil
}

func (m *Manager) resetLocked() {
	if m.browser != nil && m.launched {
		_ = m.browser.Close()
	}
	m.browser = nil
	m.controlURL = ""
	m.launched = false
	m.page = nil
	m.info = Info{}
}

// ControlURL returns the WebSocket debugger URL.
func (m *Manager) ControlURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controlURL
}

// IsConnected returns whether the browser is connected.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil
}

// AppPage returns the tab showing the app, attaching to an open one when its
// URL starts with the configured app URL and opening a new one otherwise.
func (m *Manager) AppPage(ctx context.Context) (*rod.Page, error) {
	if err := m.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page != nil {
		return m.page, nil
	}
	if m.browser == nil {
		return nil, errors.New("browser not connected")
	}

	pages, err := m.browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if m.cfg.AppURL != "" && strings.HasPrefix(info.URL, m.cfg.AppURL) {
			m.bindLocked(p, info)
			logging.Browser("attached to app tab %s", info.TargetID)
			return p, nil
		}
	}

	p, err := m.browser.Page(proto.TargetCreateTarget{URL: m.cfg.AppURL})
	if err != nil {
		return nil, fmt.Errorf("open app tab: %w", err)
	}
	if err := p.Context(ctx).Timeout(m.cfg.navigationTimeout()).WaitLoad(); err != nil {
		logging.BrowserWarn("app tab load wait: %v", err)
	}
	info, err := p.Info()
	if err != nil {
		info = &proto.TargetTargetInfo{TargetID: p.TargetID, URL: m.cfg.AppURL}
	}
	m.bindLocked(p, info)
	logging.Browser("opened app tab %s", info.TargetID)
	return p, nil
}

func (m *Manager) bindLocked(p *rod.Page, info *proto.TargetTargetInfo) {
	m.page = p
	m.info = Info{
		SessionID:   uuid.NewString(),
		TargetID:    string(info.TargetID),
		URL:         info.URL,
		Title:       info.Title,
		ControlURL:  m.controlURL,
		Launched:    m.launched,
		ConnectedAt: time.Now(),
	}
}

// Info returns metadata for the bound tab.
func (m *Manager) Info() (Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.info, m.page != nil
}

// Evaluator returns an Evaluator on the app tab.
func (m *Manager) Evaluator(ctx context.Context) (Evaluator, error) {
	p, err := m.AppPage(ctx)
	if err != nil {
		return nil, err
	}
	return &pageEvaluator{page: p, timeout: m.cfg.evalTimeout()}, nil
}

// Shutdown drops the connection. A browser this manager launched is closed;
// an attached one is left running.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.browser != nil && m.launched {
		err = m.browser.Close()
	}
	m.browser = nil
	m.controlURL = ""
	m.launched = false
	m.page = nil
	m.info = Info{}
	return err
}

// WriteControlURL records url under dir for later commands to attach to.
func WriteControlURL(dir, url string) (string, error) {
	path := filepath.Join(dir, ControlFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, []byte(url), 0o644)
}

// ReadControlURL returns the control URL recorded under dir, or "" when none.
func ReadControlURL(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, ControlFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

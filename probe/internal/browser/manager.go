// CLAUDE:SUMMARY Manages the Chrome lifecycle for a crawl: local launch or remote connect, optional Xvfb, stealth sessions.
// Package browser manages the Chrome instance a crawl drives: start,
// connect via Rod, open one stealth tab per site visit, shut down.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrNoSession is returned when a session is requested before Start or
// after Close.
var ErrNoSession = errors.New("browser: no active browser")

// Mode controls how Chrome is displayed.
type Mode int

const (
	ModeHeadless Mode = 1 // Rod headless + stealth
	ModeHeadful  Mode = 2 // Rod headful + Xvfb
)

// ParseMode maps the config names "headless" and "headful".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "headless":
		return ModeHeadless, nil
	case "headful":
		return ModeHeadful, nil
	}
	return 0, fmt.Errorf("browser: unknown mode %q", s)
}

func (m Mode) String() string {
	if m == ModeHeadful {
		return "headful"
	}
	return "headless"
}

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	// Mode sets headless or headful. Default: ModeHeadless.
	Mode Mode

	// XvfbDisplay for headful mode. Default: ":99".
	XvfbDisplay string

	// Window size of launched Chrome and of each session's viewport.
	// Default: 1366x768.
	WindowWidth, WindowHeight int

	// NavigationTimeout bounds one navigation including the load event.
	// Default: 60s.
	NavigationTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Mode == 0 {
		c.Mode = ModeHeadless
	}
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.WindowWidth <= 0 {
		c.WindowWidth = 1366
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 768
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager manages Chrome lifecycle.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	xvfb    *exec.Cmd
	closed  bool
}

// NewManager creates a browser Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance).
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return nil
	}

	b, err := m.launch(ctx)
	if err != nil {
		m.cleanup()
		return err
	}
	m.browser = b
	return nil
}

// OpenSession opens a fresh stealth tab sized to the configured window.
// The caller closes the session when the visit is over.
func (m *Manager) OpenSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	b := m.browser
	m.mu.Unlock()
	if b == nil {
		return nil, ErrNoSession
	}

	page, err := stealth.Page(b.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	page = page.Context(context.Background())

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.WindowWidth,
		Height:            m.cfg.WindowHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	s := &Session{page: page, navTimeout: m.cfg.NavigationTimeout, logger: m.cfg.Logger}
	if len(m.cfg.ResourceBlocking) > 0 {
		s.router = applyResourceBlocking(page, m.cfg.ResourceBlocking)
	}
	return s, nil
}

// Close shuts down Chrome and Xvfb.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	if m.cfg.Mode == ModeHeadful && m.cfg.RemoteURL == "" {
		if err := m.startXvfb(); err != nil {
			return nil, fmt.Errorf("browser: xvfb: %w", err)
		}
	}

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx)
		if m.cfg.Mode == ModeHeadful {
			l = l.Headless(false).Env("DISPLAY=" + m.cfg.XvfbDisplay)
		} else {
			l = l.Headless(true)
		}

		// Anti-detection flags.
		l = l.Set("disable-blink-features", "AutomationControlled").
			Set("window-size", strconv.Itoa(m.cfg.WindowWidth)+","+strconv.Itoa(m.cfg.WindowHeight))

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "mode", m.cfg.Mode)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	// Ad creatives are often served from misconfigured hosts.
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	return b, nil
}

func (m *Manager) cleanup() error {
	var err error
	if m.browser != nil {
		if m.cfg.RemoteURL == "" {
			err = m.browser.Close()
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.stopXvfb()
	return err
}

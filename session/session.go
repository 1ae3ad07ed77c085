// Package session owns one browser conversation with the chat surface:
// launch, stealth, navigation, prompt submission, and the low-level text
// and clipboard reads the acquisition strategies build on.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/moisson/humanize"
)

// Config configures a session.
type Config struct {
	// SurfaceURL is the chat surface to drive.
	SurfaceURL string

	// ProfileDir is the persistent browser profile directory. Cookies and
	// login state live here between runs.
	ProfileDir string

	// Headless runs the browser without a window. Default: true.
	Headless *bool

	// Proxy is an optional proxy host:port.
	Proxy string

	// NavigateTimeout bounds initial navigation. Default: 60s.
	NavigateTimeout time.Duration

	// LoginGrace is how long to wait when a sign-in wall is detected,
	// giving a persistent profile time to restore its session. Default: 10s.
	LoginGrace time.Duration

	// InputSelectors are tried in order when locating the prompt input.
	InputSelectors []string

	// InputAttempts is how many passes over the selectors to make before
	// giving up. Default: 3, with InputRetryPause between passes.
	InputAttempts   int
	InputRetryPause time.Duration

	// Humanize bounds pointer and keyboard motion.
	Humanize humanize.Config

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Headless == nil {
		t := true
		c.Headless = &t
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 60 * time.Second
	}
	if c.LoginGrace <= 0 {
		c.LoginGrace = 10 * time.Second
	}
	if len(c.InputSelectors) == 0 {
		c.InputSelectors = []string{
			`div.ql-editor[contenteditable="true"]`,
			`rich-textarea div[contenteditable="true"]`,
			`div[contenteditable="true"]`,
			`textarea`,
		}
	}
	if c.InputAttempts <= 0 {
		c.InputAttempts = 3
	}
	if c.InputRetryPause <= 0 {
		c.InputRetryPause = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session is one live conversation. Not safe for concurrent use; the
// orchestrator serializes access per subject.
type Session struct {
	cfg    Config
	lnch   *launcher.Launcher
	brow   *rod.Browser
	page   *rod.Page
	cursor *humanize.Cursor
	closed bool
}

// Open launches the browser, applies stealth, navigates to the surface
// and waits out any sign-in interstitial.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	cfg.defaults()
	log := cfg.Logger

	l := launcher.New().
		Headless(*cfg.Headless).
		Set("disable-blink-features", "AutomationControlled")
	if cfg.ProfileDir != "" {
		l = l.UserDataDir(cfg.ProfileDir)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	wsURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("session: launch: %w", err)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("session: connect: %w", err)
	}

	s := &Session{cfg: cfg, lnch: l, brow: b, cursor: humanize.NewCursor(cfg.Humanize, nil)}

	page, err := stealth.Page(b)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("session: stealth page: %w", err)
	}
	s.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: 1366, Height: 768, DeviceScaleFactor: 1,
	}); err != nil {
		log.Warn("session: set viewport failed", "error", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, cfg.NavigateTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(cfg.SurfaceURL); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrNavigationTimeout, cfg.SurfaceURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrNavigationTimeout, cfg.SurfaceURL, err)
	}

	s.awaitLogin(ctx)
	return s, nil
}

// awaitLogin waits LoginGrace when a sign-in wall is visible. A
// persistent profile usually restores its session in that window; a
// surface that stays walled still degrades to anonymous answers.
func (s *Session) awaitLogin(ctx context.Context) {
	res, err := s.page.Context(ctx).Eval(`() => {
		const t = document.body ? document.body.innerText : '';
		return /sign in|log in/i.test(t.slice(0, 2000));
	}`)
	if err != nil || !res.Value.Bool() {
		return
	}
	s.cfg.Logger.Warn("session: sign-in wall detected, waiting", "grace", s.cfg.LoginGrace)
	select {
	case <-ctx.Done():
	case <-time.After(s.cfg.LoginGrace):
	}
}

// SubmitPrompt locates the prompt input, clicks it like a person, types
// the prompt and presses Enter. Typing falls back to a direct value set
// when the surface rejects synthetic keystrokes.
func (s *Session) SubmitPrompt(ctx context.Context, prompt string) error {
	el, selector, err := s.findInput(ctx)
	if err != nil {
		return err
	}
	s.cfg.Logger.Debug("session: prompt input found", "selector", selector)

	if err := s.cursor.Click(s.page.Context(ctx), el); err != nil {
		return fmt.Errorf("session: click input: %w", err)
	}
	if err := s.cursor.Type(s.page.Context(ctx), prompt); err != nil {
		s.cfg.Logger.Debug("session: humanized typing failed, setting value", "error", err)
		if err := el.Input(prompt); err != nil {
			return fmt.Errorf("session: set prompt: %w", err)
		}
	}
	if err := s.page.Context(ctx).Keyboard.Press(input.Enter); err != nil {
		return fmt.Errorf("session: submit: %w", err)
	}
	return nil
}

func (s *Session) findInput(ctx context.Context) (*rod.Element, string, error) {
	for attempt := 0; attempt < s.cfg.InputAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(s.cfg.InputRetryPause):
			}
		}
		for _, sel := range s.cfg.InputSelectors {
			el, err := s.page.Context(ctx).Sleeper(rod.NotFoundSleeper).Element(sel)
			if err != nil {
				continue
			}
			if visible, err := el.Visible(); err != nil || !visible {
				continue
			}
			return el, sel, nil
		}
	}
	return nil, "", ErrInputNotFound
}

// Page exposes the underlying page for strategy-level reads.
func (s *Session) Page() *rod.Page {
	return s.page
}

// Close is idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.page != nil {
		s.page.Close()
	}
	if s.brow != nil {
		s.brow.Close()
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
	}
	return nil
}

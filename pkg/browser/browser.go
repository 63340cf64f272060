package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/classlist/internal/logger"
)

// Error types for run-fatal browser failures.
// Check with errors.Is(err, browser.ErrLogin).
var (
	// ErrLogin indicates the sign-in flow did not reach the back office.
	ErrLogin = errors.New("login failed")
	// ErrCalendarUnavailable indicates the calendar view could not be opened.
	ErrCalendarUnavailable = errors.New("calendar unavailable")
)

const (
	usernameField = `input[name="username"]`
	passwordField = `#password`
)

// Browser is a single Chrome tab driven through the sign-in and calendar
// flow. It implements session.Page once the calendar is open.
type Browser struct {
	cfg         Config
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	ctx         context.Context
	cancelCtx   context.CancelFunc
}

// New launches Chrome and opens a blank tab.
func New(cfg Config) (*Browser, error) {
	def := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CalendarNav == "" {
		cfg.CalendarNav = def.CalendarNav
	}
	if cfg.CalendarView == "" {
		cfg.CalendarView = def.CalendarView
	}
	if cfg.RewindControl == "" {
		cfg.RewindControl = def.RewindControl
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	for name, value := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}

	// chromedp's default lookup may miss some installs, so a failed
	// discovery still lets it try.
	execPath, err := resolveChromePath(cfg.ExecPath)
	switch {
	case err != nil && cfg.ExecPath != "":
		return nil, err
	case err != nil:
		logger.Warn("Chrome discovery failed, using chromedp default", "error", err)
	default:
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	// Running no actions starts the browser and its first tab.
	if err := chromedp.Run(ctx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	logger.Debug("browser started",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
		"profile", cfg.ProfileDir != "",
		"exec_path", execPath)

	return &Browser{
		cfg:         cfg,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		ctx:         ctx,
		cancelCtx:   cancelCtx,
	}, nil
}

// allocatorFlags returns the Chrome switches for cfg. They are applied on top
// of chromedp.DefaultExecAllocatorOptions; a false value removes a switch.
func allocatorFlags(cfg Config) map[string]any {
	flags := map[string]any{
		"headless":               cfg.Headless,
		"disable-gpu":            cfg.Headless,
		"no-sandbox":             true,
		"disable-dev-shm-usage":  true,
		"start-maximized":        true,
		"disable-infobars":       true,
		"disable-popup-blocking": true,
		"disable-notifications":  true,
		"disable-blink-features": "AutomationControlled",
	}
	if cfg.ProfileDir != "" {
		flags["user-data-dir"] = cfg.ProfileDir
		if cfg.ProfileName != "" {
			flags["profile-directory"] = cfg.ProfileName
		}
	}
	if cfg.Stealth {
		for name, value := range stealthFlags() {
			flags[name] = value
		}
	}
	return flags
}

// scoped derives a context from the tab context that is also cancelled when
// ctx is. chromedp actions must run on the tab context; cancelling a context
// derived from it does not close the tab.
func (b *Browser) scoped(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(b.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(b.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// Login signs in with creds and waits for the back office navigation.
func (b *Browser) Login(ctx context.Context, creds Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("%w: username and password are required", ErrLogin)
	}

	runCtx, cancel := b.scoped(ctx, b.cfg.Timeout)
	defer cancel()

	var actions []chromedp.Action
	if b.cfg.Stealth {
		actions = append(actions, injectStealthScript())
	}
	actions = append(actions,
		chromedp.Navigate(b.cfg.SignInURL),
		chromedp.WaitReady(usernameField, chromedp.ByQuery),
		chromedp.Clear(usernameField, chromedp.ByQuery),
		chromedp.SendKeys(usernameField, creds.Username, chromedp.ByQuery),
		chromedp.WaitReady(passwordField, chromedp.ByQuery),
		chromedp.Clear(passwordField, chromedp.ByQuery),
		chromedp.SendKeys(passwordField, creds.Password+kb.Enter, chromedp.ByQuery),
		chromedp.WaitReady(b.cfg.CalendarNav, chromedp.BySearch),
	)

	logger.Debug("signing in", "url", b.cfg.SignInURL, "user", creds.Username)
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrLogin, err)
	}
	logger.Info("logged in", "user", creds.Username)
	return nil
}

// OpenCalendar switches the back office to the calendar view.
func (b *Browser) OpenCalendar(ctx context.Context) error {
	runCtx, cancel := b.scoped(ctx, b.cfg.Timeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Click(b.cfg.CalendarNav, chromedp.BySearch),
		chromedp.WaitReady(b.cfg.CalendarView, chromedp.BySearch),
		chromedp.Sleep(b.cfg.SettleDelay),
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrCalendarUnavailable, err)
	}
	logger.Info("calendar opened")
	return nil
}

// Rewind moves the calendar back by pages periods.
func (b *Browser) Rewind(ctx context.Context, pages int) error {
	for i := 0; i < pages; i++ {
		runCtx, cancel := b.scoped(ctx, b.cfg.Timeout)
		err := chromedp.Run(runCtx,
			chromedp.Click(b.cfg.RewindControl, chromedp.BySearch),
			chromedp.Sleep(b.cfg.SettleDelay),
		)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: rewind %d/%d: %v", ErrCalendarUnavailable, i+1, pages, err)
		}
	}
	if pages > 0 {
		logger.Info("calendar rewound", "pages", pages)
	}
	return nil
}

// Diagnostics lists the artifacts written by SaveDiagnostics.
type Diagnostics struct {
	Screenshot string
	HTML       string
}

// SaveDiagnostics writes a full-page screenshot and the page HTML under dir.
// It runs on the tab context so it still works after the run context has
// been cancelled.
func (b *Browser) SaveDiagnostics(dir, label string) (Diagnostics, error) {
	ctx, cancel := context.WithTimeout(b.ctx, 10*time.Second)
	defer cancel()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Diagnostics{}, fmt.Errorf("create diagnostics dir: %w", err)
	}
	base := filepath.Join(dir, fmt.Sprintf("%s-%s", label, time.Now().Format("20060102-150405")))

	var d Diagnostics
	var errs []error

	var shot []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&shot, 90)); err != nil {
		errs = append(errs, fmt.Errorf("capture screenshot: %w", err))
	} else if err := os.WriteFile(base+".png", shot, 0o644); err != nil {
		errs = append(errs, err)
	} else {
		d.Screenshot = base + ".png"
	}

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		errs = append(errs, fmt.Errorf("capture html: %w", err))
	} else if err := os.WriteFile(base+".html", []byte(html), 0o644); err != nil {
		errs = append(errs, err)
	} else {
		d.HTML = base + ".html"
	}

	logger.Info("diagnostics saved",
		"screenshot", d.Screenshot,
		"screenshot_size", humanize.Bytes(uint64(len(shot))),
		"html", d.HTML,
		"html_size", humanize.Bytes(uint64(len(html))))

	return d, errors.Join(errs...)
}

// Close shuts down the tab and the browser process.
func (b *Browser) Close() {
	b.cancelCtx()
	b.cancelAlloc()
}

package applicator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"autoapply/internal/config"
	"autoapply/internal/logging"
	"autoapply/internal/logging/types"
	"autoapply/pkg/models"
)

// BrowserApplicator fills and submits application forms with a headless
// browser. It targets the simple name/email/phone forms that remote boards
// host; anything it cannot recognize is a permanent failure so the job falls
// back to the email path on retry-exhaustion instead of looping.
type BrowserApplicator struct {
	config   *config.Config
	launcher *launcher.Launcher
	logger   types.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowserApplicator creates a browser applicator. The browser itself is
// launched lazily on the first Apply.
func NewBrowserApplicator(cfg *config.Config) *BrowserApplicator {
	logger := logging.GetGlobalLogger()

	l := launcher.New().
		Headless(cfg.Automation.HeadlessMode).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-web-security").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	// Use system-installed Chrome/Chromium instead of downloading
	if chromePath := systemChromePath(); chromePath != "" {
		l = l.Bin(chromePath)
		logger.Info("Using system Chrome browser", map[string]interface{}{
			"chrome_path": chromePath,
		})
	}

	if cfg.Automation.UserAgent != "" {
		l = l.Set("user-agent", cfg.Automation.UserAgent)
	}

	return &BrowserApplicator{
		config:   cfg,
		launcher: l,
		logger:   logger,
	}
}

func (b *BrowserApplicator) Apply(ctx context.Context, posting *models.Posting, profile *models.Profile) (Outcome, error) {
	targetURL := posting.ApplicationURL
	if targetURL == "" {
		targetURL = posting.URL
	}
	if targetURL == "" {
		return "", &PermanentError{Err: fmt.Errorf("posting %s has no application url", posting.ID())}
	}

	page, err := b.newPage()
	if err != nil {
		return "", &TransientError{Err: err}
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(b.config.Automation.NavigationTimeout)

	if err := page.Navigate(targetURL); err != nil {
		return "", classifyNavigationError(err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", classifyNavigationError(err)
	}

	if err := b.fillAndSubmit(page, profile); err != nil {
		return "", err
	}

	b.logger.Info("Application form submitted", map[string]interface{}{
		"job_id": posting.ID(),
		"url":    targetURL,
	})

	return OutcomeApplied, nil
}

// fillAndSubmit locates the application form, fills the contact fields, and
// clicks the submit control.
func (b *BrowserApplicator) fillAndSubmit(page *rod.Page, profile *models.Profile) error {
	form, err := page.Element("form")
	if err != nil {
		return &PermanentError{Err: fmt.Errorf("no application form on page: %w", err)}
	}

	fields := []struct {
		selectors []string
		value     string
	}{
		{[]string{`input[name*="name" i]`, `input[id*="name" i]`}, profile.Contact.Name},
		{[]string{`input[type="email"]`, `input[name*="email" i]`}, profile.Contact.Email},
		{[]string{`input[type="tel"]`, `input[name*="phone" i]`}, profile.Contact.Phone},
	}

	filled := 0
	for _, field := range fields {
		if field.value == "" {
			continue
		}
		for _, selector := range field.selectors {
			input, err := form.Element(selector)
			if err != nil {
				continue
			}
			if err := input.Input(field.value); err != nil {
				continue
			}
			filled++
			break
		}
	}

	// A form we could not put an email into is not an application form
	if filled == 0 {
		return &PermanentError{Err: errors.New("no recognizable contact fields in form")}
	}

	submit, err := form.Element(`button[type="submit"], input[type="submit"]`)
	if err != nil {
		return &PermanentError{Err: fmt.Errorf("no submit control in form: %w", err)}
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return &TransientError{Err: fmt.Errorf("submit click failed: %w", err)}
	}

	if err := page.WaitLoad(); err != nil {
		return &TransientError{Err: fmt.Errorf("post-submit load failed: %w", err)}
	}

	return nil
}

// newPage returns a stealth page on the shared browser, launching it on
// first use.
func (b *BrowserApplicator) newPage() (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		url, err := b.launcher.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}

		browser := rod.New().ControlURL(url)
		if err := browser.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to browser: %w", err)
		}
		b.browser = browser
	}

	var page *rod.Page
	var err error
	if b.config.Automation.StealthMode {
		page, err = stealth.Page(b.browser)
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		b.logger.Warn("Failed to set viewport", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return page, nil
}

// Close shuts the shared browser down
func (b *BrowserApplicator) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		err := b.browser.Close()
		b.browser = nil
		return err
	}
	return nil
}

func classifyNavigationError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TransientError{Err: err}
	}
	return &TransientError{Err: fmt.Errorf("navigation failed: %w", err)}
}

// systemChromePath finds the system-installed Chrome/Chromium browser
func systemChromePath() string {
	paths := []string{
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	if path := os.Getenv("CHROME_PATH"); path != "" {
		if strings.TrimSpace(path) != "" {
			return path
		}
	}
	return ""
}

var _ Applicator = (*BrowserApplicator)(nil)

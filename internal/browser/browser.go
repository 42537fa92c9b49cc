// internal/browser/browser.go

// Package browser implements the dom capability interfaces against live
// Chrome tabs driven over CDP. One Browser owns the Chrome process; each
// Open call navigates a fresh tab and hands it back as a dom.Document.
// Element handles are selector-addressed, the same data-fp-id / data-fp-ref
// scheme memdom uses, so handles survive page re-renders as long as the
// successor node keeps the tag.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/dom"
)

// stabilizeDelay runs after the document reports ready, giving SPA
// hydration a beat to attach its widgets before the scanner reads the tree.
const stabilizeDelay = 500 * time.Millisecond

// Browser owns the Chrome process lifecycle. The process launch is
// deferred until the first Open so construction stays cheap and fallible
// work happens where a context is available.
type Browser struct {
	cfg config.BrowserConfig
	log *zap.Logger

	initOnce sync.Once
	initErr  error

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// New creates a browser manager. Chrome is not started yet.
func New(cfg config.BrowserConfig, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{cfg: cfg, log: logger.Named("browser")}
}

// initialize launches the Chrome process once.
func (b *Browser) initialize() error {
	b.initOnce.Do(func() {
		b.log.Debug("Launching browser process.", zap.Bool("headless", b.cfg.Headless))

		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOptions(b.cfg)...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)

		// Starting the first target eagerly surfaces launch failures here
		// instead of on the first navigation.
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			b.initErr = fmt.Errorf("launching browser: %w", err)
			return
		}

		b.allocCancel = allocCancel
		b.browserCtx = browserCtx
		b.browserCancel = browserCancel
	})
	return b.initErr
}

// execOptions translates the browser config into chromedp allocator options.
func execOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		// Required on hardened systems where the kernel denies Chrome's own
		// sandbox, and recommended for stability in containers.
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	// Extra flags from the config file's 'args' slice.
	for _, arg := range cfg.Args {
		if !strings.Contains(arg, "=") {
			opts = append(opts, chromedp.Flag(strings.TrimPrefix(arg, "--"), true))
			continue
		}
		parts := strings.SplitN(arg, "=", 2)
		opts = append(opts, chromedp.Flag(strings.TrimPrefix(parts[0], "--"), parts[1]))
	}
	return opts
}

// Open navigates a fresh tab to target and returns the loaded page with a
// closer for the tab. This is the live-page half of the engine's Opener
// contract; file targets go through memdom instead.
func (b *Browser) Open(ctx context.Context, target string) (dom.Document, func() error, error) {
	if err := b.initialize(); err != nil {
		return nil, nil, err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, nil, fmt.Errorf("browser is closed")
	}
	b.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)

	navTimeout := b.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 60 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(ctx, navTimeout)
	defer navCancel()

	runCtx, runCancel := CombineContext(tabCtx, navCtx)
	defer runCancel()

	var loc string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(stabilizeDelay),
		chromedp.Location(&loc),
	)
	if err != nil {
		tabCancel()
		if navCtx.Err() == context.DeadlineExceeded {
			return nil, nil, fmt.Errorf("navigation to %s timed out after %v: %w", target, navTimeout, navCtx.Err())
		}
		return nil, nil, fmt.Errorf("navigation to %s failed: %w", target, err)
	}

	b.log.Debug("Page opened.", zap.String("url", loc))
	page := newPage(tabCtx, tabCancel, loc, b.cfg, b.log)
	return page, page.close, nil
}

// Close shuts down every tab and the Chrome process. Open calls after
// Close fail.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	return nil
}

package browser

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/wirepair/gcd"
)

var startupFlags = []string{
	"--enable-automation",
	"--test-type",
	"--disable-client-side-phishing-detection",
	"--disable-component-update",
	"--disable-infobars",
	"--disable-domain-reliability",
	"--disable-background-networking",
	"--disable-sync",
	"--disable-new-browser-first-run",
	"--disable-default-apps",
	"--disable-popup-blocking",
	"--disable-extensions",
	"--disable-features=TranslateUI",
	"--disable-gpu",
	"--disable-dev-shm-usage",
	"--no-sandbox",
	"--no-first-run",
	"--window-size=1024,768",
	"--safebrowsing-disable-auto-update",
	"--password-store=basic",
	"--headless",
	"about:blank",
}

// Pool of running browsers, each Take opens a fresh tab
type Pool struct {
	maxBrowsers      int
	acquiredBrowsers int32
	acquireErrors    int32
	browsers         chan *gcd.Gcd
	closing          int32
	leaser           LeaserService
	startCount       int32
}

// NewPool of maxBrowsers started by leaser
func NewPool(maxBrowsers int, leaser LeaserService) *Pool {
	if maxBrowsers <= 0 {
		maxBrowsers = 1
	}
	b := &Pool{}
	b.maxBrowsers = maxBrowsers
	b.leaser = leaser
	b.browsers = make(chan *gcd.Gcd, b.maxBrowsers)
	return b
}

// Init starts the browser pool
func (b *Pool) Init() error {
	if _, err := b.leaser.Cleanup(); err != nil {
		return err
	}
	return b.Start()
}

// Start creates maxBrowsers browsers, fails if none of them came up
func (b *Pool) Start() error {
	// allow 10 seconds per browser
	timeoutCtx, cancel := context.WithTimeout(context.Background(), time.Second*time.Duration(b.maxBrowsers*10))
	defer cancel()

	log.Info().Int("browsers", b.maxBrowsers).Msg("creating browsers")
	b.browsers = make(chan *gcd.Gcd, b.maxBrowsers)

	currentCount := atomic.AddInt32(&b.startCount, 1)
	for i := 0; i < b.maxBrowsers; i++ {
		b.returnBrowser(timeoutCtx, nil, currentCount) // passing nil will just create a new one for us
	}

	count, _ := b.leaser.Count()
	if count == "0" {
		return errors.New("no browsers could be started")
	}
	log.Info().Str("count", count).Msg("browsers created")
	return nil
}

// Acquire a browser, unless context expired
func (b *Pool) Acquire(ctx context.Context) *gcd.Gcd {
	select {
	case browser := <-b.browsers:
		if browser != nil {
			atomic.AddInt32(&b.acquiredBrowsers, 1)
		}
		return browser
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("failed to acquire browser from pool")
		atomic.AddInt32(&b.acquireErrors, 1)
		return nil
	}
}

func (b *Pool) returnBrowser(ctx context.Context, browser *gcd.Gcd, startCount int32) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()
	doneCh := make(chan struct{})

	go b.closeAndCreateBrowser(browser, doneCh, startCount)

	select {
	case <-timeoutCtx.Done():
		log.Error().Msg("failed to closeAndCreateBrowser in time")
	case <-doneCh:
		return
	}
}

// closeAndCreateBrowser takes an optional browser to close, and creates a new one, closing doneCh
// to signal it completed (although it may be a nil browser if error occurred).
func (b *Pool) closeAndCreateBrowser(browser *gcd.Gcd, doneCh chan struct{}, startCount int32) {
	defer close(doneCh)
	if browser != nil {
		if err := b.leaser.Return(browser.Port()); err != nil {
			log.Error().Err(err).Msg("failed to return browser")
		}
		atomic.AddInt32(&b.acquiredBrowsers, -1)
	}

	// if we've restarted or are closing we don't want to create another one
	if atomic.LoadInt32(&b.startCount) != startCount || atomic.LoadInt32(&b.closing) == 1 {
		return
	}

	port, err := b.leaser.Acquire()
	if err != nil {
		log.Warn().Err(err).Msg("unable to acquire new browser")
		b.browsers <- nil
		return
	}

	browser = gcd.NewChromeDebugger()
	if err := browser.ConnectToInstance("localhost", port); err != nil {
		log.Warn().Err(err).Msg("failed to connect to instance")
		browser = nil
	}
	b.browsers <- browser
}

// Take a browser and open a new tab in it. Give the tab back with Return.
func (b *Pool) Take(ctx context.Context) (*Tab, error) {
	if atomic.LoadInt32(&b.closing) == 1 {
		return nil, ErrBrowserClosing
	}

	browser := b.Acquire(ctx)
	if browser == nil {
		return nil, errors.New("browser acquisition failed during Take")
	}

	target, err := browser.NewTab()
	if err != nil {
		b.Return(ctx, &Tab{g: browser})
		return nil, &InvalidTabErr{Message: err.Error()}
	}

	log.Ctx(ctx).Info().Int32("acquired", atomic.LoadInt32(&b.acquiredBrowsers)).Int32("errors", atomic.LoadInt32(&b.acquireErrors)).Msg("acquired browser")
	return NewTab(ctx, browser, target), nil
}

// Return a tab, its browser is destroyed and replaced
func (b *Pool) Return(ctx context.Context, tab *Tab) {
	if tab.t != nil {
		tab.Close()
	}
	startCount := atomic.LoadInt32(&b.startCount)
	log.Ctx(ctx).Debug().Msg("closing browser")
	b.returnBrowser(ctx, tab.g, startCount)
}

// Close all browsers that were not taken and clean up the leaser
func (b *Pool) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&b.closing, 0, 1) {
		return nil
	}

	for len(b.browsers) > 0 {
		browser := b.Acquire(ctx)
		if browser != nil {
			if err := b.leaser.Return(browser.Port()); err != nil {
				log.Error().Err(err).Msg("failed to return browser")
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	_, err := b.leaser.Cleanup()
	return err
}

package extractor

import (
	"io"
	"time"
)

type options struct {
	timeout      time.Duration
	retainScript bool
	entropy      io.Reader
	injector     *Injector
	cleanupAfter time.Duration
}

// Option configures an Extraction
type Option func(*options)

func defaultOptions() *options {
	return &options{
		injector:     NewInjector(),
		cleanupAfter: 5 * time.Second,
	}
}

// WithTimeout rejects the result with pagevar.ErrTimedOut if nothing matched after d.
// Without it an extraction waits forever, same as the page would.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// RetainScript leaves the injected element in the document after settling
func RetainScript(retain bool) Option {
	return func(o *options) {
		o.retainScript = retain
	}
}

// WithEntropy replaces crypto/rand as the token source (tests only, really)
func WithEntropy(r io.Reader) Option {
	return func(o *options) {
		o.entropy = r
	}
}

// WithInjector overrides how the script element is built
func WithInjector(i *Injector) Option {
	return func(o *options) {
		o.injector = i
	}
}

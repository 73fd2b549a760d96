package sandbox

import (
	"time"

	"github.com/pkg/errors"
)

// Config for a sandboxed page
type Config struct {
	URL                   string        // document url, its origin is what postMessage targets are checked against
	ContentSecurityPolicy string        // overrides any <meta> policy when set
	ScriptTimeout         time.Duration // max run time of a single task
}

// DefaultConfig for an about:blank page
func DefaultConfig() Config {
	return Config{
		URL:           "about:blank",
		ScriptTimeout: 5 * time.Second,
	}
}

// LogEntry is one console call or page error
type LogEntry struct {
	Level   string // console method: log, info, warn, error or debug
	Message string // arguments joined by spaces
	Time    time.Time
}

// ScriptErr when a script evaluated through Evaluate throws
type ScriptErr struct {
	Message string
}

func (e *ScriptErr) Error() string {
	return "script error: " + e.Message
}

var (
	errCyclic       = errors.New("cyclic value could not be cloned")
	errCloneTimeout = errors.New("script timeout exceeded while cloning")
)

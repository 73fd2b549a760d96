package pagevar

import "github.com/pkg/errors"

// revive:exported
var (
	ErrNoEntropy  = errors.New("secure random source unavailable")
	ErrTimedOut   = errors.New("extraction timed out")
	ErrCancelled  = errors.New("extraction cancelled")
	ErrPageClosed = errors.New("page closed")
	ErrEmptyName  = errors.New("variable name is empty")
)

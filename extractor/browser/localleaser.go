package browser

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/wirepair/gcd"
)

// ErrNoChrome when no browser binary could be found
var ErrNoChrome = errors.New("unable to find a chrome or chromium binary")

// LocalLeaser starts chromium processes on this host
type LocalLeaser struct {
	browserLock sync.RWMutex
	browsers    map[string]*gcd.Gcd
	chromePath  string
	tmp         string
}

// NewLocalLeaser using chromePath, or the first browser FindChrome finds when empty
func NewLocalLeaser(chromePath string) *LocalLeaser {
	chrome, tmp := FindChrome()
	if chromePath != "" {
		chrome = chromePath
	}
	return &LocalLeaser{
		browserLock: sync.RWMutex{},
		browsers:    make(map[string]*gcd.Gcd),
		chromePath:  chrome,
		tmp:         tmp,
	}
}

// ChromePath the leaser starts
func (s *LocalLeaser) ChromePath() string {
	return s.chromePath
}

// Acquire starts a new browser and returns its debugger port
func (s *LocalLeaser) Acquire() (string, error) {
	if s.chromePath == "" {
		return "", ErrNoChrome
	}

	b := gcd.NewChromeDebugger()
	b.DeleteProfileOnExit()

	profileDir := randProfile(s.tmp)
	port := randPort()

	b.AddFlags(startupFlags)
	if err := b.StartProcess(s.chromePath, profileDir, port); err != nil {
		return "", errors.Wrap(err, "failed to start browser")
	}
	s.browserLock.Lock()
	s.browsers[port] = b
	s.browserLock.Unlock()

	log.Debug().Str("port", port).Str("chrome", s.chromePath).Msg("browser started")
	return port, nil
}

// Count of running browsers
func (s *LocalLeaser) Count() (string, error) {
	s.browserLock.RLock()
	count := len(s.browsers)
	s.browserLock.RUnlock()
	return strconv.Itoa(count), nil
}

// Return exits the browser on port
func (s *LocalLeaser) Return(port string) error {
	s.browserLock.Lock()
	defer s.browserLock.Unlock()

	if b, ok := s.browsers[port]; ok {
		delete(s.browsers, port)
		if err := b.ExitProcess(); err != nil {
			return err
		}
		return nil
	}

	return errors.New("not found")
}

// Cleanup exits every browser this leaser started and removes their profiles
func (s *LocalLeaser) Cleanup() (string, error) {
	s.browserLock.Lock()
	for port, b := range s.browsers {
		if err := b.ExitProcess(); err != nil {
			log.Warn().Err(err).Str("port", port).Msg("failed to exit browser")
		}
		delete(s.browsers, port)
	}
	s.browserLock.Unlock()

	if err := RemoveTmpContents(s.tmp); err != nil {
		return "", err
	}
	return "ok", nil
}

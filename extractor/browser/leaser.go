package browser

import (
	"net"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// LeaserService for a browser
type LeaserService interface {
	Acquire() (string, error) // returns port number
	Return(port string) error
	Cleanup() (string, error)
	Count() (string, error)
}

func randPort() string {
	l, err := net.Listen("tcp", ":0")

	if err != nil {
		log.Warn().Err(err).Msg("unable to get port using default 9022")
		return "9022"
	}
	_, randPort, _ := net.SplitHostPort(l.Addr().String())
	l.Close()
	return randPort
}

func randProfile(tmp string) string {
	if err := os.MkdirAll(tmp, 0700); err != nil {
		log.Error().Err(err).Str("tmp", tmp).Msg("failed to create profile root")
	}
	profile, err := os.MkdirTemp(tmp, "gcd")
	if err != nil {
		log.Error().Err(err).Msg("failed to create temporary profile directory")
		return "tmp"
	}
	if profile == "" {
		log.Fatal().Msg("profile returned empty which could delete system files on termination")
	}
	return profile
}

// RemoveTmpContents that the browser created
func RemoveTmpContents(tmp string) error {
	if tmp == "" {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(tmp, "gcd*"))
	if err != nil {
		return err
	}
	for _, file := range files {
		err = os.RemoveAll(file)
		if err != nil {
			return err
		}
	}
	return nil
}

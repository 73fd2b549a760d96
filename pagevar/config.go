package pagevar

import "time"

// Config for pagevar commands
type Config struct {
	URL                   string   // page to load
	File                  string   // local html file for the sandbox
	Variables             []string // globals to extract, one extraction each
	TimeoutSeconds        int      // 0 waits forever
	RetainScript          bool     // leave the injected element in the document
	DataPath              string   // history store, empty disables
	ChromePath            string   // overrides the per OS default
	WorldName             string   // name of the isolated world in chromium
	ContentSecurityPolicy string   // sandbox only, overrides any <meta> policy
}

// Timeout as a duration
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

package cli

import (
	"fmt"
	"strings"
)

// Config is the validated command line.
type Config struct {
	Paths     []string
	NoLogo    bool
	Verbose   bool
	LogFormat string
	// Modifications names the flag-changing options that were given.
	// Any entry makes the run fail.
	Modifications []string
}

// Modify reports whether the command line asked to rewrite flags.
func (c *Config) Modify() bool {
	return len(c.Modifications) > 0
}

// NewConfig validates c and fills in defaults.
func NewConfig(c Config) (*Config, error) {
	c.LogFormat = strings.ToLower(c.LogFormat)
	switch c.LogFormat {
	case "":
		c.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", c.LogFormat)
	}
	return &c, nil
}

// toggleValue checks the value of a +/- modification option.
func toggleValue(name, value string) error {
	if value != "+" && value != "-" {
		return fmt.Errorf("invalid value %q for --%s: must be '+' or '-'", value, name)
	}
	return nil
}

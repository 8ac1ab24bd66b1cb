package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
)

// Config is the parsed esvm configuration.
type Config struct {
	// Engines is the default selection for a fresh state file. Entries
	// are engine ids or display names.
	Engines []string `json:"engines,omitempty"`

	Download Download `json:"download"`

	// GitHubToken authenticates GitHub API requests. See Token.
	GitHubToken string `json:"-"`
}

// Download tunes the archive downloader.
type Download struct {
	Retries int           `json:"retries"`
	Timeout time.Duration `json:"timeout"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Download: Download{
			Retries: installer.DefaultRetries,
			Timeout: installer.DefaultTimeout,
		},
	}
}

// Token returns the GitHub token to use. A non-empty value from getenv
// (normally os.Getenv) wins over the configured one.
func (c *Config) Token(getenv func(string) string) string {
	if getenv != nil {
		if t := getenv(EnvGitHubToken); t != "" {
			return t
		}
	}
	return c.GitHubToken
}

// engineNamePattern matches engine ids and display names.
var engineNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Validate performs basic validation on a Config.
func (c *Config) Validate() error {
	if len(c.Engines) > MaxEngineCount {
		return &ValidationError{
			Field:   luaFieldEngines,
			Message: fmt.Sprintf("too many engines (%d), maximum is %d", len(c.Engines), MaxEngineCount),
		}
	}
	for i, name := range c.Engines {
		if !engineNamePattern.MatchString(name) {
			return &ValidationError{
				Field:   fmt.Sprintf("engines[%d]", i),
				Message: fmt.Sprintf("invalid engine name %q", name),
			}
		}
	}

	if c.Download.Retries < 1 || c.Download.Retries > MaxRetries {
		return &ValidationError{
			Field:   "download.retries",
			Message: fmt.Sprintf("must be between 1 and %d (got %d)", MaxRetries, c.Download.Retries),
		}
	}
	if c.Download.Timeout <= 0 {
		return &ValidationError{Field: "download.timeout", Message: "must be positive"}
	}
	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

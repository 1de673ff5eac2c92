package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".kadcrawl"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the YAML configuration file structure. Every field is optional;
// unset fields keep their built-in defaults. The file exists so that
// deployment-specific values (a mirror entry URL, newly observed
// throttling banners, slower pacing) can change without a rebuild.
type File struct {
	// BaseURL overrides the archive entry point.
	BaseURL string `yaml:"baseUrl,omitempty"`

	// RateLimitPhrases replaces the built-in throttling-banner list.
	RateLimitPhrases []string `yaml:"rateLimitPhrases,omitempty"`

	// Timeouts, all as Go duration strings ("45s", "2m").
	ChallengeTimeout  time.Duration `yaml:"challengeTimeout,omitempty"`
	NavigationTimeout time.Duration `yaml:"navigationTimeout,omitempty"`
	FetchTimeout      time.Duration `yaml:"fetchTimeout,omitempty"`

	// Pacing overrides.
	DocDelay   time.Duration `yaml:"docDelay,omitempty"`
	PageDelay  time.Duration `yaml:"pageDelay,omitempty"`
	BreakEvery int           `yaml:"breakEvery,omitempty"`
	BreakDelay time.Duration `yaml:"breakDelay,omitempty"`

	// Retry and concurrency overrides.
	MaxFetchRetries  int `yaml:"maxFetchRetries,omitempty"`
	FetchConcurrency int `yaml:"fetchConcurrency,omitempty"`

	// MinTextLength overrides the manual-review threshold.
	MinTextLength int `yaml:"minTextLength,omitempty"`

	// BrowserBin pins the browser binary to launch.
	BrowserBin string `yaml:"browserBin,omitempty"`
}

// LoadConfigFile loads overrides from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound; callers
// decide whether that is fatal based on whether the path was explicit.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file:
//  1. the explicit path, if given
//  2. .kadcrawl in the current directory
//  3. .kadcrawl in the XDG config directory
//
// Returns the path if found, or "".
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(XDGConfigDir(), DefaultConfigFile)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// Apply merges file overrides into the config. Only set (non-zero)
// fields override; everything else keeps its current value.
func (cf *File) Apply(c *Config) {
	if cf.BaseURL != "" {
		c.BaseURL = cf.BaseURL
	}
	if len(cf.RateLimitPhrases) > 0 {
		c.RateLimitPhrases = cf.RateLimitPhrases
	}
	if cf.ChallengeTimeout > 0 {
		c.ChallengeTimeout = cf.ChallengeTimeout
	}
	if cf.NavigationTimeout > 0 {
		c.NavigationTimeout = cf.NavigationTimeout
	}
	if cf.FetchTimeout > 0 {
		c.FetchTimeout = cf.FetchTimeout
	}
	if cf.DocDelay > 0 {
		c.DocDelay = cf.DocDelay
	}
	if cf.PageDelay > 0 {
		c.PageDelay = cf.PageDelay
	}
	if cf.BreakEvery > 0 {
		c.BreakEvery = cf.BreakEvery
	}
	if cf.BreakDelay > 0 {
		c.BreakDelay = cf.BreakDelay
	}
	if cf.MaxFetchRetries > 0 {
		c.MaxFetchRetries = cf.MaxFetchRetries
	}
	if cf.FetchConcurrency > 0 {
		c.FetchConcurrency = cf.FetchConcurrency
	}
	if cf.MinTextLength > 0 {
		c.MinTextLength = cf.MinTextLength
	}
	if cf.BrowserBin != "" {
		c.BrowserBin = cf.BrowserBin
	}
}

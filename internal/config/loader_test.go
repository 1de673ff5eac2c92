package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".kadcrawl")
	content := `
baseUrl: https://mirror.example/
challengeTimeout: 90s
docDelay: 5s
breakEvery: 20
maxFetchRetries: 5
rateLimitPhrases:
  - "custom banner"
browserBin: /usr/bin/chromium
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cf, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}
	if cf.BaseURL != "https://mirror.example/" {
		t.Errorf("BaseURL = %q", cf.BaseURL)
	}
	if cf.ChallengeTimeout != 90*time.Second {
		t.Errorf("ChallengeTimeout = %v, want 90s", cf.ChallengeTimeout)
	}
	if cf.BreakEvery != 20 {
		t.Errorf("BreakEvery = %d, want 20", cf.BreakEvery)
	}
	if len(cf.RateLimitPhrases) != 1 || cf.RateLimitPhrases[0] != "custom banner" {
		t.Errorf("RateLimitPhrases = %v", cf.RateLimitPhrases)
	}
}

func TestLoadConfigFileNotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadConfigFile() error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfigFileInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".kadcrawl")
	if err := os.WriteFile(path, []byte("baseUrl: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(path); err == nil {
		t.Error("LoadConfigFile() on invalid YAML = nil error")
	}
}

func TestFileApply(t *testing.T) {
	t.Parallel()

	c := New()
	cf := &File{
		BaseURL:         "https://mirror.example/",
		DocDelay:        10 * time.Second,
		MaxFetchRetries: 7,
	}
	cf.Apply(c)

	if c.BaseURL != "https://mirror.example/" {
		t.Errorf("BaseURL = %q, override not applied", c.BaseURL)
	}
	if c.DocDelay != 10*time.Second {
		t.Errorf("DocDelay = %v, override not applied", c.DocDelay)
	}
	if c.MaxFetchRetries != 7 {
		t.Errorf("MaxFetchRetries = %d, override not applied", c.MaxFetchRetries)
	}
	// Unset fields keep defaults.
	if c.FetchTimeout != DefaultFetchTimeout {
		t.Errorf("FetchTimeout = %v, want default preserved", c.FetchTimeout)
	}
	if len(c.RateLimitPhrases) != len(DefaultRateLimitPhrases()) {
		t.Errorf("RateLimitPhrases replaced by empty override")
	}
}

func TestFindConfigFileExplicit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "conf.yml")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(path); got != path {
		t.Errorf("FindConfigFile(explicit) = %q, want %q", got, path)
	}
	if got := FindConfigFile(filepath.Join(t.TempDir(), "absent")); got != "" {
		t.Errorf("FindConfigFile(missing explicit) = %q, want empty", got)
	}
}

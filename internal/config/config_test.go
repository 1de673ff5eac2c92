package config

import (
	"errors"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	c := New()
	if c.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL, DefaultBaseURL)
	}
	if !c.Headless {
		t.Error("Headless = false, want true by default")
	}
	if !c.Resume {
		t.Error("Resume = false, want true by default")
	}
	if c.FetchConcurrency != DefaultFetchConcurrency {
		t.Errorf("FetchConcurrency = %d, want %d", c.FetchConcurrency, DefaultFetchConcurrency)
	}
	if len(c.RateLimitPhrases) == 0 {
		t.Error("RateLimitPhrases empty by default")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v, want nil", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "empty base url", mutate: func(c *Config) { c.BaseURL = "" }, wantErr: ErrNoBaseURL},
		{name: "zero challenge timeout", mutate: func(c *Config) { c.ChallengeTimeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative fetch timeout", mutate: func(c *Config) { c.FetchTimeout = -time.Second }, wantErr: ErrInvalidTimeout},
		{name: "zero retries", mutate: func(c *Config) { c.MaxFetchRetries = 0 }, wantErr: ErrInvalidRetries},
		{name: "zero concurrency", mutate: func(c *Config) { c.FetchConcurrency = 0 }, wantErr: ErrInvalidConcurrency},
		{name: "negative min text length", mutate: func(c *Config) { c.MinTextLength = -1 }, wantErr: ErrInvalidMinTextLength},
		{name: "negative doc delay", mutate: func(c *Config) { c.DocDelay = -time.Second }, wantErr: ErrInvalidDelay},
		{name: "no phrases", mutate: func(c *Config) { c.RateLimitPhrases = nil }, wantErr: ErrNoRateLimitPhrases},
		{name: "no output root", mutate: func(c *Config) { c.OutputRoot = "" }, wantErr: ErrNoOutputRoot},
		{name: "zero delays are allowed", mutate: func(c *Config) { c.DocDelay, c.PageDelay, c.BreakDelay = 0, 0, 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := New()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultRateLimitPhrasesCopy(t *testing.T) {
	t.Parallel()

	a := DefaultRateLimitPhrases()
	a[0] = "mutated"
	b := DefaultRateLimitPhrases()
	if b[0] == "mutated" {
		t.Error("DefaultRateLimitPhrases() shares backing storage between calls")
	}
}

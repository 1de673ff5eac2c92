// Package config holds the kadcrawl configuration.
//
// Every magic number in the crawler (timeouts, pacing delays, retry
// budgets, rate-limit phrases, the manual-review text threshold) is a
// named field here with a documented default. Components receive the
// Config at construction; nothing reads global state.
//
// Precedence, lowest to highest: built-in defaults, the optional
// .kadcrawl YAML file, CLI flags.
package config

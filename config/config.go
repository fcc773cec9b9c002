// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the settings of the propertypal command.
package config

import (
	"os"
	"time"
)

// Config is the root configuration.
type Config struct {
	Geocoding Geocoding `yaml:"geocoding"`
	Google    Google    `yaml:"google"`

	// Destination is the address distances are measured to.
	Destination string `yaml:"destination"`

	// dotenv holds the values read from the .env file. They are consulted
	// after the process environment.
	dotenv map[string]string
}

// Geocoding configures the resolver and its cache.
type Geocoding struct {
	Providers    []string `yaml:"providers"`
	MaxRetries   int      `yaml:"max_retries"`
	BaseDelay    float64  `yaml:"base_delay"` // seconds
	CacheFile    string   `yaml:"cache_file"`
	CacheTTLDays int      `yaml:"cache_ttl_days"`

	// UserAgent identifies us to providers. Empty means the binary name and version.
	UserAgent string `yaml:"user_agent"`
}

// Google configures credential discovery for the Google provider.
type Google struct {
	// ADCKeyName is the display name of the API key looked up through
	// Application Default Credentials when no key is configured.
	ADCKeyName string `yaml:"adc_key_name"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Geocoding: Geocoding{
			Providers:    []string{"nominatim", "photon"},
			MaxRetries:   3,
			BaseDelay:    1.0,
			CacheFile:    ".cache/geocoding.json",
			CacheTTLDays: 30,
		},
	}
}

// BaseDelayDuration returns the base delay as a time.Duration.
func (g Geocoding) BaseDelayDuration() time.Duration {
	return time.Duration(g.BaseDelay * float64(time.Second))
}

// CacheTTL returns the cache time to live.
func (g Geocoding) CacheTTL() time.Duration {
	return time.Duration(g.CacheTTLDays) * 24 * time.Hour
}

// Lookup returns the value of an environment variable, falling back to the
// .env file. Credentials are read through it.
func (c *Config) Lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return c.dotenv[key]
}

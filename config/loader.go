// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the YAML file read when none is given.
	DefaultConfigFile = "propertypal.yaml"

	// DefaultEnvFile is the dotenv file read when none is given.
	DefaultEnvFile = ".env"
)

// Load returns a Config using the hierarchy: defaults < YAML < .env < ENV.
// Both files are optional; a missing file is not an error.
func Load(yamlPath, envPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	dotenv, err := loadDotenv(envPath)
	if err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}

	cfg.dotenv = dotenv

	if err := loadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

func loadDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return values, nil
}

// loadEnv overlays environment variables, then .env values, onto cfg.
// Only non-empty values override the current config.
func loadEnv(cfg *Config) error {
	var errs []error

	if v := cfg.Lookup("GEOCODING_PROVIDERS"); v != "" {
		cfg.Geocoding.Providers = SplitList(v)
	}

	errs = append(errs,
		setInt(cfg, &cfg.Geocoding.MaxRetries, "GEOCODING_MAX_RETRIES"),
		setFloat64(cfg, &cfg.Geocoding.BaseDelay, "GEOCODING_BASE_DELAY"),
		setInt(cfg, &cfg.Geocoding.CacheTTLDays, "GEOCODING_CACHE_TTL_DAYS"),
	)

	setString(cfg, &cfg.Geocoding.CacheFile, "GEOCODING_CACHE_FILE")
	setString(cfg, &cfg.Geocoding.UserAgent, "GEOCODING_USER_AGENT")
	setString(cfg, &cfg.Destination, "DESTINATION")
	setString(cfg, &cfg.Google.ADCKeyName, "GOOGLE_ADC_KEY_NAME")

	return errors.Join(errs...)
}

// Validate checks the ranges of the geocoding settings.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Geocoding.Providers) == 0 {
		errs = append(errs, errors.New("geocoding.providers must not be empty"))
	}

	if c.Geocoding.MaxRetries < 1 {
		errs = append(errs, errors.New("geocoding.max_retries must be >= 1"))
	}

	if c.Geocoding.BaseDelay < 0 {
		errs = append(errs, errors.New("geocoding.base_delay must be >= 0"))
	}

	if c.Geocoding.CacheTTLDays < 1 {
		errs = append(errs, errors.New("geocoding.cache_ttl_days must be >= 1"))
	}

	if c.Geocoding.CacheFile == "" {
		errs = append(errs, errors.New("geocoding.cache_file is required"))
	}

	return errors.Join(errs...)
}

// SplitList splits a comma separated list, dropping blank items.
func SplitList(s string) []string {
	var ret []string

	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			ret = append(ret, item)
		}
	}

	return ret
}

func setString(cfg *Config, dst *string, key string) {
	if v := cfg.Lookup(key); v != "" {
		*dst = v
	}
}

func setInt(cfg *Config, dst *int, key string) error {
	v := cfg.Lookup(key)
	if v == "" {
		return nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	*dst = n

	return nil
}

func setFloat64(cfg *Config, dst *float64, key string) error {
	v := cfg.Lookup(key)
	if v == "" {
		return nil
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	*dst = f

	return nil
}

// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/ZisisKostakakis/property-pal-scraper/cache"
	"github.com/ZisisKostakakis/property-pal-scraper/config"
	"github.com/ZisisKostakakis/property-pal-scraper/geocode"
	"github.com/ZisisKostakakis/property-pal-scraper/utils/httputils"
)

const googleKeyEnv = "GOOGLE_GEOCODING_API_KEY"

func newHTTPClient(cfg *config.Config) *http.Client {
	clientOptions := httputils.ClientOptions{
		UserAgent: cfg.Geocoding.UserAgent,
		TraceBody: options.TraceHTTPBody,
	}
	if options.TraceHTTP || options.TraceHTTPBody {
		clientOptions.Trace = os.Stderr
	}

	return httputils.NewClient(clientOptions)
}

// credentials resolves provider credentials from the environment. The
// Google key falls back to Application Default Credentials when a key name
// is configured.
func credentials(ctx context.Context, cfg *config.Config) func(string) string {
	return func(env string) string {
		v := cfg.Lookup(env)
		if v != "" || env != googleKeyEnv || cfg.Google.ADCKeyName == "" {
			return v
		}

		log.Printf("%s is not set. Attempting to retrieve via ADC...", googleKeyEnv)

		key, err := geocode.GoogleKeyFromADC(ctx, cfg.Google.ADCKeyName)
		if err != nil {
			log.Printf("⚠️  Failed to retrieve API key via ADC: %v", err)

			return ""
		}

		log.Println("✅ Successfully retrieved Google Maps API Key via ADC")

		return key
	}
}

func openCache(cfg *config.Config) *cache.Store {
	return cache.Open(cfg.Geocoding.CacheFile, cfg.Geocoding.CacheTTL())
}

// newService wires the configured providers, retry policy and cache.
func newService(ctx context.Context, cfg *config.Config, store *cache.Store, opts ...geocode.Option) (*geocode.Service, error) {
	providers := geocode.Select(
		geocode.Catalog(newHTTPClient(cfg)),
		cfg.Geocoding.Providers,
		credentials(ctx, cfg),
	)

	return geocode.New(
		geocode.Config{
			MaxRetries: cfg.Geocoding.MaxRetries,
			BaseDelay:  cfg.Geocoding.BaseDelayDuration(),
		},
		providers,
		store,
		opts...,
	)
}

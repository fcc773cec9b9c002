// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves free-text addresses to coordinates through an
// ordered list of geocoding providers, with retries, fallback and caching.
package geocode

import (
	"context"

	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
)

// Geocoder is implemented by every provider adapter.
//
// A successful call returns a non-nil point. Failures are reported as
// *GeocodingError; a provider without a match returns KindNotFound.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*spatial.Point, error)
}

// GeocoderFunc adapts a function to the Geocoder interface.
type GeocoderFunc func(ctx context.Context, address string) (*spatial.Point, error)

// Geocode implements Geocoder.
func (f GeocoderFunc) Geocode(ctx context.Context, address string) (*spatial.Point, error) {
	return f(ctx, address)
}

// ProviderConfig describes one provider in priority order.
type ProviderConfig struct {
	// Name identifies the provider in logs and configuration.
	Name string

	// RequiresCredential providers are skipped when Credential is empty.
	RequiresCredential bool

	// CredentialEnv is the environment variable the credential is read from.
	CredentialEnv string

	// Credential is the resolved credential value, if any.
	Credential string

	// New builds the adapter.
	New func(credential string) Geocoder
}

// Enabled reports whether the provider can be used.
func (p ProviderConfig) Enabled() bool {
	return p.New != nil && (!p.RequiresCredential || p.Credential != "")
}

// Debugf receives per-attempt diagnostics. It discards them unless replaced.
var Debugf = func(string, ...any) {}

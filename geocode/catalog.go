// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"log"
	"net/http"
	"strings"
)

// Catalog lists every supported provider. Keyless providers come first.
func Catalog(client *http.Client) []ProviderConfig {
	return []ProviderConfig{
		{
			Name: "nominatim",
			New:  func(string) Geocoder { return NewNominatimGeocoder(client) },
		},
		{
			Name: "photon",
			New:  func(string) Geocoder { return NewPhotonGeocoder(client) },
		},
		{
			Name:               "google",
			RequiresCredential: true,
			CredentialEnv:      "GOOGLE_GEOCODING_API_KEY",
			New:                func(key string) Geocoder { return NewGoogleGeocoder(key, client) },
		},
		{
			Name:               "here",
			RequiresCredential: true,
			CredentialEnv:      "HERE_API_KEY",
			New:                func(key string) Geocoder { return NewHereGeocoder(key, client) },
		},
		{
			Name:               "mapbox",
			RequiresCredential: true,
			CredentialEnv:      "MAPBOX_ACCESS_TOKEN",
			New:                func(token string) Geocoder { return NewMapboxGeocoder(token, client) },
		},
		{
			Name:               "opencage",
			RequiresCredential: true,
			CredentialEnv:      "OPENCAGE_API_KEY",
			New:                func(key string) Geocoder { return NewOpenCageGeocoder(key, client) },
		},
	}
}

// Select picks the named providers from catalog in the given order, filling
// credentials through lookup. Unknown and repeated names are logged and skipped.
func Select(catalog []ProviderConfig, names []string, lookup func(env string) string) []ProviderConfig {
	byName := make(map[string]ProviderConfig, len(catalog))
	for _, p := range catalog {
		byName[p.Name] = p
	}

	seen := make(map[string]bool, len(names))
	ret := make([]ProviderConfig, 0, len(names))

	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}

		p, ok := byName[name]
		if !ok {
			log.Printf("⚠️  Unknown geocoding provider: %s", name)

			continue
		}

		if seen[name] {
			log.Printf("⚠️  Geocoding provider listed twice: %s", name)

			continue
		}

		seen[name] = true

		if p.RequiresCredential && lookup != nil {
			p.Credential = lookup(p.CredentialEnv)
		}

		ret = append(ret, p)
	}

	return ret
}

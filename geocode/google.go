// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
)

// GoogleGeocoder uses Google Maps Geocoding API.
type GoogleGeocoder struct {
	httpProvider
	apiKey string
}

// NewGoogleGeocoder creates a new Google Maps geocoder.
func NewGoogleGeocoder(apiKey string, client *http.Client) *GoogleGeocoder {
	return &GoogleGeocoder{
		httpProvider: newHTTPProvider("google", "https://maps.googleapis.com/maps/api/geocode/json", client),
		apiKey:       apiKey,
	}
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, OVER_QUERY_LIMIT, etc.
	ErrorMessage string `json:"error_message"`
}

// Geocode implements Geocoder.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (*spatial.Point, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", g.apiKey)

	var gmResp googleMapsResponse
	if err := g.getJSON(ctx, g.endpoint+"?"+params.Encode(), &gmResp); err != nil {
		return nil, err
	}

	// Google reports most failures with a 200 and a status field
	switch gmResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, notFound(g.name, address)
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT", "REQUEST_DENIED", "INVALID_REQUEST":
		return nil, &GeocodingError{
			Kind:     KindTerminal,
			Provider: g.name,
			Message:  "google maps status: " + gmResp.Status + " " + gmResp.ErrorMessage,
		}
	default:
		return nil, &GeocodingError{
			Kind:     KindTransient,
			Provider: g.name,
			Message:  "google maps status: " + gmResp.Status,
		}
	}

	if len(gmResp.Results) == 0 {
		return nil, notFound(g.name, address)
	}

	loc := gmResp.Results[0].Geometry.Location

	return g.point(address, loc.Lat, loc.Lng)
}

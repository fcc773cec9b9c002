// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
)

// HereGeocoder uses the HERE Geocoding & Search v7 API.
type HereGeocoder struct {
	httpProvider
	apiKey string
}

// NewHereGeocoder creates a new HERE geocoder.
func NewHereGeocoder(apiKey string, client *http.Client) *HereGeocoder {
	return &HereGeocoder{
		httpProvider: newHTTPProvider("here", "https://geocode.search.hereapi.com/v1/geocode", client),
		apiKey:       apiKey,
	}
}

type hereResponse struct {
	Items []struct {
		Title    string `json:"title"`
		Position struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"position"`
	} `json:"items"`
}

// Geocode implements Geocoder.
func (g *HereGeocoder) Geocode(ctx context.Context, address string) (*spatial.Point, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("apiKey", g.apiKey)
	params.Set("limit", "1")

	var resp hereResponse
	if err := g.getJSON(ctx, g.endpoint+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	if len(resp.Items) == 0 {
		return nil, notFound(g.name, address)
	}

	pos := resp.Items[0].Position

	return g.point(address, pos.Lat, pos.Lng)
}

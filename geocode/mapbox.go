// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
)

// MapboxGeocoder uses the Mapbox Geocoding API (mapbox.places).
type MapboxGeocoder struct {
	httpProvider
	accessToken string
}

// NewMapboxGeocoder creates a new Mapbox geocoder.
func NewMapboxGeocoder(accessToken string, client *http.Client) *MapboxGeocoder {
	return &MapboxGeocoder{
		httpProvider: newHTTPProvider("mapbox", "https://api.mapbox.com/geocoding/v5/mapbox.places", client),
		accessToken:  accessToken,
	}
}

// Geocode implements Geocoder.
func (g *MapboxGeocoder) Geocode(ctx context.Context, address string) (*spatial.Point, error) {
	params := url.Values{}
	params.Set("access_token", g.accessToken)
	params.Set("limit", "1")

	// the query is a path segment
	reqURL := g.endpoint + "/" + url.PathEscape(address) + ".json?" + params.Encode()

	var resp geoJSONResponse
	if err := g.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}

	if len(resp.Features) == 0 {
		return nil, notFound(g.name, address)
	}

	c := resp.Features[0].Center
	if len(c) < 2 {
		c = resp.Features[0].Geometry.Coordinates
	}

	if len(c) < 2 {
		return nil, notFound(g.name, address)
	}

	return g.point(address, c[1], c[0])
}

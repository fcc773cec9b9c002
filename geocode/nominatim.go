// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
)

// NominatimGeocoder uses the OpenStreetMap Nominatim search API. The public
// instance allows one request per second and blocks abusive clients.
type NominatimGeocoder struct {
	httpProvider
}

// NewNominatimGeocoder creates a new Nominatim geocoder.
func NewNominatimGeocoder(client *http.Client) *NominatimGeocoder {
	return &NominatimGeocoder{
		httpProvider: newHTTPProvider("nominatim", "https://nominatim.openstreetmap.org/search", client),
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode implements Geocoder.
func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (*spatial.Point, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")

	var places []nominatimPlace
	if err := g.getJSON(ctx, g.endpoint+"?"+params.Encode(), &places); err != nil {
		return nil, err
	}

	if len(places) == 0 {
		return nil, notFound(g.name, address)
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, &GeocodingError{Kind: KindTransient, Provider: g.name, Message: "parsing latitude", Err: err}
	}

	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, &GeocodingError{Kind: KindTransient, Provider: g.name, Message: "parsing longitude", Err: err}
	}

	return g.point(address, lat, lng)
}

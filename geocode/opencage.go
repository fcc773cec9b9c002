// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
)

// OpenCageGeocoder uses the OpenCage Geocoding API. Quota exhaustion is
// reported as HTTP 402.
type OpenCageGeocoder struct {
	httpProvider
	apiKey string
}

// NewOpenCageGeocoder creates a new OpenCage geocoder.
func NewOpenCageGeocoder(apiKey string, client *http.Client) *OpenCageGeocoder {
	return &OpenCageGeocoder{
		httpProvider: newHTTPProvider("opencage", "https://api.opencagedata.com/geocode/v1/json", client),
		apiKey:       apiKey,
	}
}

type openCageResponse struct {
	Results []struct {
		Geometry struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
		Formatted string `json:"formatted"`
	} `json:"results"`
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

// Geocode implements Geocoder.
func (g *OpenCageGeocoder) Geocode(ctx context.Context, address string) (*spatial.Point, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("key", g.apiKey)
	params.Set("limit", "1")
	params.Set("no_annotations", "1")

	var resp openCageResponse
	if err := g.getJSON(ctx, g.endpoint+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	if resp.Status.Code != 0 && resp.Status.Code != http.StatusOK {
		return nil, ClassifyHTTPStatus(g.name, resp.Status.Code, resp.Status.Message)
	}

	if len(resp.Results) == 0 {
		return nil, notFound(g.name, address)
	}

	geom := resp.Results[0].Geometry

	return g.point(address, geom.Lat, geom.Lng)
}

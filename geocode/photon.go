// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
)

// PhotonGeocoder uses the komoot Photon API, an OpenStreetMap based search
// engine without credentials.
type PhotonGeocoder struct {
	httpProvider
}

// NewPhotonGeocoder creates a new Photon geocoder.
func NewPhotonGeocoder(client *http.Client) *PhotonGeocoder {
	return &PhotonGeocoder{
		httpProvider: newHTTPProvider("photon", "https://photon.komoot.io/api/", client),
	}
}

// geoJSONResponse is the FeatureCollection shape shared by Photon and Mapbox.
type geoJSONResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // lng, lat
		} `json:"geometry"`
		Center []float64 `json:"center"` // lng, lat; Mapbox only
	} `json:"features"`
}

// Geocode implements Geocoder.
func (g *PhotonGeocoder) Geocode(ctx context.Context, address string) (*spatial.Point, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("limit", "1")

	var resp geoJSONResponse
	if err := g.getJSON(ctx, g.endpoint+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	if len(resp.Features) == 0 || len(resp.Features[0].Geometry.Coordinates) < 2 {
		return nil, notFound(g.name, address)
	}

	c := resp.Features[0].Geometry.Coordinates

	return g.point(address, c[1], c[0])
}

// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
	"github.com/ZisisKostakakis/property-pal-scraper/utils/htmlutils"
)

const (
	// requestTimeout bounds a single provider call.
	requestTimeout = 10 * time.Second

	// maxErrorBody is how much of an error response is read to describe it.
	maxErrorBody = 4 << 10

	// maxErrorMessage bounds, in runes, the body text quoted in errors.
	maxErrorMessage = 200
)

// httpProvider holds what every HTTP adapter needs.
type httpProvider struct {
	name     string
	endpoint string
	client   *http.Client
}

func newHTTPProvider(name, endpoint string, client *http.Client) httpProvider {
	if client == nil {
		client = http.DefaultClient
	}

	return httpProvider{name: name, endpoint: endpoint, client: client}
}

// getJSON performs a GET and decodes a 200 response into out. Any other
// outcome is returned as a *GeocodingError.
func (p *httpProvider) getJSON(ctx context.Context, reqURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &GeocodingError{Kind: KindTerminal, Provider: p.name, Message: "building request", Err: err}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return &GeocodingError{Kind: KindTransient, Provider: p.name, Message: "request failed", Err: stripURL(err)}
	}

	defer resp.Body.Close()

	r, err := htmlutils.AsReader(resp)
	if err != nil {
		return &GeocodingError{Kind: KindTransient, Provider: p.name, Message: "reading response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return ClassifyHTTPStatus(p.name, resp.StatusCode, describe(resp, r))
	}

	if err := json.NewDecoder(r).Decode(out); err != nil {
		return &GeocodingError{Kind: KindTransient, Provider: p.name, Message: "decoding response", Err: err}
	}

	return nil
}

// stripURL drops the request URL from transport errors, it may carry credentials.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}

	return err
}

// describe summarizes an error body: the title of an HTML page, or the
// beginning of anything else.
func describe(resp *http.Response, r io.Reader) string {
	r = io.LimitReader(r, maxErrorBody)

	if htmlutils.IsHTML(resp.Header.Get("Content-Type")) {
		n, err := htmlutils.AsNode(r)
		if err != nil {
			return ""
		}

		return htmlutils.Summary(n)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return ""
	}

	return htmlutils.Truncate(strings.Join(strings.Fields(string(data)), " "), maxErrorMessage)
}

// point validates provider coordinates.
func (p *httpProvider) point(address string, lat, lng float64) (*spatial.Point, error) {
	pt := &spatial.Point{Lat: lat, Lng: lng}
	if !pt.Valid() {
		return nil, &GeocodingError{
			Kind:     KindNotFound,
			Provider: p.name,
			Message:  fmt.Sprintf("invalid coordinates %v for %q", *pt, address),
		}
	}

	return pt, nil
}

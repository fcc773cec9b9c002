// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrNoProviders is returned by New when no provider survives credential filtering.
var ErrNoProviders = errors.New("no geocoding providers available")

// ErrorKind drives the retry decision for a failed provider call.
type ErrorKind int

const (
	// KindTransient errors may succeed on retry: timeouts, 5xx, rate limiting.
	KindTransient ErrorKind = iota
	// KindTerminal errors will not succeed on this provider: quota, blocks, bad credentials.
	KindTerminal
	// KindNotFound means the provider answered but had no match.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindTerminal:
		return "terminal"
	case KindNotFound:
		return "not found"
	default:
		return "transient"
	}
}

// GeocodingError is the error every provider adapter returns.
type GeocodingError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *GeocodingError) Error() string {
	var sb strings.Builder

	if e.Provider != "" {
		sb.WriteString(e.Provider)
		sb.WriteString(": ")
	}

	sb.WriteString(e.Message)

	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}

	return sb.String()
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

func notFound(provider, address string) *GeocodingError {
	return &GeocodingError{
		Kind:     KindNotFound,
		Provider: provider,
		Message:  fmt.Sprintf("no results found for %q", address),
	}
}

// terminalHints are matched against error text when nothing better is known.
var terminalHints = []string{
	"403",
	"blocked",
	"forbidden",
	"quota",
	"over_query_limit",
	"request_denied",
}

// Classify returns the kind of err. Typed errors and well known timeouts are
// classified precisely; anything else falls back to matching the message
// against terminalHints, which depends on wording outside our control.
func Classify(err error) ErrorKind {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}

	errStr := strings.ToLower(err.Error())
	for _, hint := range terminalHints {
		if strings.Contains(errStr, hint) {
			return KindTerminal
		}
	}

	return KindTransient
}

// IsTerminal reports whether err should abandon the provider.
func IsTerminal(err error) bool {
	return Classify(err) == KindTerminal
}

// IsTransient reports whether err may succeed when retried.
func IsTransient(err error) bool {
	return Classify(err) == KindTransient
}

// ClassifyHTTPStatus maps a non-200 status code to a GeocodingError.
func ClassifyHTTPStatus(provider string, statusCode int, detail string) *GeocodingError {
	e := &GeocodingError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
	}

	if detail != "" {
		e.Message += " " + detail
	}

	switch {
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusRequestTimeout,
		statusCode >= 500:
		e.Kind = KindTransient
	case statusCode == http.StatusNotFound:
		e.Kind = KindNotFound
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusPaymentRequired,
		statusCode == http.StatusForbidden:
		e.Kind = KindTerminal
	case statusCode >= 400:
		// the request itself is rejected, retrying cannot help
		e.Kind = KindTerminal
	default:
		e.Kind = KindTransient
	}

	return e
}

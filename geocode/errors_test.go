// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "typed terminal",
			err:  &GeocodingError{Kind: KindTerminal, Message: "quota"},
			want: KindTerminal,
		},
		{
			name: "typed not found",
			err:  notFound("photon", "nowhere"),
			want: KindNotFound,
		},
		{
			name: "typed error wins over message",
			err:  &GeocodingError{Kind: KindTransient, Message: "HTTP 503 blocked upstream"},
			want: KindTransient,
		},
		{
			name: "wrapped typed error",
			err:  fmt.Errorf("resolving: %w", &GeocodingError{Kind: KindTerminal}),
			want: KindTerminal,
		},
		{
			name: "deadline exceeded",
			err:  fmt.Errorf("get: %w", context.DeadlineExceeded),
			want: KindTransient,
		},
		{
			name: "net timeout",
			err:  timeoutError{},
			want: KindTransient,
		},
		{
			name: "message contains 403",
			err:  errors.New("server returned 403"),
			want: KindTerminal,
		},
		{
			name: "message contains blocked",
			err:  errors.New("Your IP has been BLOCKED"),
			want: KindTerminal,
		},
		{
			name: "message contains quota",
			err:  errors.New("daily quota exceeded"),
			want: KindTerminal,
		},
		{
			name: "google status in message",
			err:  errors.New("status OVER_QUERY_LIMIT"),
			want: KindTerminal,
		},
		{
			name: "generic service error",
			err:  errors.New("service unavailable"),
			want: KindTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsTerminalIsTransient(t *testing.T) {
	terminal := &GeocodingError{Kind: KindTerminal}
	assert.True(t, IsTerminal(terminal))
	assert.False(t, IsTransient(terminal))

	transient := errors.New("connection reset")
	assert.False(t, IsTerminal(transient))
	assert.True(t, IsTransient(transient))

	miss := notFound("nominatim", "x")
	assert.False(t, IsTerminal(miss))
	assert.False(t, IsTransient(miss))
}

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorKind
	}{
		{http.StatusBadRequest, KindTerminal},
		{http.StatusUnauthorized, KindTerminal},
		{http.StatusPaymentRequired, KindTerminal},
		{http.StatusForbidden, KindTerminal},
		{http.StatusNotFound, KindNotFound},
		{http.StatusRequestTimeout, KindTransient},
		{http.StatusTooManyRequests, KindTransient},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusBadGateway, KindTransient},
		{http.StatusServiceUnavailable, KindTransient},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			err := ClassifyHTTPStatus("test", tt.code, "")
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.code, err.StatusCode)
		})
	}
}

func TestGeocodingErrorMessage(t *testing.T) {
	inner := errors.New("connection refused")
	err := &GeocodingError{Kind: KindTransient, Provider: "photon", Message: "request failed", Err: inner}

	assert.Equal(t, "photon: request failed: connection refused", err.Error())
	assert.ErrorIs(t, err, inner)

	err = ClassifyHTTPStatus("here", 403, "Forbidden")
	assert.Equal(t, "here: HTTP 403 Forbidden", err.Error())
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "transient", KindTransient.String())
	assert.Equal(t, "terminal", KindTerminal.String())
	assert.Equal(t, "not found", KindNotFound.String())
}

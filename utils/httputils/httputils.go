// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides utility functions for working with HTTP.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"regexp"
	"strings"
	"time"
)

/////////////////////////////////////////
/// RoundTrippers

// credentialParams matches query parameters geocoding APIs use to carry
// credentials, so traces never print them.
var credentialParams = regexp.MustCompile(`(?i)\b(key|apikey|api_key|access_token|token)=[^&\s]+`)

// Redact masks credentials in a traced line.
func Redact(line string) string {
	line = credentialParams.ReplaceAllString(line, "$1=REDACTED")

	if strings.HasPrefix(strings.ToLower(line), "authorization:") {
		return "Authorization: REDACTED"
	}

	return line
}

// LoggingRoundTripper adds a very primitive logging to a http transaction.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

// reduce the content of the lines.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 256, 512

	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "…")
	}

	for i, line := range lines {
		line = fmt.Sprintf("%c %s", prefix, Redact(strings.TrimRight(line, "\r")))
		if len(line) > maxChars {
			line = line[0:maxChars] + "…"
		}

		lines[i] = line
	}

	return lines
}

func (t *LoggingRoundTripper) dump(lines []string) error {
	lines = append(lines, "")
	_, err := fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	dump, err := httputil.DumpRequestOut(req, t.DumpBody)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP request: %w", err)
	}

	if err := t.dump(abbreviate(strings.Split(string(dump), "\n"), '>')); err != nil {
		return nil, fmt.Errorf("tracing HTTP request: %w", err)
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		_, _ = fmt.Fprintf(t.Writer, "< ERROR: [%v] %s\n", time.Since(start), Redact(err.Error()))

		return nil, err
	}

	dump, err = httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP response: %w", err)
	}

	lines := append(
		[]string{fmt.Sprintf("RESPONSE: [%v]", time.Since(start))},
		strings.Split(string(dump), "\n")...,
	)
	if err := t.dump(abbreviate(lines, '<')); err != nil {
		return nil, fmt.Errorf("tracing HTTP response: %w", err)
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to the request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	return t.Transport.RoundTrip(req)
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// Trace receives a dump of every request and response when not nil.
	Trace io.Writer

	// TraceBody includes bodies in the trace.
	TraceBody bool

	// Timeout bounds each request, including reading the body.
	Timeout time.Duration
}

// NewClient builds an HTTP client that sets common headers and optionally
// traces its traffic with credentials redacted.
func NewClient(options ClientOptions) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	loggingTransport := &LoggingRoundTripper{
		Writer:    options.Trace,
		DumpBody:  options.TraceBody,
		Transport: transport,
	}

	userAgent := "propertypal/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	headerTransport := &AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		Transport: loggingTransport,
	}

	timeout := options.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: headerTransport,
	}
}

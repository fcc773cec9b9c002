// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// maxSummary bounds the text returned by Summary.
const maxSummary = 200

// Node2string appends the visible text below n to sb, separating chunks with
// a single space. Script and style contents are skipped.
func Node2string(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		tmp := strings.Join(strings.Fields(n.Data), " ")
		if len(tmp) > 0 {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}

			sb.WriteString(tmp)
		}
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}

		fallthrough
	default:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			Node2string(child, sb)
		}
	}
}

// IsHTML reports whether a Content-Type header value denotes an HTML document.
func IsHTML(media string) bool {
	const expectedMedia = "text/html"

	return strings.EqualFold(
		expectedMedia,
		media[0:min(len(media), len(expectedMedia))],
	)
}

// AsReader converts an HTTP response body to an io.Reader decoding the
// charset declared in its Content-Type. Without one the encoding is sniffed
// from the first bytes of the body.
func AsReader(resp *http.Response) (io.Reader, error) {
	rr, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decoding response charset: %w", err)
	}

	return rr, nil
}

// AsNode parses an io.Reader as an HTML node.
func AsNode(r io.Reader) (*html.Node, error) {
	n, err := html.Parse(r)
	if nil != err {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	return n, nil
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(name, n.Data) {
		return n
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, name); found != nil {
			return found
		}
	}

	return nil
}

// Summary returns a short human readable description of an HTML page: its
// title, or the beginning of its body text when there is no title.
func Summary(n *html.Node) string {
	var sb strings.Builder

	if title := findElement(n, "title"); title != nil {
		Node2string(title, &sb)
	}

	if sb.Len() == 0 {
		if body := findElement(n, "body"); body != nil {
			Node2string(body, &sb)
		}
	}

	return Truncate(sb.String(), maxSummary)
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	return string([]rune(s)[:n]) + "…"
}

// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"strings"

	"github.com/ZisisKostakakis/property-pal-scraper/cache"
	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
)

// minSegmentLen is the number of non-space characters a comma separated
// segment needs to be tried on its own. Shorter ones are house numbers or
// abbreviations; postcodes like "BT1 1AA" pass.
const minSegmentLen = 5

// Candidates returns the queries ResolveLenient tries for address, in order:
// the address itself, its long segments from last to first, and finally its
// first segment. Queries normalizing to the same key are tried once.
func Candidates(address string) []string {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil
	}

	var (
		ret  []string
		seen = map[string]bool{}
	)

	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" {
			return
		}

		k := cache.NormalizeKey(q)
		if seen[k] {
			return
		}

		seen[k] = true

		ret = append(ret, q)
	}

	add(address)

	if !strings.Contains(address, ",") {
		return ret
	}

	parts := strings.Split(address, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		if len(strings.ReplaceAll(strings.TrimSpace(parts[i]), " ", "")) >= minSegmentLen {
			add(parts[i])
		}
	}

	add(parts[0])

	return ret
}

// ResolveLenient is Resolve falling back to simpler queries derived from
// address when the full address cannot be resolved.
func (s *Service) ResolveLenient(ctx context.Context, address string) *spatial.Point {
	for i, q := range Candidates(address) {
		if i > 0 {
			Debugf("Trying %q for %q", q, address)
		}

		if p := s.Resolve(ctx, q); p != nil {
			return p
		}

		if ctx.Err() != nil {
			return nil
		}
	}

	return nil
}

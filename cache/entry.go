// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
)

// Entry is a cached resolution. A nil Coordinates is a negative entry.
type Entry struct {
	Coordinates *spatial.Point
	CachedAt    time.Time
}

// entryJSON is the on-disk layout: {"coordinates": [lat, lon] | null, "cached_at": "..."}.
type entryJSON struct {
	Coordinates *[2]float64 `json:"coordinates"`
	CachedAt    string      `json:"cached_at"`

	// Coords is the name older tooling used for Coordinates. Read only.
	Coords *[2]float64 `json:"coords,omitempty"`
}

// layouts accepted for cached_at. Files written by older tooling carry naive
// local timestamps with microseconds.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// MarshalJSON implements json.Marshaler.
func (e Entry) MarshalJSON() ([]byte, error) {
	var out entryJSON
	if e.Coordinates != nil {
		out.Coordinates = &[2]float64{e.Coordinates.Lat, e.Coordinates.Lng}
	}

	out.CachedAt = e.CachedAt.Format(time.RFC3339Nano)

	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var in entryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	var (
		t   time.Time
		err error
	)

	for _, layout := range layouts {
		if t, err = time.ParseInLocation(layout, in.CachedAt, time.Local); err == nil {
			break
		}
	}

	if err != nil {
		return fmt.Errorf("parsing cached_at %q: %w", in.CachedAt, err)
	}

	e.CachedAt = t
	e.Coordinates = nil

	c := in.Coordinates
	if c == nil {
		c = in.Coords
	}

	if c != nil {
		e.Coordinates = &spatial.Point{Lat: c[0], Lng: c[1]}
	}

	return nil
}

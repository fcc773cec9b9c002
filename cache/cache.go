// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the durable, TTL-bounded memoization of
// address to coordinate lookups, failed lookups included.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
	"golang.org/x/text/unicode/norm"
)

// Lookup is the outcome of Store.Get.
type Lookup int

const (
	// Miss means there is no usable entry and the address must be resolved.
	Miss Lookup = iota
	// Hit carries the cached coordinates.
	Hit
	// NegativeHit means a previous resolution failed; do not retry it.
	NegativeHit
)

func (l Lookup) String() string {
	switch l {
	case Hit:
		return "hit"
	case NegativeHit:
		return "negative-hit"
	default:
		return "miss"
	}
}

// NormalizeKey case-folds and trims an address so that trivially different
// spellings share an entry.
func NormalizeKey(address string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFC.String(address)))
}

// Stats summarizes the content of the store.
type Stats struct {
	Total    int
	Positive int
	Negative int
	Expired  int
}

// Store is a JSON file backed cache. Every write is persisted immediately.
type Store struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*Entry
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the time source used to stamp and expire entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open loads the cache file at path. A missing file yields an empty cache; a
// corrupt one is logged and ignored.
func Open(path string, ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		path:    path,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*Entry),
	}

	for _, opt := range opts {
		opt(s)
	}

	entries, err := load(path)
	if err != nil {
		log.Printf("⚠️  Failed to load geocoding cache %s: %s", path, err)
	} else if len(entries) > 0 {
		s.entries = entries
		log.Printf("Loaded %d cached geocoding results", len(entries))
	}

	return s
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) expired(e *Entry) bool {
	return s.now().Sub(e.CachedAt) > s.ttl
}

// Get looks up an address. Expired entries are deleted and reported as Miss.
func (s *Store) Get(address string) (Lookup, *spatial.Point) {
	key := NormalizeKey(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Miss, nil
	}

	if s.expired(e) {
		delete(s.entries, key)

		return Miss, nil
	}

	if e.Coordinates == nil {
		return NegativeHit, nil
	}

	p := *e.Coordinates

	return Hit, &p
}

// Set records the result of resolving address; nil records a failure.
func (s *Store) Set(address string, p *spatial.Point) {
	e := &Entry{CachedAt: s.now()}
	if p != nil {
		c := *p
		e.Coordinates = &c
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[NormalizeKey(address)] = e
	s.saveLocked()
}

// ClearExpired removes every expired entry and returns how many were dropped.
func (s *Store) ClearExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int

	for key, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, key)
			n++
		}
	}

	if n > 0 {
		s.saveLocked()
	}

	return n
}

// Purge drops every entry, valid or not.
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*Entry)

	return s.writeLocked()
}

// Len returns the number of stored entries, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Stats counts entries by kind. Expired entries are only counted as Expired.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Total: len(s.entries)}

	for _, e := range s.entries {
		switch {
		case s.expired(e):
			st.Expired++
		case e.Coordinates == nil:
			st.Negative++
		default:
			st.Positive++
		}
	}

	return st
}

// Each calls fn for every unexpired entry in key order.
func (s *Store) Each(fn func(key string, e Entry) error) error {
	s.mu.Lock()

	keys := make([]string, 0, len(s.entries))
	snapshot := make(map[string]Entry, len(s.entries))

	for key, e := range s.entries {
		if !s.expired(e) {
			keys = append(keys, key)
			snapshot[key] = *e
		}
	}

	s.mu.Unlock()

	sort.Strings(keys)

	for _, key := range keys {
		if err := fn(key, snapshot[key]); err != nil {
			return err
		}
	}

	return nil
}

// saveLocked persists the cache, logging instead of failing.
func (s *Store) saveLocked() {
	if err := s.writeLocked(); err != nil {
		log.Printf("⚠️  Failed to save geocoding cache: %s", err)
	}
}

// writeLocked replaces the backing file atomically so that a crash leaves
// either the previous or the new content.
func (s *Store) writeLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary cache file: %w", err)
	}

	tmp := f.Name()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return errors.Join(
			fmt.Errorf("writing cache: %w", err),
			f.Close(),
			os.Remove(tmp),
		)
	}

	if err := f.Close(); err != nil {
		return errors.Join(fmt.Errorf("closing cache: %w", err), os.Remove(tmp))
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Join(fmt.Errorf("replacing cache: %w", err), os.Remove(tmp))
	}

	return nil
}

func load(path string) (map[string]*Entry, error) {
	ret := make(map[string]*Entry)

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ret, nil
		}

		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	if len(data) == 0 {
		return ret, nil
	}

	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("parsing cache file: %w", err)
	}

	for key, e := range ret {
		if e == nil {
			delete(ret, key)
		}
	}

	return ret, nil
}

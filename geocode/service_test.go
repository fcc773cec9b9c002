// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZisisKostakakis/property-pal-scraper/cache"
	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ttl = 30 * 24 * time.Hour

var belfast = spatial.Point{Lat: 54.5973, Lng: -5.9301}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

// fakeProvider answers from a script of results, repeating the last one.
type fakeProvider struct {
	name    string
	results []result
	calls   int
	queries []string
}

type result struct {
	point *spatial.Point
	err   error
}

func (f *fakeProvider) Geocode(_ context.Context, address string) (*spatial.Point, error) {
	f.calls++
	f.queries = append(f.queries, address)

	r := f.results[min(f.calls, len(f.results))-1]
	if r.point != nil {
		p := *r.point

		return &p, nil
	}

	return nil, r.err
}

func (f *fakeProvider) config() ProviderConfig {
	return ProviderConfig{Name: f.name, New: func(string) Geocoder { return f }}
}

func ok(p spatial.Point) result { return result{point: &p} }

func fail(kind ErrorKind) result {
	return result{err: &GeocodingError{Kind: kind, Message: kind.String()}}
}

type backoff struct {
	provider string
	attempt  int
	delay    time.Duration
}

// harness wires a Service to fake providers, a file backed cache and
// recorders for sleeps and backoff waits.
type harness struct {
	svc      *Service
	store    *cache.Store
	clock    *clock
	sleeps   []time.Duration
	backoffs []backoff
}

func newHarness(t *testing.T, cfg Config, providers ...*fakeProvider) *harness {
	t.Helper()

	h := &harness{clock: &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}}
	h.store = cache.Open(filepath.Join(t.TempDir(), "geocoding.json"), ttl, cache.WithClock(h.clock.Now))

	configs := make([]ProviderConfig, len(providers))
	for i, p := range providers {
		configs[i] = p.config()
	}

	svc, err := New(cfg, configs, h.store,
		WithSleeper(func(_ context.Context, d time.Duration) {
			h.sleeps = append(h.sleeps, d)
		}),
		WithBackoffObserver(func(provider string, attempt int, delay time.Duration) {
			h.backoffs = append(h.backoffs, backoff{provider, attempt, delay})
		}),
	)
	require.NoError(t, err)

	h.svc = svc

	return h
}

func TestResolveIsIdempotent(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{ok(belfast)}}
	h := newHarness(t, Config{MaxRetries: 3, BaseDelay: time.Second}, a)

	first := h.svc.Resolve(context.Background(), "Belfast, UK")
	require.NotNil(t, first)
	assert.Equal(t, belfast, *first)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, []time.Duration{time.Second}, h.sleeps)

	second := h.svc.Resolve(context.Background(), "  belfast, uk ")
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, 1, a.calls, "cache hit must not call providers")
	assert.Len(t, h.sleeps, 1, "cache hit must not rate limit")
}

func TestResolveNegativeCaching(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{fail(KindNotFound)}}
	b := &fakeProvider{name: "b", results: []result{fail(KindTerminal)}}
	h := newHarness(t, Config{MaxRetries: 3, BaseDelay: time.Second}, a, b)

	assert.Nil(t, h.svc.Resolve(context.Background(), "Atlantis"))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Empty(t, h.sleeps)
	assert.Empty(t, h.backoffs)

	lookup, _ := h.store.Get("Atlantis")
	assert.Equal(t, cache.NegativeHit, lookup)

	assert.Nil(t, h.svc.Resolve(context.Background(), "Atlantis"))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestResolveAfterTTL(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{fail(KindNotFound), ok(belfast)}}
	h := newHarness(t, Config{MaxRetries: 1}, a)

	assert.Nil(t, h.svc.Resolve(context.Background(), "Belfast"))

	h.clock.t = h.clock.t.Add(ttl)
	assert.Nil(t, h.svc.Resolve(context.Background(), "Belfast"), "still within TTL")
	assert.Equal(t, 1, a.calls)

	h.clock.t = h.clock.t.Add(time.Second)
	got := h.svc.Resolve(context.Background(), "Belfast")
	require.NotNil(t, got)
	assert.Equal(t, belfast, *got)
	assert.Equal(t, 2, a.calls)
}

func TestTerminalErrorFallsBackImmediately(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{fail(KindTerminal)}}
	b := &fakeProvider{name: "b", results: []result{ok(belfast)}}
	h := newHarness(t, Config{MaxRetries: 3, BaseDelay: time.Millisecond}, a, b)

	got := h.svc.Resolve(context.Background(), "Belfast")
	require.NotNil(t, got)
	assert.Equal(t, belfast, *got)
	assert.Equal(t, 1, a.calls, "terminal errors are never retried")
	assert.Equal(t, 1, b.calls)
	assert.Empty(t, h.backoffs)
}

func TestTerminalProviderStaysDisabled(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{fail(KindTerminal)}}
	b := &fakeProvider{name: "b", results: []result{ok(belfast)}}

	svc, err := New(Config{MaxRetries: 3}, []ProviderConfig{a.config(), b.config()}, nil,
		WithSleeper(func(context.Context, time.Duration) {}),
		WithDisableOnTerminal(),
	)
	require.NoError(t, err)

	for _, address := range []string{"A1", "A2", "A3", "A4"} {
		assert.NotNil(t, svc.Resolve(context.Background(), address), address)
	}

	assert.Equal(t, 1, a.calls, "a blocked provider is not called again")
	assert.Equal(t, 4, b.calls)
	assert.Equal(t, []string{"b"}, svc.Providers())
}

func TestTerminalProviderIsRetriedByDefault(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{fail(KindTerminal)}}
	b := &fakeProvider{name: "b", results: []result{ok(belfast)}}
	h := newHarness(t, Config{MaxRetries: 3}, a, b)

	h.svc.Resolve(context.Background(), "A1")
	h.svc.Resolve(context.Background(), "A2")
	assert.Equal(t, 2, a.calls)
	assert.Equal(t, []string{"a", "b"}, h.svc.Providers())
}

func TestAllProvidersDisabledCachesNothing(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{fail(KindTerminal)}}
	store := cache.Open(filepath.Join(t.TempDir(), "geocoding.json"), ttl)

	svc, err := New(Config{MaxRetries: 1}, []ProviderConfig{a.config()}, store, WithDisableOnTerminal())
	require.NoError(t, err)

	assert.Nil(t, svc.Resolve(context.Background(), "Blocked"))
	assert.Nil(t, svc.Resolve(context.Background(), "Untried"))
	assert.Equal(t, 1, a.calls)

	lookup, _ := store.Get("Blocked")
	assert.Equal(t, cache.NegativeHit, lookup)

	lookup, _ = store.Get("Untried")
	assert.Equal(t, cache.Miss, lookup, "an address no provider was asked about is not a failure")
	assert.Empty(t, svc.Providers())
}

func TestTransientErrorRetriesWithBackoff(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{fail(KindTransient)}}
	b := &fakeProvider{name: "b", results: []result{ok(belfast)}}
	h := newHarness(t, Config{MaxRetries: 3, BaseDelay: time.Millisecond}, a, b)

	got := h.svc.Resolve(context.Background(), "Belfast")
	require.NotNil(t, got)
	assert.Equal(t, 3, a.calls)
	assert.Equal(t, 1, b.calls)

	want := []backoff{
		{"a", 1, time.Millisecond},
		{"a", 2, 2 * time.Millisecond},
	}
	if diff := cmp.Diff(want, h.backoffs, cmp.AllowUnexported(backoff{})); diff != "" {
		t.Errorf("backoffs mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []time.Duration{time.Millisecond}, h.sleeps)
}

func TestTransientErrorRecovers(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{fail(KindTransient), ok(belfast)}}
	b := &fakeProvider{name: "b", results: []result{ok(spatial.Point{Lat: 1, Lng: 1})}}
	h := newHarness(t, Config{MaxRetries: 3}, a, b)

	got := h.svc.Resolve(context.Background(), "Belfast")
	require.NotNil(t, got)
	assert.Equal(t, belfast, *got)
	assert.Equal(t, 2, a.calls)
	assert.Zero(t, b.calls)
	assert.Equal(t, []backoff{{"a", 1, 0}}, h.backoffs)
}

func TestSingleAttemptNeverWaits(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{fail(KindTransient)}}
	h := newHarness(t, Config{MaxRetries: 1, BaseDelay: time.Hour}, a)

	assert.Nil(t, h.svc.Resolve(context.Background(), "Belfast"))
	assert.Equal(t, 1, a.calls)
	assert.Empty(t, h.backoffs)
}

func TestNilPointIsNotFound(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{{}}}
	b := &fakeProvider{name: "b", results: []result{ok(belfast)}}
	h := newHarness(t, Config{MaxRetries: 3}, a, b)

	require.NotNil(t, h.svc.Resolve(context.Background(), "Belfast"))
	assert.Equal(t, 1, a.calls)
	assert.Empty(t, h.backoffs)
}

func TestCredentialGating(t *testing.T) {
	var built bool

	paid := ProviderConfig{
		Name:               "paid",
		RequiresCredential: true,
		CredentialEnv:      "PAID_API_KEY",
		New: func(string) Geocoder {
			built = true

			return GeocoderFunc(func(context.Context, string) (*spatial.Point, error) {
				t.Fatal("provider without credential was invoked")

				return nil, nil
			})
		},
	}
	free := &fakeProvider{name: "free", results: []result{ok(belfast)}}

	svc, err := New(Config{MaxRetries: 1}, []ProviderConfig{paid, free.config()}, nil, WithSleeper(func(context.Context, time.Duration) {}))
	require.NoError(t, err)
	assert.False(t, built)
	assert.Equal(t, []string{"free"}, svc.Providers())
	assert.NotNil(t, svc.Resolve(context.Background(), "Belfast"))

	_, err = New(Config{MaxRetries: 1}, []ProviderConfig{paid}, nil)
	assert.ErrorIs(t, err, ErrNoProviders)

	paid.Credential = "k"
	svc, err = New(Config{MaxRetries: 1}, []ProviderConfig{paid}, nil)
	require.NoError(t, err)
	assert.True(t, built)
	assert.Equal(t, []string{"paid"}, svc.Providers())
}

func TestNewValidation(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{ok(belfast)}}

	_, err := New(Config{MaxRetries: 0}, []ProviderConfig{a.config()}, nil)
	require.Error(t, err)

	_, err = New(Config{MaxRetries: 1, BaseDelay: -time.Second}, []ProviderConfig{a.config()}, nil)
	require.Error(t, err)

	_, err = New(Config{MaxRetries: 1}, nil, nil)
	assert.True(t, errors.Is(err, ErrNoProviders))
}

func TestBlankAddress(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{ok(belfast)}}
	h := newHarness(t, Config{MaxRetries: 1}, a)

	assert.Nil(t, h.svc.Resolve(context.Background(), "   "))
	assert.Zero(t, a.calls)
	assert.Zero(t, h.store.Len())
}

func TestCancelledResolutionIsNotCached(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &fakeProvider{name: "a"}
	a.results = []result{{err: &GeocodingError{Kind: KindTransient, Message: "timeout"}}}
	h := newHarness(t, Config{MaxRetries: 3, BaseDelay: time.Hour}, a)

	// the first backoff wait is an hour, cancel while waiting
	h.svc.observe = func(string, int, time.Duration) { cancel() }

	assert.Nil(t, h.svc.Resolve(ctx, "Belfast"))
	assert.Equal(t, 1, a.calls)

	lookup, _ := h.store.Get("Belfast")
	assert.Equal(t, cache.Miss, lookup)
}

func TestBelfastScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geocoding.json")

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	store := cache.Open(path, ttl)
	assert.Zero(t, store.Len())

	a := &fakeProvider{name: "nominatim", results: []result{ok(belfast)}}
	svc, err := New(Config{MaxRetries: 3}, []ProviderConfig{a.config()}, store)
	require.NoError(t, err)

	got := svc.Resolve(context.Background(), "Belfast, UK")
	require.NotNil(t, got)
	assert.Equal(t, belfast, *got)

	// a fresh process sees the persisted entry
	reopened := cache.Open(path, ttl)
	lookup, p := reopened.Get("Belfast, UK")
	require.Equal(t, cache.Hit, lookup)
	assert.Equal(t, belfast, *p)

	again, err := New(Config{MaxRetries: 3}, []ProviderConfig{a.config()}, reopened)
	require.NoError(t, err)

	got = again.Resolve(context.Background(), "Belfast, UK")
	require.NotNil(t, got)
	assert.Equal(t, belfast, *got)
	assert.Equal(t, 1, a.calls)
}

func TestDistance(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{ok(spatial.Point{Lat: 54.597, Lng: -5.930})}}
	h := newHarness(t, Config{MaxRetries: 1}, a)

	km, resolved := h.svc.Distance(context.Background(), "Belfast", spatial.Point{Lat: 54.607, Lng: -5.926})
	assert.True(t, resolved)
	assert.InDelta(t, 1.14, km, 1e-9)

	b := &fakeProvider{name: "b", results: []result{fail(KindNotFound)}}
	h = newHarness(t, Config{MaxRetries: 1}, b)

	km, resolved = h.svc.Distance(context.Background(), "Atlantis", spatial.Point{Lat: 54.607, Lng: -5.926})
	assert.False(t, resolved)
	assert.Zero(t, km)
}

func TestNilCacheDisablesCaching(t *testing.T) {
	a := &fakeProvider{name: "a", results: []result{ok(belfast)}}

	svc, err := New(Config{MaxRetries: 1}, []ProviderConfig{a.config()}, nil, WithSleeper(func(context.Context, time.Duration) {}))
	require.NoError(t, err)

	svc.Resolve(context.Background(), "Belfast")
	svc.Resolve(context.Background(), "Belfast")
	assert.Equal(t, 2, a.calls)
}

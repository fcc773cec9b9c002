// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ZisisKostakakis/property-pal-scraper/cache"
	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
	"github.com/sethvargo/go-retry"
)

// Config holds the retry policy of a Service.
type Config struct {
	// MaxRetries is the number of attempts per provider, at least 1.
	MaxRetries int

	// BaseDelay is the first backoff wait and the pause after every
	// successful resolution.
	BaseDelay time.Duration
}

// Cache is the subset of *cache.Store used by Service.
type Cache interface {
	Get(address string) (cache.Lookup, *spatial.Point)
	Set(address string, p *spatial.Point)
}

type provider struct {
	name     string
	geocoder Geocoder
}

// Service resolves addresses with caching, per-provider retries and
// ordered fallback. It is meant to be used by one goroutine at a time.
type Service struct {
	cfg       Config
	providers []provider
	cache     Cache
	sleep     func(context.Context, time.Duration)
	observe   func(provider string, attempt int, delay time.Duration)

	// disabled holds the providers that failed terminally, when
	// WithDisableOnTerminal is set.
	disabled map[string]bool
}

// Option customizes a Service.
type Option func(*Service)

// WithSleeper replaces the pause taken after a successful resolution.
func WithSleeper(sleep func(context.Context, time.Duration)) Option {
	return func(s *Service) {
		s.sleep = sleep
	}
}

// WithBackoffObserver is called before every backoff wait.
func WithBackoffObserver(observe func(provider string, attempt int, delay time.Duration)) Option {
	return func(s *Service) {
		s.observe = observe
	}
}

// WithDisableOnTerminal leaves a provider out of every later resolution once
// it fails with a terminal error, such as a block or an exhausted quota.
func WithDisableOnTerminal() Option {
	return func(s *Service) {
		s.disabled = map[string]bool{}
	}
}

// New builds a Service from providers in priority order. Providers missing a
// required credential are left out; if none remain ErrNoProviders is returned.
// A nil cache disables caching.
func New(cfg Config, providers []ProviderConfig, c Cache, opts ...Option) (*Service, error) {
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max retries must be at least 1, got %d", cfg.MaxRetries)
	}

	if cfg.BaseDelay < 0 {
		return nil, fmt.Errorf("base delay must not be negative, got %s", cfg.BaseDelay)
	}

	s := &Service{
		cfg:     cfg,
		cache:   c,
		sleep:   sleepContext,
		observe: func(string, int, time.Duration) {},
	}

	for _, opt := range opts {
		opt(s)
	}

	for _, p := range providers {
		if !p.Enabled() {
			Debugf("Skipping %s: %s not set", p.Name, p.CredentialEnv)

			continue
		}

		s.providers = append(s.providers, provider{name: p.Name, geocoder: p.New(p.Credential)})
		log.Printf("Initialized geocoding provider: %s", p.Name)
	}

	if len(s.providers) == 0 {
		return nil, ErrNoProviders
	}

	return s, nil
}

// Providers returns the provider names in priority order, without the
// disabled ones.
func (s *Service) Providers() []string {
	ret := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		if !s.disabled[p.name] {
			ret = append(ret, p.name)
		}
	}

	return ret
}

// Resolve returns the coordinates of address, or nil when it cannot be
// resolved. Failures are cached too, so they are not retried until they
// expire. A cancelled ctx yields nil and leaves the cache untouched.
func (s *Service) Resolve(ctx context.Context, address string) *spatial.Point {
	if strings.TrimSpace(address) == "" {
		return nil
	}

	if s.cache != nil {
		switch lookup, p := s.cache.Get(address); lookup {
		case cache.Hit:
			Debugf("Cache hit: %s -> %s", address, p)

			return p
		case cache.NegativeHit:
			Debugf("Cache hit (negative): %s", address)

			return nil
		case cache.Miss:
		}
	}

	var tried int

	for _, prov := range s.providers {
		if s.disabled[prov.name] {
			continue
		}

		tried++

		p, err := s.geocodeWithRetry(ctx, prov, address)
		if ctx.Err() != nil {
			log.Printf("Geocoding of %q abandoned: %s", address, ctx.Err())

			return nil
		}

		if err != nil {
			if s.disabled != nil && IsTerminal(err) {
				log.Printf("⚠️  Disabling %s for the rest of the run", prov.name)
				s.disabled[prov.name] = true
			}

			continue
		}

		Debugf("Geocoded with %s: %s -> %s", prov.name, address, p)

		if s.cache != nil {
			s.cache.Set(address, p)
		}

		// keep downstream services within their rate limits
		s.sleep(ctx, s.cfg.BaseDelay)

		return p
	}

	if tried == 0 {
		// not a failure of address, so nothing is cached
		Debugf("Every geocoding provider is disabled, skipping: %s", address)

		return nil
	}

	log.Printf("⚠️  All geocoding providers failed for: %s", address)

	if s.cache != nil {
		s.cache.Set(address, nil)
	}

	return nil
}

// Distance resolves origin and returns its great-circle distance to
// destination in kilometers, rounded to two decimals.
func (s *Service) Distance(ctx context.Context, origin string, destination spatial.Point) (float64, bool) {
	p := s.Resolve(ctx, origin)
	if p == nil {
		return 0, false
	}

	return p.DistanceKm(&destination), true
}

// geocodeWithRetry calls one provider until it succeeds, fails with a
// non-transient error or runs out of attempts.
func (s *Service) geocodeWithRetry(ctx context.Context, prov provider, address string) (*spatial.Point, error) {
	var (
		point   *spatial.Point
		attempt int
	)

	err := retry.Do(ctx, s.backoff(prov.name), func(ctx context.Context) error {
		attempt++

		p, err := prov.geocoder.Geocode(ctx, address)
		if err == nil && p == nil {
			err = notFound(prov.name, address)
		}

		if err != nil {
			if IsTransient(err) {
				Debugf("%s attempt %d failed: %s", prov.name, attempt, err)

				return retry.RetryableError(err)
			}

			return err
		}

		point = p

		return nil
	})
	if err == nil {
		return point, nil
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
	case IsTerminal(err):
		log.Printf("⚠️  Switching from %s: %s", prov.name, err)
	case Classify(err) == KindNotFound:
		Debugf("%s has no match for %q", prov.name, address)
	default:
		log.Printf("⚠️  %s failed after %d attempts: %s", prov.name, attempt, err)
	}

	return nil, err
}

// backoff yields BaseDelay, 2·BaseDelay, 4·BaseDelay, … between the
// MaxRetries attempts of one provider.
func (s *Service) backoff(name string) retry.Backoff {
	var next retry.Backoff = retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	})
	if s.cfg.BaseDelay > 0 {
		next = retry.NewExponential(s.cfg.BaseDelay)
	}

	var n int

	observed := retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := next.Next()
		if !stop {
			n++
			s.observe(name, n, d)
		}

		return d, stop
	})

	return retry.WithMaxRetries(uint64(s.cfg.MaxRetries-1), observed)
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

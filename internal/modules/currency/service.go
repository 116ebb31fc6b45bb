package currency

import (
	"time"

	"github.com/rs/zerolog"
)

// rateTTL is how long a cached rate is served before a refetch.
// Daily granularity is plenty for portfolio valuation.
const rateTTL = 24 * time.Hour

// RateFetcher is the provider slice the cache needs.
// Satisfied by the exchangerate client.
type RateFetcher interface {
	GetRate(base, target string) (float64, error)
}

// Service is the cache-aside exchange-rate lookup. GetRate never fails:
// a dead provider degrades to the last cached value, and with no cache at
// all the identity rate keeps valuation arithmetic running.
type Service struct {
	repo    *Repository
	fetcher RateFetcher
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates the exchange-rate cache service
func NewService(repo *Repository, fetcher RateFetcher, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		fetcher: fetcher,
		now:     time.Now,
		log:     log.With().Str("service", "currency").Logger(),
	}
}

// SetClock overrides the wall clock (tests only)
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// GetRate returns the conversion rate from base to target.
// Identity pairs short-circuit to 1.0 without touching the cache. A cached
// rate within the TTL is served without a provider call; past the TTL the
// provider is asked, falling back to the stale value when it fails.
func (s *Service) GetRate(base, target string) float64 {
	base = normalizeCurrency(base)
	target = normalizeCurrency(target)
	if base == target {
		return 1.0
	}

	cached, err := s.repo.Get(base, target)
	if err != nil {
		s.log.Error().Err(err).Str("base", base).Str("target", target).Msg("Failed to read cached rate")
		cached = nil
	}

	now := s.now()
	// A rate exactly at the TTL boundary counts as expired.
	if cached != nil && now.Sub(cached.FetchedAt) < rateTTL {
		return cached.Rate
	}

	rate, err := s.fetcher.GetRate(base, target)
	if err != nil {
		if cached != nil {
			s.log.Warn().Err(err).
				Str("base", base).Str("target", target).
				Time("fetched_at", cached.FetchedAt).
				Msg("Rate fetch failed, serving stale cached rate")
			return cached.Rate
		}
		s.log.Error().Err(err).
			Str("base", base).Str("target", target).
			Msg("Rate fetch failed with no cached fallback, assuming 1.0")
		return 1.0
	}

	if err := s.repo.Upsert(base, target, rate, now); err != nil {
		s.log.Error().Err(err).Str("base", base).Str("target", target).Msg("Failed to cache rate")
	}

	return rate
}

// RefreshAll force-fetches every pair from base to the given targets,
// replacing cached values regardless of age. Used by the scheduled rate job.
func (s *Service) RefreshAll(base string, targets []string) int {
	base = normalizeCurrency(base)
	refreshed := 0
	for _, target := range targets {
		target = normalizeCurrency(target)
		if target == base {
			continue
		}

		rate, err := s.fetcher.GetRate(base, target)
		if err != nil {
			s.log.Warn().Err(err).Str("base", base).Str("target", target).Msg("Rate refresh failed")
			continue
		}
		if err := s.repo.Upsert(base, target, rate, s.now()); err != nil {
			s.log.Error().Err(err).Str("base", base).Str("target", target).Msg("Failed to cache rate")
			continue
		}
		refreshed++
	}

	s.log.Info().Str("base", base).Int("refreshed", refreshed).Msg("Exchange rates refreshed")
	return refreshed
}

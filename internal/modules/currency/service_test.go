package currency

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divitrack/divitrack/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(database.Schema("marketdata"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fakeFetcher struct {
	rate  float64
	err   error
	calls int
}

func (f *fakeFetcher) GetRate(base, target string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.rate, nil
}

func newTestService(t *testing.T, fetcher *fakeFetcher, now time.Time) (*Service, *Repository) {
	t.Helper()

	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	service := NewService(repo, fetcher, zerolog.Nop())
	service.SetClock(func() time.Time { return now })
	return service, repo
}

func TestGetRateIdentity(t *testing.T) {
	fetcher := &fakeFetcher{rate: 0.85}
	service, _ := newTestService(t, fetcher, time.Now())

	assert.Equal(t, 1.0, service.GetRate("USD", "usd"))
	assert.Equal(t, 0, fetcher.calls, "identity pairs never hit the provider")
}

func TestGetRateFetchesAndCaches(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{rate: 0.85}
	service, repo := newTestService(t, fetcher, now)

	assert.Equal(t, 0.85, service.GetRate("USD", "EUR"))
	assert.Equal(t, 1, fetcher.calls)

	cached, err := repo.Get("USD", "EUR")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 0.85, cached.Rate)

	// Second read within the TTL is served from cache
	assert.Equal(t, 0.85, service.GetRate("USD", "EUR"))
	assert.Equal(t, 1, fetcher.calls)
}

func TestGetRateTTLBoundary(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	t.Run("just inside TTL", func(t *testing.T) {
		fetcher := &fakeFetcher{rate: 0.90}
		service, repo := newTestService(t, fetcher, now)
		require.NoError(t, repo.Upsert("USD", "EUR", 0.85, now.Add(-23*time.Hour-59*time.Minute)))

		assert.Equal(t, 0.85, service.GetRate("USD", "EUR"))
		assert.Equal(t, 0, fetcher.calls)
	})

	t.Run("exactly at TTL", func(t *testing.T) {
		fetcher := &fakeFetcher{rate: 0.90}
		service, repo := newTestService(t, fetcher, now)
		require.NoError(t, repo.Upsert("USD", "EUR", 0.85, now.Add(-24*time.Hour)))

		assert.Equal(t, 0.90, service.GetRate("USD", "EUR"), "boundary counts as expired")
		assert.Equal(t, 1, fetcher.calls)
	})

	t.Run("just past TTL", func(t *testing.T) {
		fetcher := &fakeFetcher{rate: 0.90}
		service, repo := newTestService(t, fetcher, now)
		require.NoError(t, repo.Upsert("USD", "EUR", 0.85, now.Add(-24*time.Hour-time.Minute)))

		assert.Equal(t, 0.90, service.GetRate("USD", "EUR"))
		assert.Equal(t, 1, fetcher.calls)
	})
}

func TestGetRateStaleFallback(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{err: fmt.Errorf("provider down")}
	service, repo := newTestService(t, fetcher, now)

	require.NoError(t, repo.Upsert("USD", "EUR", 0.85, now.Add(-48*time.Hour)))

	assert.Equal(t, 0.85, service.GetRate("USD", "EUR"), "stale beats nothing")
	assert.Equal(t, 1, fetcher.calls)
}

func TestGetRateNoCacheFallsBackToIdentity(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("provider down")}
	service, _ := newTestService(t, fetcher, time.Now())

	assert.Equal(t, 1.0, service.GetRate("USD", "EUR"))
}

func TestRefreshAll(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{rate: 0.80}
	service, repo := newTestService(t, fetcher, now)

	// Fresh cached value is replaced anyway
	require.NoError(t, repo.Upsert("USD", "EUR", 0.85, now))

	refreshed := service.RefreshAll("USD", []string{"EUR", "GBP", "USD"})
	assert.Equal(t, 2, refreshed, "identity target is skipped")

	cached, err := repo.Get("USD", "EUR")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 0.80, cached.Rate)
}

func TestRepositoryUpsertReplaces(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert("USD", "EUR", 0.85, now))
	require.NoError(t, repo.Upsert("USD", "EUR", 0.87, now.Add(time.Hour)))

	cached, err := repo.Get("USD", "EUR")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 0.87, cached.Rate)
	assert.Equal(t, now.Add(time.Hour), cached.FetchedAt)
}

func TestRepositoryGetUnknownPair(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	cached, err := repo.Get("USD", "JPY")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

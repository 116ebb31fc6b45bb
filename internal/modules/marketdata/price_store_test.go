package marketdata

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertPointsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	id := createTestSecurity(t, db, "AAPL", "XNYS")
	store := NewPriceStore(db, zerolog.Nop())

	points := []PricePoint{
		{TS: 1000, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{TS: 2000, Open: 10.5, High: 12, Low: 10, Close: 11, Volume: 200},
	}
	require.NoError(t, store.UpsertPoints(id, ResolutionDaily, points))

	count, err := store.Count(id, ResolutionDaily)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Re-writing the same timestamps never duplicates rows
	points[1].Close = 99
	require.NoError(t, store.UpsertPoints(id, ResolutionDaily, points))

	count, err = store.Count(id, ResolutionDaily)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	series, err := store.CloseSeries(id, ResolutionDaily, 0, 3000)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, 99.0, series[1].Price, "upsert replaces the stored close")
}

func TestUpsertPointsSurfacesWriteErrors(t *testing.T) {
	db := setupTestDB(t)
	id := createTestSecurity(t, db, "AAPL", "XNYS")
	store := NewPriceStore(db, zerolog.Nop())

	_, err := db.Exec("DROP TABLE price_points_daily")
	require.NoError(t, err)

	err = store.UpsertPoints(id, ResolutionDaily, []PricePoint{{TS: 1000, Close: 1}})
	assert.ErrorContains(t, err, "transaction failed")
}

func TestUpsertPointsRejectsUnknownResolution(t *testing.T) {
	db := setupTestDB(t)
	id := createTestSecurity(t, db, "AAPL", "XNYS")
	store := NewPriceStore(db, zerolog.Nop())

	err := store.UpsertPoints(id, Resolution("hourly"), []PricePoint{{TS: 1}})
	assert.Error(t, err)
}

func TestTimestampsRange(t *testing.T) {
	db := setupTestDB(t)
	id := createTestSecurity(t, db, "AAPL", "XNYS")
	store := NewPriceStore(db, zerolog.Nop())

	require.NoError(t, store.UpsertPoints(id, ResolutionIntraday, []PricePoint{
		{TS: 100, Close: 1}, {TS: 200, Close: 2}, {TS: 300, Close: 3},
	}))

	stored, err := store.Timestamps(id, ResolutionIntraday, 150, 300)
	require.NoError(t, err)

	assert.False(t, stored[100])
	assert.True(t, stored[200])
	assert.True(t, stored[300])
}

func TestCloseSeriesOrdered(t *testing.T) {
	db := setupTestDB(t)
	id := createTestSecurity(t, db, "AAPL", "XNYS")
	store := NewPriceStore(db, zerolog.Nop())

	require.NoError(t, store.UpsertPoints(id, ResolutionDaily, []PricePoint{
		{TS: 3000, Close: 3}, {TS: 1000, Close: 1}, {TS: 2000, Close: 2},
	}))

	series, err := store.CloseSeries(id, ResolutionDaily, 0, 4000)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, int64(1000), series[0].TS)
	assert.Equal(t, int64(3000), series[2].TS)
}

func TestResolutionsUseSeparateTables(t *testing.T) {
	db := setupTestDB(t)
	id := createTestSecurity(t, db, "AAPL", "XNYS")
	store := NewPriceStore(db, zerolog.Nop())

	require.NoError(t, store.UpsertPoints(id, ResolutionIntraday, []PricePoint{{TS: 100, Close: 1}}))

	count, err := store.Count(id, ResolutionDaily)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

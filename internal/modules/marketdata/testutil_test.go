package marketdata

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/divitrack/divitrack/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// In-memory databases are per-connection
	db.SetMaxOpenConns(1)

	_, err = db.Exec(database.Schema("marketdata"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createTestSecurity(t *testing.T, db *sql.DB, symbol, exchange string) int64 {
	t.Helper()

	repo := NewSecurityRepository(db, zerolog.Nop())
	id, err := repo.Create(symbol, symbol+" Inc", exchange, "USD")
	require.NoError(t, err)
	return id
}

// fakeProvider is a scripted Provider implementation counting calls
type fakeProvider struct {
	mu           sync.Mutex
	configured   bool
	quoteFn      func(symbol string) (*ProviderQuote, error)
	candlesFn    func(symbol string, res Resolution, from, to int64) ([]Candle, error)
	quoteCalls   int
	candleCalls  int
	quoteSymbols []string
}

func (f *fakeProvider) Configured() bool {
	return f.configured
}

func (f *fakeProvider) Quote(symbol string) (*ProviderQuote, error) {
	f.mu.Lock()
	f.quoteCalls++
	f.quoteSymbols = append(f.quoteSymbols, symbol)
	f.mu.Unlock()

	if f.quoteFn != nil {
		return f.quoteFn(symbol)
	}
	return &ProviderQuote{Current: 100, Change: 1, ChangePercent: 1, Timestamp: time.Now().Unix()}, nil
}

func (f *fakeProvider) Candles(symbol string, res Resolution, from, to int64) ([]Candle, error) {
	f.mu.Lock()
	f.candleCalls++
	f.mu.Unlock()

	if f.candlesFn != nil {
		return f.candlesFn(symbol, res, from, to)
	}
	return nil, nil
}

// fakeCalendar is a scripted trading calendar
type fakeCalendar struct {
	tradingDay bool
	marketOpen bool
	sessionFn  func(t time.Time) (time.Time, time.Time, bool)
}

func (f *fakeCalendar) IsTradingDay(exchangeCode string, t time.Time) bool {
	return f.tradingDay
}

func (f *fakeCalendar) IsMarketOpen(exchangeCode string, t time.Time) bool {
	return f.tradingDay && f.marketOpen
}

func (f *fakeCalendar) Session(exchangeCode string, t time.Time) (time.Time, time.Time, bool) {
	if !f.tradingDay {
		return time.Time{}, time.Time{}, false
	}
	if f.sessionFn != nil {
		return f.sessionFn(t)
	}
	return time.Time{}, time.Time{}, false
}

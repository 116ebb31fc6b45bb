package marketdata

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogAppendAndCount(t *testing.T) {
	db := setupTestDB(t)
	audit := NewAuditLog(db, zerolog.Nop())

	require.NoError(t, audit.Append("finnhub", "/quote", "AAPL", "success", OriginInteractive))
	require.NoError(t, audit.Append("finnhub", "/quote", "MSFT", "error", OriginScheduled))

	count, err := audit.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAuditLogRecent(t *testing.T) {
	db := setupTestDB(t)
	audit := NewAuditLog(db, zerolog.Nop())

	require.NoError(t, audit.Append("finnhub", "/quote", "AAPL", "success", OriginInteractive))
	require.NoError(t, audit.Append("finnhub", "/stock/candle", "AAPL", "success", OriginScheduled))

	entries, err := audit.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, "finnhub", e.Service)
		assert.Equal(t, "AAPL", e.Symbol)
		assert.False(t, e.CreatedAt.IsZero())
	}

	limited, err := audit.Recent(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

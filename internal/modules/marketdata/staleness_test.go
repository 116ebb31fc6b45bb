package marketdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestPolicy(calendar TradingCalendar, threshold time.Duration, now time.Time) *StalenessPolicy {
	policy := NewStalenessPolicy(calendar, threshold, zerolog.Nop())
	policy.SetClock(func() time.Time { return now })
	return policy
}

func TestIsStaleZeroTime(t *testing.T) {
	policy := newTestPolicy(&fakeCalendar{}, 5*time.Minute, time.Now())
	assert.True(t, policy.IsStale(time.Time{}))
}

func TestIsStaleBoundary(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	policy := newTestPolicy(&fakeCalendar{}, 5*time.Minute, now)

	// Exactly at the threshold is still fresh
	assert.False(t, policy.IsStale(now.Add(-5*time.Minute)))
	assert.True(t, policy.IsStale(now.Add(-5*time.Minute-time.Second)))
	assert.False(t, policy.IsStale(now.Add(-4*time.Minute)))
}

func TestShouldAutoRefresh(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-time.Hour)
	fresh := now.Add(-time.Minute)

	cases := []struct {
		name       string
		tradingDay bool
		marketOpen bool
		lastUpdate time.Time
		want       bool
	}{
		{"open and stale", true, true, stale, true},
		{"open and fresh", true, true, fresh, false},
		{"closed market", true, false, stale, false},
		{"non-trading day", false, false, stale, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := newTestPolicy(&fakeCalendar{tradingDay: tc.tradingDay, marketOpen: tc.marketOpen}, 5*time.Minute, now)
			assert.Equal(t, tc.want, policy.ShouldAutoRefresh("XNYS", tc.lastUpdate))
		})
	}
}

func TestShouldManualRefresh(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	policy := newTestPolicy(&fakeCalendar{}, 5*time.Minute, now)

	fresh := now.Add(-time.Minute)
	stale := now.Add(-time.Hour)

	assert.False(t, policy.ShouldManualRefresh(fresh, false))
	assert.True(t, policy.ShouldManualRefresh(fresh, true), "force bypasses freshness")
	assert.True(t, policy.ShouldManualRefresh(stale, false))
}

package market_hours

import "time"

// TradingHours represents regular trading hours for an exchange
type TradingHours struct {
	OpenHour    int // Hour (0-23)
	OpenMinute  int // Minute (0-59)
	CloseHour   int // Hour (0-23)
	CloseMinute int // Minute (0-59)
}

// FixedDateHoliday represents a holiday on a fixed date
type FixedDateHoliday struct {
	Month int // 1-12
	Day   int // 1-31
	// If true, observe on nearest weekday if falls on weekend
	ObserveOnWeekday bool
}

// RuleBasedHoliday represents a holiday calculated by rule (nth weekday of month)
type RuleBasedHoliday struct {
	Month   int          // 1-12
	Weekday time.Weekday // Monday, Tuesday, etc.
	N       int          // Nth occurrence (1 = first, -1 = last)
}

// ExchangeConfig represents configuration for a single exchange
type ExchangeConfig struct {
	Code              string
	Name              string
	TradingHours      TradingHours
	Timezone          *time.Location
	FixedDateHolidays []FixedDateHoliday
	RuleBasedHolidays []RuleBasedHoliday
}

// MarketStatus is the coarse open/closed tag cached on price snapshots
type MarketStatus string

const (
	StatusOpen   MarketStatus = "open"
	StatusClosed MarketStatus = "closed"
)

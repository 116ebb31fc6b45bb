// Package market_hours provides the trading calendar used to gate market-data syncs.
package market_hours

import "time"

// Service answers trading-day and trading-hours questions per exchange.
// Holiday sets are cached per (exchange, year) since they are pure functions
// of the exchange rules.
type Service struct {
	holidayCache map[string][]time.Time
}

// NewService creates a new market hours service
func NewService() *Service {
	return &Service{
		holidayCache: make(map[string][]time.Time),
	}
}

// IsTradingDay reports whether t falls on a trading day (weekday, not a
// holiday) in the exchange's local calendar.
func (s *Service) IsTradingDay(exchangeCode string, t time.Time) bool {
	config := getExchangeConfig(GetExchangeCode(exchangeCode))
	if config == nil {
		return false
	}

	local := t.In(config.Timezone)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}

	return !s.isHoliday(config, local)
}

// IsMarketOpen reports whether the exchange is within its nominal trading
// hours at time t.
func (s *Service) IsMarketOpen(exchangeCode string, t time.Time) bool {
	config := getExchangeConfig(GetExchangeCode(exchangeCode))
	if config == nil {
		return false
	}

	if !s.IsTradingDay(exchangeCode, t) {
		return false
	}

	local := t.In(config.Timezone)
	open := time.Date(local.Year(), local.Month(), local.Day(),
		config.TradingHours.OpenHour, config.TradingHours.OpenMinute, 0, 0, config.Timezone)
	close := time.Date(local.Year(), local.Month(), local.Day(),
		config.TradingHours.CloseHour, config.TradingHours.CloseMinute, 0, 0, config.Timezone)

	// Open interval is [open, close)
	if local.Before(open) || local.After(close) || local.Equal(close) {
		return false
	}

	return true
}

// Status returns the coarse market status tag for snapshots
func (s *Service) Status(exchangeCode string, t time.Time) MarketStatus {
	if s.IsMarketOpen(exchangeCode, t) {
		return StatusOpen
	}
	return StatusClosed
}

// Session returns the trading session bounds for the day containing t in the
// exchange's local time. ok is false when the day is not a trading day.
func (s *Service) Session(exchangeCode string, t time.Time) (open, close time.Time, ok bool) {
	config := getExchangeConfig(GetExchangeCode(exchangeCode))
	if config == nil {
		return time.Time{}, time.Time{}, false
	}

	if !s.IsTradingDay(exchangeCode, t) {
		return time.Time{}, time.Time{}, false
	}

	local := t.In(config.Timezone)
	open = time.Date(local.Year(), local.Month(), local.Day(),
		config.TradingHours.OpenHour, config.TradingHours.OpenMinute, 0, 0, config.Timezone)
	close = time.Date(local.Year(), local.Month(), local.Day(),
		config.TradingHours.CloseHour, config.TradingHours.CloseMinute, 0, 0, config.Timezone)
	return open, close, true
}

// isHoliday checks if a local date is a holiday for the given exchange
func (s *Service) isHoliday(config *ExchangeConfig, local time.Time) bool {
	holidays := s.holidaysForYear(config, local.Year())

	dateStr := local.Format("2006-01-02")
	for _, holiday := range holidays {
		if holiday.Format("2006-01-02") == dateStr {
			return true
		}
	}

	return false
}

// holidaysForYear calculates all holidays for a given year and exchange
func (s *Service) holidaysForYear(config *ExchangeConfig, year int) []time.Time {
	cacheKey := config.Code + "-" + time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
	if holidays, ok := s.holidayCache[cacheKey]; ok {
		return holidays
	}

	holidays := make([]time.Time, 0, len(config.FixedDateHolidays)+len(config.RuleBasedHolidays))

	for _, h := range config.FixedDateHolidays {
		date := time.Date(year, time.Month(h.Month), h.Day, 0, 0, 0, 0, config.Timezone)
		if h.ObserveOnWeekday {
			date = observeOnWeekday(date)
		}
		holidays = append(holidays, date)
	}

	for _, h := range config.RuleBasedHolidays {
		var date time.Time
		if h.N == -1 {
			date = findLastWeekday(year, h.Month, h.Weekday)
		} else {
			date = findNthWeekday(year, h.Month, h.Weekday, h.N)
		}
		holidays = append(holidays, date)
	}

	s.holidayCache[cacheKey] = holidays
	return holidays
}

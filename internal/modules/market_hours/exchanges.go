package market_hours

import (
	"strings"
	"time"
)

// Exchange name mapping from catalog exchange names to exchange codes
var exchangeNameToCode = map[string]string{
	"NYSE":      "XNYS",
	"New York":  "XNYS",
	"NasdaqCM":  "XNAS",
	"NasdaqGS":  "XNAS",
	"NASDAQ":    "XNAS",
	"LSE":       "XLON",
	"London":    "XLON",
	"XETRA":     "XETR",
	"Frankfurt": "XETR",
}

// GetExchangeCode returns the exchange code for a catalog exchange name
func GetExchangeCode(name string) string {
	normalized := strings.TrimSpace(name)

	// Already a valid code
	if _, exists := exchangeConfigs[normalized]; exists {
		return normalized
	}

	if code, ok := exchangeNameToCode[normalized]; ok {
		return code
	}

	for alias, code := range exchangeNameToCode {
		if strings.EqualFold(normalized, alias) {
			return code
		}
	}

	// Fail-safe default
	return "XNYS"
}

// getExchangeConfig returns the configuration for an exchange code
func getExchangeConfig(exchangeCode string) *ExchangeConfig {
	if config, ok := exchangeConfigs[exchangeCode]; ok {
		return &config
	}
	if config, ok := exchangeConfigs["XNYS"]; ok {
		return &config
	}
	return nil
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("unknown timezone: " + name)
	}
	return loc
}

// usHolidays are shared by the US exchanges
var usFixedHolidays = []FixedDateHoliday{
	{Month: 1, Day: 1, ObserveOnWeekday: true},   // New Year's Day
	{Month: 6, Day: 19, ObserveOnWeekday: true},  // Juneteenth
	{Month: 7, Day: 4, ObserveOnWeekday: true},   // Independence Day
	{Month: 12, Day: 25, ObserveOnWeekday: true}, // Christmas
}

var usRuleHolidays = []RuleBasedHoliday{
	{Month: 1, Weekday: time.Monday, N: 3},    // MLK Day
	{Month: 2, Weekday: time.Monday, N: 3},    // Presidents Day
	{Month: 5, Weekday: time.Monday, N: -1},   // Memorial Day (last)
	{Month: 9, Weekday: time.Monday, N: 1},    // Labor Day
	{Month: 11, Weekday: time.Thursday, N: 4}, // Thanksgiving
}

// exchangeConfigs contains all exchange configurations
var exchangeConfigs = map[string]ExchangeConfig{
	"XNYS": {
		Code:              "XNYS",
		Name:              "New York Stock Exchange",
		TradingHours:      TradingHours{OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0},
		Timezone:          mustLoadLocation("America/New_York"),
		FixedDateHolidays: usFixedHolidays,
		RuleBasedHolidays: usRuleHolidays,
	},
	"XNAS": {
		Code:              "XNAS",
		Name:              "NASDAQ",
		TradingHours:      TradingHours{OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0},
		Timezone:          mustLoadLocation("America/New_York"),
		FixedDateHolidays: usFixedHolidays,
		RuleBasedHolidays: usRuleHolidays,
	},
	"XLON": {
		Code:         "XLON",
		Name:         "London Stock Exchange",
		TradingHours: TradingHours{OpenHour: 8, OpenMinute: 0, CloseHour: 16, CloseMinute: 30},
		Timezone:     mustLoadLocation("Europe/London"),
		FixedDateHolidays: []FixedDateHoliday{
			{Month: 1, Day: 1, ObserveOnWeekday: true},
			{Month: 12, Day: 25, ObserveOnWeekday: true},
			{Month: 12, Day: 26, ObserveOnWeekday: true}, // Boxing Day
		},
		RuleBasedHolidays: []RuleBasedHoliday{
			{Month: 5, Weekday: time.Monday, N: 1},  // Early May bank holiday
			{Month: 5, Weekday: time.Monday, N: -1}, // Spring bank holiday
			{Month: 8, Weekday: time.Monday, N: -1}, // Summer bank holiday
		},
	},
	"XETR": {
		Code:         "XETR",
		Name:         "Deutsche Boerse XETRA",
		TradingHours: TradingHours{OpenHour: 9, OpenMinute: 0, CloseHour: 17, CloseMinute: 30},
		Timezone:     mustLoadLocation("Europe/Berlin"),
		FixedDateHolidays: []FixedDateHoliday{
			{Month: 1, Day: 1},
			{Month: 5, Day: 1}, // Labour Day
			{Month: 12, Day: 24},
			{Month: 12, Day: 25},
			{Month: 12, Day: 26},
			{Month: 12, Day: 31},
		},
	},
}

// findNthWeekday returns the date of the Nth weekday of a month (N >= 1)
func findNthWeekday(year, month int, weekday time.Weekday, n int) time.Time {
	date := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	count := 0
	for date.Month() == time.Month(month) {
		if date.Weekday() == weekday {
			count++
			if count == n {
				return date
			}
		}
		date = date.AddDate(0, 0, 1)
	}
	return date.AddDate(0, 0, -1)
}

// findLastWeekday returns the date of the last weekday of a month
func findLastWeekday(year, month int, weekday time.Weekday) time.Time {
	// Start from the last day of the month and walk backwards
	date := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for date.Weekday() != weekday {
		date = date.AddDate(0, 0, -1)
	}
	return date
}

// observeOnWeekday shifts a weekend holiday to its observed weekday:
// Saturday is observed on Friday, Sunday on Monday.
func observeOnWeekday(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, -1)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	}
	return date
}

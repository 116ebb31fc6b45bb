package marketdata

import (
	"strings"
	"time"
)

// Horizon selects the span, point count and shape constants of a generated
// series.
type Horizon string

const (
	Horizon1D Horizon = "1D"
	Horizon1W Horizon = "1W"
	Horizon1M Horizon = "1M"
	Horizon3M Horizon = "3M"
	Horizon1Y Horizon = "1Y"
	Horizon5Y Horizon = "5Y"
)

// horizonParams holds the generation constants per horizon
type horizonParams struct {
	Points      int
	StepSeconds int64
	Volatility  float64
	Drift       float64
}

var horizons = map[Horizon]horizonParams{
	Horizon1D: {Points: 78, StepSeconds: 5 * 60, Volatility: 0.004, Drift: 0.0001},
	Horizon1W: {Points: 7, StepSeconds: 24 * 3600, Volatility: 0.01, Drift: 0.0005},
	Horizon1M: {Points: 30, StepSeconds: 24 * 3600, Volatility: 0.015, Drift: 0.001},
	Horizon3M: {Points: 90, StepSeconds: 24 * 3600, Volatility: 0.02, Drift: 0.001},
	Horizon1Y: {Points: 365, StepSeconds: 24 * 3600, Volatility: 0.025, Drift: 0.0015},
	Horizon5Y: {Points: 260, StepSeconds: 7 * 24 * 3600, Volatility: 0.04, Drift: 0.002},
}

// ParseHorizon maps a request string to a known horizon, defaulting to 1M
func ParseHorizon(s string) Horizon {
	h := Horizon(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := horizons[h]; ok {
		return h
	}
	return Horizon1M
}

// lcgNext advances the linear-congruential state and returns a value in [0, 1).
// Constants match the classic 233280-modulus generator so the sequence is
// reproducible across runs and platforms.
func lcgNext(seed int64) (int64, float64) {
	seed = (seed*9301 + 49297) % 233280
	return seed, float64(seed) / 233280.0
}

// charCodeSum is the deterministic per-symbol seed base
func charCodeSum(symbol string) int64 {
	var sum int64
	for _, r := range symbol {
		sum += int64(r)
	}
	return sum
}

// GenerateSyntheticPrices produces a deterministic pseudo-random price path.
// Identical inputs always yield bit-identical output, so fallback charts are
// stable across reloads. Prices never drop below one cent of the base.
func GenerateSyntheticPrices(symbol string, horizon Horizon, basePrice float64) []float64 {
	params, ok := horizons[horizon]
	if !ok {
		params = horizons[Horizon1M]
	}
	if basePrice <= 0 {
		basePrice = 100.0
	}

	base := charCodeSum(symbol)
	prices := make([]float64, params.Points)

	price := basePrice
	for i := 0; i < params.Points; i++ {
		_, r := lcgNext(base + int64(i))
		price = price * (1 + params.Drift + (r-0.5)*params.Volatility)
		if price < basePrice*0.01 {
			price = basePrice * 0.01
		}
		prices[i] = price
	}

	return prices
}

// SyntheticSeries wraps the generated path in a provenance-tagged series
// ending at endTime, with timestamps spaced per the horizon.
func SyntheticSeries(symbol string, horizon Horizon, basePrice float64, endTime time.Time) TaggedSeries {
	params, ok := horizons[horizon]
	if !ok {
		params = horizons[Horizon1M]
	}

	prices := GenerateSyntheticPrices(symbol, horizon, basePrice)
	points := make([]SeriesPoint, len(prices))

	start := endTime.Unix() - int64(params.Points-1)*params.StepSeconds
	for i, price := range prices {
		points[i] = SeriesPoint{
			TS:    start + int64(i)*params.StepSeconds,
			Price: price,
		}
	}

	return TaggedSeries{
		Symbol:     symbol,
		Provenance: ProvenanceSynthetic,
		Points:     points,
	}
}

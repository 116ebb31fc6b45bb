// Package finnhub provides client functionality for the Finnhub market-data API.
package finnhub

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Client for the Finnhub REST API.
// Retry semantics live here, not in callers: each request is attempted up to
// maxAttempts times with backoff before the call is reported as failed.
type Client struct {
	http   *resty.Client
	apiKey string
	log    zerolog.Logger
}

const (
	requestTimeout = 10 * time.Second
	maxAttempts    = 3
	retryWait      = 500 * time.Millisecond
	retryMaxWait   = 5 * time.Second
)

// NewClient creates a new Finnhub client.
// baseURL is overridable for tests; pass the public API URL in production.
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetRetryCount(maxAttempts - 1).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait)

	return &Client{
		http:   http,
		apiKey: apiKey,
		log:    log.With().Str("client", "finnhub").Logger(),
	}
}

// Configured reports whether provider credentials are present.
// Callers must check this before entering a sync batch.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Quote is the provider's current-quote payload.
type Quote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// CandleSeries is the provider's column-oriented candle payload.
type CandleSeries struct {
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"`
	Open       []float64 `json:"o"`
	High       []float64 `json:"h"`
	Low        []float64 `json:"l"`
	Close      []float64 `json:"c"`
	Volume     []int64   `json:"v"`
}

// GetQuote fetches the current quote for a symbol.
// Network errors, non-2xx responses and malformed payloads are all returned
// as errors so batch callers can record the symbol as failed and continue.
func (c *Client) GetQuote(symbol string) (*Quote, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("finnhub API key not configured")
	}

	var quote Quote
	resp, err := c.http.R().
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"token":  c.apiKey,
		}).
		SetResult(&quote).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("quote request failed for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("quote request for %s returned status %d", symbol, resp.StatusCode())
	}

	// Finnhub returns an all-zero payload for unknown symbols
	if quote.Timestamp == 0 && quote.Current == 0 {
		return nil, fmt.Errorf("no quote data for %s", symbol)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Float64("price", quote.Current).
		Msg("Fetched quote")

	return &quote, nil
}

// GetCandles fetches a historical candle series for a symbol.
// resolution uses the provider's vocabulary ("5" for 5-minute, "D" for daily).
func (c *Client) GetCandles(symbol, resolution string, fromUnix, toUnix int64) (*CandleSeries, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("finnhub API key not configured")
	}
	if fromUnix >= toUnix {
		return nil, fmt.Errorf("invalid candle window for %s: from %d >= to %d", symbol, fromUnix, toUnix)
	}

	var series CandleSeries
	resp, err := c.http.R().
		SetQueryParams(map[string]string{
			"symbol":     symbol,
			"resolution": resolution,
			"from":       fmt.Sprintf("%d", fromUnix),
			"to":         fmt.Sprintf("%d", toUnix),
			"token":      c.apiKey,
		}).
		SetResult(&series).
		Get("/stock/candle")
	if err != nil {
		return nil, fmt.Errorf("candle request failed for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("candle request for %s returned status %d", symbol, resp.StatusCode())
	}

	if series.Status != "ok" {
		return nil, fmt.Errorf("no candle data for %s (status %q)", symbol, series.Status)
	}
	if len(series.Timestamps) != len(series.Close) {
		return nil, fmt.Errorf("malformed candle payload for %s: %d timestamps, %d closes",
			symbol, len(series.Timestamps), len(series.Close))
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("resolution", resolution).
		Int("count", len(series.Timestamps)).
		Msg("Fetched candles")

	return &series, nil
}

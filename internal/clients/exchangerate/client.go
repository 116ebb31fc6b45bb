// Package exchangerate provides currency exchange rate fetching from exchangerate-api.com.
package exchangerate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client for exchangerate-api.com
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new exchangerate-api.com client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://api.exchangerate-api.com/v4/latest",
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "exchangerate-api").Logger(),
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint (used in tests)
func NewClientWithBaseURL(baseURL string, log zerolog.Logger) *Client {
	c := NewClient(log)
	c.baseURL = baseURL
	return c
}

// GetRate fetches the current rate for a currency pair.
// Caching and stale fallback are the caller's concern; this client only
// talks to the API and reports failures as errors.
func (c *Client) GetRate(baseCurrency, targetCurrency string) (float64, error) {
	if baseCurrency == targetCurrency {
		return 1.0, nil
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, baseCurrency)
	c.log.Debug().Str("url", url).Msg("Fetching rates")

	resp, err := c.client.Get(url)
	if err != nil {
		return 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	rate, exists := result.Rates[targetCurrency]
	if !exists {
		return 0, fmt.Errorf("rate not found for %s->%s", baseCurrency, targetCurrency)
	}

	c.log.Info().
		Str("base", baseCurrency).
		Str("target", targetCurrency).
		Float64("rate", rate).
		Msg("Fetched rate")

	return rate, nil
}

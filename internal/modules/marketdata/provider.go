package marketdata

import (
	"github.com/divitrack/divitrack/internal/clients/finnhub"
)

// ProviderQuote is a provider-neutral current quote
type ProviderQuote struct {
	Current       float64
	Open          float64
	High          float64
	Low           float64
	PreviousClose float64
	Change        float64
	ChangePercent float64
	Timestamp     int64
}

// Candle is a provider-neutral OHLCV candle
type Candle struct {
	TS     int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Provider is the slice of the market-data provider the engine depends on.
// Defined here so the orchestrator and gap filler can be tested with fakes.
type Provider interface {
	Configured() bool
	Quote(symbol string) (*ProviderQuote, error)
	Candles(symbol string, res Resolution, fromUnix, toUnix int64) ([]Candle, error)
}

// FinnhubProvider adapts the Finnhub client to the Provider interface
type FinnhubProvider struct {
	client *finnhub.Client
}

// NewFinnhubProvider wraps a Finnhub client
func NewFinnhubProvider(client *finnhub.Client) *FinnhubProvider {
	return &FinnhubProvider{client: client}
}

// Configured reports whether provider credentials are present
func (p *FinnhubProvider) Configured() bool {
	return p.client.Configured()
}

// Quote fetches the current quote for a symbol
func (p *FinnhubProvider) Quote(symbol string) (*ProviderQuote, error) {
	q, err := p.client.GetQuote(symbol)
	if err != nil {
		return nil, err
	}

	return &ProviderQuote{
		Current:       q.Current,
		Open:          q.Open,
		High:          q.High,
		Low:           q.Low,
		PreviousClose: q.PreviousClose,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Timestamp:     q.Timestamp,
	}, nil
}

// Candles fetches a candle series and flattens the provider's
// column-oriented payload into rows.
func (p *FinnhubProvider) Candles(symbol string, res Resolution, fromUnix, toUnix int64) ([]Candle, error) {
	series, err := p.client.GetCandles(symbol, res.ProviderCode(), fromUnix, toUnix)
	if err != nil {
		return nil, err
	}

	candles := make([]Candle, 0, len(series.Timestamps))
	for i, ts := range series.Timestamps {
		c := Candle{TS: ts, Close: series.Close[i]}
		if i < len(series.Open) {
			c.Open = series.Open[i]
		}
		if i < len(series.High) {
			c.High = series.High[i]
		}
		if i < len(series.Low) {
			c.Low = series.Low[i]
		}
		if i < len(series.Volume) {
			c.Volume = series.Volume[i]
		}
		candles = append(candles, c)
	}

	return candles, nil
}

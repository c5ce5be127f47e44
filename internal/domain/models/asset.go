package models

import "time"

// PriceHistorySize is the number of data points kept per asset for charting.
// Oldest points are evicted first.
const PriceHistorySize = 12

// Asset represents a synthetic tradable token.
// Note: no transport (json/http) concerns here.
type Asset struct {
	Symbol        string    // unique, 1-4 uppercase characters derived from Name
	Name          string    // unique, human-readable
	Price         float64   // current quote, always > 0
	ChangePercent float64   // signed move over the last update tick
	APY           *float64  // optional yield, absent for ~30% of assets
	Volatility    float64   // fixed at creation, governs drift magnitude
	PriceHistory  []float64 // most recent prices, len <= PriceHistorySize
	Watched       bool
	CreatedAt     time.Time
}

// IsNew reports whether the asset was created within the last 24 hours.
func (a *Asset) IsNew(now time.Time) bool {
	return now.Sub(a.CreatedAt) <= 24*time.Hour
}

// Change24h derives the percentage move against the second most recent
// history point. With fewer than two points the reference falls back to the
// current price itself, yielding 0.
func (a *Asset) Change24h() float64 {
	ref := a.Price
	if n := len(a.PriceHistory); n >= 2 {
		ref = a.PriceHistory[n-2]
	}
	if ref == 0 {
		return 0
	}
	return (a.Price - ref) / ref * 100
}

// AssetQuote is the listing view of an asset: the stored fields plus the
// derived 24h change.
type AssetQuote struct {
	Asset
	Change24h float64
}

// Candle is a synthesized OHLCV point expanded from the price history for
// the single-asset chart view.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// AssetDetail is the single-asset view with the history expanded to candles.
type AssetDetail struct {
	Asset
	Candles []Candle
}

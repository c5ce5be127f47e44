package models

// Simulation clock keys, one per time-gated background job.
const (
	ClockGeneration = "lastGeneration"
	ClockUpdate     = "lastUpdate"
)

// QuoteEvent is the message published to downstream consumers after each
// price-update pass, one per asset.
type QuoteEvent struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
	Timestamp     int64   `json:"ts"`
}

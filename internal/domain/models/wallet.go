package models

// HoldingView is one open position joined with the live quote.
type HoldingView struct {
	Symbol                  string
	Quantity                float64
	AverageCost             float64
	CurrentPrice            float64
	UnrealizedPnL           float64
	UnrealizedPnLPercentage float64
}

// TradedSymbol is the per-symbol fold over the full transaction history.
// AverageCost here is the running average rebuilt from the log, which can
// differ from the holding's average once sells occurred.
type TradedSymbol struct {
	Symbol                string
	AverageCost           float64
	TotalBought           float64
	TotalSold             float64
	RealizedPnL           float64
	RealizedPnLPercentage float64
}

// Wallet is the derived, read-only portfolio view.
type Wallet struct {
	Balance       float64
	Holdings      []HoldingView
	TradedSymbols []TradedSymbol
}

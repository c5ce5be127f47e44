package api

import (
	"time"

	"CoinPulse/internal/domain/models"
)

// MarketsRequest filters the asset listing.
type MarketsRequest struct {
	Category string `query:"category" default:"all" validate:"oneof=all new gainers losers watchlist"`
	Query    string `query:"q" validate:"omitempty,max=64"`
}

// BuyRequest spends a USD notional on a symbol.
type BuyRequest struct {
	Symbol string  `json:"symbol" validate:"required,min=1,max=4"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// SellRequest liquidates a quantity of a held symbol.
type SellRequest struct {
	Symbol   string  `json:"symbol" validate:"required,min=1,max=4"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

// AssetResponse is the listing view of one asset.
type AssetResponse struct {
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	APY       *float64  `json:"apy"`
	ChartData []float64 `json:"chartData"`
	IsWatched bool      `json:"isWatched"`
	CreatedAt time.Time `json:"createdAt"`
	Change24h float64   `json:"change24h"`
}

func toAssetResponse(q models.AssetQuote) AssetResponse {
	return AssetResponse{
		Name:      q.Name,
		Symbol:    q.Symbol,
		Price:     q.Price,
		Change:    q.ChangePercent,
		APY:       q.APY,
		ChartData: q.PriceHistory,
		IsWatched: q.Watched,
		CreatedAt: q.CreatedAt,
		Change24h: q.Change24h,
	}
}

// CandleResponse is one synthesized OHLCV point of the detail chart.
type CandleResponse struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// AssetDetailResponse is the single-asset view.
type AssetDetailResponse struct {
	Name      string           `json:"name"`
	Symbol    string           `json:"symbol"`
	Price     float64          `json:"price"`
	Change    float64          `json:"change"`
	APY       *float64         `json:"apy"`
	IsWatched bool             `json:"isWatched"`
	CreatedAt time.Time        `json:"createdAt"`
	ChartData []CandleResponse `json:"chartData"`
}

func toAssetDetailResponse(d *models.AssetDetail) AssetDetailResponse {
	candles := make([]CandleResponse, 0, len(d.Candles))
	for _, cd := range d.Candles {
		candles = append(candles, CandleResponse{
			Date:   cd.Date,
			Open:   cd.Open,
			High:   cd.High,
			Low:    cd.Low,
			Close:  cd.Close,
			Volume: cd.Volume,
		})
	}
	return AssetDetailResponse{
		Name:      d.Name,
		Symbol:    d.Symbol,
		Price:     d.Price,
		Change:    d.ChangePercent,
		APY:       d.APY,
		IsWatched: d.Watched,
		CreatedAt: d.CreatedAt,
		ChartData: candles,
	}
}

// HoldingResponse is one open position with live PnL.
type HoldingResponse struct {
	Symbol                  string  `json:"symbol"`
	Amount                  float64 `json:"amount"`
	AveragePrice            float64 `json:"averagePrice"`
	CurrentPrice            float64 `json:"currentPrice"`
	UnrealizedPnL           float64 `json:"unrealizedPnL"`
	UnrealizedPnLPercentage float64 `json:"unrealizedPnLPercentage"`
}

// TradedCoinResponse is the realized-PnL fold for one traded symbol.
type TradedCoinResponse struct {
	Symbol                string  `json:"symbol"`
	AveragePrice          float64 `json:"averagePrice"`
	TotalBought           float64 `json:"totalBought"`
	TotalSold             float64 `json:"totalSold"`
	RealizedPnL           float64 `json:"realizedPnL"`
	RealizedPnLPercentage float64 `json:"realizedPnLPercentage"`
}

// WalletResponse is the derived portfolio view.
type WalletResponse struct {
	Balance      float64              `json:"balance"`
	HoldingCoins []HoldingResponse    `json:"holdingCoins"`
	TradedCoins  []TradedCoinResponse `json:"tradedCoins"`
}

func toWalletResponse(w *models.Wallet) WalletResponse {
	holdings := make([]HoldingResponse, 0, len(w.Holdings))
	for _, h := range w.Holdings {
		holdings = append(holdings, HoldingResponse{
			Symbol:                  h.Symbol,
			Amount:                  h.Quantity,
			AveragePrice:            h.AverageCost,
			CurrentPrice:            h.CurrentPrice,
			UnrealizedPnL:           h.UnrealizedPnL,
			UnrealizedPnLPercentage: h.UnrealizedPnLPercentage,
		})
	}
	traded := make([]TradedCoinResponse, 0, len(w.TradedSymbols))
	for _, t := range w.TradedSymbols {
		traded = append(traded, TradedCoinResponse{
			Symbol:                t.Symbol,
			AveragePrice:          t.AverageCost,
			TotalBought:           t.TotalBought,
			TotalSold:             t.TotalSold,
			RealizedPnL:           t.RealizedPnL,
			RealizedPnLPercentage: t.RealizedPnLPercentage,
		})
	}
	return WalletResponse{
		Balance:      w.Balance,
		HoldingCoins: holdings,
		TradedCoins:  traded,
	}
}

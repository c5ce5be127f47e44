package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/domain/repository"
	"CoinPulse/pkg/logger"
)

// Option configures Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m repository.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNow sets the wall clock for transaction timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service maintains cash and holdings consistently with the append-only
// transaction log, and derives profit/loss views without mutating stored
// state. All mutation goes through UserStore.Update, which serializes
// concurrent trades per user.
type Service struct {
	users           repository.UserStore
	assets          repository.AssetStore
	startingBalance float64
	log             *logger.Logger
	metrics         repository.Metrics
	now             func() time.Time
}

// NewService creates the ledger. startingBalance is credited to users on
// first access; account registration itself lives outside this service.
func NewService(users repository.UserStore, assets repository.AssetStore, startingBalance float64, opts ...Option) *Service {
	s := &Service{
		users:           users,
		assets:          assets,
		startingBalance: startingBalance,
		log:             logger.Nop(),
		metrics:         repository.NopMetrics{},
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Buy spends usdAmount of cash on symbol at the current quote. The quantity
// acquired is usdAmount / price; the holding's average cost is re-weighted:
//
//	newAvg = (oldAvg*oldQty + usdAmount) / (oldQty + quantity)
//
// Balance debit, holding update and transaction append apply atomically or
// not at all.
func (s *Service) Buy(ctx context.Context, userID, symbol string, usdAmount float64) error {
	if usdAmount <= 0 || math.IsNaN(usdAmount) || math.IsInf(usdAmount, 0) {
		return models.ErrInvalidAmount
	}

	asset, err := s.assets.Get(ctx, symbol)
	if err != nil {
		return err
	}
	price := asset.Price

	if _, err := s.users.GetOrCreate(ctx, userID, s.startingBalance); err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	err = s.users.Update(ctx, userID, func(u *models.User) error {
		if u.Balance < usdAmount {
			return models.ErrInsufficientBalance
		}

		quantity := usdAmount / price
		u.Balance -= usdAmount

		if h := u.Holding(symbol); h != nil {
			newQty := h.Quantity + quantity
			h.AverageCost = (h.AverageCost*h.Quantity + usdAmount) / newQty
			h.Quantity = newQty
		} else {
			u.Holdings = append(u.Holdings, models.Holding{
				Symbol:      symbol,
				Quantity:    quantity,
				AverageCost: price,
			})
		}

		u.Transactions = append(u.Transactions, models.Transaction{
			Kind:     models.TransactionBuy,
			Symbol:   symbol,
			Quantity: quantity,
			Price:    price,
			Time:     s.now(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordTrade("buy", symbol)
	s.log.Info("buy executed",
		logger.String("user", userID),
		logger.String("symbol", symbol),
		logger.Float64("usd", usdAmount),
		logger.Float64("price", price))
	return nil
}

// Sell liquidates quantity units of symbol at the current quote, crediting
// the proceeds to cash. A position sold down to zero is removed.
func (s *Service) Sell(ctx context.Context, userID, symbol string, quantity float64) error {
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return models.ErrInvalidAmount
	}

	asset, err := s.assets.Get(ctx, symbol)
	if err != nil {
		return err
	}
	price := asset.Price

	if _, err := s.users.GetOrCreate(ctx, userID, s.startingBalance); err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	err = s.users.Update(ctx, userID, func(u *models.User) error {
		h := u.Holding(symbol)
		if h == nil || h.Quantity < quantity {
			return models.ErrInsufficientHoldings
		}

		u.Balance += quantity * price
		h.Quantity -= quantity
		if h.Quantity == 0 {
			u.RemoveHolding(symbol)
		}

		u.Transactions = append(u.Transactions, models.Transaction{
			Kind:     models.TransactionSell,
			Symbol:   symbol,
			Quantity: quantity,
			Price:    price,
			Time:     s.now(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordTrade("sell", symbol)
	s.log.Info("sell executed",
		logger.String("user", userID),
		logger.String("symbol", symbol),
		logger.Float64("quantity", quantity),
		logger.Float64("price", price))
	return nil
}

// Wallet derives the portfolio view: open positions joined with live quotes
// for unrealized PnL, and a per-symbol fold over the full transaction log
// for realized PnL. It performs no writes, so calling it twice with no
// intervening trades yields identical results.
func (s *Service) Wallet(ctx context.Context, userID string) (*models.Wallet, error) {
	u, err := s.users.GetOrCreate(ctx, userID, s.startingBalance)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	holdings := make([]models.HoldingView, 0, len(u.Holdings))
	for _, h := range u.Holdings {
		// Missing assets price at zero rather than failing the whole view.
		var price float64
		if a, err := s.assets.Get(ctx, h.Symbol); err == nil {
			price = a.Price
		}

		holdings = append(holdings, models.HoldingView{
			Symbol:                  h.Symbol,
			Quantity:                h.Quantity,
			AverageCost:             h.AverageCost,
			CurrentPrice:            price,
			UnrealizedPnL:           (price - h.AverageCost) * h.Quantity,
			UnrealizedPnLPercentage: (price - h.AverageCost) / h.AverageCost * 100,
		})
	}

	return &models.Wallet{
		Balance:       u.Balance,
		Holdings:      holdings,
		TradedSymbols: foldTransactions(u.Transactions),
	}, nil
}

// foldTransactions rebuilds per-symbol cost basis and realized PnL from the
// ordered transaction log. Buys re-weight the running average cost, sells
// realize (txPrice - runningAvg) * txQty against it.
//
// The first record seen for a symbol is seeded from that transaction's own
// fields. For a history that opens with a sell there is no cost basis yet
// and the seeded figure degenerates to (price - quantity) * quantity; this
// quirk is retained so stored ledgers keep reporting stable numbers.
func foldTransactions(txs []models.Transaction) []models.TradedSymbol {
	index := make(map[string]int)
	folded := make([]models.TradedSymbol, 0)

	for _, tx := range txs {
		i, seen := index[tx.Symbol]
		if !seen {
			rec := models.TradedSymbol{
				Symbol:      tx.Symbol,
				AverageCost: tx.Price,
			}
			if tx.Kind == models.TransactionSell {
				rec.RealizedPnL = (tx.Price - tx.Quantity) * tx.Quantity
				rec.TotalSold = tx.Quantity
			} else {
				rec.TotalBought = tx.Quantity
			}
			index[tx.Symbol] = len(folded)
			folded = append(folded, rec)
			continue
		}

		rec := &folded[i]
		if tx.Kind == models.TransactionSell {
			rec.RealizedPnL += (tx.Price - rec.AverageCost) * tx.Quantity
			rec.TotalSold += tx.Quantity
		} else {
			total := rec.TotalBought + tx.Quantity
			rec.AverageCost = (rec.AverageCost*rec.TotalBought + tx.Price*tx.Quantity) / total
			rec.TotalBought = total
		}
	}

	for i := range folded {
		if folded[i].TotalSold > 0 {
			folded[i].RealizedPnLPercentage =
				folded[i].RealizedPnL / (folded[i].AverageCost * folded[i].TotalSold) * 100
		}
	}
	return folded
}

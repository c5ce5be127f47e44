package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinPulse/internal/domain/models"
	internalrepo "CoinPulse/internal/repository"
)

type fixture struct {
	users  *internalrepo.MemoryUserStore
	assets *internalrepo.MemoryAssetStore
	svc    *Service
}

func newFixture(t *testing.T, startingBalance float64) *fixture {
	t.Helper()
	f := &fixture{
		users:  internalrepo.NewMemoryUserStore(),
		assets: internalrepo.NewMemoryAssetStore(),
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc = NewService(f.users, f.assets, startingBalance,
		WithNow(func() time.Time { return now }),
	)
	return f
}

func (f *fixture) addAsset(t *testing.T, symbol string, price float64) {
	t.Helper()
	require.NoError(t, f.assets.Create(context.Background(), &models.Asset{
		Symbol: symbol,
		Name:   symbol + "Coin",
		Price:  price,
	}))
}

func (f *fixture) setPrice(t *testing.T, symbol string, price float64) {
	t.Helper()
	ctx := context.Background()
	a, err := f.assets.Get(ctx, symbol)
	require.NoError(t, err)
	a.Price = price
	require.NoError(t, f.assets.Save(ctx, a))
}

func TestBuyOpensPosition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	f.addAsset(t, "QCX", 10)

	require.NoError(t, f.svc.Buy(ctx, "u1", "QCX", 100))

	u, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 900.0, u.Balance)
	require.Len(t, u.Holdings, 1)
	assert.Equal(t, 10.0, u.Holdings[0].Quantity)
	assert.Equal(t, 10.0, u.Holdings[0].AverageCost)
	require.Len(t, u.Transactions, 1)
	assert.Equal(t, models.TransactionBuy, u.Transactions[0].Kind)
	assert.Equal(t, 10.0, u.Transactions[0].Quantity)
	assert.Equal(t, 10.0, u.Transactions[0].Price)
}

func TestBuyReweightsAverageCost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	f.addAsset(t, "QCX", 10)

	require.NoError(t, f.svc.Buy(ctx, "u1", "QCX", 100))
	f.setPrice(t, "QCX", 20)
	require.NoError(t, f.svc.Buy(ctx, "u1", "QCX", 50))

	u, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 850.0, u.Balance)
	require.Len(t, u.Holdings, 1)
	assert.Equal(t, 12.5, u.Holdings[0].Quantity)
	assert.Equal(t, 12.0, u.Holdings[0].AverageCost)
}

func TestBuyInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	f.addAsset(t, "QCX", 10)

	err := f.svc.Buy(ctx, "u1", "QCX", 1001)
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	u, getErr := f.users.Get(ctx, "u1")
	require.NoError(t, getErr)
	assert.Equal(t, 1000.0, u.Balance)
	assert.Empty(t, u.Holdings)
	assert.Empty(t, u.Transactions)
}

func TestBuyValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	f.addAsset(t, "QCX", 10)

	assert.ErrorIs(t, f.svc.Buy(ctx, "u1", "QCX", 0), models.ErrInvalidAmount)
	assert.ErrorIs(t, f.svc.Buy(ctx, "u1", "QCX", -5), models.ErrInvalidAmount)
	assert.ErrorIs(t, f.svc.Buy(ctx, "u1", "NOPE", 100), models.ErrAssetNotFound)
}

func TestSellRealizesProceeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	f.addAsset(t, "QCX", 10)

	require.NoError(t, f.svc.Buy(ctx, "u1", "QCX", 100)) // 10 units at 10
	f.setPrice(t, "QCX", 15)
	require.NoError(t, f.svc.Sell(ctx, "u1", "QCX", 4))

	u, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 960.0, u.Balance) // 900 + 4*15
	require.Len(t, u.Holdings, 1)
	assert.Equal(t, 6.0, u.Holdings[0].Quantity)
	assert.Equal(t, 10.0, u.Holdings[0].AverageCost)
}

func TestSellFullPositionRemovesHolding(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	f.addAsset(t, "QCX", 10)

	require.NoError(t, f.svc.Buy(ctx, "u1", "QCX", 100))
	require.NoError(t, f.svc.Sell(ctx, "u1", "QCX", 10))

	u, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, u.Holdings)
	assert.Equal(t, 1000.0, u.Balance)
	assert.Len(t, u.Transactions, 2)
}

func TestSellMoreThanHeld(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	f.addAsset(t, "QCX", 10)

	require.NoError(t, f.svc.Buy(ctx, "u1", "QCX", 100))
	assert.ErrorIs(t, f.svc.Sell(ctx, "u1", "QCX", 11), models.ErrInsufficientHoldings)
	assert.ErrorIs(t, f.svc.Sell(ctx, "u1", "ZZZ", 1), models.ErrAssetNotFound)

	u, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 900.0, u.Balance)
	require.Len(t, u.Holdings, 1)
	assert.Equal(t, 10.0, u.Holdings[0].Quantity)
}

func TestWalletProvisionsNewUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)

	w, err := f.svc.Wallet(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, w.Balance)
	assert.Empty(t, w.Holdings)
	assert.Empty(t, w.TradedSymbols)
}

func TestWalletUnrealizedPnL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	f.addAsset(t, "QCX", 10)

	require.NoError(t, f.svc.Buy(ctx, "u1", "QCX", 100))
	f.setPrice(t, "QCX", 12)

	w, err := f.svc.Wallet(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, w.Holdings, 1)
	h := w.Holdings[0]
	assert.Equal(t, 12.0, h.CurrentPrice)
	assert.InDelta(t, 20.0, h.UnrealizedPnL, 1e-9) // (12-10)*10
	assert.InDelta(t, 20.0, h.UnrealizedPnLPercentage, 1e-9)
}

func TestWalletRealizedPnL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	f.addAsset(t, "QCX", 10)

	require.NoError(t, f.svc.Buy(ctx, "u1", "QCX", 100)) // 10 @ 10
	f.setPrice(t, "QCX", 15)
	require.NoError(t, f.svc.Sell(ctx, "u1", "QCX", 4)) // realize (15-10)*4 = 20

	w, err := f.svc.Wallet(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, w.TradedSymbols, 1)
	ts := w.TradedSymbols[0]
	assert.Equal(t, "QCX", ts.Symbol)
	assert.Equal(t, 10.0, ts.AverageCost)
	assert.InDelta(t, 20.0, ts.RealizedPnL, 1e-9)
	assert.InDelta(t, 50.0, ts.RealizedPnLPercentage, 1e-9) // 20 / (10*4) * 100
	assert.Equal(t, 10.0, ts.TotalBought)
	assert.Equal(t, 4.0, ts.TotalSold)
}

func TestWalletIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	f.addAsset(t, "QCX", 10)
	require.NoError(t, f.svc.Buy(ctx, "u1", "QCX", 100))

	first, err := f.svc.Wallet(ctx, "u1")
	require.NoError(t, err)
	second, err := f.svc.Wallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWalletMissingAssetPricesAtZero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	f.addAsset(t, "QCX", 10)
	require.NoError(t, f.svc.Buy(ctx, "u1", "QCX", 100))

	// Simulate a holding whose asset no longer resolves.
	require.NoError(t, f.users.Update(ctx, "u1", func(u *models.User) error {
		u.Holdings[0].Symbol = "GONE"
		return nil
	}))

	w, err := f.svc.Wallet(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, w.Holdings, 1)
	assert.Equal(t, 0.0, w.Holdings[0].CurrentPrice)
	assert.InDelta(t, -100.0, w.Holdings[0].UnrealizedPnL, 1e-9)
}

// A log that opens with a sell has no cost basis yet; the fold seeds realized
// PnL from the transaction's own fields as (price - quantity) * quantity.
// That figure is part of the stored-ledger contract and must not drift.
func TestFoldSellBeforeBuySeed(t *testing.T) {
	txs := []models.Transaction{
		{Kind: models.TransactionSell, Symbol: "QCX", Quantity: 3, Price: 15},
		{Kind: models.TransactionBuy, Symbol: "QCX", Quantity: 5, Price: 10},
	}

	folded := foldTransactions(txs)
	require.Len(t, folded, 1)
	rec := folded[0]

	assert.InDelta(t, (15.0-3.0)*3.0, rec.RealizedPnL, 1e-9)
	assert.Equal(t, 3.0, rec.TotalSold)
	assert.Equal(t, 5.0, rec.TotalBought)
	// The later buy re-weights against TotalBought=0, landing on the buy price.
	assert.InDelta(t, 10.0, rec.AverageCost, 1e-9)
}

func TestFoldMultipleSymbols(t *testing.T) {
	txs := []models.Transaction{
		{Kind: models.TransactionBuy, Symbol: "AAA", Quantity: 10, Price: 5},
		{Kind: models.TransactionBuy, Symbol: "BBB", Quantity: 2, Price: 100},
		{Kind: models.TransactionBuy, Symbol: "AAA", Quantity: 10, Price: 15},
		{Kind: models.TransactionSell, Symbol: "AAA", Quantity: 5, Price: 20},
	}

	folded := foldTransactions(txs)
	require.Len(t, folded, 2)

	var aaa models.TradedSymbol
	for _, rec := range folded {
		if rec.Symbol == "AAA" {
			aaa = rec
		}
	}
	assert.InDelta(t, 10.0, aaa.AverageCost, 1e-9) // (5*10 + 15*10) / 20
	assert.InDelta(t, 50.0, aaa.RealizedPnL, 1e-9) // (20-10)*5
	assert.Equal(t, 20.0, aaa.TotalBought)
	assert.Equal(t, 5.0, aaa.TotalSold)
}

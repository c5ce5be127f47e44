package market

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinPulse/internal/domain/models"
	internalrepo "CoinPulse/internal/repository"
)

// collidingAssetStore rejects every Create with a duplicate-key error, as if
// all 100 name combinations were already taken.
type collidingAssetStore struct {
	attempts int
}

func (s *collidingAssetStore) Create(context.Context, *models.Asset) error {
	s.attempts++
	return models.ErrDuplicateKey
}

func (s *collidingAssetStore) Get(context.Context, string) (*models.Asset, error) {
	return nil, models.ErrAssetNotFound
}

func (s *collidingAssetStore) List(context.Context) ([]*models.Asset, error) { return nil, nil }
func (s *collidingAssetStore) Save(context.Context, *models.Asset) error     { return nil }
func (s *collidingAssetStore) SaveAll(context.Context, []*models.Asset) error {
	return nil
}

// stubRand returns a fixed value from Float64 so a single price step can be
// forced exactly.
type stubRand struct {
	f float64
}

func (r stubRand) Float64() float64     { return r.f }
func (r stubRand) Intn(n int) int       { return 0 }
func (r stubRand) Int63n(n int64) int64 { return 0 }

func testEngine(assets *internalrepo.MemoryAssetStore, clock *internalrepo.MemoryClock, now *time.Time, seed int64) *Engine {
	return NewEngine(assets, clock, Config{},
		WithRand(rand.New(rand.NewSource(seed))),
		WithNow(func() time.Time { return *now }),
	)
}

func TestTickGeneratesAndUpdatesWhenFresh(t *testing.T) {
	ctx := context.Background()
	assets := internalrepo.NewMemoryAssetStore()
	clock := internalrepo.NewMemoryClock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := testEngine(assets, clock, &now, 1)

	e.Tick(ctx)

	list, err := assets.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// The update pass appended one point on top of the seeded twelve and the
	// oldest was evicted.
	assert.Len(t, list[0].PriceHistory, models.PriceHistorySize)
	assert.Equal(t, list[0].Price, list[0].PriceHistory[models.PriceHistorySize-1])
	assert.Greater(t, list[0].Price, 0.0)

	gen, err := clock.Last(ctx, models.ClockGeneration)
	require.NoError(t, err)
	assert.Equal(t, now, gen)
	upd, err := clock.Last(ctx, models.ClockUpdate)
	require.NoError(t, err)
	assert.Equal(t, now, upd)
}

func TestTickIsGatedWithinIntervals(t *testing.T) {
	ctx := context.Background()
	assets := internalrepo.NewMemoryAssetStore()
	clock := internalrepo.NewMemoryClock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := testEngine(assets, clock, &now, 1)

	e.Tick(ctx)
	list, err := assets.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	before := *list[0]

	// 30 seconds later both gates are still closed.
	now = now.Add(30 * time.Second)
	e.Tick(ctx)

	list, err = assets.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, before.Price, list[0].Price)
	assert.Equal(t, before.PriceHistory, list[0].PriceHistory)
}

func TestUpdatePassRunsPerInterval(t *testing.T) {
	ctx := context.Background()
	assets := internalrepo.NewMemoryAssetStore()
	clock := internalrepo.NewMemoryClock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := testEngine(assets, clock, &now, 1)

	e.Tick(ctx)
	t0 := now

	now = now.Add(time.Minute)
	e.Tick(ctx)

	// The update gate advanced, the generation gate did not.
	upd, err := clock.Last(ctx, models.ClockUpdate)
	require.NoError(t, err)
	assert.Equal(t, now, upd)
	gen, err := clock.Last(ctx, models.ClockGeneration)
	require.NoError(t, err)
	assert.Equal(t, t0, gen)

	list, err := assets.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGenerationAfterInterval(t *testing.T) {
	ctx := context.Background()
	assets := internalrepo.NewMemoryAssetStore()
	clock := internalrepo.NewMemoryClock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := testEngine(assets, clock, &now, 1)

	e.Tick(ctx)
	now = now.Add(10 * time.Minute)
	e.Tick(ctx)

	list, err := assets.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestGenerationCollisionsReleaseTheInterval(t *testing.T) {
	ctx := context.Background()
	store := &collidingAssetStore{}
	clock := internalrepo.NewMemoryClock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(store, clock, Config{},
		WithRand(rand.New(rand.NewSource(1))),
		WithNow(func() time.Time { return now }),
	)

	e.Tick(ctx)

	assert.Equal(t, 10, store.attempts)
	gen, err := clock.Last(ctx, models.ClockGeneration)
	require.NoError(t, err)
	assert.True(t, gen.IsZero(), "generation gate must be handed back after exhausted retries")
}

func TestUpdateKeepsPriceAboveZero(t *testing.T) {
	ctx := context.Background()
	assets := internalrepo.NewMemoryAssetStore()
	clock := internalrepo.NewMemoryClock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, assets.Create(ctx, &models.Asset{
		Symbol:     "LOW",
		Name:       "LowCoin",
		Price:      0.01,
		Volatility: 3,
		CreatedAt:  now,
	}))
	// Close the generation gate so only the update pass runs.
	require.NoError(t, clock.Claim(ctx, models.ClockGeneration, time.Time{}, now, 10*time.Minute))

	e := NewEngine(assets, clock, Config{},
		WithRand(stubRand{f: 0}), // worst-case downward step
		WithNow(func() time.Time { return now }),
	)
	e.Tick(ctx)

	a, err := assets.Get(ctx, "LOW")
	require.NoError(t, err)
	assert.Equal(t, 0.01, a.Price)
}

func TestHistoryStaysCapped(t *testing.T) {
	ctx := context.Background()
	assets := internalrepo.NewMemoryAssetStore()
	clock := internalrepo.NewMemoryClock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	history := make([]float64, models.PriceHistorySize)
	for i := range history {
		history[i] = 100
	}
	require.NoError(t, assets.Create(ctx, &models.Asset{
		Symbol:       "CAP",
		Name:         "CapCoin",
		Price:        100,
		Volatility:   0.05,
		PriceHistory: history,
		CreatedAt:    now,
	}))
	require.NoError(t, clock.Claim(ctx, models.ClockGeneration, time.Time{}, now, time.Hour))

	e := testEngine(assets, clock, &now, 3)
	for i := 0; i < 5; i++ {
		e.Tick(ctx)
		now = now.Add(time.Minute)
	}

	a, err := assets.Get(ctx, "CAP")
	require.NoError(t, err)
	assert.Len(t, a.PriceHistory, models.PriceHistorySize)
	assert.Equal(t, a.Price, a.PriceHistory[models.PriceHistorySize-1])
}

func seedListing(t *testing.T, ctx context.Context, assets *internalrepo.MemoryAssetStore, clock *internalrepo.MemoryClock, now time.Time) {
	t.Helper()
	fixtures := []*models.Asset{
		{Symbol: "UP", Name: "NovaCoin", Price: 100, ChangePercent: 5, PriceHistory: []float64{80, 100}, CreatedAt: now.Add(-48 * time.Hour)},
		{Symbol: "DOWN", Name: "ByteChain", Price: 50, ChangePercent: -2, PriceHistory: []float64{60, 50}, CreatedAt: now.Add(-48 * time.Hour)},
		{Symbol: "WTCH", Name: "FluxToken", Price: 200, ChangePercent: 1, Watched: true, PriceHistory: []float64{200}, CreatedAt: now},
	}
	for _, a := range fixtures {
		require.NoError(t, assets.Create(ctx, a))
	}
	// Close both gates so listings do not mutate the fixtures.
	require.NoError(t, clock.Claim(ctx, models.ClockGeneration, time.Time{}, now, time.Hour))
	require.NoError(t, clock.Claim(ctx, models.ClockUpdate, time.Time{}, now, time.Hour))
}

func TestListAssetsSortsByPriceDescending(t *testing.T) {
	ctx := context.Background()
	assets := internalrepo.NewMemoryAssetStore()
	clock := internalrepo.NewMemoryClock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedListing(t, ctx, assets, clock, now)
	e := testEngine(assets, clock, &now, 1)

	quotes, err := e.ListAssets(ctx, Filter{Category: CategoryAll})
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	assert.Equal(t, "WTCH", quotes[0].Symbol)
	assert.Equal(t, "UP", quotes[1].Symbol)
	assert.Equal(t, "DOWN", quotes[2].Symbol)

	// Derived 24h change against the second most recent history point.
	assert.Equal(t, 25.0, quotes[1].Change24h)
	// A single-point history falls back to the current price, yielding zero.
	assert.Equal(t, 0.0, quotes[0].Change24h)
}

func TestListAssetsCategories(t *testing.T) {
	ctx := context.Background()
	assets := internalrepo.NewMemoryAssetStore()
	clock := internalrepo.NewMemoryClock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedListing(t, ctx, assets, clock, now)
	e := testEngine(assets, clock, &now, 1)

	gainers, err := e.ListAssets(ctx, Filter{Category: CategoryGainers})
	require.NoError(t, err)
	require.Len(t, gainers, 2)
	assert.Equal(t, "UP", gainers[0].Symbol, "gainers are ordered by change, not price")
	assert.Equal(t, "WTCH", gainers[1].Symbol)

	losers, err := e.ListAssets(ctx, Filter{Category: CategoryLosers})
	require.NoError(t, err)
	require.Len(t, losers, 1)
	assert.Equal(t, "DOWN", losers[0].Symbol)

	watch, err := e.ListAssets(ctx, Filter{Category: CategoryWatchlist})
	require.NoError(t, err)
	require.Len(t, watch, 1)
	assert.Equal(t, "WTCH", watch[0].Symbol)

	fresh, err := e.ListAssets(ctx, Filter{Category: CategoryNew})
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "WTCH", fresh[0].Symbol)
}

func TestListAssetsQuery(t *testing.T) {
	ctx := context.Background()
	assets := internalrepo.NewMemoryAssetStore()
	clock := internalrepo.NewMemoryClock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedListing(t, ctx, assets, clock, now)
	e := testEngine(assets, clock, &now, 1)

	byName, err := e.ListAssets(ctx, Filter{Category: CategoryAll, Query: "byte"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "DOWN", byName[0].Symbol)

	bySymbol, err := e.ListAssets(ctx, Filter{Category: CategoryAll, Query: "wt"})
	require.NoError(t, err)
	require.Len(t, bySymbol, 1)
	assert.Equal(t, "WTCH", bySymbol[0].Symbol)
}

func TestGetAssetExpandsCandles(t *testing.T) {
	ctx := context.Background()
	assets := internalrepo.NewMemoryAssetStore()
	clock := internalrepo.NewMemoryClock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedListing(t, ctx, assets, clock, now)
	e := testEngine(assets, clock, &now, 1)

	detail, err := e.GetAsset(ctx, "UP")
	require.NoError(t, err)
	require.Len(t, detail.Candles, 2)
	for i, c := range detail.Candles {
		p := detail.PriceHistory[i]
		assert.Equal(t, p, c.Close)
		assert.LessOrEqual(t, c.Open, p)
		assert.GreaterOrEqual(t, c.High, p)
		assert.LessOrEqual(t, c.Low, p)
		assert.Less(t, c.Volume, int64(1_000_000))
		assert.True(t, c.Date.Before(now))
	}

	_, err = e.GetAsset(ctx, "NOPE")
	assert.ErrorIs(t, err, models.ErrAssetNotFound)
}

// Detail requests draw candle noise from the shared source, so concurrent
// reads must not corrupt it. Run with -race.
func TestGetAssetConcurrently(t *testing.T) {
	ctx := context.Background()
	assets := internalrepo.NewMemoryAssetStore()
	clock := internalrepo.NewMemoryClock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedListing(t, ctx, assets, clock, now)
	e := testEngine(assets, clock, &now, 1)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := e.GetAsset(ctx, "UP")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}

func TestToggleWatch(t *testing.T) {
	ctx := context.Background()
	assets := internalrepo.NewMemoryAssetStore()
	clock := internalrepo.NewMemoryClock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedListing(t, ctx, assets, clock, now)
	e := testEngine(assets, clock, &now, 1)

	require.NoError(t, e.ToggleWatch(ctx, "UP"))
	a, err := assets.Get(ctx, "UP")
	require.NoError(t, err)
	assert.True(t, a.Watched)

	require.NoError(t, e.ToggleWatch(ctx, "UP"))
	a, err = assets.Get(ctx, "UP")
	require.NoError(t, err)
	assert.False(t, a.Watched)

	assert.ErrorIs(t, e.ToggleWatch(ctx, "NOPE"), models.ErrAssetNotFound)
}

package market

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"time"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/domain/repository"
	"CoinPulse/pkg/logger"
	"CoinPulse/pkg/util"
)

// Category selects a listing view.
type Category string

const (
	CategoryAll       Category = "all"
	CategoryNew       Category = "new"
	CategoryGainers   Category = "gainers"
	CategoryLosers    Category = "losers"
	CategoryWatchlist Category = "watchlist"
)

// Filter narrows a listing by category and free-text query.
type Filter struct {
	Category Category
	Query    string
}

// Broadcaster receives applied price updates for live fan-out.
type Broadcaster interface {
	Broadcast(events []models.QuoteEvent)
}

// Config holds the simulation gates.
type Config struct {
	GenerationInterval    time.Duration
	UpdateInterval        time.Duration
	MaxGenerationAttempts int
}

// Option configures Engine.
type Option func(*Engine)

// WithRand sets the random source. Seed it in tests for determinism.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithNow sets the wall clock.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m repository.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithArchive wires an optional tick archive.
func WithArchive(a repository.TickArchive) Option {
	return func(e *Engine) { e.archive = a }
}

// WithPublisher wires an optional quote event publisher.
func WithPublisher(p repository.QuotePublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithBroadcaster wires an optional live quote broadcaster.
func WithBroadcaster(b Broadcaster) Option {
	return func(e *Engine) { e.broadcaster = b }
}

// Engine owns the asset population and advances its simulated prices. Both
// passes are gated through the persisted simulation clock so repeated read
// traffic cannot cause runaway mutation.
type Engine struct {
	assets      repository.AssetStore
	clock       repository.SimulationClock
	cfg         Config
	rng         Rand
	now         func() time.Time
	log         *logger.Logger
	metrics     repository.Metrics
	archive     repository.TickArchive
	publisher   repository.QuotePublisher
	broadcaster Broadcaster
}

// NewEngine creates the simulator. Zero config fields get the defaults:
// generation every 10 minutes, updates every minute, 10 generation attempts.
func NewEngine(assets repository.AssetStore, clock repository.SimulationClock, cfg Config, opts ...Option) *Engine {
	if cfg.GenerationInterval <= 0 {
		cfg.GenerationInterval = 10 * time.Minute
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = time.Minute
	}
	if cfg.MaxGenerationAttempts <= 0 {
		cfg.MaxGenerationAttempts = 10
	}

	e := &Engine{
		assets:  assets,
		clock:   clock,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
		log:     logger.Nop(),
		metrics: repository.NopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.rng = &lockedRand{src: e.rng}
	return e
}

// Tick runs the generation pass and then the update pass, each only when its
// gate is due. Tick never fails the caller: simulation problems are logged
// and the listing proceeds with the state as-is.
func (e *Engine) Tick(ctx context.Context) {
	e.generate(ctx)
	e.updatePrices(ctx)
}

// generate mints at most one new asset per generation interval. Name/symbol
// collisions are retried; after MaxGenerationAttempts the interval is given
// back and the tick is skipped silently.
func (e *Engine) generate(ctx context.Context) {
	last, err := e.clock.Last(ctx, models.ClockGeneration)
	if err != nil {
		e.metrics.RecordError("clock_read")
		e.log.Error("simulation clock read failed", logger.Error(err))
		return
	}

	now := e.now()
	if !last.IsZero() && now.Sub(last) < e.cfg.GenerationInterval {
		return
	}

	if err := e.clock.Claim(ctx, models.ClockGeneration, last, now, e.cfg.GenerationInterval); err != nil {
		if !errors.Is(err, models.ErrClockBusy) {
			e.metrics.RecordError("clock_claim")
			e.log.Error("generation claim failed", logger.Error(err))
		}
		return
	}

	start := time.Now()
	for attempt := 0; attempt < e.cfg.MaxGenerationAttempts; attempt++ {
		a := randomAsset(e.rng, now)
		err := e.assets.Create(ctx, a)
		if err == nil {
			e.metrics.RecordTick("generation")
			e.metrics.RecordAssetGenerated(a.Symbol)
			e.metrics.RecordLatency("generation_pass", time.Since(start).Seconds())
			e.log.Info("asset generated",
				logger.String("symbol", a.Symbol),
				logger.String("name", a.Name),
				logger.Float64("price", a.Price))
			return
		}
		if errors.Is(err, models.ErrDuplicateKey) {
			e.metrics.RecordGenerationCollision()
			continue
		}
		e.metrics.RecordError("asset_create")
		e.log.Error("asset create failed", logger.Error(err))
		e.release(ctx, models.ClockGeneration, last)
		return
	}

	// Exhausted the attempts without a unique name. Not a caller-facing
	// error; the interval is handed back so the next read retries.
	e.log.Debug("asset generation skipped",
		logger.Int("attempts", e.cfg.MaxGenerationAttempts))
	e.release(ctx, models.ClockGeneration, last)
}

// updatePrices applies one simulated step to every asset: a walk biased so
// roughly 70% of ticks are non-negative, scaled by the asset's volatility.
func (e *Engine) updatePrices(ctx context.Context) {
	last, err := e.clock.Last(ctx, models.ClockUpdate)
	if err != nil {
		e.metrics.RecordError("clock_read")
		e.log.Error("simulation clock read failed", logger.Error(err))
		return
	}

	now := e.now()
	if !last.IsZero() && now.Sub(last) < e.cfg.UpdateInterval {
		return
	}

	if err := e.clock.Claim(ctx, models.ClockUpdate, last, now, e.cfg.UpdateInterval); err != nil {
		if !errors.Is(err, models.ErrClockBusy) {
			e.metrics.RecordError("clock_claim")
			e.log.Error("update claim failed", logger.Error(err))
		}
		return
	}

	start := time.Now()
	assets, err := e.assets.List(ctx)
	if err != nil {
		e.metrics.RecordError("asset_list")
		e.log.Error("asset list failed", logger.Error(err))
		e.release(ctx, models.ClockUpdate, last)
		return
	}

	events := make([]models.QuoteEvent, 0, len(assets))
	for _, a := range assets {
		delta := (e.rng.Float64() - 0.3) * a.Volatility
		newPrice := util.Round2(a.Price * (1 + delta))
		if newPrice < 0.01 {
			// Rounding can hit zero on sub-cent quotes; the floor keeps
			// every price strictly positive.
			newPrice = 0.01
		}
		a.ChangePercent = util.Round2((newPrice - a.Price) / a.Price * 100)
		a.Price = newPrice
		a.PriceHistory = append(a.PriceHistory, newPrice)
		if n := len(a.PriceHistory); n > models.PriceHistorySize {
			a.PriceHistory = a.PriceHistory[n-models.PriceHistorySize:]
		}

		events = append(events, models.QuoteEvent{
			Symbol:        a.Symbol,
			Price:         a.Price,
			ChangePercent: a.ChangePercent,
			Timestamp:     now.UnixMilli(),
		})
	}

	if err := e.assets.SaveAll(ctx, assets); err != nil {
		e.metrics.RecordError("asset_save")
		e.log.Error("asset save failed", logger.Error(err))
		e.release(ctx, models.ClockUpdate, last)
		return
	}

	e.metrics.RecordTick("update")
	e.metrics.RecordLatency("update_pass", time.Since(start).Seconds())
	for _, ev := range events {
		e.metrics.RecordLastPrice(ev.Symbol, ev.Price)
	}
	e.fanOut(ctx, events)
}

// fanOut delivers applied updates to the archive, the event topic and live
// stream clients. All three are best effort and must not fail the tick.
func (e *Engine) fanOut(ctx context.Context, events []models.QuoteEvent) {
	if len(events) == 0 {
		return
	}
	if e.archive != nil {
		if err := e.archive.Append(ctx, events); err != nil {
			e.metrics.RecordError("tick_archive")
			e.log.Warn("tick archive append failed", logger.Error(err))
		}
	}
	if e.publisher != nil {
		if err := e.publisher.PublishBatch(ctx, events); err != nil {
			e.metrics.RecordError("quote_publish")
			e.log.Warn("quote publish failed", logger.Error(err))
		}
	}
	if e.broadcaster != nil {
		e.broadcaster.Broadcast(events)
	}
}

func (e *Engine) release(ctx context.Context, key string, prev time.Time) {
	if err := e.clock.Release(ctx, key, prev); err != nil {
		e.log.Warn("clock release failed", logger.String("key", key), logger.Error(err))
	}
}

// ListAssets runs a tick and returns the filtered listing with the derived
// 24h change. Default order is price descending.
func (e *Engine) ListAssets(ctx context.Context, f Filter) ([]models.AssetQuote, error) {
	e.Tick(ctx)

	assets, err := e.assets.List(ctx)
	if err != nil {
		e.metrics.RecordError("asset_list")
		return nil, err
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].Price > assets[j].Price })

	now := e.now()
	quotes := make([]models.AssetQuote, 0, len(assets))
	for _, a := range assets {
		switch f.Category {
		case CategoryNew:
			if !a.IsNew(now) {
				continue
			}
		case CategoryGainers:
			if a.ChangePercent <= 0 {
				continue
			}
		case CategoryLosers:
			if a.ChangePercent >= 0 {
				continue
			}
		case CategoryWatchlist:
			if !a.Watched {
				continue
			}
		}
		if f.Query != "" {
			q := strings.ToLower(f.Query)
			if !strings.Contains(strings.ToLower(a.Name), q) &&
				!strings.Contains(strings.ToLower(a.Symbol), q) {
				continue
			}
		}
		quotes = append(quotes, models.AssetQuote{
			Asset:     *a,
			Change24h: util.Round2(a.Change24h()),
		})
	}

	switch f.Category {
	case CategoryGainers:
		sort.Slice(quotes, func(i, j int) bool { return quotes[i].ChangePercent > quotes[j].ChangePercent })
	case CategoryLosers:
		sort.Slice(quotes, func(i, j int) bool { return quotes[i].ChangePercent < quotes[j].ChangePercent })
	}

	return quotes, nil
}

// GetAsset returns one asset with its history expanded to synthetic hourly
// OHLCV candles for the detail chart.
func (e *Engine) GetAsset(ctx context.Context, symbol string) (*models.AssetDetail, error) {
	a, err := e.assets.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}

	now := e.now()
	candles := make([]models.Candle, 0, len(a.PriceHistory))
	for i, p := range a.PriceHistory {
		variation := p * 0.02
		candles = append(candles, models.Candle{
			Date:   now.Add(-time.Duration(len(a.PriceHistory)-i) * time.Hour),
			Open:   p - e.rng.Float64()*variation,
			High:   p + e.rng.Float64()*variation,
			Low:    p - e.rng.Float64()*variation,
			Close:  p,
			Volume: e.rng.Int63n(1_000_000),
		})
	}

	return &models.AssetDetail{Asset: *a, Candles: candles}, nil
}

// ToggleWatch flips the watch flag for symbol.
func (e *Engine) ToggleWatch(ctx context.Context, symbol string) error {
	a, err := e.assets.Get(ctx, symbol)
	if err != nil {
		return err
	}
	a.Watched = !a.Watched
	return e.assets.Save(ctx, a)
}

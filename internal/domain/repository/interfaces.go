package repository

import (
	"context"
	"time"

	"CoinPulse/internal/domain/models"
)

// AssetStore owns the asset population. Create must fail with
// models.ErrDuplicateKey when symbol or name already exists.
type AssetStore interface {
	Create(ctx context.Context, a *models.Asset) error
	Get(ctx context.Context, symbol string) (*models.Asset, error)
	List(ctx context.Context) ([]*models.Asset, error)
	// Save persists mutated fields of an existing asset.
	Save(ctx context.Context, a *models.Asset) error
	SaveAll(ctx context.Context, assets []*models.Asset) error
}

// UserStore owns portfolio state. Update runs fn against the current
// document and persists the result; implementations serialize concurrent
// updates per user so two trades cannot both read a stale balance.
type UserStore interface {
	Get(ctx context.Context, id string) (*models.User, error)
	// GetOrCreate provisions a fresh user with the given starting balance
	// on first access.
	GetOrCreate(ctx context.Context, id string, startingBalance float64) (*models.User, error)
	Update(ctx context.Context, id string, fn func(*models.User) error) error
}

// SimulationClock persists the last-run timestamp per gated job. Claim is an
// atomic compare-and-swap: it succeeds only when the stored value still
// equals prev and now-prev covers the interval, so at most one caller wins a
// given interval. A zero prev means the job never ran.
type SimulationClock interface {
	Last(ctx context.Context, key string) (time.Time, error)
	Claim(ctx context.Context, key string, prev, now time.Time, interval time.Duration) error
	// Release undoes a claim whose job failed, restoring prev.
	Release(ctx context.Context, key string, prev time.Time) error
}

// TickArchive receives every applied price update for offline analysis.
type TickArchive interface {
	Append(ctx context.Context, events []models.QuoteEvent) error
	Health(ctx context.Context) error
	Close() error
}

// QuotePublisher pushes price updates to downstream consumers.
type QuotePublisher interface {
	PublishBatch(ctx context.Context, events []models.QuoteEvent) error
	Close() error
}

// Metrics abstracts the operational counters recorded by the engine and
// ledger.
type Metrics interface {
	RecordTick(pass string)
	RecordAssetGenerated(symbol string)
	RecordGenerationCollision()
	RecordLastPrice(symbol string, price float64)
	RecordTrade(kind, symbol string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

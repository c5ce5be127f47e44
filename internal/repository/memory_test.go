package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinPulse/internal/domain/models"
)

func TestMemoryAssetStoreRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAssetStore()

	require.NoError(t, s.Create(ctx, &models.Asset{Symbol: "QCX", Name: "QuantumCoin", Price: 10}))

	err := s.Create(ctx, &models.Asset{Symbol: "QCX", Name: "OtherCoin", Price: 10})
	assert.ErrorIs(t, err, models.ErrDuplicateKey)

	err = s.Create(ctx, &models.Asset{Symbol: "OTHR", Name: "QuantumCoin", Price: 10})
	assert.ErrorIs(t, err, models.ErrDuplicateKey)
}

func TestMemoryAssetStoreClonesOnRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAssetStore()
	require.NoError(t, s.Create(ctx, &models.Asset{Symbol: "QCX", Name: "QuantumCoin", Price: 10, PriceHistory: []float64{10}}))

	a, err := s.Get(ctx, "QCX")
	require.NoError(t, err)
	a.Price = 999
	a.PriceHistory[0] = 999

	fresh, err := s.Get(ctx, "QCX")
	require.NoError(t, err)
	assert.Equal(t, 10.0, fresh.Price)
	assert.Equal(t, 10.0, fresh.PriceHistory[0])
}

func TestMemoryUserStoreUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()
	_, err := s.GetOrCreate(ctx, "u1", 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, "u1", func(u *models.User) error {
				u.Balance++
				return nil
			})
		}()
	}
	wg.Wait()

	u, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, u.Balance)
}

func TestMemoryUserStoreUpdateDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()
	_, err := s.GetOrCreate(ctx, "u1", 100)
	require.NoError(t, err)

	boom := models.ErrInsufficientBalance
	err = s.Update(ctx, "u1", func(u *models.User) error {
		u.Balance = 0
		return boom
	})
	assert.ErrorIs(t, err, boom)

	u, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, u.Balance)
}

func TestMemoryClockClaim(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClock()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// First claim against a zero previous value always wins.
	require.NoError(t, c.Claim(ctx, models.ClockUpdate, time.Time{}, t0, time.Minute))

	// A second claimer still holding the stale previous value loses.
	err := c.Claim(ctx, models.ClockUpdate, time.Time{}, t0, time.Minute)
	assert.ErrorIs(t, err, models.ErrClockBusy)

	// Too early even with the right previous value.
	err = c.Claim(ctx, models.ClockUpdate, t0, t0.Add(30*time.Second), time.Minute)
	assert.ErrorIs(t, err, models.ErrClockBusy)

	// Due again after the interval.
	require.NoError(t, c.Claim(ctx, models.ClockUpdate, t0, t0.Add(time.Minute), time.Minute))
}

func TestMemoryClockRelease(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClock()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Claim(ctx, models.ClockGeneration, time.Time{}, t0, time.Minute))
	require.NoError(t, c.Release(ctx, models.ClockGeneration, time.Time{}))

	last, err := c.Last(ctx, models.ClockGeneration)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	// Releasing back to a non-zero previous value restores it.
	require.NoError(t, c.Claim(ctx, models.ClockGeneration, time.Time{}, t0, time.Minute))
	require.NoError(t, c.Claim(ctx, models.ClockGeneration, t0, t0.Add(time.Minute), time.Minute))
	require.NoError(t, c.Release(ctx, models.ClockGeneration, t0))

	last, err = c.Last(ctx, models.ClockGeneration)
	require.NoError(t, err)
	assert.True(t, last.Equal(t0))
}

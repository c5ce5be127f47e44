package repository

import (
	"context"
	"sync"
	"time"

	"CoinPulse/internal/domain/models"
)

// MemoryAssetStore keeps the asset population in process memory. Used in
// tests and for running the service without Redis.
type MemoryAssetStore struct {
	mu     sync.RWMutex
	assets map[string]*models.Asset // by symbol
	names  map[string]struct{}
}

func NewMemoryAssetStore() *MemoryAssetStore {
	return &MemoryAssetStore{
		assets: make(map[string]*models.Asset),
		names:  make(map[string]struct{}),
	}
}

func cloneAsset(a *models.Asset) *models.Asset {
	c := *a
	c.PriceHistory = append([]float64(nil), a.PriceHistory...)
	if a.APY != nil {
		apy := *a.APY
		c.APY = &apy
	}
	return &c
}

func (s *MemoryAssetStore) Create(_ context.Context, a *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[a.Symbol]; ok {
		return models.ErrDuplicateKey
	}
	if _, ok := s.names[a.Name]; ok {
		return models.ErrDuplicateKey
	}
	s.assets[a.Symbol] = cloneAsset(a)
	s.names[a.Name] = struct{}{}
	return nil
}

func (s *MemoryAssetStore) Get(_ context.Context, symbol string) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[symbol]
	if !ok {
		return nil, models.ErrAssetNotFound
	}
	return cloneAsset(a), nil
}

func (s *MemoryAssetStore) List(_ context.Context) ([]*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, cloneAsset(a))
	}
	return out, nil
}

func (s *MemoryAssetStore) Save(_ context.Context, a *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[a.Symbol]; !ok {
		return models.ErrAssetNotFound
	}
	s.assets[a.Symbol] = cloneAsset(a)
	return nil
}

func (s *MemoryAssetStore) SaveAll(_ context.Context, assets []*models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range assets {
		s.assets[a.Symbol] = cloneAsset(a)
	}
	return nil
}

// MemoryUserStore keeps portfolio documents in process memory. Update holds
// the store lock for the whole read-modify-write, which serializes
// concurrent trades per user (and, cheaply, across users too).
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*models.User)}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Holdings = append([]models.Holding(nil), u.Holdings...)
	c.Transactions = append([]models.Transaction(nil), u.Transactions...)
	return &c
}

func (s *MemoryUserStore) Get(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryUserStore) GetOrCreate(_ context.Context, id string, startingBalance float64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		u = &models.User{ID: id, Balance: startingBalance, CreatedAt: time.Now()}
		s.users[id] = u
	}
	return cloneUser(u), nil
}

func (s *MemoryUserStore) Update(_ context.Context, id string, fn func(*models.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	c := cloneUser(u)
	if err := fn(c); err != nil {
		return err
	}
	s.users[id] = c
	return nil
}

// MemoryClock is an in-process simulation clock with compare-and-swap
// claims.
type MemoryClock struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewMemoryClock() *MemoryClock {
	return &MemoryClock{last: make(map[string]time.Time)}
}

func (c *MemoryClock) Last(_ context.Context, key string) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last[key], nil
}

func (c *MemoryClock) Claim(_ context.Context, key string, prev, now time.Time, interval time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.last[key]
	if !cur.Equal(prev) {
		return models.ErrClockBusy
	}
	if !prev.IsZero() && now.Sub(prev) < interval {
		return models.ErrClockBusy
	}
	c.last[key] = now
	return nil
}

func (c *MemoryClock) Release(_ context.Context, key string, prev time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev.IsZero() {
		delete(c.last, key)
	} else {
		c.last[key] = prev
	}
	return nil
}

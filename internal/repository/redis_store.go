package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"CoinPulse/internal/domain/models"
)

// Key layout: <prefix>:asset:<SYMBOL> holds the asset document,
// <prefix>:asset:name:<name> reserves the name, <prefix>:assets indexes all
// symbols. Users live at <prefix>:user:<id>, the simulation clock is one
// hash at <prefix>:simclock.

const userUpdateRetries = 16

// createAssetScript reserves symbol and name atomically: both keys must be
// free, otherwise nothing is written.
var createAssetScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 or redis.call('EXISTS', KEYS[2]) == 1 then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
redis.call('SADD', KEYS[3], ARGV[2])
return 1
`)

// claimClockScript is a compare-and-swap on the stored timestamp: the claim
// wins only if the value is still what the caller read.
var claimClockScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if cur == false then cur = '0' end
if cur ~= ARGV[2] then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
return 1
`)

// RedisAssetStore persists assets as JSON documents in Redis.
type RedisAssetStore struct {
	client *redis.Client
	prefix string
}

func NewRedisAssetStore(client *redis.Client, prefix string) *RedisAssetStore {
	if prefix == "" {
		prefix = "coinpulse"
	}
	return &RedisAssetStore{client: client, prefix: prefix}
}

func (s *RedisAssetStore) assetKey(symbol string) string {
	return fmt.Sprintf("%s:asset:%s", s.prefix, symbol)
}

func (s *RedisAssetStore) nameKey(name string) string {
	return fmt.Sprintf("%s:asset:name:%s", s.prefix, name)
}

func (s *RedisAssetStore) indexKey() string {
	return s.prefix + ":assets"
}

func (s *RedisAssetStore) Create(ctx context.Context, a *models.Asset) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal asset: %w", err)
	}

	keys := []string{s.assetKey(a.Symbol), s.nameKey(a.Name), s.indexKey()}
	ok, err := createAssetScript.Run(ctx, s.client, keys, data, a.Symbol).Int()
	if err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	if ok == 0 {
		return models.ErrDuplicateKey
	}
	return nil
}

func (s *RedisAssetStore) Get(ctx context.Context, symbol string) (*models.Asset, error) {
	b, err := s.client.Get(ctx, s.assetKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}

	var a models.Asset
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("unmarshal asset: %w", err)
	}
	return &a, nil
}

func (s *RedisAssetStore) List(ctx context.Context) ([]*models.Asset, error) {
	symbols, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	if len(symbols) == 0 {
		return nil, nil
	}

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = s.assetKey(sym)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	out := make([]*models.Asset, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // index entry without document, skip
		}
		var a models.Asset
		if err := json.Unmarshal([]byte(str), &a); err != nil {
			return nil, fmt.Errorf("unmarshal asset: %w", err)
		}
		out = append(out, &a)
	}
	return out, nil
}

func (s *RedisAssetStore) Save(ctx context.Context, a *models.Asset) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal asset: %w", err)
	}
	if err := s.client.Set(ctx, s.assetKey(a.Symbol), data, 0).Err(); err != nil {
		return fmt.Errorf("save asset: %w", err)
	}
	return nil
}

func (s *RedisAssetStore) SaveAll(ctx context.Context, assets []*models.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, a := range assets {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal asset: %w", err)
		}
		pipe.Set(ctx, s.assetKey(a.Symbol), data, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save assets: %w", err)
	}
	return nil
}

// RedisUserStore persists portfolio documents as JSON. Update uses an
// optimistic WATCH transaction so two concurrent trades cannot both apply
// against the same stale balance.
type RedisUserStore struct {
	client *redis.Client
	prefix string
}

func NewRedisUserStore(client *redis.Client, prefix string) *RedisUserStore {
	if prefix == "" {
		prefix = "coinpulse"
	}
	return &RedisUserStore{client: client, prefix: prefix}
}

func (s *RedisUserStore) userKey(id string) string {
	return fmt.Sprintf("%s:user:%s", s.prefix, id)
}

func (s *RedisUserStore) Get(ctx context.Context, id string) (*models.User, error) {
	b, err := s.client.Get(ctx, s.userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	var u models.User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

func (s *RedisUserStore) GetOrCreate(ctx context.Context, id string, startingBalance float64) (*models.User, error) {
	fresh := &models.User{ID: id, Balance: startingBalance, CreatedAt: time.Now()}
	data, err := json.Marshal(fresh)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}

	// SETNX keeps a concurrent first access from double-provisioning.
	if err := s.client.SetNX(ctx, s.userKey(id), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("provision user: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *RedisUserStore) Update(ctx context.Context, id string, fn func(*models.User) error) error {
	key := s.userKey(id)

	txn := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return models.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		var u models.User
		if err := json.Unmarshal(b, &u); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}
		if err := fn(&u); err != nil {
			return err
		}

		data, err := json.Marshal(&u)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < userUpdateRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		// contended update, retry against the fresh document
	}
	return fmt.Errorf("user update contention: %w", redis.TxFailedErr)
}

// RedisClock stores last-run timestamps in one hash, claimed via Lua CAS.
type RedisClock struct {
	client *redis.Client
	prefix string
}

func NewRedisClock(client *redis.Client, prefix string) *RedisClock {
	if prefix == "" {
		prefix = "coinpulse"
	}
	return &RedisClock{client: client, prefix: prefix}
}

func (c *RedisClock) hashKey() string {
	return c.prefix + ":simclock"
}

func (c *RedisClock) Last(ctx context.Context, key string) (time.Time, error) {
	v, err := c.client.HGet(ctx, c.hashKey(), key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("clock read: %w", err)
	}

	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms), nil
}

func (c *RedisClock) Claim(ctx context.Context, key string, prev, now time.Time, interval time.Duration) error {
	if !prev.IsZero() && now.Sub(prev) < interval {
		return models.ErrClockBusy
	}

	prevArg := "0"
	if !prev.IsZero() {
		prevArg = strconv.FormatInt(prev.UnixMilli(), 10)
	}
	ok, err := claimClockScript.Run(ctx, c.client,
		[]string{c.hashKey()}, key, prevArg, strconv.FormatInt(now.UnixMilli(), 10)).Int()
	if err != nil {
		return fmt.Errorf("clock claim: %w", err)
	}
	if ok == 0 {
		return models.ErrClockBusy
	}
	return nil
}

func (c *RedisClock) Release(ctx context.Context, key string, prev time.Time) error {
	if prev.IsZero() {
		if err := c.client.HDel(ctx, c.hashKey(), key).Err(); err != nil {
			return fmt.Errorf("clock release: %w", err)
		}
		return nil
	}
	if err := c.client.HSet(ctx, c.hashKey(), key, prev.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("clock release: %w", err)
	}
	return nil
}

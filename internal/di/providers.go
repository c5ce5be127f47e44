package di

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"CoinPulse/internal/domain/repository"
	"CoinPulse/internal/handler/api"
	"CoinPulse/internal/ledger"
	"CoinPulse/internal/market"
	internalrepo "CoinPulse/internal/repository"
	"CoinPulse/internal/service/ratelimit"
	"CoinPulse/internal/stream"
	pkgch "CoinPulse/pkg/clickhouse"
	"CoinPulse/pkg/config"
	xhttp "CoinPulse/pkg/http"
	pkgkafka "CoinPulse/pkg/kafka"
	applogger "CoinPulse/pkg/logger"
	"CoinPulse/pkg/metrics"
	"CoinPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// Stores bundles the persistence backends selected by configuration.
type Stores struct {
	Assets repository.AssetStore
	Users  repository.UserStore
	Clock  repository.SimulationClock

	// Close releases the underlying client, nil for the memory backend.
	Close func() error
}

// ProvideStores builds the configured store backend. Redis is the production
// path; memory keeps everything in-process for local runs.
func ProvideStores(cfg *config.Config) (*Stores, error) {
	if cfg.Store.Type == "memory" {
		return &Stores{
			Assets: internalrepo.NewMemoryAssetStore(),
			Users:  internalrepo.NewMemoryUserStore(),
			Clock:  internalrepo.NewMemoryClock(),
		}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Store.Redis.Host, cfg.Store.Redis.Port),
		Password: cfg.Store.Redis.Password,
		DB:       cfg.Store.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := cfg.Store.Redis.Prefix
	return &Stores{
		Assets: internalrepo.NewRedisAssetStore(client, prefix),
		Users:  internalrepo.NewRedisUserStore(client, prefix),
		Clock:  internalrepo.NewRedisClock(client, prefix),
		Close:  client.Close,
	}, nil
}

// ProvideArchive creates the ClickHouse tick archive, or nil when disabled.
func ProvideArchive(cfg *config.Config) (repository.TickArchive, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.Archive.Host),
		pkgch.WithPort(cfg.Archive.Port),
		pkgch.WithDatabase(cfg.Archive.Database),
		pkgch.WithCredentials(cfg.Archive.User, cfg.Archive.Password),
		pkgch.WithTimeouts(cfg.Archive.DialTimeout, cfg.Archive.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ArchiveSchema(cfg.Archive.Database, cfg.Archive.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	table := cfg.Archive.Database + "." + cfg.Archive.Table
	return internalrepo.NewClickHouseTickArchive(client.DB(), table), nil
}

// ProvidePublisher creates the Kafka quote publisher, or nil when disabled.
func ProvidePublisher(cfg *config.Config) (repository.QuotePublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return internalrepo.NewKafkaQuotePublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideHub creates the WebSocket broadcast hub.
func ProvideHub(log *applogger.Logger) *stream.Hub {
	return stream.NewHub(log)
}

// ProvideEngine creates the market simulation engine.
func ProvideEngine(
	cfg *config.Config,
	stores *Stores,
	m repository.Metrics,
	hub *stream.Hub,
	archive repository.TickArchive,
	publisher repository.QuotePublisher,
	log *applogger.Logger,
) *market.Engine {
	opts := []market.Option{
		market.WithLogger(log),
		market.WithMetrics(m),
		market.WithBroadcaster(hub),
	}
	if cfg.Simulator.Seed != 0 {
		opts = append(opts, market.WithRand(rand.New(rand.NewSource(cfg.Simulator.Seed))))
	}
	if archive != nil {
		opts = append(opts, market.WithArchive(archive))
	}
	if publisher != nil {
		opts = append(opts, market.WithPublisher(publisher))
	}

	return market.NewEngine(stores.Assets, stores.Clock, market.Config{
		GenerationInterval:    cfg.Simulator.GenerationInterval,
		UpdateInterval:        cfg.Simulator.UpdateInterval,
		MaxGenerationAttempts: cfg.Simulator.MaxGenerationAttempts,
	}, opts...)
}

// ProvideLedger creates the portfolio ledger service.
func ProvideLedger(
	cfg *config.Config,
	stores *Stores,
	m repository.Metrics,
	log *applogger.Logger,
) *ledger.Service {
	return ledger.NewService(stores.Users, stores.Assets, cfg.Ledger.StartingBalance,
		ledger.WithLogger(log),
		ledger.WithMetrics(m),
	)
}

// ProvideRouter assembles the HTTP handlers.
func ProvideRouter(
	cfg *config.Config,
	log *applogger.Logger,
	engine *market.Engine,
	svc *ledger.Service,
	hub *stream.Hub,
	archive repository.TickArchive,
) xhttp.Handler {
	markets := api.NewMarketsEchoHandler(log, engine, hub)
	portfolio := api.NewPortfolioEchoHandler(log, svc, ratelimit.New(), cfg.Ledger.TradeRPS, cfg.Ledger.TradeBurst)
	return api.NewRouter(markets, portfolio, archive)
}

// ProvideApp creates the application server and registers shutdown hooks.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	stores *Stores,
	archive repository.TickArchive,
	publisher repository.QuotePublisher,
) *server.App {
	app := server.New(cfg, log, handler)
	if publisher != nil {
		app.AddCloser("kafka publisher", publisher.Close)
	}
	if archive != nil {
		app.AddCloser("tick archive", archive.Close)
	}
	app.AddCloser("store", stores.Close)
	return app
}

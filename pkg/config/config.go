package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Store struct {
		// "redis" or "memory". Memory is for local runs and tests only;
		// state does not survive a restart.
		Type  string `yaml:"type"`
		Redis struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"store"`
	Simulator struct {
		GenerationInterval    time.Duration `yaml:"generation_interval"`
		UpdateInterval        time.Duration `yaml:"update_interval"`
		MaxGenerationAttempts int           `yaml:"max_generation_attempts"`
		// Seed fixes the random source for reproducible simulations.
		// Zero seeds from the wall clock.
		Seed int64 `yaml:"seed"`
	} `yaml:"simulator"`
	Ledger struct {
		StartingBalance float64 `yaml:"starting_balance"`
		TradeRPS        float64 `yaml:"trade_rps"`
		TradeBurst      float64 `yaml:"trade_burst"`
	} `yaml:"ledger"`
	Archive struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host"`
		Port        int           `yaml:"port"`
		Database    string        `yaml:"database"`
		Table       string        `yaml:"table"`
		User        string        `yaml:"user"`
		Password    string        `yaml:"password"`
		DialTimeout time.Duration `yaml:"dial_timeout"`
		ReadTimeout time.Duration `yaml:"read_timeout"`
	} `yaml:"archive"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Async        bool     `yaml:"async"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("COINPULSE_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("COINPULSE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("COINPULSE_STORE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Store.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.Archive.Host = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Store.Redis.Port == 0 {
		c.Store.Redis.Port = 6379
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = "coinpulse"
	}
	if c.Simulator.GenerationInterval == 0 {
		c.Simulator.GenerationInterval = 10 * time.Minute
	}
	if c.Simulator.UpdateInterval == 0 {
		c.Simulator.UpdateInterval = time.Minute
	}
	if c.Simulator.MaxGenerationAttempts == 0 {
		c.Simulator.MaxGenerationAttempts = 10
	}
	if c.Ledger.StartingBalance == 0 {
		c.Ledger.StartingBalance = 10000
	}
	if c.Ledger.TradeRPS == 0 {
		c.Ledger.TradeRPS = 5
	}
	if c.Ledger.TradeBurst == 0 {
		c.Ledger.TradeBurst = 10
	}
	if c.Archive.Table == "" {
		c.Archive.Table = "market_ticks"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "coinpulse.quotes"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Store.Type == "" {
		return fmt.Errorf("store.type is required")
	}
	if c.Store.Type != "redis" && c.Store.Type != "memory" {
		return fmt.Errorf("store.type must be 'redis' or 'memory', got '%s'", c.Store.Type)
	}
	if c.Store.Type == "redis" && c.Store.Redis.Host == "" {
		return fmt.Errorf("store.redis.host is required")
	}
	if c.Simulator.GenerationInterval < c.Simulator.UpdateInterval {
		return fmt.Errorf("simulator.generation_interval must not be shorter than update_interval")
	}
	if c.Ledger.StartingBalance < 0 {
		return fmt.Errorf("ledger.starting_balance must not be negative")
	}
	if c.Archive.Enabled && c.Archive.Host == "" {
		return fmt.Errorf("archive.host is required when archive is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers are required when kafka is enabled")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPAddr string

	StoreDriver   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string
	RecordTTL     time.Duration

	LogLevel  string
	LogFormat string

	DefaultMaxPlayers    int
	DefaultStartingChips int64
	MinBet               decimal.Decimal
	StartingBankroll     decimal.Decimal
	Commentary           bool
}

// Load reads a .env file if one exists, then the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var errs []error
	cfg := Config{
		HTTPAddr:      str("HTTP_ADDR", ":8080"),
		StoreDriver:   str("STORE_DRIVER", DriverMemory),
		RedisAddr:     str("REDIS_ADDR", "localhost:6379"),
		RedisPassword: str("REDIS_PASSWORD", ""),
		DatabaseURL:   str("DATABASE_URL", ""),
		LogLevel:      str("LOG_LEVEL", "info"),
		LogFormat:     str("LOG_FORMAT", "json"),
	}
	cfg.RedisDB = integer("REDIS_DB", 0, &errs)
	cfg.RecordTTL = duration("RECORD_TTL", 7*24*time.Hour, &errs)
	cfg.DefaultMaxPlayers = integer("DEFAULT_MAX_PLAYERS", 4, &errs)
	cfg.DefaultStartingChips = int64(integer("DEFAULT_STARTING_CHIPS", 50, &errs))
	cfg.MinBet = dec("MIN_BET", decimal.NewFromInt(25), &errs)
	cfg.StartingBankroll = dec("STARTING_BANKROLL", decimal.NewFromInt(1000), &errs)
	cfg.Commentary = str("COMMENTARY", "on") != "off"

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverRedis:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.DefaultMaxPlayers < 2 || c.DefaultMaxPlayers > 8 {
		return fmt.Errorf("DEFAULT_MAX_PLAYERS must be 2-8, got %d", c.DefaultMaxPlayers)
	}
	if c.DefaultStartingChips < 0 {
		return errors.New("DEFAULT_STARTING_CHIPS must not be negative")
	}
	if !c.MinBet.IsPositive() {
		return errors.New("MIN_BET must be positive")
	}
	if c.StartingBankroll.IsNegative() {
		return errors.New("STARTING_BANKROLL must not be negative")
	}
	return nil
}

func str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func integer(key string, def int, errs *[]error) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func duration(key string, def time.Duration, errs *[]error) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func dec(key string, def decimal.Decimal, errs *[]error) decimal.Decimal {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

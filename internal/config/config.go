package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
	DriverMemory   = "memory"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	DBDriver          string
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	RedisAddr string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	NotifyWorkers   int
	NotifyQueueSize int
	SweepInterval   time.Duration

	LoanPeriod     time.Duration
	MaxOpenLoans   int
	DailyFineCents int64

	LogLevel slog.Level
}

// Policy returns the lending policy described by the configuration.
func (c Config) Policy() domain.Policy {
	return domain.Policy{
		LoanPeriod:   c.LoanPeriod,
		MaxOpenLoans: c.MaxOpenLoans,
		DailyFine:    domain.Money(c.DailyFineCents),
	}
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}
	cfg := Config{
		HTTPAddr: e.lookupString("HTTP_ADDR", ":8080"),
		GRPCAddr: e.lookupString("GRPC_ADDR", ":50051"),

		DBDriver:          strings.ToLower(e.lookupString("DB_DRIVER", DriverMySQL)),
		DBDSN:             e.lookupString("DB_DSN", "root:root@tcp(localhost:3306)/lending?parseTime=true"),
		DBMaxOpenConns:    e.lookupInt("DB_MAX_OPEN_CONNS", 50),
		DBMaxIdleConns:    e.lookupInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetime: e.lookupDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		RedisAddr: e.lookupString("REDIS_ADDR", ""),

		SMTPHost:     e.lookupString("SMTP_HOST", ""),
		SMTPPort:     e.lookupInt("SMTP_PORT", 587),
		SMTPUsername: e.lookupString("SMTP_USERNAME", ""),
		SMTPPassword: e.lookupString("SMTP_PASSWORD", ""),
		SMTPFrom:     e.lookupString("SMTP_FROM", "library@localhost"),

		NotifyWorkers:   e.lookupInt("NOTIFY_WORKERS", 10),
		NotifyQueueSize: e.lookupInt("NOTIFY_QUEUE_SIZE", 10000),
		SweepInterval:   e.lookupDuration("SWEEP_INTERVAL", 24*time.Hour),

		LoanPeriod:     e.lookupDuration("LOAN_PERIOD", domain.DefaultLoanPeriod),
		MaxOpenLoans:   e.lookupInt("MAX_OPEN_LOANS", domain.DefaultMaxOpenLoans),
		DailyFineCents: int64(e.lookupInt("DAILY_FINE_CENTS", int(domain.DefaultDailyFine))),

		LogLevel: e.lookupLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if err := errors.Join(append(e.errs, cfg.validate())...); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", c.DBDriver))
	}
	if c.DBDriver != DriverMemory && c.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN: required for SQL drivers"))
	}
	if c.NotifyWorkers < 1 {
		errs = append(errs, errors.New("NOTIFY_WORKERS: must be at least 1"))
	}
	if c.NotifyQueueSize < 1 {
		errs = append(errs, errors.New("NOTIFY_QUEUE_SIZE: must be at least 1"))
	}
	if c.SweepInterval < time.Second {
		errs = append(errs, errors.New("SWEEP_INTERVAL: must be at least 1s"))
	}
	if c.LoanPeriod <= 0 {
		errs = append(errs, errors.New("LOAN_PERIOD: must be positive"))
	}
	if c.MaxOpenLoans < 1 {
		errs = append(errs, errors.New("MAX_OPEN_LOANS: must be at least 1"))
	}
	if c.DailyFineCents < 0 {
		errs = append(errs, errors.New("DAILY_FINE_CENTS: must not be negative"))
	}
	return errors.Join(errs...)
}

type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) lookupString(key, fallback string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (e *env) lookupInt(key string, fallback int) int {
	v := e.lookupString(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (e *env) lookupDuration(key string, fallback time.Duration) time.Duration {
	v := e.lookupString(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (e *env) lookupLevel(key string, fallback slog.Level) slog.Level {
	v := e.lookupString(key, "")
	if v == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return level
}

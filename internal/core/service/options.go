package service

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/port"
)

type options struct {
	policy         domain.Policy
	now            func() time.Time
	logger         *slog.Logger
	cache          port.CacheRepository
	retryOptions   []RetryOption
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// Option configures the services of this package.
type Option func(*options)

// WithPolicy overrides the loan period, open-loan cap and daily fine.
func WithPolicy(policy domain.Policy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithIdempotency rejects a repeated request id with domain.ErrDuplicateRequest.
func WithIdempotency(cache port.CacheRepository) Option {
	return func(o *options) {
		o.cache = cache
	}
}

func WithRetryOptions(opts ...RetryOption) Option {
	return func(o *options) {
		o.retryOptions = opts
	}
}

func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = provider
	}
}

func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = provider
	}
}

func buildOptions(opts []Option) options {
	o := options{
		policy:         domain.DefaultPolicy(),
		now:            time.Now,
		logger:         slog.Default(),
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) clock() time.Time {
	return o.now().UTC()
}

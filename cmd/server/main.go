package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/lending-engine/internal/adapter/handler"
	"github.com/rl1809/lending-engine/internal/adapter/notify"
	"github.com/rl1809/lending-engine/internal/adapter/storage"
	"github.com/rl1809/lending-engine/internal/config"
	"github.com/rl1809/lending-engine/internal/core/service"
	"github.com/rl1809/lending-engine/internal/port"
)

const shutdownTimeout = 10 * time.Second

// store is everything the services need from a storage backend.
type store interface {
	port.LendingRepository
	port.QueryRepository
	port.CatalogRepository
	port.BorrowerDirectory
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// Initialize storage
	var db store
	var closers []func() error
	if cfg.DBDriver == config.DriverMemory {
		db = storage.NewMemoryAdapter()
		logger.Warn("using in-memory storage; state is lost on exit")
	} else {
		sqlDB, err := openDB(ctx, cfg)
		if err != nil {
			return err
		}
		closers = append(closers, sqlDB.Close)

		adapter := storage.NewSQLAdapter(sqlDB)
		if err := adapter.Migrate(ctx); err != nil {
			return err
		}
		db = adapter
		logger.Info("connected to database", slog.String("driver", cfg.DBDriver))
	}

	// Initialize idempotency cache
	var cache port.CacheRepository = storage.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		closers = append(closers, rdb.Close)
		cache = storage.NewRedisAdapter(rdb)
		logger.Info("connected to redis", slog.String("addr", cfg.RedisAddr))
	}

	// Initialize notifications
	var sink port.Sink = notify.NewLogSink(logger)
	if cfg.SMTPHost != "" {
		sink = notify.NewSMTPSink(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}
	dispatcher := notify.NewDispatcher(sink, cfg.NotifyWorkers, cfg.NotifyQueueSize, logger)
	logger.Info("started notification workers", slog.Int("workers", cfg.NotifyWorkers))

	// Initialize services
	opts := []service.Option{
		service.WithPolicy(cfg.Policy()),
		service.WithLogger(logger),
		service.WithIdempotency(cache),
	}
	gate := service.NewMembershipGate(db)
	queue := service.NewReservationQueue(db, gate, opts...)
	lending := service.NewLendingService(db, gate, queue, db, dispatcher, opts...)
	catalog := service.NewCatalogService(db, db, opts...)
	queries := service.NewQueryService(db, opts...)
	sweeper := service.NewSweeper(db, db, db, dispatcher, cfg.SweepInterval, opts...)

	if err := sweeper.Start(ctx); err != nil {
		return err
	}

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.UnaryLoggingInterceptor(logger)))
	handler.RegisterLendingServer(grpcServer, handler.NewGRPCHandler(lending, queue, queries))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		logger.Info("gRPC server listening", slog.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", slog.Any("error", err))
		}
	}()

	// Initialize HTTP server
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewEcho(handler.NewHTTPHandler(lending, queue, catalog, queries, logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", slog.Any("error", err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	if err := sweeper.Stop(shutdownCtx); err != nil {
		logger.Error("sweeper stop failed", slog.Any("error", err))
	}

	// Drain pending notices
	dispatcher.Close()
	logger.Info("notification workers stopped")

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close connection failed", slog.Any("error", err))
		}
	}
	logger.Info("connections closed")
	return nil
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.DBDriver, err)
	}
	return db, nil
}

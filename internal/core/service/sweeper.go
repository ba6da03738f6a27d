package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/port"
)

var (
	ErrSweeperRunning    = errors.New("sweeper already started")
	ErrSweeperNotRunning = errors.New("sweeper not started")
)

// SweepReport summarises one sweep. Overdue == Dispatched + Failed.
type SweepReport struct {
	Overdue    int
	Dispatched int
	Failed     int
}

// Sweeper notifies the holder of every overdue loan on each run. A loan that
// stays overdue is notified again on the next run.
type Sweeper struct {
	queries   port.QueryRepository
	catalog   port.CatalogRepository
	directory port.BorrowerDirectory
	notifier  port.Notifier
	interval  time.Duration
	opts      options
	telemetry *telemetry

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

func NewSweeper(
	queries port.QueryRepository,
	catalog port.CatalogRepository,
	directory port.BorrowerDirectory,
	notifier port.Notifier,
	interval time.Duration,
	opts ...Option,
) *Sweeper {
	o := buildOptions(opts)
	return &Sweeper{
		queries:   queries,
		catalog:   catalog,
		directory: directory,
		notifier:  notifier,
		interval:  interval,
		opts:      o,
		telemetry: newTelemetry(o),
	}
}

func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	ctx, span := s.telemetry.start(ctx, opSweep)
	report, err := s.sweep(ctx)
	s.telemetry.end(ctx, span, opSweep, err)

	if err != nil {
		s.opts.logger.ErrorContext(ctx, "overdue sweep failed",
			slog.Int("overdue", report.Overdue),
			slog.Any("error", err),
		)
		return report, err
	}
	s.opts.logger.InfoContext(ctx, "overdue sweep completed",
		slog.Int("overdue", report.Overdue),
		slog.Int("dispatched", report.Dispatched),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *Sweeper) sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	loans, err := s.queries.ListOverdueLoans(ctx, s.opts.clock())
	if err != nil {
		return report, fmt.Errorf("list overdue loans: %w", err)
	}
	report.Overdue = len(loans)
	s.telemetry.overdue.Add(ctx, int64(len(loans)))

	titles := make(map[int64]string)
	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := s.notifyOverdue(ctx, loan, titles); err != nil {
			report.Failed++
			s.opts.logger.ErrorContext(ctx, "overdue notice failed",
				slog.Int64("loan_id", loan.ID),
				slog.Int64("borrower_id", loan.BorrowerID),
				slog.Any("error", err),
			)
			continue
		}
		report.Dispatched++
	}
	return report, nil
}

func (s *Sweeper) notifyOverdue(ctx context.Context, loan domain.Loan, titles map[int64]string) (err error) {
	defer func() {
		s.telemetry.recordNotification(ctx, domain.NoticeOverdue, err)
	}()

	borrower, err := s.directory.GetBorrower(ctx, loan.BorrowerID)
	if err != nil {
		return fmt.Errorf("get borrower: %w", err)
	}
	if borrower == nil {
		return domain.ErrBorrowerNotFound
	}

	return s.notifier.Notify(ctx, overdueNotice(*borrower, loan, s.titleName(ctx, loan.TitleID, titles)))
}

func (s *Sweeper) titleName(ctx context.Context, titleID int64, cache map[int64]string) string {
	if name, ok := cache[titleID]; ok {
		return name
	}

	name := unknownTitleName
	title, err := s.catalog.GetTitle(ctx, titleID)
	if err != nil {
		s.opts.logger.WarnContext(ctx, "get title for notice failed",
			slog.Int64("title_id", titleID),
			slog.Any("error", err),
		)
	} else if title != nil {
		name = title.Name
	}
	cache[titleID] = name
	return name
}

// Start runs Sweep every interval until Stop. A run still in progress when
// the next one is due causes that next run to be skipped.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("%w: sweep interval must be positive", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return ErrSweeperRunning
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		// Errors are already logged by Sweep.
		_, _ = s.Sweep(runCtx)
	}))
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.opts.logger.InfoContext(ctx, "overdue sweeper started", slog.Duration("interval", s.interval))
	return nil
}

// Stop prevents further runs and waits for a running sweep. If ctx ends
// first the running sweep is cancelled and ctx.Err is returned.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return ErrSweeperNotRunning
	}
	defer cancel()

	select {
	case <-c.Stop().Done():
		s.opts.logger.InfoContext(ctx, "overdue sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

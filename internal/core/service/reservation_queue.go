package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/port"
)

// ReservationQueue holds FIFO holds on titles with no copy on the shelf.
type ReservationQueue struct {
	repo        port.LendingRepository
	gate        *MembershipGate
	idempotency idempotencyGuard
	opts        options
	telemetry   *telemetry
}

func NewReservationQueue(repo port.LendingRepository, gate *MembershipGate, opts ...Option) *ReservationQueue {
	o := buildOptions(opts)
	return &ReservationQueue{
		repo:        repo,
		gate:        gate,
		idempotency: idempotencyGuard{cache: o.cache, logger: o.logger},
		opts:        o,
		telemetry:   newTelemetry(o),
	}
}

func (q *ReservationQueue) Reserve(ctx context.Context, cmd domain.ReserveCommand) (*domain.Reservation, error) {
	ctx, span := q.telemetry.start(ctx, opReserve)
	reservation, err := q.reserve(ctx, cmd)
	q.telemetry.end(ctx, span, opReserve, err)

	attrs := []slog.Attr{
		slog.Int64("borrower_id", cmd.BorrowerID),
		slog.Int64("title_id", cmd.TitleID),
	}
	if reservation != nil {
		attrs = append(attrs, slog.Int64("reservation_id", reservation.ID))
	}
	logResult(ctx, q.opts.logger, opReserve, err, attrs...)
	return reservation, err
}

func (q *ReservationQueue) reserve(ctx context.Context, cmd domain.ReserveCommand) (*domain.Reservation, error) {
	if cmd.BorrowerID <= 0 || cmd.TitleID <= 0 {
		return nil, fmt.Errorf("%w: borrower_id and title_id must be positive", domain.ErrInvalidArgument)
	}

	var reservation *domain.Reservation
	err := q.idempotency.run(ctx, opReserve, cmd.BorrowerID, cmd.RequestID, func() error {
		if err := q.gate.Require(ctx, cmd.BorrowerID); err != nil {
			return err
		}
		return q.repo.RunInTx(ctx, func(ctx context.Context, tx port.LendingTx) error {
			// Same lock as Return, so a copy cannot come back between the check and the insert.
			if _, err := tx.LockTitle(ctx, cmd.TitleID); err != nil {
				return err
			}

			available, err := tx.CountAvailableCopies(ctx, cmd.TitleID)
			if err != nil {
				return err
			}
			if available > 0 {
				return domain.ErrCopiesAvailable
			}

			exists, err := tx.HasActiveReservation(ctx, cmd.BorrowerID, cmd.TitleID)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrDuplicateReservation
			}

			r := &domain.Reservation{
				BorrowerID: cmd.BorrowerID,
				TitleID:    cmd.TitleID,
				CreatedAt:  q.opts.clock(),
				Status:     domain.ReservationStatusActive,
			}
			if err := tx.InsertReservation(ctx, r); err != nil {
				return err
			}
			reservation = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// promoteNext marks the oldest active reservation of a title notified inside
// the caller's unit. It returns nil when nobody is waiting.
func (q *ReservationQueue) promoteNext(ctx context.Context, tx port.LendingTx, titleID int64, at time.Time) (*domain.Reservation, error) {
	next, err := tx.OldestActiveReservation(ctx, titleID)
	if err != nil || next == nil {
		return nil, err
	}

	if err := tx.MarkReservationNotified(ctx, next.ID, at); err != nil {
		return nil, err
	}
	next.Status = domain.ReservationStatusNotified
	next.NotifiedAt = &at
	return next, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/port"
)

type LendingService struct {
	repo        port.LendingRepository
	gate        *MembershipGate
	queue       *ReservationQueue
	directory   port.BorrowerDirectory
	notifier    port.Notifier
	idempotency idempotencyGuard
	opts        options
	telemetry   *telemetry
}

func NewLendingService(
	repo port.LendingRepository,
	gate *MembershipGate,
	queue *ReservationQueue,
	directory port.BorrowerDirectory,
	notifier port.Notifier,
	opts ...Option,
) *LendingService {
	o := buildOptions(opts)
	return &LendingService{
		repo:        repo,
		gate:        gate,
		queue:       queue,
		directory:   directory,
		notifier:    notifier,
		idempotency: idempotencyGuard{cache: o.cache, logger: o.logger},
		opts:        o,
		telemetry:   newTelemetry(o),
	}
}

func (s *LendingService) Checkout(ctx context.Context, cmd domain.CheckoutCommand) (*domain.Loan, error) {
	ctx, span := s.telemetry.start(ctx, opCheckout)
	loan, err := s.checkout(ctx, cmd)
	s.telemetry.end(ctx, span, opCheckout, err)

	attrs := []slog.Attr{
		slog.Int64("borrower_id", cmd.BorrowerID),
		slog.Int64("title_id", cmd.TitleID),
	}
	if loan != nil {
		attrs = append(attrs, slog.Int64("loan_id", loan.ID), slog.Int64("copy_id", loan.CopyID))
	}
	logResult(ctx, s.opts.logger, opCheckout, err, attrs...)
	return loan, err
}

func (s *LendingService) checkout(ctx context.Context, cmd domain.CheckoutCommand) (*domain.Loan, error) {
	if cmd.BorrowerID <= 0 || cmd.TitleID <= 0 {
		return nil, fmt.Errorf("%w: borrower_id and title_id must be positive", domain.ErrInvalidArgument)
	}

	var loan *domain.Loan
	err := s.idempotency.run(ctx, opCheckout, cmd.BorrowerID, cmd.RequestID, func() error {
		if err := s.gate.Require(ctx, cmd.BorrowerID); err != nil {
			return err
		}
		return RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
			return s.repo.RunInTx(ctx, func(ctx context.Context, tx port.LendingTx) error {
				var err error
				loan, err = s.claimCopy(ctx, tx, cmd)
				return err
			})
		}, s.retryOptions(ctx, opCheckout)...)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

func (s *LendingService) claimCopy(ctx context.Context, tx port.LendingTx, cmd domain.CheckoutCommand) (*domain.Loan, error) {
	if _, err := tx.LockBorrower(ctx, cmd.BorrowerID); err != nil {
		return nil, err
	}

	open, err := tx.CountOpenLoans(ctx, cmd.BorrowerID)
	if err != nil {
		return nil, err
	}
	if open >= s.opts.policy.MaxOpenLoans {
		return nil, domain.ErrBorrowLimitExceeded
	}

	held, err := tx.HasOpenLoanForTitle(ctx, cmd.BorrowerID, cmd.TitleID)
	if err != nil {
		return nil, err
	}
	if held {
		return nil, domain.ErrDuplicateActiveLoan
	}

	title, err := tx.GetTitle(ctx, cmd.TitleID)
	if err != nil {
		return nil, err
	}
	if title == nil {
		return nil, domain.ErrTitleNotFound
	}

	cp, err := claimAvailableCopy(ctx, tx, cmd.TitleID)
	if err != nil {
		return nil, err
	}

	now := s.opts.clock()
	loan := &domain.Loan{
		BorrowerID: cmd.BorrowerID,
		CopyID:     cp.ID,
		TitleID:    cmd.TitleID,
		IssuedAt:   now,
		DueAt:      now.Add(s.opts.policy.LoanPeriod),
		Status:     domain.LoanStatusOpen,
		LastEvent:  domain.LoanEventCheckout,
	}
	if err := tx.InsertLoan(ctx, loan); err != nil {
		return nil, err
	}

	err = tx.AppendLoanEvent(ctx, &domain.LoanEvent{
		LoanID:     loan.ID,
		Kind:       domain.LoanEventCheckout,
		OccurredAt: now,
		DueAt:      loan.DueAt,
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// claimAvailableCopy marks an available copy checked out. A copy lost to a
// concurrent claim is skipped in favour of the next one; ErrOptimisticLock is
// returned only when every remaining candidate was lost that way.
func claimAvailableCopy(ctx context.Context, tx port.LendingTx, titleID int64) (*domain.Copy, error) {
	var lost []int64
	for {
		cp, err := tx.FindAvailableCopy(ctx, titleID, lost...)
		if err != nil {
			return nil, err
		}
		if cp == nil {
			if len(lost) > 0 {
				return nil, port.ErrOptimisticLock
			}
			return nil, domain.ErrNoCopyAvailable
		}

		err = tx.UpdateCopyStatus(ctx, *cp, domain.CopyStatusCheckedOut)
		if errors.Is(err, port.ErrOptimisticLock) {
			lost = append(lost, cp.ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		return cp, nil
	}
}

func (s *LendingService) Renew(ctx context.Context, cmd domain.RenewCommand) (*domain.Loan, error) {
	ctx, span := s.telemetry.start(ctx, opRenew)
	loan, err := s.renew(ctx, cmd)
	s.telemetry.end(ctx, span, opRenew, err)

	attrs := []slog.Attr{
		slog.Int64("borrower_id", cmd.BorrowerID),
		slog.Int64("loan_id", cmd.LoanID),
	}
	if loan != nil {
		attrs = append(attrs, slog.Time("due_at", loan.DueAt))
	}
	logResult(ctx, s.opts.logger, opRenew, err, attrs...)
	return loan, err
}

func (s *LendingService) renew(ctx context.Context, cmd domain.RenewCommand) (*domain.Loan, error) {
	if cmd.BorrowerID <= 0 || cmd.LoanID <= 0 {
		return nil, fmt.Errorf("%w: borrower_id and loan_id must be positive", domain.ErrInvalidArgument)
	}

	var loan *domain.Loan
	err := s.idempotency.run(ctx, opRenew, cmd.BorrowerID, cmd.RequestID, func() error {
		if err := s.gate.Require(ctx, cmd.BorrowerID); err != nil {
			return err
		}
		return s.repo.RunInTx(ctx, func(ctx context.Context, tx port.LendingTx) error {
			current, err := tx.GetLoan(ctx, cmd.LoanID)
			if err != nil {
				return err
			}
			if current == nil || current.BorrowerID != cmd.BorrowerID || !current.IsOpen() {
				return domain.ErrLoanNotFound
			}

			now := s.opts.clock()
			if current.IsOverdue(now) {
				return domain.ErrLoanOverdue
			}

			current.DueAt = current.DueAt.Add(s.opts.policy.LoanPeriod)
			current.LastEvent = domain.LoanEventRenew
			current.Renewals++
			if err := tx.UpdateLoan(ctx, *current); err != nil {
				return err
			}

			err = tx.AppendLoanEvent(ctx, &domain.LoanEvent{
				LoanID:     current.ID,
				Kind:       domain.LoanEventRenew,
				OccurredAt: now,
				DueAt:      current.DueAt,
			})
			if err != nil {
				return err
			}
			loan = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Return closes the loan, frees the copy and promotes the next reservation
// in one unit. The reservation holder is notified only after commit.
func (s *LendingService) Return(ctx context.Context, cmd domain.ReturnCommand) (*domain.ReturnResult, error) {
	ctx, span := s.telemetry.start(ctx, opReturn)
	result, titleName, err := s.returnCopy(ctx, cmd)
	s.telemetry.end(ctx, span, opReturn, err)

	attrs := []slog.Attr{
		slog.Int64("borrower_id", cmd.BorrowerID),
		slog.Int64("copy_id", cmd.CopyID),
	}
	if result != nil {
		attrs = append(attrs, slog.Int64("loan_id", result.Loan.ID), slog.String("fine", result.Fine.String()))
		if result.Promoted != nil {
			attrs = append(attrs, slog.Int64("reservation_id", result.Promoted.ID))
		}
	}
	logResult(ctx, s.opts.logger, opReturn, err, attrs...)

	if err == nil && result.Promoted != nil {
		s.notifyPromotion(context.WithoutCancel(ctx), *result.Promoted, titleName)
	}
	return result, err
}

func (s *LendingService) returnCopy(ctx context.Context, cmd domain.ReturnCommand) (*domain.ReturnResult, string, error) {
	if cmd.BorrowerID <= 0 || cmd.CopyID <= 0 {
		return nil, "", fmt.Errorf("%w: borrower_id and copy_id must be positive", domain.ErrInvalidArgument)
	}

	var (
		result    *domain.ReturnResult
		titleName string
	)
	err := s.idempotency.run(ctx, opReturn, cmd.BorrowerID, cmd.RequestID, func() error {
		if err := s.gate.Require(ctx, cmd.BorrowerID); err != nil {
			return err
		}
		return RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
			return s.repo.RunInTx(ctx, func(ctx context.Context, tx port.LendingTx) error {
				loan, err := tx.FindOpenLoan(ctx, cmd.BorrowerID, cmd.CopyID)
				if err != nil {
					return err
				}
				if loan == nil {
					return domain.ErrNoOpenLoan
				}

				cp, err := tx.GetCopy(ctx, cmd.CopyID)
				if err != nil {
					return err
				}
				if cp == nil {
					return domain.ErrCopyNotFound
				}

				title, err := tx.LockTitle(ctx, cp.TitleID)
				if err != nil {
					return err
				}

				now := s.opts.clock()
				fine := s.opts.policy.Fine(loan.DueAt, now)
				loan.ReturnedAt = &now
				loan.Status = domain.LoanStatusReturned
				loan.Fine = fine
				loan.LastEvent = domain.LoanEventReturn
				if err := tx.UpdateLoan(ctx, *loan); err != nil {
					return err
				}

				if err := tx.UpdateCopyStatus(ctx, *cp, domain.CopyStatusAvailable); err != nil {
					return err
				}

				err = tx.AppendLoanEvent(ctx, &domain.LoanEvent{
					LoanID:     loan.ID,
					Kind:       domain.LoanEventReturn,
					OccurredAt: now,
					DueAt:      loan.DueAt,
					Fine:       fine,
				})
				if err != nil {
					return err
				}

				promoted, err := s.queue.promoteNext(ctx, tx, title.ID, now)
				if err != nil {
					return err
				}

				result = &domain.ReturnResult{Loan: *loan, Fine: fine, Promoted: promoted}
				titleName = title.Name
				return nil
			})
		}, s.retryOptions(ctx, opReturn)...)
	})
	if err != nil {
		return nil, "", err
	}
	return result, titleName, nil
}

// notifyPromotion makes exactly one dispatch attempt. Failures are logged
// and counted; the committed promotion stands.
func (s *LendingService) notifyPromotion(ctx context.Context, reservation domain.Reservation, titleName string) {
	logger := s.opts.logger.With(
		slog.Int64("reservation_id", reservation.ID),
		slog.Int64("borrower_id", reservation.BorrowerID),
	)

	borrower, err := s.directory.GetBorrower(ctx, reservation.BorrowerID)
	if err == nil && borrower == nil {
		err = domain.ErrBorrowerNotFound
	}
	if err != nil {
		s.telemetry.recordNotification(ctx, domain.NoticeReservationAvailable, err)
		logger.ErrorContext(ctx, "resolve reservation holder failed", slog.Any("error", err))
		return
	}

	err = s.notifier.Notify(ctx, reservationAvailableNotice(*borrower, reservation, titleName))
	s.telemetry.recordNotification(ctx, domain.NoticeReservationAvailable, err)
	if err != nil {
		logger.ErrorContext(ctx, "reservation notice failed", slog.Any("error", err))
	}
}

func (s *LendingService) retryOptions(ctx context.Context, op string) []RetryOption {
	return append([]RetryOption{s.telemetry.retryObserver(ctx, op)}, s.opts.retryOptions...)
}

func logResult(ctx context.Context, logger *slog.Logger, op string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("operation", op))
	switch Outcome(err) {
	case OutcomeSuccess:
		logger.LogAttrs(ctx, slog.LevelInfo, op+" completed", attrs...)
	case OutcomeError:
		logger.LogAttrs(ctx, slog.LevelError, op+" failed", append(attrs, slog.Any("error", err))...)
	default:
		logger.LogAttrs(ctx, slog.LevelInfo, op+" rejected", append(attrs, slog.String("reason", err.Error()))...)
	}
}

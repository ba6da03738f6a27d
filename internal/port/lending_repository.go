package port

import (
	"context"
	"time"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

// LendingRepository runs lending state changes as one atomic unit.
// Any error returned from fn rolls back every write made through tx.
type LendingRepository interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx LendingTx) error) error
}

type LendingTx interface {
	// LockBorrower loads the borrower and holds it until the unit ends, serializing per-borrower checks
	LockBorrower(ctx context.Context, borrowerID int64) (*domain.Borrower, error)

	// LockTitle loads the title and holds it until the unit ends, serializing returns and reservations
	LockTitle(ctx context.Context, titleID int64) (*domain.Title, error)

	GetTitle(ctx context.Context, titleID int64) (*domain.Title, error)

	GetCopy(ctx context.Context, copyID int64) (*domain.Copy, error)

	// FindAvailableCopy returns the lowest-id available copy of a title that
	// is not in exclude and not claimed by another open unit, or nil if none
	FindAvailableCopy(ctx context.Context, titleID int64, exclude ...int64) (*domain.Copy, error)

	CountAvailableCopies(ctx context.Context, titleID int64) (int, error)

	// UpdateCopyStatus flips a copy with version check, returns ErrOptimisticLock on a stale copy
	UpdateCopyStatus(ctx context.Context, copy domain.Copy, status domain.CopyStatus) error

	CountOpenLoans(ctx context.Context, borrowerID int64) (int, error)

	HasOpenLoanForTitle(ctx context.Context, borrowerID, titleID int64) (bool, error)

	// GetLoan returns nil if the loan does not exist
	GetLoan(ctx context.Context, loanID int64) (*domain.Loan, error)

	// FindOpenLoan returns the open loan of borrower on copy, or nil
	FindOpenLoan(ctx context.Context, borrowerID, copyID int64) (*domain.Loan, error)

	InsertLoan(ctx context.Context, loan *domain.Loan) error

	UpdateLoan(ctx context.Context, loan domain.Loan) error

	AppendLoanEvent(ctx context.Context, event *domain.LoanEvent) error

	HasActiveReservation(ctx context.Context, borrowerID, titleID int64) (bool, error)

	InsertReservation(ctx context.Context, reservation *domain.Reservation) error

	// OldestActiveReservation returns the next reservation to promote for a title, or nil
	OldestActiveReservation(ctx context.Context, titleID int64) (*domain.Reservation, error)

	MarkReservationNotified(ctx context.Context, reservationID int64, at time.Time) error
}

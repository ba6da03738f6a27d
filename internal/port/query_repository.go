package port

import (
	"context"
	"time"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

// QueryRepository serves the side-effect-free read views.
type QueryRepository interface {
	// ListLoans orders by issue time descending, id descending
	ListLoans(ctx context.Context, filter domain.LoanFilter) ([]domain.Loan, error)

	// ListReservations orders by creation time ascending, id ascending
	ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error)

	// ListOverdueLoans returns open loans due before now, oldest due first
	ListOverdueLoans(ctx context.Context, now time.Time) ([]domain.Loan, error)

	ListLoanEvents(ctx context.Context, loanID int64) ([]domain.LoanEvent, error)

	InventoryCounts(ctx context.Context) (domain.InventoryCounts, error)
}

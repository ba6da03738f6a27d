package service

import (
	"context"
	"fmt"

	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/port"
)

// QueryService serves read-only views; it never changes state.
type QueryService struct {
	queries port.QueryRepository
	opts    options
}

func NewQueryService(queries port.QueryRepository, opts ...Option) *QueryService {
	return &QueryService{queries: queries, opts: buildOptions(opts)}
}

func (s *QueryService) ListLoans(ctx context.Context, filter domain.LoanFilter) ([]domain.Loan, error) {
	loans, err := s.queries.ListLoans(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return loans, nil
}

func (s *QueryService) ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	reservations, err := s.queries.ListReservations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

func (s *QueryService) Inventory(ctx context.Context) (domain.InventoryCounts, error) {
	counts, err := s.queries.InventoryCounts(ctx)
	if err != nil {
		return domain.InventoryCounts{}, fmt.Errorf("count inventory: %w", err)
	}
	return counts, nil
}

// History lists every loan of a borrower, newest first.
func (s *QueryService) History(ctx context.Context, borrowerID int64) ([]domain.Loan, error) {
	if borrowerID <= 0 {
		return nil, fmt.Errorf("%w: borrower id must be positive", domain.ErrInvalidArgument)
	}
	return s.ListLoans(ctx, domain.LoanFilter{BorrowerID: borrowerID})
}

func (s *QueryService) Overdue(ctx context.Context) ([]domain.Loan, error) {
	loans, err := s.queries.ListOverdueLoans(ctx, s.opts.clock())
	if err != nil {
		return nil, fmt.Errorf("list overdue loans: %w", err)
	}
	return loans, nil
}

func (s *QueryService) LoanEvents(ctx context.Context, loanID int64) ([]domain.LoanEvent, error) {
	if loanID <= 0 {
		return nil, fmt.Errorf("%w: loan id must be positive", domain.ErrInvalidArgument)
	}
	events, err := s.queries.ListLoanEvents(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("list loan events: %w", err)
	}
	return events, nil
}

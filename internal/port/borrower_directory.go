package port

import (
	"context"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

// BorrowerDirectory is the local mirror of the account service.
type BorrowerDirectory interface {
	// GetBorrower returns nil if the borrower is unknown
	GetBorrower(ctx context.Context, borrowerID int64) (*domain.Borrower, error)

	SaveBorrower(ctx context.Context, borrower domain.Borrower) error
}

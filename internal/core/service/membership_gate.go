package service

import (
	"context"
	"fmt"

	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/port"
)

// MembershipGate answers whether a borrower may use lending operations.
// It never mutates membership; CatalogService.SaveBorrower does.
type MembershipGate struct {
	directory port.BorrowerDirectory
}

func NewMembershipGate(directory port.BorrowerDirectory) *MembershipGate {
	return &MembershipGate{directory: directory}
}

// IsActive reports false for unknown borrowers.
func (g *MembershipGate) IsActive(ctx context.Context, borrowerID int64) (bool, error) {
	borrower, err := g.directory.GetBorrower(ctx, borrowerID)
	if err != nil {
		return false, fmt.Errorf("get borrower: %w", err)
	}
	return borrower != nil && borrower.Active, nil
}

func (g *MembershipGate) Require(ctx context.Context, borrowerID int64) error {
	borrower, err := g.directory.GetBorrower(ctx, borrowerID)
	if err != nil {
		return fmt.Errorf("get borrower: %w", err)
	}
	if borrower == nil {
		return domain.ErrBorrowerNotFound
	}
	if !borrower.Active {
		return domain.ErrMembershipInactive
	}
	return nil
}

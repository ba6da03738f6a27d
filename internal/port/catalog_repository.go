package port

import (
	"context"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

type CatalogRepository interface {
	// CreateTitle persists the title and its copies atomically, barcodes follow domain.CopyBarcode
	CreateTitle(ctx context.Context, title *domain.Title, copies int) ([]domain.Copy, error)

	UpdateTitle(ctx context.Context, title domain.Title) error

	// DeleteTitle removes a title with its copies, returns ErrTitleHasLoans if any loan references them
	DeleteTitle(ctx context.Context, titleID int64) error

	// GetTitle returns nil if the title does not exist
	GetTitle(ctx context.Context, titleID int64) (*domain.Title, error)

	ListCopies(ctx context.Context, titleID int64) ([]domain.Copy, error)

	SearchTitles(ctx context.Context, filter domain.TitleFilter) ([]domain.Title, error)
}

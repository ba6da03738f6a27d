package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/port"
)

const maxCopiesPerTitle = 1000

// CatalogService maintains titles, their copies and the borrower mirror.
type CatalogService struct {
	catalog   port.CatalogRepository
	directory port.BorrowerDirectory
	opts      options
}

func NewCatalogService(catalog port.CatalogRepository, directory port.BorrowerDirectory, opts ...Option) *CatalogService {
	return &CatalogService{
		catalog:   catalog,
		directory: directory,
		opts:      buildOptions(opts),
	}
}

// AddTitle catalogues a title with nt.Copies copies, one if unset.
func (s *CatalogService) AddTitle(ctx context.Context, nt domain.NewTitle) (*domain.TitleDetail, error) {
	if nt.Copies == 0 {
		nt.Copies = 1
	}
	if nt.Copies < 0 || nt.Copies > maxCopiesPerTitle {
		return nil, fmt.Errorf("%w: copies must be between 1 and %d", domain.ErrInvalidArgument, maxCopiesPerTitle)
	}

	now := s.opts.clock()
	title := domain.Title{
		Name:          strings.TrimSpace(nt.Name),
		Creator:       strings.TrimSpace(nt.Creator),
		Category:      strings.TrimSpace(nt.Category),
		PublishedOn:   nt.PublishedOn,
		ShelfLocation: strings.TrimSpace(nt.ShelfLocation),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	copies, err := s.catalog.CreateTitle(ctx, &title, nt.Copies)
	if err != nil {
		return nil, fmt.Errorf("create title: %w", err)
	}

	s.opts.logger.InfoContext(ctx, "title added",
		slog.Int64("title_id", title.ID),
		slog.Int("copies", len(copies)),
	)
	return &domain.TitleDetail{Title: title, Copies: copies}, nil
}

func (s *CatalogService) UpdateTitle(ctx context.Context, update domain.TitleUpdate) (*domain.Title, error) {
	title, err := s.catalog.GetTitle(ctx, update.ID)
	if err != nil {
		return nil, fmt.Errorf("get title: %w", err)
	}
	if title == nil {
		return nil, domain.ErrTitleNotFound
	}

	update.Apply(title)
	title.Name = strings.TrimSpace(title.Name)
	title.Creator = strings.TrimSpace(title.Creator)
	title.Category = strings.TrimSpace(title.Category)
	title.ShelfLocation = strings.TrimSpace(title.ShelfLocation)
	if err := validateTitle(*title); err != nil {
		return nil, err
	}
	title.UpdatedAt = s.opts.clock()

	if err := s.catalog.UpdateTitle(ctx, *title); err != nil {
		return nil, fmt.Errorf("update title: %w", err)
	}
	s.opts.logger.InfoContext(ctx, "title updated", slog.Int64("title_id", title.ID))
	return title, nil
}

// DeleteTitle removes a title and its copies. Titles that were ever lent
// are kept so their loans stay attributable.
func (s *CatalogService) DeleteTitle(ctx context.Context, titleID int64) error {
	if err := s.catalog.DeleteTitle(ctx, titleID); err != nil {
		if IsRejection(err) {
			return err
		}
		return fmt.Errorf("delete title: %w", err)
	}
	s.opts.logger.InfoContext(ctx, "title deleted", slog.Int64("title_id", titleID))
	return nil
}

func (s *CatalogService) GetTitle(ctx context.Context, titleID int64) (*domain.TitleDetail, error) {
	title, err := s.catalog.GetTitle(ctx, titleID)
	if err != nil {
		return nil, fmt.Errorf("get title: %w", err)
	}
	if title == nil {
		return nil, domain.ErrTitleNotFound
	}

	copies, err := s.catalog.ListCopies(ctx, titleID)
	if err != nil {
		return nil, fmt.Errorf("list copies: %w", err)
	}
	return &domain.TitleDetail{Title: *title, Copies: copies}, nil
}

func (s *CatalogService) SearchTitles(ctx context.Context, filter domain.TitleFilter) ([]domain.Title, error) {
	titles, err := s.catalog.SearchTitles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search titles: %w", err)
	}
	return titles, nil
}

// SaveBorrower mirrors an account from the account service, including its
// active flag. It is the only way membership changes.
func (s *CatalogService) SaveBorrower(ctx context.Context, borrower domain.Borrower) error {
	borrower.Name = strings.TrimSpace(borrower.Name)
	borrower.Email = strings.TrimSpace(borrower.Email)
	switch {
	case borrower.ID <= 0:
		return fmt.Errorf("%w: borrower id must be positive", domain.ErrInvalidArgument)
	case borrower.Name == "":
		return fmt.Errorf("%w: borrower name is required", domain.ErrInvalidArgument)
	case !strings.Contains(borrower.Email, "@"):
		return fmt.Errorf("%w: borrower email is invalid", domain.ErrInvalidArgument)
	}

	if err := s.directory.SaveBorrower(ctx, borrower); err != nil {
		return fmt.Errorf("save borrower: %w", err)
	}
	s.opts.logger.InfoContext(ctx, "borrower saved",
		slog.Int64("borrower_id", borrower.ID),
		slog.Bool("active", borrower.Active),
	)
	return nil
}

func validateTitle(t domain.Title) error {
	var missing []string
	if t.Name == "" {
		missing = append(missing, "name")
	}
	if t.Creator == "" {
		missing = append(missing, "creator")
	}
	if t.Category == "" {
		missing = append(missing, "category")
	}
	if t.PublishedOn.IsZero() {
		missing = append(missing, "published_on")
	}
	if t.ShelfLocation == "" {
		missing = append(missing, "shelf_location")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidArgument, strings.Join(missing, ", "))
	}
	return nil
}

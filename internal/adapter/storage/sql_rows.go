package storage

import (
	"database/sql"
	"time"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

var (
	titleColumns       = []any{"id", "name", "creator", "category", "published_on", "shelf_location", "created_at", "updated_at"}
	copyColumns        = []any{"id", "title_id", "barcode", "status", "version"}
	borrowerColumns    = []any{"id", "name", "email", "active"}
	loanColumns        = []any{"id", "borrower_id", "copy_id", "title_id", "issued_at", "due_at", "returned_at", "fine_cents", "status", "last_event", "renewals"}
	loanEventColumns   = []any{"id", "loan_id", "kind", "occurred_at", "due_at", "fine_cents"}
	reservationColumns = []any{"id", "borrower_id", "title_id", "created_at", "notified_at", "status"}
)

type titleRow struct {
	ID            int64     `db:"id"`
	Name          string    `db:"name"`
	Creator       string    `db:"creator"`
	Category      string    `db:"category"`
	PublishedOn   time.Time `db:"published_on"`
	ShelfLocation string    `db:"shelf_location"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r titleRow) toDomain() domain.Title {
	return domain.Title{
		ID:            r.ID,
		Name:          r.Name,
		Creator:       r.Creator,
		Category:      r.Category,
		PublishedOn:   r.PublishedOn.UTC(),
		ShelfLocation: r.ShelfLocation,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type copyRow struct {
	ID      int64  `db:"id"`
	TitleID int64  `db:"title_id"`
	Barcode string `db:"barcode"`
	Status  string `db:"status"`
	Version int    `db:"version"`
}

func (r copyRow) toDomain() domain.Copy {
	return domain.Copy{
		ID:      r.ID,
		TitleID: r.TitleID,
		Barcode: r.Barcode,
		Status:  domain.CopyStatus(r.Status),
		Version: r.Version,
	}
}

type borrowerRow struct {
	ID     int64  `db:"id"`
	Name   string `db:"name"`
	Email  string `db:"email"`
	Active bool   `db:"active"`
}

func (r borrowerRow) toDomain() domain.Borrower {
	return domain.Borrower{ID: r.ID, Name: r.Name, Email: r.Email, Active: r.Active}
}

type loanRow struct {
	ID         int64        `db:"id"`
	BorrowerID int64        `db:"borrower_id"`
	CopyID     int64        `db:"copy_id"`
	TitleID    int64        `db:"title_id"`
	IssuedAt   time.Time    `db:"issued_at"`
	DueAt      time.Time    `db:"due_at"`
	ReturnedAt sql.NullTime `db:"returned_at"`
	FineCents  int64        `db:"fine_cents"`
	Status     string       `db:"status"`
	LastEvent  string       `db:"last_event"`
	Renewals   int          `db:"renewals"`
}

func (r loanRow) toDomain() domain.Loan {
	return domain.Loan{
		ID:         r.ID,
		BorrowerID: r.BorrowerID,
		CopyID:     r.CopyID,
		TitleID:    r.TitleID,
		IssuedAt:   r.IssuedAt.UTC(),
		DueAt:      r.DueAt.UTC(),
		ReturnedAt: nullTime(r.ReturnedAt),
		Fine:       domain.Money(r.FineCents),
		Status:     domain.LoanStatus(r.Status),
		LastEvent:  domain.LoanEventKind(r.LastEvent),
		Renewals:   r.Renewals,
	}
}

type loanEventRow struct {
	ID         int64     `db:"id"`
	LoanID     int64     `db:"loan_id"`
	Kind       string    `db:"kind"`
	OccurredAt time.Time `db:"occurred_at"`
	DueAt      time.Time `db:"due_at"`
	FineCents  int64     `db:"fine_cents"`
}

func (r loanEventRow) toDomain() domain.LoanEvent {
	return domain.LoanEvent{
		ID:         r.ID,
		LoanID:     r.LoanID,
		Kind:       domain.LoanEventKind(r.Kind),
		OccurredAt: r.OccurredAt.UTC(),
		DueAt:      r.DueAt.UTC(),
		Fine:       domain.Money(r.FineCents),
	}
}

type reservationRow struct {
	ID         int64        `db:"id"`
	BorrowerID int64        `db:"borrower_id"`
	TitleID    int64        `db:"title_id"`
	CreatedAt  time.Time    `db:"created_at"`
	NotifiedAt sql.NullTime `db:"notified_at"`
	Status     string       `db:"status"`
}

func (r reservationRow) toDomain() domain.Reservation {
	return domain.Reservation{
		ID:         r.ID,
		BorrowerID: r.BorrowerID,
		TitleID:    r.TitleID,
		CreatedAt:  r.CreatedAt.UTC(),
		NotifiedAt: nullTime(r.NotifiedAt),
		Status:     domain.ReservationStatus(r.Status),
	}
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

package handler

import (
	"fmt"
	"time"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

const dateLayout = "2006-01-02"

// Request and response bodies shared by the HTTP API and the gRPC json codec.
// BorrowerID is optional; librarians use it to act for another borrower.

type CheckoutRequest struct {
	BorrowerID int64  `json:"borrower_id,omitempty"`
	TitleID    int64  `json:"title_id"`
	RequestID  string `json:"request_id,omitempty"`
}

type RenewRequest struct {
	BorrowerID int64  `json:"borrower_id,omitempty"`
	LoanID     int64  `json:"loan_id"`
	RequestID  string `json:"request_id,omitempty"`
}

type ReturnRequest struct {
	BorrowerID int64  `json:"borrower_id,omitempty"`
	CopyID     int64  `json:"copy_id"`
	RequestID  string `json:"request_id,omitempty"`
}

type ReserveRequest struct {
	BorrowerID int64  `json:"borrower_id,omitempty"`
	TitleID    int64  `json:"title_id"`
	RequestID  string `json:"request_id,omitempty"`
}

type InventoryRequest struct{}

type TitleRequest struct {
	Name          string `json:"name"`
	Creator       string `json:"creator"`
	Category      string `json:"category"`
	PublishedOn   string `json:"published_on"`
	ShelfLocation string `json:"shelf_location"`
	Copies        int    `json:"copies,omitempty"`
}

type TitleUpdateRequest struct {
	Name          *string `json:"name,omitempty"`
	Creator       *string `json:"creator,omitempty"`
	Category      *string `json:"category,omitempty"`
	PublishedOn   *string `json:"published_on,omitempty"`
	ShelfLocation *string `json:"shelf_location,omitempty"`
}

type BorrowerRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active *bool  `json:"active,omitempty"`
}

type LoanResponse struct {
	ID         int64      `json:"id"`
	BorrowerID int64      `json:"borrower_id"`
	CopyID     int64      `json:"copy_id"`
	TitleID    int64      `json:"title_id"`
	IssuedAt   time.Time  `json:"issued_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Fine       string     `json:"fine"`
	FineCents  int64      `json:"fine_cents"`
	Status     string     `json:"status"`
	LastEvent  string     `json:"last_event"`
	Renewals   int        `json:"renewals"`
}

type LoanEventResponse struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	DueAt      time.Time `json:"due_at"`
	FineCents  int64     `json:"fine_cents"`
}

type ReturnResponse struct {
	Loan      LoanResponse         `json:"loan"`
	Fine      string               `json:"fine"`
	FineCents int64                `json:"fine_cents"`
	Promoted  *ReservationResponse `json:"promoted_reservation,omitempty"`
}

type ReservationResponse struct {
	ID         int64      `json:"id"`
	BorrowerID int64      `json:"borrower_id"`
	TitleID    int64      `json:"title_id"`
	CreatedAt  time.Time  `json:"created_at"`
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
	Status     string     `json:"status"`
}

type InventoryResponse struct {
	Titles     int `json:"titles"`
	Copies     int `json:"copies"`
	Available  int `json:"available"`
	CheckedOut int `json:"checked_out"`
}

type CopyResponse struct {
	ID      int64  `json:"id"`
	Barcode string `json:"barcode"`
	Status  string `json:"status"`
}

type TitleResponse struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Creator       string         `json:"creator"`
	Category      string         `json:"category"`
	PublishedOn   string         `json:"published_on"`
	ShelfLocation string         `json:"shelf_location"`
	Copies        []CopyResponse `json:"copies,omitempty"`
}

type BorrowerResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toLoanResponse(l domain.Loan) LoanResponse {
	return LoanResponse{
		ID:         l.ID,
		BorrowerID: l.BorrowerID,
		CopyID:     l.CopyID,
		TitleID:    l.TitleID,
		IssuedAt:   l.IssuedAt,
		DueAt:      l.DueAt,
		ReturnedAt: l.ReturnedAt,
		Fine:       l.Fine.String(),
		FineCents:  int64(l.Fine),
		Status:     string(l.Status),
		LastEvent:  string(l.LastEvent),
		Renewals:   l.Renewals,
	}
}

func toLoanResponses(loans []domain.Loan) []LoanResponse {
	out := make([]LoanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, toLoanResponse(l))
	}
	return out
}

func toLoanEventResponses(events []domain.LoanEvent) []LoanEventResponse {
	out := make([]LoanEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, LoanEventResponse{
			ID:         e.ID,
			Kind:       string(e.Kind),
			OccurredAt: e.OccurredAt,
			DueAt:      e.DueAt,
			FineCents:  int64(e.Fine),
		})
	}
	return out
}

func toReturnResponse(r domain.ReturnResult) ReturnResponse {
	resp := ReturnResponse{
		Loan:      toLoanResponse(r.Loan),
		Fine:      r.Fine.String(),
		FineCents: int64(r.Fine),
	}
	if r.Promoted != nil {
		promoted := toReservationResponse(*r.Promoted)
		resp.Promoted = &promoted
	}
	return resp
}

func toReservationResponse(r domain.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:         r.ID,
		BorrowerID: r.BorrowerID,
		TitleID:    r.TitleID,
		CreatedAt:  r.CreatedAt,
		NotifiedAt: r.NotifiedAt,
		Status:     string(r.Status),
	}
}

func toReservationResponses(reservations []domain.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, toReservationResponse(r))
	}
	return out
}

func toInventoryResponse(c domain.InventoryCounts) InventoryResponse {
	return InventoryResponse{
		Titles:     c.Titles,
		Copies:     c.Copies,
		Available:  c.Available,
		CheckedOut: c.CheckedOut,
	}
}

func toTitleResponse(t domain.Title, copies []domain.Copy) TitleResponse {
	resp := TitleResponse{
		ID:            t.ID,
		Name:          t.Name,
		Creator:       t.Creator,
		Category:      t.Category,
		PublishedOn:   t.PublishedOn.Format(dateLayout),
		ShelfLocation: t.ShelfLocation,
	}
	for _, c := range copies {
		resp.Copies = append(resp.Copies, CopyResponse{ID: c.ID, Barcode: c.Barcode, Status: string(c.Status)})
	}
	return resp
}

func (r TitleRequest) toNewTitle() (domain.NewTitle, error) {
	published, err := parseDate("published_on", r.PublishedOn)
	if err != nil {
		return domain.NewTitle{}, err
	}
	return domain.NewTitle{
		Name:          r.Name,
		Creator:       r.Creator,
		Category:      r.Category,
		PublishedOn:   published,
		ShelfLocation: r.ShelfLocation,
		Copies:        r.Copies,
	}, nil
}

func (r TitleUpdateRequest) toTitleUpdate(id int64) (domain.TitleUpdate, error) {
	update := domain.TitleUpdate{
		ID:            id,
		Name:          r.Name,
		Creator:       r.Creator,
		Category:      r.Category,
		ShelfLocation: r.ShelfLocation,
	}
	if r.PublishedOn != nil {
		published, err := parseDate("published_on", *r.PublishedOn)
		if err != nil {
			return domain.TitleUpdate{}, err
		}
		update.PublishedOn = &published
	}
	return update, nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", domain.ErrInvalidArgument, field)
	}
	return t, nil
}

package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type httpClient struct {
	t *testing.T
	e *echo.Echo
}

func newHTTPClient(t *testing.T, s *services) *httpClient {
	h := NewHTTPHandler(s.lending, s.queue, s.catalog, s.queries, slog.New(slog.DiscardHandler))
	return &httpClient{t: t, e: NewEcho(h)}
}

// do sends a request as borrowerID with role; borrowerID 0 sends no identity.
func (c *httpClient) do(method, path string, borrowerID int64, role, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if borrowerID != 0 {
		req.Header.Set(HeaderBorrowerID, fmt.Sprint(borrowerID))
	}
	if role != "" {
		req.Header.Set(HeaderRole, role)
	}
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHTTP_HealthCheck(t *testing.T) {
	c := newHTTPClient(t, newServices(t))

	rec := c.do(http.MethodGet, "/health", 0, "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHTTP_RequiresIdentity(t *testing.T) {
	c := newHTTPClient(t, newServices(t))

	rec := c.do(http.MethodGet, "/api/inventory", 0, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodGet, "/api/inventory", 1, "admin", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTP_CheckoutRenewReturn(t *testing.T) {
	s := newServices(t)
	s.addBorrower(t, 1, true)
	title := s.addTitle(t, 1)
	c := newHTTPClient(t, s)

	rec := c.do(http.MethodPost, "/api/checkout", 1, "", fmt.Sprintf(`{"title_id":%d}`, title.Title.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := decode[LoanResponse](t, rec)
	assert.Equal(t, int64(1), loan.BorrowerID)
	assert.Equal(t, title.Copies[0].ID, loan.CopyID)
	assert.Equal(t, "open", loan.Status)

	rec = c.do(http.MethodPost, "/api/renew", 1, "", fmt.Sprintf(`{"loan_id":%d}`, loan.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	renewed := decode[LoanResponse](t, rec)
	assert.Equal(t, 1, renewed.Renewals)
	assert.True(t, renewed.DueAt.After(loan.DueAt))

	rec = c.do(http.MethodPost, "/api/return", 1, "", fmt.Sprintf(`{"copy_id":%d}`, loan.CopyID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	returned := decode[ReturnResponse](t, rec)
	assert.Equal(t, "$0.00", returned.Fine)
	assert.NotNil(t, returned.Loan.ReturnedAt)
	assert.Nil(t, returned.Promoted)
}

func TestHTTP_CheckoutErrors(t *testing.T) {
	s := newServices(t)
	s.addBorrower(t, 1, true)
	s.addBorrower(t, 2, false)
	title := s.addTitle(t, 1)
	c := newHTTPClient(t, s)
	body := fmt.Sprintf(`{"title_id":%d}`, title.Title.ID)

	tests := []struct {
		name     string
		borrower int64
		body     string
		want     int
	}{
		{"malformed body", 1, `{"title_id":`, http.StatusBadRequest},
		{"missing title", 1, `{}`, http.StatusBadRequest},
		{"unknown title", 1, `{"title_id":999}`, http.StatusNotFound},
		{"inactive membership", 2, body, http.StatusForbidden},
		{"unknown borrower", 3, body, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(http.MethodPost, "/api/checkout", tt.borrower, "", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/checkout", 1, "", body).Code)
	rec := c.do(http.MethodPost, "/api/checkout", 1, "", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHTTP_MemberCannotActForOthers(t *testing.T) {
	s := newServices(t)
	s.addBorrower(t, 1, true)
	s.addBorrower(t, 2, true)
	title := s.addTitle(t, 2)
	c := newHTTPClient(t, s)
	body := fmt.Sprintf(`{"borrower_id":2,"title_id":%d}`, title.Title.ID)

	rec := c.do(http.MethodPost, "/api/checkout", 1, "member", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodPost, "/api/checkout", 99, "librarian", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(2), decode[LoanResponse](t, rec).BorrowerID)
}

func TestHTTP_ReserveAndPromoteOnReturn(t *testing.T) {
	s := newServices(t)
	s.addBorrower(t, 1, true)
	s.addBorrower(t, 2, true)
	title := s.addTitle(t, 1)
	c := newHTTPClient(t, s)
	titleBody := fmt.Sprintf(`{"title_id":%d}`, title.Title.ID)

	rec := c.do(http.MethodPost, "/api/reservations", 2, "", titleBody)
	assert.Equal(t, http.StatusConflict, rec.Code, "copies are still on the shelf")

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/checkout", 1, "", titleBody).Code)

	rec = c.do(http.MethodPost, "/api/reservations", 2, "", titleBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reservation := decode[ReservationResponse](t, rec)
	assert.Equal(t, "active", reservation.Status)

	rec = c.do(http.MethodPost, "/api/return", 1, "", fmt.Sprintf(`{"copy_id":%d}`, title.Copies[0].ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	returned := decode[ReturnResponse](t, rec)
	require.NotNil(t, returned.Promoted)
	assert.Equal(t, reservation.ID, returned.Promoted.ID)
	assert.Equal(t, "notified", returned.Promoted.Status)

	require.Len(t, s.notifier.Notices(), 1)
	assert.Equal(t, "reader@example.com", s.notifier.Notices()[0].Recipient)
}

func TestHTTP_ListScopes(t *testing.T) {
	s := newServices(t)
	s.addBorrower(t, 1, true)
	s.addBorrower(t, 2, true)
	title := s.addTitle(t, 2)
	c := newHTTPClient(t, s)
	body := fmt.Sprintf(`{"title_id":%d}`, title.Title.ID)
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/checkout", 1, "", body).Code)
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/checkout", 2, "", body).Code)

	rec := c.do(http.MethodGet, "/api/loans", 1, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]LoanResponse](t, rec), 1)

	rec = c.do(http.MethodGet, "/api/loans?open=true", 9, "librarian", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]LoanResponse](t, rec), 2)

	rec = c.do(http.MethodGet, "/api/loans?borrower_id=2", 1, "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodGet, "/api/loans?open=maybe", 1, "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodGet, "/api/borrowers/2/history", 1, "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodGet, "/api/loans/overdue", 1, "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodGet, "/api/inventory", 1, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, InventoryResponse{Titles: 1, Copies: 2, Available: 0, CheckedOut: 2}, decode[InventoryResponse](t, rec))
}

func TestHTTP_LoanEventsHidesOtherBorrowersLoans(t *testing.T) {
	s := newServices(t)
	s.addBorrower(t, 1, true)
	s.addBorrower(t, 2, true)
	title := s.addTitle(t, 1)
	c := newHTTPClient(t, s)

	rec := c.do(http.MethodPost, "/api/checkout", 1, "", fmt.Sprintf(`{"title_id":%d}`, title.Title.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	loan := decode[LoanResponse](t, rec)
	path := fmt.Sprintf("/api/loans/%d/events", loan.ID)

	rec = c.do(http.MethodGet, path, 1, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]LoanEventResponse](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, "checkout", events[0].Kind)

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, path, 2, "", "").Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, path, 3, "librarian", "").Code)
}

func TestHTTP_TitleCatalog(t *testing.T) {
	s := newServices(t)
	c := newHTTPClient(t, s)

	body := `{"name":"Dune","creator":"Frank Herbert","category":"Science Fiction","published_on":"1965-08-01","shelf_location":"S-3","copies":2}`
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodPost, "/api/titles", 1, "", body).Code)

	rec := c.do(http.MethodPost, "/api/titles", 1, "librarian", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[TitleResponse](t, rec)
	assert.Equal(t, "1965-08-01", created.PublishedOn)
	assert.Len(t, created.Copies, 2)

	rec = c.do(http.MethodPost, "/api/titles", 1, "librarian", `{"name":"Dune","published_on":"August 1965"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPut, fmt.Sprintf("/api/titles/%d", created.ID), 1, "librarian", `{"shelf_location":"S-4"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "S-4", decode[TitleResponse](t, rec).ShelfLocation)

	rec = c.do(http.MethodGet, "/api/titles?creator=Frank%20Herbert", 5, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]TitleResponse](t, rec), 1)

	rec = c.do(http.MethodGet, "/api/titles/abc", 5, "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := fmt.Sprintf("/api/titles/%d", created.ID)
	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, path, 1, "librarian", "").Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, path, 5, "", "").Code)
}

func TestHTTP_SaveBorrower(t *testing.T) {
	c := newHTTPClient(t, newServices(t))

	rec := c.do(http.MethodPut, "/api/borrowers/7", 1, "librarian", `{"name":" Ada ","email":"ada@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, BorrowerResponse{ID: 7, Name: "Ada", Email: "ada@example.com", Active: true}, decode[BorrowerResponse](t, rec))

	rec = c.do(http.MethodPut, "/api/borrowers/7", 1, "librarian", `{"name":"Ada","email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPut, "/api/borrowers/7", 7, "", `{"name":"Ada","email":"ada@example.com","active":false}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

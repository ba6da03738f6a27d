package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/core/service"
)

const identityKey = "identity"

type HTTPHandler struct {
	lending *service.LendingService
	queue   *service.ReservationQueue
	catalog *service.CatalogService
	queries *service.QueryService
	logger  *slog.Logger
}

func NewHTTPHandler(
	lending *service.LendingService,
	queue *service.ReservationQueue,
	catalog *service.CatalogService,
	queries *service.QueryService,
	logger *slog.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		lending: lending,
		queue:   queue,
		catalog: catalog,
		queries: queries,
		logger:  logger,
	}
}

// NewEcho builds the HTTP server with every route registered.
func NewEcho(h *HTTPHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.HTTPErrorHandler = h.handleError

	e.GET("/health", h.HealthCheck)

	api := e.Group("/api", h.authenticate)
	api.POST("/checkout", h.Checkout)
	api.POST("/renew", h.Renew)
	api.POST("/return", h.Return)
	api.POST("/reservations", h.Reserve)

	api.GET("/loans", h.ListLoans)
	api.GET("/loans/overdue", h.Overdue, requireLibrarian)
	api.GET("/loans/:id/events", h.LoanEvents)
	api.GET("/reservations", h.ListReservations)
	api.GET("/borrowers/:id/history", h.History)
	api.PUT("/borrowers/:id", h.SaveBorrower, requireLibrarian)
	api.GET("/inventory", h.Inventory)

	api.GET("/titles", h.SearchTitles)
	api.GET("/titles/:id", h.GetTitle)
	api.POST("/titles", h.AddTitle, requireLibrarian)
	api.PUT("/titles/:id", h.UpdateTitle, requireLibrarian)
	api.DELETE("/titles/:id", h.DeleteTitle, requireLibrarian)
	return e
}

func (h *HTTPHandler) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header
		id, err := parseIdentity(header.Get(HeaderBorrowerID), header.Get(HeaderRole))
		if err != nil {
			return err
		}
		c.Set(identityKey, id)
		return next(c)
	}
}

func requireLibrarian(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !identity(c).IsLibrarian() {
			return ErrForbidden
		}
		return next(c)
	}
}

func identity(c echo.Context) domain.Identity {
	id, _ := c.Get(identityKey).(domain.Identity)
	return id
}

func (h *HTTPHandler) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := httpStatus(err)
	message := publicMessage(err)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		message = fmt.Sprint(he.Message)
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request().Context(), "request failed",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Path()),
			slog.Any("error", err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, ErrorResponse{Error: message})
	}
	if err != nil {
		h.logger.ErrorContext(c.Request().Context(), "write error response failed", slog.Any("error", err))
	}
}

func (h *HTTPHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) Checkout(c echo.Context) error {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	borrowerID, err := actingBorrower(identity(c), req.BorrowerID)
	if err != nil {
		return err
	}

	loan, err := h.lending.Checkout(c.Request().Context(), domain.CheckoutCommand{
		BorrowerID: borrowerID,
		TitleID:    req.TitleID,
		RequestID:  req.RequestID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toLoanResponse(*loan))
}

func (h *HTTPHandler) Renew(c echo.Context) error {
	var req RenewRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	borrowerID, err := actingBorrower(identity(c), req.BorrowerID)
	if err != nil {
		return err
	}

	loan, err := h.lending.Renew(c.Request().Context(), domain.RenewCommand{
		BorrowerID: borrowerID,
		LoanID:     req.LoanID,
		RequestID:  req.RequestID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLoanResponse(*loan))
}

func (h *HTTPHandler) Return(c echo.Context) error {
	var req ReturnRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	borrowerID, err := actingBorrower(identity(c), req.BorrowerID)
	if err != nil {
		return err
	}

	result, err := h.lending.Return(c.Request().Context(), domain.ReturnCommand{
		BorrowerID: borrowerID,
		CopyID:     req.CopyID,
		RequestID:  req.RequestID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReturnResponse(*result))
}

func (h *HTTPHandler) Reserve(c echo.Context) error {
	var req ReserveRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	borrowerID, err := actingBorrower(identity(c), req.BorrowerID)
	if err != nil {
		return err
	}

	reservation, err := h.queue.Reserve(c.Request().Context(), domain.ReserveCommand{
		BorrowerID: borrowerID,
		TitleID:    req.TitleID,
		RequestID:  req.RequestID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReservationResponse(*reservation))
}

// ListLoans shows the caller's loans. Librarians see everyone's unless
// borrower_id narrows it.
func (h *HTTPHandler) ListLoans(c echo.Context) error {
	borrowerID, err := h.listScope(c)
	if err != nil {
		return err
	}
	open, err := queryBool(c, "open")
	if err != nil {
		return err
	}

	loans, err := h.queries.ListLoans(c.Request().Context(), domain.LoanFilter{BorrowerID: borrowerID, OpenOnly: open})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLoanResponses(loans))
}

func (h *HTTPHandler) Overdue(c echo.Context) error {
	loans, err := h.queries.Overdue(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLoanResponses(loans))
}

func (h *HTTPHandler) LoanEvents(c echo.Context) error {
	loanID, err := pathID(c)
	if err != nil {
		return err
	}

	id := identity(c)
	if !id.IsLibrarian() {
		owned, err := h.ownsLoan(c, id.BorrowerID, loanID)
		if err != nil {
			return err
		}
		if !owned {
			return domain.ErrLoanNotFound
		}
	}

	events, err := h.queries.LoanEvents(c.Request().Context(), loanID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLoanEventResponses(events))
}

func (h *HTTPHandler) ownsLoan(c echo.Context, borrowerID, loanID int64) (bool, error) {
	loans, err := h.queries.ListLoans(c.Request().Context(), domain.LoanFilter{BorrowerID: borrowerID})
	if err != nil {
		return false, err
	}
	for _, l := range loans {
		if l.ID == loanID {
			return true, nil
		}
	}
	return false, nil
}

func (h *HTTPHandler) ListReservations(c echo.Context) error {
	borrowerID, err := h.listScope(c)
	if err != nil {
		return err
	}
	active, err := queryBool(c, "active")
	if err != nil {
		return err
	}

	reservations, err := h.queries.ListReservations(c.Request().Context(), domain.ReservationFilter{
		BorrowerID: borrowerID,
		ActiveOnly: active,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponses(reservations))
}

func (h *HTTPHandler) History(c echo.Context) error {
	requested, err := pathID(c)
	if err != nil {
		return err
	}
	borrowerID, err := actingBorrower(identity(c), requested)
	if err != nil {
		return err
	}

	loans, err := h.queries.History(c.Request().Context(), borrowerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLoanResponses(loans))
}

func (h *HTTPHandler) SaveBorrower(c echo.Context) error {
	borrowerID, err := pathID(c)
	if err != nil {
		return err
	}
	var req BorrowerRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	borrower := domain.Borrower{ID: borrowerID, Name: req.Name, Email: req.Email, Active: true}
	if req.Active != nil {
		borrower.Active = *req.Active
	}
	if err := h.catalog.SaveBorrower(c.Request().Context(), borrower); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, BorrowerResponse{
		ID:     borrower.ID,
		Name:   strings.TrimSpace(borrower.Name),
		Email:  strings.TrimSpace(borrower.Email),
		Active: borrower.Active,
	})
}

func (h *HTTPHandler) Inventory(c echo.Context) error {
	counts, err := h.queries.Inventory(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toInventoryResponse(counts))
}

func (h *HTTPHandler) SearchTitles(c echo.Context) error {
	published, err := parseDate("published_on", c.QueryParam("published_on"))
	if err != nil {
		return err
	}
	filter := domain.TitleFilter{
		Name:     c.QueryParam("name"),
		Creator:  c.QueryParam("creator"),
		Category: c.QueryParam("category"),
	}
	if !published.IsZero() {
		filter.PublishedOn = &published
	}

	titles, err := h.catalog.SearchTitles(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	out := make([]TitleResponse, 0, len(titles))
	for _, t := range titles {
		out = append(out, toTitleResponse(t, nil))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) GetTitle(c echo.Context) error {
	titleID, err := pathID(c)
	if err != nil {
		return err
	}
	detail, err := h.catalog.GetTitle(c.Request().Context(), titleID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTitleResponse(detail.Title, detail.Copies))
}

func (h *HTTPHandler) AddTitle(c echo.Context) error {
	var req TitleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	nt, err := req.toNewTitle()
	if err != nil {
		return err
	}

	detail, err := h.catalog.AddTitle(c.Request().Context(), nt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toTitleResponse(detail.Title, detail.Copies))
}

func (h *HTTPHandler) UpdateTitle(c echo.Context) error {
	titleID, err := pathID(c)
	if err != nil {
		return err
	}
	var req TitleUpdateRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	update, err := req.toTitleUpdate(titleID)
	if err != nil {
		return err
	}

	title, err := h.catalog.UpdateTitle(c.Request().Context(), update)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTitleResponse(*title, nil))
}

func (h *HTTPHandler) DeleteTitle(c echo.Context) error {
	titleID, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteTitle(c.Request().Context(), titleID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// listScope resolves the borrower_id filter of list endpoints; 0 means all.
func (h *HTTPHandler) listScope(c echo.Context) (int64, error) {
	id := identity(c)
	raw := c.QueryParam("borrower_id")
	if raw == "" {
		if id.IsLibrarian() {
			return 0, nil
		}
		return id.BorrowerID, nil
	}

	requested, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || requested <= 0 {
		return 0, fmt.Errorf("%w: borrower_id must be a positive integer", domain.ErrInvalidArgument)
	}
	return actingBorrower(id, requested)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", domain.ErrInvalidArgument)
	}
	return id, nil
}

func queryBool(c echo.Context, name string) (bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", domain.ErrInvalidArgument, name)
	}
	return v, nil
}

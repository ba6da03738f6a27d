package handler

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

var (
	ErrUnauthenticated = errors.New("missing or invalid identity")
	ErrForbidden       = errors.New("not allowed for this role")
)

type errorMapping struct {
	err        error
	httpStatus int
	grpcCode   codes.Code
}

// errorTable is the single place where errors meet transport codes.
var errorTable = []errorMapping{
	{domain.ErrInvalidArgument, http.StatusBadRequest, codes.InvalidArgument},
	{ErrUnauthenticated, http.StatusUnauthorized, codes.Unauthenticated},
	{ErrForbidden, http.StatusForbidden, codes.PermissionDenied},
	{domain.ErrMembershipInactive, http.StatusForbidden, codes.PermissionDenied},

	{domain.ErrBorrowerNotFound, http.StatusNotFound, codes.NotFound},
	{domain.ErrTitleNotFound, http.StatusNotFound, codes.NotFound},
	{domain.ErrCopyNotFound, http.StatusNotFound, codes.NotFound},
	{domain.ErrLoanNotFound, http.StatusNotFound, codes.NotFound},

	{domain.ErrNoCopyAvailable, http.StatusConflict, codes.FailedPrecondition},
	{domain.ErrBorrowLimitExceeded, http.StatusConflict, codes.FailedPrecondition},
	{domain.ErrLoanOverdue, http.StatusConflict, codes.FailedPrecondition},
	{domain.ErrNoOpenLoan, http.StatusConflict, codes.FailedPrecondition},
	{domain.ErrCopiesAvailable, http.StatusConflict, codes.FailedPrecondition},
	{domain.ErrTitleHasLoans, http.StatusConflict, codes.FailedPrecondition},

	{domain.ErrDuplicateActiveLoan, http.StatusConflict, codes.AlreadyExists},
	{domain.ErrDuplicateReservation, http.StatusConflict, codes.AlreadyExists},
	{domain.ErrDuplicateRequest, http.StatusConflict, codes.AlreadyExists},
}

func lookupError(err error) (errorMapping, bool) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return errorMapping{}, false
}

func httpStatus(err error) int {
	if m, ok := lookupError(err); ok {
		return m.httpStatus
	}
	return http.StatusInternalServerError
}

func grpcCode(err error) codes.Code {
	if m, ok := lookupError(err); ok {
		return m.grpcCode
	}
	return codes.Internal
}

// publicMessage hides infrastructure details from callers.
func publicMessage(err error) string {
	if _, ok := lookupError(err); ok {
		return err.Error()
	}
	return "internal error"
}

package domain

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")

	ErrMembershipInactive   = errors.New("membership inactive")
	ErrBorrowerNotFound     = errors.New("borrower not found")
	ErrTitleNotFound        = errors.New("title not found")
	ErrCopyNotFound         = errors.New("copy not found")
	ErrNoCopyAvailable      = errors.New("no copy available")
	ErrBorrowLimitExceeded  = errors.New("borrow limit exceeded")
	ErrDuplicateActiveLoan  = errors.New("title already on loan to borrower")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanOverdue          = errors.New("loan overdue")
	ErrNoOpenLoan           = errors.New("no open loan for copy")
	ErrCopiesAvailable      = errors.New("copies available")
	ErrDuplicateReservation = errors.New("duplicate reservation")
	ErrTitleHasLoans        = errors.New("title has loans")
	ErrDuplicateRequest     = errors.New("duplicate request")
)

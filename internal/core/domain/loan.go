package domain

import "time"

type LoanStatus string

const (
	LoanStatusOpen     LoanStatus = "open"
	LoanStatusReturned LoanStatus = "returned"
)

type LoanEventKind string

const (
	LoanEventCheckout LoanEventKind = "checkout"
	LoanEventRenew    LoanEventKind = "renew"
	LoanEventReturn   LoanEventKind = "return"
)

type Loan struct {
	ID         int64
	BorrowerID int64
	CopyID     int64
	TitleID    int64
	IssuedAt   time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
	Fine       Money
	Status     LoanStatus
	LastEvent  LoanEventKind
	Renewals   int
}

func (l Loan) IsOpen() bool {
	return l.ReturnedAt == nil
}

// IsOverdue reports whether the loan is still open past its due time.
func (l Loan) IsOverdue(now time.Time) bool {
	return l.IsOpen() && now.After(l.DueAt)
}

// LoanEvent is one entry of the append-only history of a loan.
type LoanEvent struct {
	ID         int64
	LoanID     int64
	Kind       LoanEventKind
	OccurredAt time.Time
	DueAt      time.Time
	Fine       Money
}

type LoanFilter struct {
	BorrowerID int64
	OpenOnly   bool
}

type CheckoutCommand struct {
	BorrowerID int64
	TitleID    int64
	RequestID  string
}

type RenewCommand struct {
	BorrowerID int64
	LoanID     int64
	RequestID  string
}

type ReturnCommand struct {
	BorrowerID int64
	CopyID     int64
	RequestID  string
}

type ReturnResult struct {
	Loan     Loan
	Fine     Money
	Promoted *Reservation
}

package domain

import "github.com/google/uuid"

type NoticeKind string

const (
	NoticeOverdue              NoticeKind = "overdue"
	NoticeReservationAvailable NoticeKind = "reservation_available"
)

// Notice is a message handed to the notification sink after state has committed.
type Notice struct {
	ID            uuid.UUID
	Kind          NoticeKind
	Recipient     string
	Subject       string
	Body          string
	BorrowerID    int64
	LoanID        int64
	ReservationID int64
}

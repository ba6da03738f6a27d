package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusActive   ReservationStatus = "active"
	ReservationStatusNotified ReservationStatus = "notified"
)

type Reservation struct {
	ID         int64
	BorrowerID int64
	TitleID    int64
	CreatedAt  time.Time
	NotifiedAt *time.Time
	Status     ReservationStatus
}

// Precedes orders reservations for promotion: oldest first, lowest id on ties.
func (r Reservation) Precedes(other Reservation) bool {
	if r.CreatedAt.Equal(other.CreatedAt) {
		return r.ID < other.ID
	}
	return r.CreatedAt.Before(other.CreatedAt)
}

type ReservationFilter struct {
	BorrowerID int64
	ActiveOnly bool
}

type ReserveCommand struct {
	BorrowerID int64
	TitleID    int64
	RequestID  string
}

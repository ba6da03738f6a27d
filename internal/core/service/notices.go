package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

const (
	noticeTimeLayout = "2006-01-02 15:04:05"
	unknownTitleName = "your item"
)

func overdueNotice(borrower domain.Borrower, loan domain.Loan, title string) domain.Notice {
	return domain.Notice{
		ID:        uuid.New(),
		Kind:      domain.NoticeOverdue,
		Recipient: borrower.Email,
		Subject:   "Overdue loan notification",
		Body: fmt.Sprintf("Dear %s,\n\n"+
			"'%s' (loan %d) was due on %s UTC and is now overdue.\n"+
			"Please return or renew it as soon as possible to limit further fines.\n",
			borrower.Name, title, loan.ID, loan.DueAt.UTC().Format(noticeTimeLayout)),
		BorrowerID: borrower.ID,
		LoanID:     loan.ID,
	}
}

func reservationAvailableNotice(borrower domain.Borrower, reservation domain.Reservation, title string) domain.Notice {
	return domain.Notice{
		ID:        uuid.New(),
		Kind:      domain.NoticeReservationAvailable,
		Recipient: borrower.Email,
		Subject:   "Reserved title available",
		Body: fmt.Sprintf("Hello %s,\n\n"+
			"'%s', which you reserved, has been returned and is now available for checkout.\n",
			borrower.Name, title),
		BorrowerID:    borrower.ID,
		ReservationID: reservation.ID,
	}
}

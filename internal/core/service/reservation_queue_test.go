package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

func TestReserve_Success(t *testing.T) {
	f := newFixture(t, nil)
	f.addBorrower(t, 1, true)
	f.addBorrower(t, 2, true)
	title := f.addTitle(t, "Dune", 1)
	f.checkout(t, 1, title.ID)

	r, err := f.queue.Reserve(context.Background(), domain.ReserveCommand{BorrowerID: 2, TitleID: title.ID})
	require.NoError(t, err)

	assert.NotZero(t, r.ID)
	assert.Equal(t, domain.ReservationStatusActive, r.Status)
	assert.Equal(t, testStart, r.CreatedAt)
	assert.Nil(t, r.NotifiedAt)
}

func TestReserve_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	f.addBorrower(t, 1, true)
	f.addBorrower(t, 2, true)
	f.addBorrower(t, 3, false)
	onShelf := f.addTitle(t, "On shelf", 1)
	lent := f.addTitle(t, "Lent", 1)
	f.checkout(t, 1, lent.ID)
	_, err := f.queue.Reserve(context.Background(), domain.ReserveCommand{BorrowerID: 2, TitleID: lent.ID})
	require.NoError(t, err)

	tests := []struct {
		name string
		cmd  domain.ReserveCommand
		want error
	}{
		{"missing ids", domain.ReserveCommand{}, domain.ErrInvalidArgument},
		{"copy on shelf", domain.ReserveCommand{BorrowerID: 2, TitleID: onShelf.ID}, domain.ErrCopiesAvailable},
		{"already reserved", domain.ReserveCommand{BorrowerID: 2, TitleID: lent.ID}, domain.ErrDuplicateReservation},
		{"unknown title", domain.ReserveCommand{BorrowerID: 2, TitleID: 999}, domain.ErrTitleNotFound},
		{"inactive membership", domain.ReserveCommand{BorrowerID: 3, TitleID: lent.ID}, domain.ErrMembershipInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.queue.Reserve(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReserve_PromotionOrder(t *testing.T) {
	f := newFixture(t, nil)
	for id := int64(1); id <= 4; id++ {
		f.addBorrower(t, id, true)
	}
	title := f.addTitle(t, "Dune", 1)
	loan := f.checkout(t, 1, title.ID)

	// Borrowers 2 and 3 reserve at the same instant, 4 later.
	r2, err := f.queue.Reserve(context.Background(), domain.ReserveCommand{BorrowerID: 2, TitleID: title.ID})
	require.NoError(t, err)
	r3, err := f.queue.Reserve(context.Background(), domain.ReserveCommand{BorrowerID: 3, TitleID: title.ID})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	r4, err := f.queue.Reserve(context.Background(), domain.ReserveCommand{BorrowerID: 4, TitleID: title.ID})
	require.NoError(t, err)

	var promoted []int64
	holder, copyID := int64(1), loan.CopyID
	for i := 0; i < 3; i++ {
		result, err := f.lending.Return(context.Background(), domain.ReturnCommand{BorrowerID: holder, CopyID: copyID})
		require.NoError(t, err)
		require.NotNil(t, result.Promoted)
		promoted = append(promoted, result.Promoted.ID)

		holder = result.Promoted.BorrowerID
		next := f.checkout(t, holder, title.ID)
		copyID = next.CopyID
	}

	assert.Equal(t, []int64{r2.ID, r3.ID, r4.ID}, promoted)
	assert.Len(t, f.notifier.Notices(), 3)
}

func TestReserve_AgainAfterPromotion(t *testing.T) {
	f := newFixture(t, nil)
	f.addBorrower(t, 1, true)
	f.addBorrower(t, 2, true)
	f.addBorrower(t, 3, true)
	title := f.addTitle(t, "Dune", 1)
	loan := f.checkout(t, 1, title.ID)
	_, err := f.queue.Reserve(context.Background(), domain.ReserveCommand{BorrowerID: 2, TitleID: title.ID})
	require.NoError(t, err)

	_, err = f.lending.Return(context.Background(), domain.ReturnCommand{BorrowerID: 1, CopyID: loan.CopyID})
	require.NoError(t, err)
	f.checkout(t, 3, title.ID)

	_, err = f.queue.Reserve(context.Background(), domain.ReserveCommand{BorrowerID: 2, TitleID: title.ID})
	assert.NoError(t, err, "a notified reservation no longer blocks a new one")
}

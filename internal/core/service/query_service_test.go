package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

func TestHistory_NewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	f.addBorrower(t, 1, true)
	f.addBorrower(t, 2, true)
	first := f.checkout(t, 1, f.addTitle(t, "First", 1).ID)
	f.clock.Advance(time.Hour)
	second := f.checkout(t, 1, f.addTitle(t, "Second", 1).ID)
	f.checkout(t, 2, f.addTitle(t, "Other", 1).ID)

	_, err := f.lending.Return(context.Background(), domain.ReturnCommand{BorrowerID: 1, CopyID: first.CopyID})
	require.NoError(t, err)

	history, err := f.queries.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)

	open, err := f.queries.ListLoans(context.Background(), domain.LoanFilter{BorrowerID: 1, OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	_, err = f.queries.History(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestOverdue_OldestDueFirst(t *testing.T) {
	f := newFixture(t, nil)
	f.addBorrower(t, 1, true)
	older := f.checkout(t, 1, f.addTitle(t, "Older", 1).ID)
	f.clock.Advance(2 * day)
	newer := f.checkout(t, 1, f.addTitle(t, "Newer", 1).ID)

	f.clock.Advance(9 * day)
	loans, err := f.queries.Overdue(context.Background())
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, older.ID, loans[0].ID)

	f.clock.Advance(2 * day)
	loans, err = f.queries.Overdue(context.Background())
	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, []int64{older.ID, newer.ID}, []int64{loans[0].ID, loans[1].ID})
}

func TestLoanEvents_FullLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	f.addBorrower(t, 1, true)
	loan := f.checkout(t, 1, f.addTitle(t, "Dune", 1).ID)

	f.clock.Advance(day)
	_, err := f.lending.Renew(context.Background(), domain.RenewCommand{BorrowerID: 1, LoanID: loan.ID})
	require.NoError(t, err)
	f.clock.Advance(25 * day)
	_, err = f.lending.Return(context.Background(), domain.ReturnCommand{BorrowerID: 1, CopyID: loan.CopyID})
	require.NoError(t, err)

	events, err := f.queries.LoanEvents(context.Background(), loan.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.LoanEventCheckout, events[0].Kind)
	assert.Equal(t, domain.LoanEventRenew, events[1].Kind)
	assert.Equal(t, domain.LoanEventReturn, events[2].Kind)
	assert.Equal(t, domain.Dollars(6), events[2].Fine)
}

func TestReservations_CreatedOrder(t *testing.T) {
	f := newFixture(t, nil)
	f.addBorrower(t, 1, true)
	f.addBorrower(t, 2, true)
	a := f.addTitle(t, "A", 1)
	b := f.addTitle(t, "B", 1)
	f.checkout(t, 1, a.ID)
	f.checkout(t, 1, b.ID)

	rb, err := f.queue.Reserve(context.Background(), domain.ReserveCommand{BorrowerID: 2, TitleID: b.ID})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	ra, err := f.queue.Reserve(context.Background(), domain.ReserveCommand{BorrowerID: 2, TitleID: a.ID})
	require.NoError(t, err)

	list, err := f.queries.ListReservations(context.Background(), domain.ReservationFilter{BorrowerID: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, rb.ID, list[0].ID)
	assert.Equal(t, ra.ID, list[1].ID)
}

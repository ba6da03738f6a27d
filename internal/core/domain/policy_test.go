package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Fine(t *testing.T) {
	policy := DefaultPolicy()
	issued := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	due := issued.Add(policy.LoanPeriod)

	tests := []struct {
		name     string
		returned time.Time
		want     Money
	}{
		{name: "early", returned: due.Add(-48 * time.Hour), want: 0},
		{name: "exactly on due", returned: due, want: 0},
		{name: "partial day late", returned: due.Add(23 * time.Hour), want: 0},
		{name: "one day late", returned: due.Add(24 * time.Hour), want: Dollars(1)},
		{name: "five days late", returned: issued.Add(15 * 24 * time.Hour), want: Dollars(5)},
		{name: "five days and change", returned: due.Add(5*24*time.Hour + 23*time.Hour), want: Dollars(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Fine(due, tt.returned))
		})
	}
}

func TestPolicy_FineUsesDailyRate(t *testing.T) {
	policy := Policy{LoanPeriod: DefaultLoanPeriod, MaxOpenLoans: 5, DailyFine: Money(250)}
	due := time.Unix(0, 0).UTC()

	assert.Equal(t, Money(750), policy.Fine(due, due.Add(3*24*time.Hour)))
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "$5.00", Dollars(5).String())
	assert.Equal(t, "$0.07", Money(7).String())
	assert.Equal(t, "-$1.50", Money(-150).String())
	assert.InDelta(t, 5.0, Dollars(5).Float(), 1e-9)
}

func TestReservation_Precedes(t *testing.T) {
	at := time.Unix(1000, 0)
	older := Reservation{ID: 9, CreatedAt: at.Add(-time.Minute)}
	tieLow := Reservation{ID: 3, CreatedAt: at}
	tieHigh := Reservation{ID: 4, CreatedAt: at}

	assert.True(t, older.Precedes(tieLow))
	assert.True(t, tieLow.Precedes(tieHigh))
	assert.False(t, tieHigh.Precedes(tieLow))
}

func TestLoan_IsOverdue(t *testing.T) {
	due := time.Unix(5000, 0)
	loan := Loan{DueAt: due}

	assert.False(t, loan.IsOverdue(due))
	assert.True(t, loan.IsOverdue(due.Add(time.Second)))

	returned := due.Add(time.Hour)
	loan.ReturnedAt = &returned
	assert.False(t, loan.IsOverdue(due.Add(48*time.Hour)))
}

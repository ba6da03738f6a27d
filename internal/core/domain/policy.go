package domain

import "time"

const (
	DefaultLoanPeriod   = 10 * 24 * time.Hour
	DefaultMaxOpenLoans = 5
)

var DefaultDailyFine = Dollars(1)

type Policy struct {
	LoanPeriod   time.Duration
	MaxOpenLoans int
	DailyFine    Money
}

func DefaultPolicy() Policy {
	return Policy{
		LoanPeriod:   DefaultLoanPeriod,
		MaxOpenLoans: DefaultMaxOpenLoans,
		DailyFine:    DefaultDailyFine,
	}
}

// Fine charges DailyFine per whole day between due and returned.
// Partial days are truncated, so returning on or before due costs nothing.
func (p Policy) Fine(due, returned time.Time) Money {
	if !returned.After(due) {
		return 0
	}
	days := int64(returned.Sub(due) / (24 * time.Hour))
	return Money(days) * p.DailyFine
}

package domain

import "fmt"

// Money is an amount in cents.
type Money int64

func Dollars(d int64) Money {
	return Money(d * 100)
}

func (m Money) Float() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s$%d.%02d", sign, int64(m)/100, int64(m)%100)
}

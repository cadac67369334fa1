package model

import "github.com/shopspring/decimal"

// Tolerance is the largest debit/credit difference a transaction may carry.
var Tolerance = decimal.New(1, -2)

// MaxAmount is the largest line amount or transaction total accepted. It keeps
// stored cents, and report sums over millions of transactions, inside int64.
var MaxAmount = decimal.New(1, 10)

// Cents converts a two-place amount to integer cents for storage.
// Callers validate the scale and MaxAmount first; anything finer is rounded half away from zero.
func Cents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

// FromCents converts stored integer cents back to a decimal amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// HasSubCent reports whether d has more than two fraction digits.
func HasSubCent(d decimal.Decimal) bool {
	return !d.Equal(d.Truncate(2))
}

// WithinTolerance reports whether |a - b| <= Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// IsZeroBalance reports whether d rounds to zero at cent precision.
func IsZeroBalance(d decimal.Decimal) bool {
	return d.Abs().LessThan(Tolerance)
}

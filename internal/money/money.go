// Package money provides fixed 2-decimal helpers for monetary amounts.
//
// All monetary comparison and storage in the transaction pipeline happens at
// cent precision; callers round once at the boundary and compare rounded
// values, never raw floats.
package money

import "math"

// RoundCents rounds an amount to 2 decimal places (half away from zero).
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// Cents converts an amount to an integer number of cents.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Equal reports whether two amounts are equal at cent precision.
func Equal(a, b float64) bool {
	return Cents(a) == Cents(b)
}

// GTE reports whether a >= b at cent precision.
func GTE(a, b float64) bool {
	return Cents(a) >= Cents(b)
}

// GT reports whether a > b at cent precision.
func GT(a, b float64) bool {
	return Cents(a) > Cents(b)
}

// Sub subtracts b from a and rounds the result to cents.
func Sub(a, b float64) float64 {
	return RoundCents(a - b)
}

// Add sums a and b and rounds the result to cents.
func Add(a, b float64) float64 {
	return RoundCents(a + b)
}

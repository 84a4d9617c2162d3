// Package fixedpoint implements the 17.14 signed fixed-point numbers used by
// the MLFQS load average and recent CPU estimates.
//
// A Fixed holds a real number x as the integer x * 2^14. Addition and
// subtraction are exact. Multiplication and division widen to 64 bits and use
// Go integer division, so intermediate results truncate toward zero.
package fixedpoint

import "strconv"

// FracBits is the number of fractional bits.
const FracBits = 14

// One is the fixed-point representation of 1.
const One Fixed = 1 << FracBits

// Fixed is a 17.14 fixed-point number.
type Fixed int32

// FromInt converts an integer to fixed point.
func FromInt(n int) Fixed {
	return Fixed(n) * One
}

// FromRaw wraps a raw scaled value, as carried on the wire.
func FromRaw(raw int32) Fixed {
	return Fixed(raw)
}

// Frac returns num/den in fixed point.
func Frac(num, den int) Fixed {
	return FromInt(num).DivInt(den)
}

// Raw returns the scaled integer.
func (x Fixed) Raw() int32 {
	return int32(x)
}

// Trunc converts to an integer, rounding toward zero.
func (x Fixed) Trunc() int {
	return int(x / One)
}

// Round converts to the nearest integer, halves rounding away from zero.
func (x Fixed) Round() int {
	if x >= 0 {
		return int((x + One/2) / One)
	}
	return int((x - One/2) / One)
}

func (x Fixed) Add(y Fixed) Fixed {
	return x + y
}

func (x Fixed) Sub(y Fixed) Fixed {
	return x - y
}

func (x Fixed) AddInt(n int) Fixed {
	return x + FromInt(n)
}

func (x Fixed) SubInt(n int) Fixed {
	return x - FromInt(n)
}

// Mul multiplies two fixed-point values through a 64-bit product.
func (x Fixed) Mul(y Fixed) Fixed {
	return Fixed(int64(x) * int64(y) / int64(One))
}

func (x Fixed) MulInt(n int) Fixed {
	return x * Fixed(n)
}

// Div divides x by y, scaling the dividend first in 64 bits.
// Dividing by zero panics like integer division.
func (x Fixed) Div(y Fixed) Fixed {
	return Fixed(int64(x) * int64(One) / int64(y))
}

func (x Fixed) DivInt(n int) Fixed {
	return x / Fixed(n)
}

// Hundredths returns round(x * 100), the form kernels usually report load
// averages and recent CPU in.
func (x Fixed) Hundredths() int {
	// Widened: x*100 leaves int32 once x passes about 1310
	v := int64(x) * 100
	if v >= 0 {
		return int((v + int64(One)/2) / int64(One))
	}
	return int((v - int64(One)/2) / int64(One))
}

// String formats x with two decimals.
func (x Fixed) String() string {
	h := x.Hundredths()
	sign := ""
	if h < 0 {
		sign = "-"
		h = -h
	}
	frac := strconv.Itoa(h % 100)
	if len(frac) < 2 {
		frac = "0" + frac
	}
	return sign + strconv.Itoa(h/100) + "." + frac
}

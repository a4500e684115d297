package wire

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	errNotDecimal = errors.New("not a decimal integer")
	errOutOfRange = errors.New("value out of range")
)

// Uint128 is an unsigned 128-bit integer held as two 64-bit limbs.
type Uint128 struct {
	Lo, Hi uint64
}

// Int128 is a two's-complement signed 128-bit integer held as two 64-bit limbs.
type Int128 struct {
	Lo, Hi uint64
}

// Uint128From64 widens v.
func Uint128From64(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// Int128From64 sign-extends v.
func Int128From64(v int64) Int128 {
	hi := uint64(0)
	if v < 0 {
		hi = ^uint64(0)
	}
	return Int128{Lo: uint64(v), Hi: hi}
}

// ParseUint128 parses a base-10 string of digits.
func ParseUint128(s string) (Uint128, error) {
	if !isDigits(s) {
		return Uint128{}, errNotDecimal
	}
	mag, err := uint256.FromDecimal(s)
	if err != nil {
		return Uint128{}, err
	}
	if mag.BitLen() > 128 {
		return Uint128{}, errOutOfRange
	}
	return Uint128{Lo: mag[0], Hi: mag[1]}, nil
}

// ParseInt128 parses a base-10 string with an optional leading '-'.
func ParseInt128(s string) (Int128, error) {
	neg := len(s) > 0 && s[0] == '-'
	digits := s
	if neg {
		digits = s[1:]
	}
	if !isDigits(digits) {
		return Int128{}, errNotDecimal
	}
	mag, err := uint256.FromDecimal(digits)
	if err != nil {
		return Int128{}, err
	}

	// |min| is 2^127, max is 2^127-1.
	switch bl := mag.BitLen(); {
	case bl <= 127:
	case neg && bl == 128 && mag[0] == 0 && mag[1] == 1<<63:
	default:
		return Int128{}, errOutOfRange
	}
	if neg {
		mag.Neg(mag)
	}
	return Int128{Lo: mag[0], Hi: mag[1]}, nil
}

// Negative reports whether the sign bit is set.
func (v Int128) Negative() bool {
	return v.Hi>>63 == 1
}

func (v Uint128) String() string {
	return (&uint256.Int{v.Lo, v.Hi, 0, 0}).Dec()
}

func (v Int128) String() string {
	if !v.Negative() {
		return (&uint256.Int{v.Lo, v.Hi, 0, 0}).Dec()
	}
	// Sign-extend to 256 bits so Neg yields the magnitude.
	z := &uint256.Int{v.Lo, v.Hi, ^uint64(0), ^uint64(0)}
	z.Neg(z)
	return "-" + z.Dec()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

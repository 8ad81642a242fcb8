package sdk

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits of one unit (wei per unit = 10^18).
const Decimals = 18

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountOverflow = errors.New("amount overflow")
)

var unitScale = decimal.New(1, Decimals)

// Units returns n whole units in wei.
// Example payload: sdk.Units(25)
func Units(n uint64) *uint256.Int {
	v, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000_000))
	if overflow {
		panic("units overflow")
	}
	return v
}

// ParseAmount turns a decimal unit string like "0.3" into wei. Negative values, more than
// 18 fractional digits and values above 2^256-1 wei are rejected.
// Example payload: sdk.ParseAmount("0.01")
func ParseAmount(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative %q", ErrInvalidAmount, s)
	}
	wei := d.Mul(unitScale)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("%w: more than %d decimals in %q", ErrInvalidAmount, Decimals, s)
	}
	v, overflow := uint256.FromBig(wei.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: %q", ErrAmountOverflow, s)
	}
	return v, nil
}

// MustParseAmount is ParseAmount for constants.
func MustParseAmount(s string) *uint256.Int {
	v, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatAmount renders wei as a unit string without trailing zeros ("0.3", "25").
// Example payload: sdk.FormatAmount(sdk.Units(1))
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -Decimals).String()
}

// ParseWei reads a plain decimal wei string as stored in records.
func ParseWei(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

// Add returns a+b or ErrAmountOverflow, it never wraps.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrAmountOverflow on underflow.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrAmountOverflow
	}
	return diff, nil
}

// Zero is a fresh zero amount.
func Zero() *uint256.Int { return new(uint256.Int) }

package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Decimals is the fixed precision of every mint created by this system.
const Decimals = 9

// ToBaseUnits converts a user-entered decimal amount to integer base units:
// floor(a * 10^9). Non-positive, unparsable, or sub-unit amounts are rejected.
func ToBaseUnits(amount string) (uint64, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Form != apd.Finite || d.Sign() <= 0 {
		return 0, fmt.Errorf("%w: %q must be a positive number", ErrInvalidAmount, s)
	}
	if d.Exponent > apd.MaxExponent-Decimals {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, s)
	}
	// 乘以 10^9 只需移动指数
	d.Exponent += Decimals
	var whole apd.Decimal
	d.Modf(&whole, nil)
	if whole.Cmp(maxBaseUnits) > 0 {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, s)
	}
	// 指数归零后系数即为整数值（如 1e3 → 1000000000000）
	if _, err := quantizeContext.Quantize(&whole, &whole, 0); err != nil || !whole.Coeff.IsUint64() {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, s)
	}
	v := whole.Coeff.Uint64()
	if v == 0 {
		return 0, fmt.Errorf("%w: %q is below the smallest unit", ErrInvalidAmount, s)
	}
	return v, nil
}

// maxBaseUnits is the largest token amount the ledger can hold (u64).
var maxBaseUnits = func() *apd.Decimal {
	var d apd.Decimal
	d.Coeff.SetUint64(math.MaxUint64)
	return &d
}()

var quantizeContext = apd.BaseContext.WithPrecision(40)

// FormatBaseUnits renders base units back as a trimmed decimal string.
func FormatBaseUnits(v uint64) string {
	return formatWithDecimals(v, Decimals)
}

func formatWithDecimals(v uint64, decimals int32) string {
	var d apd.Decimal
	d.Coeff.SetUint64(v)
	d.Exponent = -decimals
	d.Reduce(&d)
	return d.Text('f')
}

package numfmt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ErrInvalidInput indicates a numeric value could not be parsed or is out of range.
var ErrInvalidInput = errors.New("numfmt: invalid numeric input")

// currency signs and grouping noise accepted in free-text amounts.
var stripped = strings.NewReplacer(
	"₩", "",
	"₽", "",
	"$", "",
	" ", "", // non-breaking space used by some fee sources
	" ", "",
	" ", "",
	"'", "",
	",", "",
)

// ParseAmount converts a free-text amount ("1,234,567", "120 000 ₽") into a decimal.
// Values must be finite and parseable after separator cleanup.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty value", ErrInvalidInput)
	}

	cleaned = stripped.Replace(cleaned)
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidInput, raw)
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidInput, raw)
	}
	return value, nil
}

// ParsePositiveAmount is ParseAmount restricted to strictly positive values.
func ParsePositiveAmount(raw string) (decimal.Decimal, error) {
	value, err := ParseAmount(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !value.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: %q must be greater than zero", ErrInvalidInput, raw)
	}
	return value, nil
}

// Group renders a decimal with thousands separators and no fraction digits.
func Group(value decimal.Decimal) string {
	return GroupWithDigits(value, 0)
}

// GroupWithDigits renders a decimal with thousands separators keeping the given
// number of fraction digits.
func GroupWithDigits(value decimal.Decimal, digits int) string {
	f, _ := value.Round(int32(digits)).Float64()
	return humanize.CommafWithDigits(f, digits)
}

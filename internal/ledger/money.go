package ledger

import (
	"fmt"
	"strings"

	"github.com/govalues/money"
	"github.com/tinoosan/tesouraria/internal/errs"
)

// Currency is the single currency handled by the treasury.
const Currency = "BRL"

// Zero returns a zero BRL amount at currency scale.
func Zero() money.Amount {
	a, _ := money.NewAmountFromMinorUnits(Currency, 0)
	return a
}

// FromMinor rebuilds an amount persisted as centavos.
func FromMinor(minor int64) (money.Amount, error) {
	a, err := money.NewAmountFromMinorUnits(Currency, minor)
	if err != nil {
		return money.Amount{}, fmt.Errorf("amount from %d centavos: %w", minor, err)
	}
	return a, nil
}

// ToMinor returns the amount in centavos, rounded to the currency scale.
// It fails when the amount does not fit in an int64.
func ToMinor(a money.Amount) (int64, error) {
	units, ok := a.MinorUnits()
	if !ok {
		return 0, fmt.Errorf("centavos of %s: out of int64 range", a)
	}
	return units, nil
}

// AmountFromMinor is FromMinor for literals. It panics on overflow.
func AmountFromMinor(minor int64) money.Amount {
	a, err := FromMinor(minor)
	if err != nil {
		panic(err)
	}
	return a
}

// MinorUnits is ToMinor for values known to fit. It panics on overflow.
func MinorUnits(a money.Amount) int64 {
	units, err := ToMinor(a)
	if err != nil {
		panic(err)
	}
	return units
}

// ParseAmount parses a positive decimal with at most two fractional digits.
// Both "12.34" and "12,34" are accepted.
func ParseAmount(s string) (money.Amount, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return money.Amount{}, errs.Invalid("valor", "obrigatório")
	}
	a, err := money.ParseAmount(Currency, s)
	if err != nil {
		return money.Amount{}, errs.Invalid("valor", "valor inválido")
	}
	if a.Decimal().Trim(2).Scale() > 2 {
		return money.Amount{}, errs.Invalid("valor", "no máximo duas casas decimais")
	}
	if !a.IsPos() {
		return money.Amount{}, errs.Invalid("valor", "deve ser maior que zero")
	}
	return a, nil
}

// FormatAmount renders an amount with exactly two decimals and no currency code, e.g. "1234.50".
func FormatAmount(a money.Amount) string {
	return a.RoundToCurr().Decimal().Pad(2).String()
}

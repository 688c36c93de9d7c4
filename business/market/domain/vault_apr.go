package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// VaultAPR is a vault's annualized reinvest yield, or unknown when the
// history is missing or the vault balance moved too much to trust it.
type VaultAPR struct {
	value decimal.Decimal
	known bool
}

// UnknownVaultAPR returns the unknown sentinel.
func UnknownVaultAPR() VaultAPR {
	return VaultAPR{}
}

// KnownVaultAPR wraps a computed percentage.
func KnownVaultAPR(v decimal.Decimal) VaultAPR {
	return VaultAPR{value: v, known: true}
}

// Value returns the percentage and whether it is known.
func (v VaultAPR) Value() (decimal.Decimal, bool) {
	return v.value, v.known
}

// IsKnown reports whether the value is known.
func (v VaultAPR) IsKnown() bool {
	return v.known
}

func (v VaultAPR) String() string {
	if !v.known {
		return "unknown"
	}
	return v.value.StringFixed(2)
}

// MarshalJSON emits a number, or the string "unknown".
func (v VaultAPR) MarshalJSON() ([]byte, error) {
	if !v.known {
		return []byte(strconv.Quote("unknown")), nil
	}
	return []byte(v.value.String()), nil
}

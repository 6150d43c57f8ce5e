package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a money value that tolerates the loose shapes dashboards send:
// null, "", numbers and numeric strings. Null and empty both decode to zero.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount { return Amount{Decimal: d} }

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			a.Decimal = decimal.Zero
			return nil
		}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid amount %q", raw)
	}
	a.Decimal = d
	return nil
}

// MarshalJSON renders the amount as a bare number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.StringFixed(2)), nil
}

// OptionalAmount is an Amount that records whether the field was present.
// An explicit null counts as present and decodes to zero.
type OptionalAmount struct {
	Amount
	Set bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalAmount) UnmarshalJSON(b []byte) error {
	o.Set = true
	return o.Amount.UnmarshalJSON(b)
}

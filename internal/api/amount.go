package api

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// amount is a decimal that also accepts null and "" as zero, the way form
// clients send an untouched amount field.
type amount struct {
	decimal.Decimal
}

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		a.Decimal = decimal.Zero
		return nil
	}
	return a.Decimal.UnmarshalJSON(b)
}

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%s",
		time.Now().Format("20060102"),
		uuid.NewString())
}

func FormatCurrency(amount decimal.Decimal) string {
	return "₹" + amount.String()
}

// ClampHistoryLimit maps an unset limit to the default and caps the rest.
func ClampHistoryLimit(limit int64) int64 {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is a persisted sale with its line items.
type Sale struct {
	ID     uuid.UUID
	Client string
	Seller string
	// Total always equals the sum of the item subtotals.
	Total decimal.Decimal
	Date  time.Time
	Notes string
	Items []LineItem
}

// LineItem is a persisted sale item. IDs are assigned by the repository.
type LineItem struct {
	ID        uuid.UUID
	SaleID    uuid.UUID
	Ref       CatalogRef
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// MaxAmount is the largest amount a numeric(12,2) column holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// Subtotal returns unitPrice x quantity.
func Subtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// SumSubtotals folds the subtotals of items.
func SumSubtotals(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}

// Money renders an amount with two decimal places.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Package sale composes sales in memory and persists them. A Draft holds
// DraftLineItems with temporary identifiers; Submit converts it into a
// models.Sale whose identifiers are assigned by the writer.
package sale

import (
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mode tells whether a draft creates a sale or edits a persisted one.
type Mode int

const (
	ModeNew Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "new"
}

var newTempID = func() string {
	return "tmp-" + uuid.NewString()
}

// DraftLineItem is a line item that has not been persisted. TempID and Name
// stay on the client side.
type DraftLineItem struct {
	TempID    string
	Ref       models.CatalogRef
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// Draft is a sale being composed.
type Draft struct {
	ID   uuid.UUID
	Mode Mode
	// SaleID is the persisted sale an edit draft replaces.
	SaleID uuid.UUID
	// CompanyID is the company the draft was opened under.
	CompanyID uuid.UUID
	Client    string
	Seller    string
	Notes     string
	Date      time.Time
	Items     []DraftLineItem
	Total     decimal.Decimal
}

// NewDraft returns an empty draft dated now.
func NewDraft(companyID uuid.UUID, now time.Time) *Draft {
	return &Draft{
		Mode:      ModeNew,
		CompanyID: companyID,
		Date:      now,
		Total:     decimal.Zero,
	}
}

// EditDraft loads a persisted sale into an edit mode draft.
func EditDraft(companyID uuid.UUID, s *models.Sale) *Draft {
	d := &Draft{
		Mode:      ModeEdit,
		SaleID:    s.ID,
		CompanyID: companyID,
		Client:    s.Client,
		Seller:    s.Seller,
		Notes:     s.Notes,
		Date:      s.Date,
	}
	for _, item := range s.Items {
		d.Items = append(d.Items, DraftLineItem{
			TempID:    newTempID(),
			Ref:       item.Ref,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	d.recompute()
	return d
}

// AddLineItem appends ref with quantity 1 at price. Edit drafts hold at
// most one item per catalog reference.
func (d *Draft) AddLineItem(ref models.CatalogRef, name string, price decimal.Decimal) (DraftLineItem, error) {
	if err := ref.Validate(); err != nil {
		return DraftLineItem{}, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	if price.IsNegative() {
		return DraftLineItem{}, e.Invalid("unit_price", "must not be negative")
	}
	if d.Mode == ModeEdit && d.Contains(ref) {
		return DraftLineItem{}, fmt.Errorf("%w: item already added", e.ErrDuplicate)
	}
	if d.Total.Add(price).GreaterThan(models.MaxAmount) {
		return DraftLineItem{}, e.Invalid("total", "exceeds "+models.Money(models.MaxAmount))
	}

	item := DraftLineItem{
		TempID:    newTempID(),
		Ref:       ref,
		Name:      name,
		Quantity:  1,
		UnitPrice: price,
	}
	d.Items = append(d.Items, item)
	d.recompute()
	return d.Items[len(d.Items)-1], nil
}

// UpdateQuantity sets the quantity of the item at index. Quantities below 1
// are ignored. A quantity whose subtotal or resulting total does not fit in
// MaxAmount is rejected and the draft is left unchanged.
func (d *Draft) UpdateQuantity(index, quantity int) error {
	if index < 0 || index >= len(d.Items) {
		return fmt.Errorf("%w: line item %d", e.ErrNotFound, index)
	}
	if quantity < 1 {
		return nil
	}
	subtotal := models.Subtotal(d.Items[index].UnitPrice, quantity)
	total := d.Total.Sub(d.Items[index].Subtotal).Add(subtotal)
	if subtotal.GreaterThan(models.MaxAmount) || total.GreaterThan(models.MaxAmount) {
		return e.Invalid("quantity", "total exceeds "+models.Money(models.MaxAmount))
	}
	d.Items[index].Quantity = quantity
	d.recompute()
	return nil
}

// RemoveLineItem drops the item at index.
func (d *Draft) RemoveLineItem(index int) error {
	if index < 0 || index >= len(d.Items) {
		return fmt.Errorf("%w: line item %d", e.ErrNotFound, index)
	}
	d.Items = append(d.Items[:index], d.Items[index+1:]...)
	d.recompute()
	return nil
}

// Contains reports whether an item already points at ref.
func (d *Draft) Contains(ref models.CatalogRef) bool {
	for _, item := range d.Items {
		if item.Ref == ref {
			return true
		}
	}
	return false
}

// Validate checks the draft can be submitted.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Client) == "" {
		return e.Invalid("client", "is required")
	}
	if strings.TrimSpace(d.Seller) == "" {
		return e.Invalid("seller", "is required")
	}
	if len(d.Items) == 0 {
		return e.Invalid("items", "at least one line item is required")
	}
	return nil
}

// Clone returns a deep copy of d.
func (d *Draft) Clone() *Draft {
	c := *d
	c.Items = append([]DraftLineItem(nil), d.Items...)
	return &c
}

// recompute derives every subtotal and the total from the collection.
func (d *Draft) recompute() {
	total := decimal.Zero
	for i := range d.Items {
		d.Items[i].Subtotal = models.Subtotal(d.Items[i].UnitPrice, d.Items[i].Quantity)
		total = total.Add(d.Items[i].Subtotal)
	}
	d.Total = total
}

// toSale strips the client side fields and returns the sale to persist.
func (d *Draft) toSale() *models.Sale {
	s := &models.Sale{
		ID:     d.SaleID,
		Client: strings.TrimSpace(d.Client),
		Seller: strings.TrimSpace(d.Seller),
		Notes:  strings.TrimSpace(d.Notes),
		Date:   d.Date,
		Items:  make([]models.LineItem, 0, len(d.Items)),
	}
	for _, item := range d.Items {
		s.Items = append(s.Items, models.LineItem{
			Ref:       item.Ref,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  models.Subtotal(item.UnitPrice, item.Quantity),
		})
	}
	s.Total = models.SumSubtotals(s.Items)
	return s
}

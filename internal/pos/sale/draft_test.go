package sale

import (
	"math"
	"math/rand"
	"testing"
	"time"

	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertTotal(t *testing.T, d *Draft, want string) {
	t.Helper()
	assert.True(t, d.Total.Equal(dec(want)), "total = %s, want %s", d.Total, want)
}

func TestDraft_Scenario(t *testing.T) {
	d := NewDraft(uuid.New(), time.Now())
	productA := models.ProductRef(uuid.New())
	serviceB := models.ServiceRef(uuid.New())

	_, err := d.AddLineItem(productA, "Produto A", dec("10.00"))
	require.NoError(t, err)
	assertTotal(t, d, "10.00")

	require.NoError(t, d.UpdateQuantity(0, 3))
	assertTotal(t, d, "30.00")

	_, err = d.AddLineItem(serviceB, "Servico B", dec("5.50"))
	require.NoError(t, err)
	assertTotal(t, d, "35.50")

	require.NoError(t, d.RemoveLineItem(0))
	assertTotal(t, d, "5.50")
	require.Len(t, d.Items, 1)
	assert.Equal(t, serviceB, d.Items[0].Ref)
}

func TestDraft_TotalAlwaysMatchesSubtotals(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	prices := []string{"0.10", "0.20", "0.30", "1.99", "10.00", "5.50", "0.01", "123.45"}

	for run := 0; run < 50; run++ {
		d := NewDraft(uuid.New(), time.Now())
		for op := 0; op < 200; op++ {
			switch rng.Intn(3) {
			case 0:
				price := dec(prices[rng.Intn(len(prices))])
				ref := models.ProductRef(uuid.New())
				if rng.Intn(2) == 0 {
					ref = models.ServiceRef(uuid.New())
				}
				_, err := d.AddLineItem(ref, "item", price)
				require.NoError(t, err)
			case 1:
				if len(d.Items) > 0 {
					require.NoError(t, d.RemoveLineItem(rng.Intn(len(d.Items))))
				}
			case 2:
				if len(d.Items) > 0 {
					require.NoError(t, d.UpdateQuantity(rng.Intn(len(d.Items)), rng.Intn(12)-2))
				}
			}

			sum := decimal.Zero
			for _, item := range d.Items {
				require.True(t, item.Subtotal.Equal(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))))
				require.GreaterOrEqual(t, item.Quantity, 1)
				sum = sum.Add(item.Subtotal)
			}
			require.True(t, d.Total.Equal(sum), "run %d op %d: total %s != sum %s", run, op, d.Total, sum)
		}
	}
}

func TestDraft_UpdateQuantityBelowOneIsNoop(t *testing.T) {
	d := NewDraft(uuid.New(), time.Now())
	_, err := d.AddLineItem(models.ProductRef(uuid.New()), "A", dec("2.50"))
	require.NoError(t, err)
	require.NoError(t, d.UpdateQuantity(0, 4))
	before := d.Clone()

	for _, qty := range []int{0, -1, -100} {
		require.NoError(t, d.UpdateQuantity(0, qty))
		assert.Equal(t, before, d)
	}

	assert.ErrorIs(t, d.UpdateQuantity(5, 2), e.ErrNotFound)
	assert.ErrorIs(t, d.RemoveLineItem(-1), e.ErrNotFound)
}

func TestDraft_AmountsFitStorage(t *testing.T) {
	d := NewDraft(uuid.New(), time.Now())
	_, err := d.AddLineItem(models.ProductRef(uuid.New()), "A", dec("10.00"))
	require.NoError(t, err)
	require.NoError(t, d.UpdateQuantity(0, 2))
	before := d.Clone()

	err = d.UpdateQuantity(0, math.MaxInt32)
	assert.ErrorIs(t, err, e.ErrInvalidInput)
	assert.Equal(t, before, d, "rejected quantity leaves the draft unchanged")

	require.NoError(t, d.UpdateQuantity(0, 999_999_999))
	assertTotal(t, d, "9999999990.00")

	_, err = d.AddLineItem(models.ServiceRef(uuid.New()), "B", dec("10.00"))
	assert.ErrorIs(t, err, e.ErrInvalidInput, "total would not fit")
	_, err = d.AddLineItem(models.ServiceRef(uuid.New()), "C", dec("9.99"))
	require.NoError(t, err)
	assertTotal(t, d, "9999999999.99")
}

func TestDraft_DuplicateReferences(t *testing.T) {
	ref := models.ProductRef(uuid.New())

	t.Run("edit mode rejects duplicates", func(t *testing.T) {
		d := EditDraft(uuid.New(), &models.Sale{
			ID:     uuid.New(),
			Client: "Maria",
			Seller: "Joao",
			Items: []models.LineItem{
				{ID: uuid.New(), Ref: ref, Quantity: 2, UnitPrice: dec("3.00"), Subtotal: dec("6.00")},
			},
		})

		_, err := d.AddLineItem(ref, "A", dec("3.00"))
		assert.ErrorIs(t, err, e.ErrDuplicate)
		assert.Len(t, d.Items, 1)
		assertTotal(t, d, "6.00")

		_, err = d.AddLineItem(models.ServiceRef(ref.ID), "same id, other kind", dec("1.00"))
		assert.NoError(t, err)
	})

	t.Run("new mode accepts duplicates", func(t *testing.T) {
		d := NewDraft(uuid.New(), time.Now())
		_, err := d.AddLineItem(ref, "A", dec("3.00"))
		require.NoError(t, err)
		_, err = d.AddLineItem(ref, "A", dec("3.00"))
		require.NoError(t, err)
		assert.Len(t, d.Items, 2)
		assertTotal(t, d, "6.00")
	})
}

func TestDraft_AddLineItemValidation(t *testing.T) {
	tests := []struct {
		name  string
		ref   models.CatalogRef
		price string
	}{
		{name: "unknown kind", ref: models.CatalogRef{Kind: "kit", ID: uuid.New()}, price: "1.00"},
		{name: "missing id", ref: models.ProductRef(uuid.Nil), price: "1.00"},
		{name: "negative price", ref: models.ProductRef(uuid.New()), price: "-0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDraft(uuid.New(), time.Now())
			_, err := d.AddLineItem(tt.ref, "x", dec(tt.price))
			assert.ErrorIs(t, err, e.ErrInvalidInput)
			assert.Empty(t, d.Items)
		})
	}
}

func TestDraft_AddLineItemDefaults(t *testing.T) {
	d := NewDraft(uuid.New(), time.Now())

	first, err := d.AddLineItem(models.ProductRef(uuid.New()), "A", dec("4.20"))
	require.NoError(t, err)
	second, err := d.AddLineItem(models.ProductRef(uuid.New()), "B", dec("0"))
	require.NoError(t, err)

	assert.Equal(t, 1, first.Quantity)
	assert.True(t, first.Subtotal.Equal(dec("4.20")))
	assert.NotEmpty(t, first.TempID)
	assert.NotEqual(t, first.TempID, second.TempID)
}

func TestDraft_Validate(t *testing.T) {
	withItem := func(d *Draft) *Draft {
		_, _ = d.AddLineItem(models.ProductRef(uuid.New()), "A", dec("1.00"))
		return d
	}

	tests := []struct {
		name      string
		draft     *Draft
		wantField string
	}{
		{name: "blank client", draft: withItem(&Draft{Client: "  ", Seller: "Joao"}), wantField: "client"},
		{name: "blank seller", draft: withItem(&Draft{Client: "Maria", Seller: ""}), wantField: "seller"},
		{name: "no items", draft: &Draft{Client: "Maria", Seller: "Joao"}, wantField: "items"},
		{name: "valid", draft: withItem(&Draft{Client: "Maria", Seller: "Joao"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *e.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.ErrorIs(t, err, e.ErrInvalidInput)
		})
	}
}

func TestEditDraft(t *testing.T) {
	companyID := uuid.New()
	persisted := &models.Sale{
		ID:     uuid.New(),
		Client: "Maria",
		Seller: "Joao",
		Notes:  "entrega amanha",
		Date:   time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Items: []models.LineItem{
			{ID: uuid.New(), Ref: models.ProductRef(uuid.New()), Quantity: 2, UnitPrice: dec("10.00")},
			{ID: uuid.New(), Ref: models.ServiceRef(uuid.New()), Quantity: 1, UnitPrice: dec("5.50")},
		},
	}

	d := EditDraft(companyID, persisted)

	assert.Equal(t, ModeEdit, d.Mode)
	assert.Equal(t, persisted.ID, d.SaleID)
	assert.Equal(t, companyID, d.CompanyID)
	assertTotal(t, d, "25.50")
	for _, item := range d.Items {
		assert.NotEmpty(t, item.TempID)
	}
}

func TestDraft_ToSaleStripsClientFields(t *testing.T) {
	d := NewDraft(uuid.New(), time.Now())
	d.Client = " Maria "
	d.Seller = "Joao"
	_, err := d.AddLineItem(models.ProductRef(uuid.New()), "A", dec("1.25"))
	require.NoError(t, err)
	require.NoError(t, d.UpdateQuantity(0, 4))

	s := d.toSale()

	assert.Equal(t, uuid.Nil, s.ID)
	assert.Equal(t, "Maria", s.Client)
	require.Len(t, s.Items, 1)
	assert.Equal(t, uuid.Nil, s.Items[0].ID)
	assert.True(t, s.Total.Equal(dec("5.00")))
}

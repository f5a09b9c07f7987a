package db

import (
	"context"
	"fmt"
	"time"

	dbmodels "github.com/gartstein/pdv/internal/pos/db/models"
	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/gartstein/pdv/internal/pos/sale"
	"github.com/gartstein/pdv/internal/pos/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) sales(ctx context.Context, b tenant.Binding) *gorm.DB {
	return r.db.WithContext(ctx).Table(b.Qualify(dbmodels.TableVendas))
}

func (r *Repository) lineItems(ctx context.Context, b tenant.Binding) *gorm.DB {
	return r.db.WithContext(ctx).Table(b.Qualify(dbmodels.TableItensVenda))
}

func (r *Repository) InsertSale(ctx context.Context, b tenant.Binding, s *models.Sale) error {
	row := dbmodels.Venda{
		ID:          s.ID,
		Cliente:     s.Client,
		Vendedor:    s.Seller,
		Valor:       s.Total,
		Data:        s.Date.UTC(),
		Observacoes: s.Notes,
	}
	if err := r.sales(ctx, b).Create(&row).Error; err != nil {
		return translate(err)
	}
	s.ID = row.ID
	return nil
}

func (r *Repository) InsertLineItems(ctx context.Context, b tenant.Binding, items []models.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]dbmodels.ItemVenda, 0, len(items))
	for _, item := range items {
		row, err := lineItemToRow(item)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if err := r.lineItems(ctx, b).Create(&rows).Error; err != nil {
		return translate(err)
	}
	for i := range items {
		items[i].ID = rows[i].ID
	}
	return nil
}

func (r *Repository) UpdateSale(ctx context.Context, b tenant.Binding, s *models.Sale) error {
	result := r.sales(ctx, b).Where("id = ?", s.ID).Updates(map[string]interface{}{
		"cliente":     s.Client,
		"vendedor":    s.Seller,
		"valor":       s.Total,
		"data":        s.Date.UTC(),
		"observacoes": s.Notes,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteLineItems(ctx context.Context, b tenant.Binding, saleID uuid.UUID) error {
	return r.lineItems(ctx, b).Where("venda_id = ?", saleID).Delete(&dbmodels.ItemVenda{}).Error
}

// Atomic runs fn in a transaction. Any error rolls back every write.
func (r *Repository) Atomic(ctx context.Context, fn func(sale.Writer) error) error {
	return r.WithTransaction(ctx, func(repo *Repository) error {
		return fn(repo)
	})
}

// ListSales returns the sales of the bound company, newest first, with
// their line items. A zero since returns every sale.
func (r *Repository) ListSales(ctx context.Context, b tenant.Binding, since time.Time) ([]models.Sale, error) {
	q := r.sales(ctx, b)
	if !since.IsZero() {
		q = q.Where("data >= ?", since.UTC())
	}
	var rows []dbmodels.Venda
	if err := q.Order("data DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.Sale{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID.String())
	}
	var itemRows []dbmodels.ItemVenda
	if err := r.lineItems(ctx, b).Where("venda_id IN ?", ids).Find(&itemRows).Error; err != nil {
		return nil, err
	}
	bySale := make(map[uuid.UUID][]models.LineItem, len(rows))
	for _, row := range itemRows {
		bySale[row.VendaID] = append(bySale[row.VendaID], lineItemFromRow(row))
	}

	sales := make([]models.Sale, 0, len(rows))
	for _, row := range rows {
		sales = append(sales, saleFromRow(row, bySale[row.ID]))
	}
	return sales, nil
}

func (r *Repository) GetSale(ctx context.Context, b tenant.Binding, id uuid.UUID) (*models.Sale, error) {
	var row dbmodels.Venda
	if err := r.sales(ctx, b).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, translate(err)
	}
	var itemRows []dbmodels.ItemVenda
	if err := r.lineItems(ctx, b).Where("venda_id = ?", id).Find(&itemRows).Error; err != nil {
		return nil, err
	}
	items := make([]models.LineItem, 0, len(itemRows))
	for _, itemRow := range itemRows {
		items = append(items, lineItemFromRow(itemRow))
	}
	s := saleFromRow(row, items)
	return &s, nil
}

// DeleteSale removes a sale and its line items.
func (r *Repository) DeleteSale(ctx context.Context, b tenant.Binding, id uuid.UUID) error {
	return r.WithTransaction(ctx, func(repo *Repository) error {
		if err := repo.DeleteLineItems(ctx, b, id); err != nil {
			return err
		}
		result := repo.sales(ctx, b).Where("id = ?", id).Delete(&dbmodels.Venda{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return e.ErrNotFound
		}
		return nil
	})
}

func saleFromRow(row dbmodels.Venda, items []models.LineItem) models.Sale {
	if items == nil {
		items = []models.LineItem{}
	}
	return models.Sale{
		ID:     row.ID,
		Client: row.Cliente,
		Seller: row.Vendedor,
		Total:  row.Valor,
		Date:   row.Data,
		Notes:  row.Observacoes,
		Items:  items,
	}
}

func lineItemToRow(item models.LineItem) (dbmodels.ItemVenda, error) {
	row := dbmodels.ItemVenda{
		ID:            item.ID,
		VendaID:       item.SaleID,
		Quantidade:    item.Quantity,
		PrecoUnitario: item.UnitPrice,
		Subtotal:      item.Subtotal,
	}
	id := item.Ref.ID
	switch item.Ref.Kind {
	case models.KindProduct:
		row.ProdutoID = &id
	case models.KindService:
		row.ServicoID = &id
	default:
		return row, fmt.Errorf("%w: line item kind %q", e.ErrInvalidInput, item.Ref.Kind)
	}
	return row, nil
}

func lineItemFromRow(row dbmodels.ItemVenda) models.LineItem {
	item := models.LineItem{
		ID:        row.ID,
		SaleID:    row.VendaID,
		Quantity:  row.Quantidade,
		UnitPrice: row.PrecoUnitario,
		Subtotal:  row.Subtotal,
	}
	if row.ProdutoID != nil {
		item.Ref = models.ProductRef(*row.ProdutoID)
	} else if row.ServicoID != nil {
		item.Ref = models.ServiceRef(*row.ServicoID)
	}
	return item
}

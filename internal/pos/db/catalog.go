package db

import (
	"context"
	"strings"

	dbmodels "github.com/gartstein/pdv/internal/pos/db/models"
	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/gartstein/pdv/internal/pos/tenant"
	"github.com/google/uuid"
)

// SearchLimit caps the rows returned by a catalog search.
const SearchLimit = 10

// Catalog queries run on handles handed out by a tenant.Scope, so they only
// ever see the tables of the resolved company.

func listRows[R any](ctx context.Context, t *tenant.Table, term string) ([]R, error) {
	q := t.WithContext(ctx)
	if term = strings.TrimSpace(term); term != "" {
		q = q.Where("LOWER(nome) LIKE ?", "%"+strings.ToLower(term)+"%").Limit(SearchLimit)
	}
	var rows []R
	if err := q.Order("nome").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func takeRow[R any](ctx context.Context, t *tenant.Table, id uuid.UUID) (*R, error) {
	var row R
	if err := t.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func updateRow(ctx context.Context, t *tenant.Table, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		var count int64
		if err := t.WithContext(ctx).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return e.ErrNotFound
		}
		return nil
	}
	result := t.WithContext(ctx).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func deleteRow[R any](ctx context.Context, t *tenant.Table, id uuid.UUID) error {
	result := t.WithContext(ctx).Where("id = ?", id).Delete(new(R))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func createRow[R any](ctx context.Context, t *tenant.Table, row *R) error {
	return translate(t.WithContext(ctx).Create(row).Error)
}

// Products

func (r *Repository) ListProducts(ctx context.Context, t *tenant.Table, term string) ([]models.Product, error) {
	rows, err := listRows[dbmodels.Produto](ctx, t, term)
	if err != nil {
		return nil, err
	}
	products := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, productFromRow(row))
	}
	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, t *tenant.Table, id uuid.UUID) (*models.Product, error) {
	row, err := takeRow[dbmodels.Produto](ctx, t, id)
	if err != nil {
		return nil, err
	}
	product := productFromRow(*row)
	return &product, nil
}

func (r *Repository) CreateProduct(ctx context.Context, t *tenant.Table, p *models.Product) error {
	row := dbmodels.Produto{ID: p.ID, Nome: p.Name, Preco: p.Price, Descricao: p.Description, Estoque: p.Stock}
	if err := createRow(ctx, t, &row); err != nil {
		return err
	}
	p.ID = row.ID
	return nil
}

func (r *Repository) UpdateProduct(ctx context.Context, t *tenant.Table, u *models.ProductUpdate) error {
	fields := map[string]interface{}{}
	if u.Name != nil {
		fields["nome"] = *u.Name
	}
	if u.Price != nil {
		fields["preco"] = *u.Price
	}
	if u.Description != nil {
		fields["descricao"] = *u.Description
	}
	if u.Stock != nil {
		fields["estoque"] = *u.Stock
	}
	return updateRow(ctx, t, u.ID, fields)
}

func (r *Repository) DeleteProduct(ctx context.Context, t *tenant.Table, id uuid.UUID) error {
	return deleteRow[dbmodels.Produto](ctx, t, id)
}

func productFromRow(row dbmodels.Produto) models.Product {
	return models.Product{ID: row.ID, Name: row.Nome, Price: row.Preco, Description: row.Descricao, Stock: row.Estoque}
}

// Services

func (r *Repository) ListServices(ctx context.Context, t *tenant.Table, term string) ([]models.Service, error) {
	rows, err := listRows[dbmodels.Servico](ctx, t, term)
	if err != nil {
		return nil, err
	}
	services := make([]models.Service, 0, len(rows))
	for _, row := range rows {
		services = append(services, serviceFromRow(row))
	}
	return services, nil
}

func (r *Repository) GetService(ctx context.Context, t *tenant.Table, id uuid.UUID) (*models.Service, error) {
	row, err := takeRow[dbmodels.Servico](ctx, t, id)
	if err != nil {
		return nil, err
	}
	service := serviceFromRow(*row)
	return &service, nil
}

func (r *Repository) CreateService(ctx context.Context, t *tenant.Table, s *models.Service) error {
	row := dbmodels.Servico{ID: s.ID, Nome: s.Name, Preco: s.Price, Descricao: s.Description}
	if err := createRow(ctx, t, &row); err != nil {
		return err
	}
	s.ID = row.ID
	return nil
}

func (r *Repository) UpdateService(ctx context.Context, t *tenant.Table, u *models.ServiceUpdate) error {
	fields := map[string]interface{}{}
	if u.Name != nil {
		fields["nome"] = *u.Name
	}
	if u.Price != nil {
		fields["preco"] = *u.Price
	}
	if u.Description != nil {
		fields["descricao"] = *u.Description
	}
	return updateRow(ctx, t, u.ID, fields)
}

func (r *Repository) DeleteService(ctx context.Context, t *tenant.Table, id uuid.UUID) error {
	return deleteRow[dbmodels.Servico](ctx, t, id)
}

func serviceFromRow(row dbmodels.Servico) models.Service {
	return models.Service{ID: row.ID, Name: row.Nome, Price: row.Preco, Description: row.Descricao}
}

// Clients

func (r *Repository) ListClients(ctx context.Context, t *tenant.Table, term string) ([]models.Client, error) {
	rows, err := listRows[dbmodels.Cliente](ctx, t, term)
	if err != nil {
		return nil, err
	}
	clients := make([]models.Client, 0, len(rows))
	for _, row := range rows {
		clients = append(clients, clientFromRow(row))
	}
	return clients, nil
}

func (r *Repository) GetClient(ctx context.Context, t *tenant.Table, id uuid.UUID) (*models.Client, error) {
	row, err := takeRow[dbmodels.Cliente](ctx, t, id)
	if err != nil {
		return nil, err
	}
	client := clientFromRow(*row)
	return &client, nil
}

func (r *Repository) CreateClient(ctx context.Context, t *tenant.Table, c *models.Client) error {
	row := dbmodels.Cliente{ID: c.ID, Nome: c.Name, Telefone: c.Phone, Email: c.Email}
	if err := createRow(ctx, t, &row); err != nil {
		return err
	}
	c.ID = row.ID
	return nil
}

func (r *Repository) UpdateClient(ctx context.Context, t *tenant.Table, u *models.ClientUpdate) error {
	fields := map[string]interface{}{}
	if u.Name != nil {
		fields["nome"] = *u.Name
	}
	if u.Phone != nil {
		fields["telefone"] = *u.Phone
	}
	if u.Email != nil {
		fields["email"] = *u.Email
	}
	return updateRow(ctx, t, u.ID, fields)
}

func (r *Repository) DeleteClient(ctx context.Context, t *tenant.Table, id uuid.UUID) error {
	return deleteRow[dbmodels.Cliente](ctx, t, id)
}

func clientFromRow(row dbmodels.Cliente) models.Client {
	return models.Client{ID: row.ID, Name: row.Nome, Phone: row.Telefone, Email: row.Email}
}

// Sellers

func (r *Repository) ListSellers(ctx context.Context, t *tenant.Table, term string) ([]models.Seller, error) {
	rows, err := listRows[dbmodels.Vendedor](ctx, t, term)
	if err != nil {
		return nil, err
	}
	sellers := make([]models.Seller, 0, len(rows))
	for _, row := range rows {
		sellers = append(sellers, sellerFromRow(row))
	}
	return sellers, nil
}

func (r *Repository) GetSeller(ctx context.Context, t *tenant.Table, id uuid.UUID) (*models.Seller, error) {
	row, err := takeRow[dbmodels.Vendedor](ctx, t, id)
	if err != nil {
		return nil, err
	}
	seller := sellerFromRow(*row)
	return &seller, nil
}

func (r *Repository) CreateSeller(ctx context.Context, t *tenant.Table, s *models.Seller) error {
	row := dbmodels.Vendedor{ID: s.ID, Nome: s.Name, Telefone: s.Phone, Email: s.Email, Comissao: s.Commission}
	if err := createRow(ctx, t, &row); err != nil {
		return err
	}
	s.ID = row.ID
	return nil
}

func (r *Repository) UpdateSeller(ctx context.Context, t *tenant.Table, u *models.SellerUpdate) error {
	fields := map[string]interface{}{}
	if u.Name != nil {
		fields["nome"] = *u.Name
	}
	if u.Phone != nil {
		fields["telefone"] = *u.Phone
	}
	if u.Email != nil {
		fields["email"] = *u.Email
	}
	if u.Commission != nil {
		fields["comissao"] = *u.Commission
	}
	return updateRow(ctx, t, u.ID, fields)
}

func (r *Repository) DeleteSeller(ctx context.Context, t *tenant.Table, id uuid.UUID) error {
	return deleteRow[dbmodels.Vendedor](ctx, t, id)
}

func sellerFromRow(row dbmodels.Vendedor) models.Seller {
	return models.Seller{ID: row.ID, Name: row.Nome, Phone: row.Telefone, Email: row.Email, Commission: row.Comissao}
}

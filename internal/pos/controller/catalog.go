package controller

import (
	"context"
	"strings"

	dbmodels "github.com/gartstein/pdv/internal/pos/db/models"
	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/gartstein/pdv/internal/pos/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// scoped opens name in the company of userID and runs fn on it. Results
// obtained after the user switched company are discarded as stale.
func scoped[T any](ctx context.Context, s *POSService, userID, name string, fn func(*tenant.Table) (T, error)) (T, error) {
	var zero T
	scope := s.scopes.Scope(userID)
	t, err := scope.ScopedTable(ctx, name)
	if err != nil {
		return zero, err
	}
	result, err := fn(t)
	if err != nil {
		return zero, err
	}
	if err := scope.Check(t.Binding); err != nil {
		return zero, err
	}
	return result, nil
}

func scopedExec(ctx context.Context, s *POSService, userID, name string, fn func(*tenant.Table) error) error {
	_, err := scoped(ctx, s, userID, name, func(t *tenant.Table) (struct{}, error) {
		return struct{}{}, fn(t)
	})
	return err
}

func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return e.Invalid("name", "is required")
	}
	return nil
}

func requireNamePtr(name *string) error {
	if name != nil {
		return requireName(*name)
	}
	return nil
}

func requirePositive(field string, v *decimal.Decimal) error {
	if v != nil && !v.IsPositive() {
		return e.Invalid(field, "must be greater than zero")
	}
	if v != nil && v.GreaterThan(models.MaxAmount) {
		return e.Invalid(field, "must not exceed "+models.Money(models.MaxAmount))
	}
	return nil
}

func requireNonNegative(field string, v *decimal.Decimal) error {
	if v != nil && v.IsNegative() {
		return e.Invalid(field, "must not be negative")
	}
	return nil
}

func requireStock(stock *int) error {
	if stock != nil && *stock < 0 {
		return e.Invalid("stock", "must not be negative")
	}
	return nil
}

func requireID(id uuid.UUID) error {
	if id == uuid.Nil {
		return e.Invalid("id", "is required")
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Products

func (s *POSService) ListProducts(ctx context.Context, userID, term string) ([]models.Product, error) {
	return scoped(ctx, s, userID, dbmodels.TableProdutos, func(t *tenant.Table) ([]models.Product, error) {
		return s.repo.ListProducts(ctx, t, term)
	})
}

func (s *POSService) GetProduct(ctx context.Context, userID string, id uuid.UUID) (*models.Product, error) {
	return scoped(ctx, s, userID, dbmodels.TableProdutos, func(t *tenant.Table) (*models.Product, error) {
		return s.repo.GetProduct(ctx, t, id)
	})
}

func (s *POSService) CreateProduct(ctx context.Context, userID string, p *models.Product) (*models.Product, error) {
	if err := firstError(
		requireName(p.Name),
		requirePositive("price", &p.Price),
		requireStock(&p.Stock),
	); err != nil {
		return nil, err
	}
	p.ID = uuid.Nil
	err := scopedExec(ctx, s, userID, dbmodels.TableProdutos, func(t *tenant.Table) error {
		return s.repo.CreateProduct(ctx, t, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *POSService) UpdateProduct(ctx context.Context, userID string, u *models.ProductUpdate) (*models.Product, error) {
	if err := firstError(
		requireID(u.ID),
		requireNamePtr(u.Name),
		requirePositive("price", u.Price),
		requireStock(u.Stock),
	); err != nil {
		return nil, err
	}
	return scoped(ctx, s, userID, dbmodels.TableProdutos, func(t *tenant.Table) (*models.Product, error) {
		if err := s.repo.UpdateProduct(ctx, t, u); err != nil {
			return nil, err
		}
		return s.repo.GetProduct(ctx, t, u.ID)
	})
}

func (s *POSService) DeleteProduct(ctx context.Context, userID string, id uuid.UUID) error {
	return scopedExec(ctx, s, userID, dbmodels.TableProdutos, func(t *tenant.Table) error {
		return s.repo.DeleteProduct(ctx, t, id)
	})
}

// Services

func (s *POSService) ListServices(ctx context.Context, userID, term string) ([]models.Service, error) {
	return scoped(ctx, s, userID, dbmodels.TableServicos, func(t *tenant.Table) ([]models.Service, error) {
		return s.repo.ListServices(ctx, t, term)
	})
}

func (s *POSService) GetService(ctx context.Context, userID string, id uuid.UUID) (*models.Service, error) {
	return scoped(ctx, s, userID, dbmodels.TableServicos, func(t *tenant.Table) (*models.Service, error) {
		return s.repo.GetService(ctx, t, id)
	})
}

func (s *POSService) CreateService(ctx context.Context, userID string, svc *models.Service) (*models.Service, error) {
	if err := firstError(requireName(svc.Name), requirePositive("price", &svc.Price)); err != nil {
		return nil, err
	}
	svc.ID = uuid.Nil
	err := scopedExec(ctx, s, userID, dbmodels.TableServicos, func(t *tenant.Table) error {
		return s.repo.CreateService(ctx, t, svc)
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *POSService) UpdateService(ctx context.Context, userID string, u *models.ServiceUpdate) (*models.Service, error) {
	if err := firstError(requireID(u.ID), requireNamePtr(u.Name), requirePositive("price", u.Price)); err != nil {
		return nil, err
	}
	return scoped(ctx, s, userID, dbmodels.TableServicos, func(t *tenant.Table) (*models.Service, error) {
		if err := s.repo.UpdateService(ctx, t, u); err != nil {
			return nil, err
		}
		return s.repo.GetService(ctx, t, u.ID)
	})
}

func (s *POSService) DeleteService(ctx context.Context, userID string, id uuid.UUID) error {
	return scopedExec(ctx, s, userID, dbmodels.TableServicos, func(t *tenant.Table) error {
		return s.repo.DeleteService(ctx, t, id)
	})
}

// Clients

func (s *POSService) ListClients(ctx context.Context, userID, term string) ([]models.Client, error) {
	return scoped(ctx, s, userID, dbmodels.TableClientes, func(t *tenant.Table) ([]models.Client, error) {
		return s.repo.ListClients(ctx, t, term)
	})
}

func (s *POSService) GetClient(ctx context.Context, userID string, id uuid.UUID) (*models.Client, error) {
	return scoped(ctx, s, userID, dbmodels.TableClientes, func(t *tenant.Table) (*models.Client, error) {
		return s.repo.GetClient(ctx, t, id)
	})
}

func (s *POSService) CreateClient(ctx context.Context, userID string, c *models.Client) (*models.Client, error) {
	if err := requireName(c.Name); err != nil {
		return nil, err
	}
	c.ID = uuid.Nil
	err := scopedExec(ctx, s, userID, dbmodels.TableClientes, func(t *tenant.Table) error {
		return s.repo.CreateClient(ctx, t, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *POSService) UpdateClient(ctx context.Context, userID string, u *models.ClientUpdate) (*models.Client, error) {
	if err := firstError(requireID(u.ID), requireNamePtr(u.Name)); err != nil {
		return nil, err
	}
	return scoped(ctx, s, userID, dbmodels.TableClientes, func(t *tenant.Table) (*models.Client, error) {
		if err := s.repo.UpdateClient(ctx, t, u); err != nil {
			return nil, err
		}
		return s.repo.GetClient(ctx, t, u.ID)
	})
}

func (s *POSService) DeleteClient(ctx context.Context, userID string, id uuid.UUID) error {
	return scopedExec(ctx, s, userID, dbmodels.TableClientes, func(t *tenant.Table) error {
		return s.repo.DeleteClient(ctx, t, id)
	})
}

// Sellers

func (s *POSService) ListSellers(ctx context.Context, userID, term string) ([]models.Seller, error) {
	return scoped(ctx, s, userID, dbmodels.TableVendedores, func(t *tenant.Table) ([]models.Seller, error) {
		return s.repo.ListSellers(ctx, t, term)
	})
}

func (s *POSService) GetSeller(ctx context.Context, userID string, id uuid.UUID) (*models.Seller, error) {
	return scoped(ctx, s, userID, dbmodels.TableVendedores, func(t *tenant.Table) (*models.Seller, error) {
		return s.repo.GetSeller(ctx, t, id)
	})
}

func (s *POSService) CreateSeller(ctx context.Context, userID string, seller *models.Seller) (*models.Seller, error) {
	if err := firstError(requireName(seller.Name), requireNonNegative("commission", &seller.Commission)); err != nil {
		return nil, err
	}
	seller.ID = uuid.Nil
	err := scopedExec(ctx, s, userID, dbmodels.TableVendedores, func(t *tenant.Table) error {
		return s.repo.CreateSeller(ctx, t, seller)
	})
	if err != nil {
		return nil, err
	}
	return seller, nil
}

func (s *POSService) UpdateSeller(ctx context.Context, userID string, u *models.SellerUpdate) (*models.Seller, error) {
	if err := firstError(requireID(u.ID), requireNamePtr(u.Name), requireNonNegative("commission", u.Commission)); err != nil {
		return nil, err
	}
	return scoped(ctx, s, userID, dbmodels.TableVendedores, func(t *tenant.Table) (*models.Seller, error) {
		if err := s.repo.UpdateSeller(ctx, t, u); err != nil {
			return nil, err
		}
		return s.repo.GetSeller(ctx, t, u.ID)
	})
}

func (s *POSService) DeleteSeller(ctx context.Context, userID string, id uuid.UUID) error {
	return scopedExec(ctx, s, userID, dbmodels.TableVendedores, func(t *tenant.Table) error {
		return s.repo.DeleteSeller(ctx, t, id)
	})
}

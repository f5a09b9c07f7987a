package handlers

import (
	"context"

	"github.com/google/uuid"
)

// catalogOps adapts the typed catalog operations of one kind to request
// fields and response maps.
type catalogOps struct {
	list   func(ctx context.Context, userID, term string) ([]interface{}, error)
	get    func(ctx context.Context, userID string, id uuid.UUID) (result, error)
	create func(ctx context.Context, userID string, f fields) (result, error)
	update func(ctx context.Context, userID string, id uuid.UUID, f fields) (result, error)
	delete func(ctx context.Context, userID string, id uuid.UUID) error
}

func one[T any](item *T, err error, conv func(*T) map[string]interface{}) (result, error) {
	if err != nil {
		return nil, err
	}
	return conv(item), nil
}

func many[T any](items []T, err error, conv func(*T) map[string]interface{}) ([]interface{}, error) {
	if err != nil {
		return nil, err
	}
	return listOf(items, conv), nil
}

func (h *POSHandler) catalogOps() map[string]catalogOps {
	s := h.service
	return map[string]catalogOps{
		"products": {
			list: func(ctx context.Context, userID, term string) ([]interface{}, error) {
				items, err := s.ListProducts(ctx, userID, term)
				return many(items, err, productToMap)
			},
			get: func(ctx context.Context, userID string, id uuid.UUID) (result, error) {
				item, err := s.GetProduct(ctx, userID, id)
				return one(item, err, productToMap)
			},
			create: func(ctx context.Context, userID string, f fields) (result, error) {
				p, err := productFromFields(f)
				if err != nil {
					return nil, err
				}
				item, err := s.CreateProduct(ctx, userID, p)
				return one(item, err, productToMap)
			},
			update: func(ctx context.Context, userID string, id uuid.UUID, f fields) (result, error) {
				u, err := productUpdateFromFields(id, f)
				if err != nil {
					return nil, err
				}
				item, err := s.UpdateProduct(ctx, userID, u)
				return one(item, err, productToMap)
			},
			delete: s.DeleteProduct,
		},
		"services": {
			list: func(ctx context.Context, userID, term string) ([]interface{}, error) {
				items, err := s.ListServices(ctx, userID, term)
				return many(items, err, serviceToMap)
			},
			get: func(ctx context.Context, userID string, id uuid.UUID) (result, error) {
				item, err := s.GetService(ctx, userID, id)
				return one(item, err, serviceToMap)
			},
			create: func(ctx context.Context, userID string, f fields) (result, error) {
				svc, err := serviceFromFields(f)
				if err != nil {
					return nil, err
				}
				item, err := s.CreateService(ctx, userID, svc)
				return one(item, err, serviceToMap)
			},
			update: func(ctx context.Context, userID string, id uuid.UUID, f fields) (result, error) {
				u, err := serviceUpdateFromFields(id, f)
				if err != nil {
					return nil, err
				}
				item, err := s.UpdateService(ctx, userID, u)
				return one(item, err, serviceToMap)
			},
			delete: s.DeleteService,
		},
		"clients": {
			list: func(ctx context.Context, userID, term string) ([]interface{}, error) {
				items, err := s.ListClients(ctx, userID, term)
				return many(items, err, clientToMap)
			},
			get: func(ctx context.Context, userID string, id uuid.UUID) (result, error) {
				item, err := s.GetClient(ctx, userID, id)
				return one(item, err, clientToMap)
			},
			create: func(ctx context.Context, userID string, f fields) (result, error) {
				item, err := s.CreateClient(ctx, userID, clientFromFields(f))
				return one(item, err, clientToMap)
			},
			update: func(ctx context.Context, userID string, id uuid.UUID, f fields) (result, error) {
				item, err := s.UpdateClient(ctx, userID, clientUpdateFromFields(id, f))
				return one(item, err, clientToMap)
			},
			delete: s.DeleteClient,
		},
		"sellers": {
			list: func(ctx context.Context, userID, term string) ([]interface{}, error) {
				items, err := s.ListSellers(ctx, userID, term)
				return many(items, err, sellerToMap)
			},
			get: func(ctx context.Context, userID string, id uuid.UUID) (result, error) {
				item, err := s.GetSeller(ctx, userID, id)
				return one(item, err, sellerToMap)
			},
			create: func(ctx context.Context, userID string, f fields) (result, error) {
				seller, err := sellerFromFields(f)
				if err != nil {
					return nil, err
				}
				item, err := s.CreateSeller(ctx, userID, seller)
				return one(item, err, sellerToMap)
			},
			update: func(ctx context.Context, userID string, id uuid.UUID, f fields) (result, error) {
				u, err := sellerUpdateFromFields(id, f)
				if err != nil {
					return nil, err
				}
				item, err := s.UpdateSeller(ctx, userID, u)
				return one(item, err, sellerToMap)
			},
			delete: s.DeleteSeller,
		},
	}
}

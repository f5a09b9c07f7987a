// Package models defines the domain models of the point of sale: catalog
// entries, sales and their line items, companies and memberships.
package models

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogKind tells which catalog a line item points into.
type CatalogKind string

const (
	KindProduct CatalogKind = "produto"
	KindService CatalogKind = "servico"
)

// CatalogRef points at exactly one product or one service.
type CatalogRef struct {
	Kind CatalogKind
	ID   uuid.UUID
}

// ProductRef references a product.
func ProductRef(id uuid.UUID) CatalogRef {
	return CatalogRef{Kind: KindProduct, ID: id}
}

// ServiceRef references a service.
func ServiceRef(id uuid.UUID) CatalogRef {
	return CatalogRef{Kind: KindService, ID: id}
}

// Validate rejects unknown kinds and nil identifiers.
func (r CatalogRef) Validate() error {
	if r.Kind != KindProduct && r.Kind != KindService {
		return fmt.Errorf("unknown catalog kind %q", r.Kind)
	}
	if r.ID == uuid.Nil {
		return fmt.Errorf("missing %s id", r.Kind)
	}
	return nil
}

func (r CatalogRef) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}

// Product is a stocked item sold by a company.
type Product struct {
	ID          uuid.UUID
	Name        string
	Price       decimal.Decimal
	Description string
	Stock       int
}

// ProductUpdate carries the product fields to change. Nil fields are kept.
type ProductUpdate struct {
	ID          uuid.UUID
	Name        *string
	Price       *decimal.Decimal
	Description *string
	Stock       *int
}

// Service is a billable service offered by a company.
type Service struct {
	ID          uuid.UUID
	Name        string
	Price       decimal.Decimal
	Description string
}

type ServiceUpdate struct {
	ID          uuid.UUID
	Name        *string
	Price       *decimal.Decimal
	Description *string
}

// Client is a customer record. Sales keep the client name as free text.
type Client struct {
	ID    uuid.UUID
	Name  string
	Phone string
	Email string
}

type ClientUpdate struct {
	ID    uuid.UUID
	Name  *string
	Phone *string
	Email *string
}

// Seller is a salesperson. Commission is a percentage.
type Seller struct {
	ID         uuid.UUID
	Name       string
	Phone      string
	Email      string
	Commission decimal.Decimal
}

type SellerUpdate struct {
	ID         uuid.UUID
	Name       *string
	Phone      *string
	Email      *string
	Commission *decimal.Decimal
}

// Package controller implements the service layer of the point of sale:
// it resolves the company scope of each user, keeps sale drafts, runs the
// catalog and sales operations against the scoped tables and sends sale
// events.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gartstein/pdv/internal/pos/db"
	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/events"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/gartstein/pdv/internal/pos/sale"
	"github.com/gartstein/pdv/internal/pos/tenant"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(event events.Event)
}

// Repository defines the storage used by the service. Catalog methods take
// handles obtained from the scope of the calling user.
type Repository interface {
	CreateCompany(ctx context.Context, company *models.Company) error
	CompanyExistsByCNPJ(ctx context.Context, cnpj string) (bool, error)
	AddMembership(ctx context.Context, userID string, companyID uuid.UUID) error
	ProvisionSchema(ctx context.Context, schema string) error
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error

	ListProducts(ctx context.Context, t *tenant.Table, term string) ([]models.Product, error)
	GetProduct(ctx context.Context, t *tenant.Table, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, t *tenant.Table, p *models.Product) error
	UpdateProduct(ctx context.Context, t *tenant.Table, u *models.ProductUpdate) error
	DeleteProduct(ctx context.Context, t *tenant.Table, id uuid.UUID) error

	ListServices(ctx context.Context, t *tenant.Table, term string) ([]models.Service, error)
	GetService(ctx context.Context, t *tenant.Table, id uuid.UUID) (*models.Service, error)
	CreateService(ctx context.Context, t *tenant.Table, s *models.Service) error
	UpdateService(ctx context.Context, t *tenant.Table, u *models.ServiceUpdate) error
	DeleteService(ctx context.Context, t *tenant.Table, id uuid.UUID) error

	ListClients(ctx context.Context, t *tenant.Table, term string) ([]models.Client, error)
	GetClient(ctx context.Context, t *tenant.Table, id uuid.UUID) (*models.Client, error)
	CreateClient(ctx context.Context, t *tenant.Table, c *models.Client) error
	UpdateClient(ctx context.Context, t *tenant.Table, u *models.ClientUpdate) error
	DeleteClient(ctx context.Context, t *tenant.Table, id uuid.UUID) error

	ListSellers(ctx context.Context, t *tenant.Table, term string) ([]models.Seller, error)
	GetSeller(ctx context.Context, t *tenant.Table, id uuid.UUID) (*models.Seller, error)
	CreateSeller(ctx context.Context, t *tenant.Table, s *models.Seller) error
	UpdateSeller(ctx context.Context, t *tenant.Table, u *models.SellerUpdate) error
	DeleteSeller(ctx context.Context, t *tenant.Table, id uuid.UUID) error

	ListSales(ctx context.Context, b tenant.Binding, since time.Time) ([]models.Sale, error)
	GetSale(ctx context.Context, b tenant.Binding, id uuid.UUID) (*models.Sale, error)
	DeleteSale(ctx context.Context, b tenant.Binding, id uuid.UUID) error
}

// POSService serves the point of sale operations of every signed-in user.
type POSService struct {
	repo      Repository
	scopes    *tenant.Registry
	drafts    *sale.DraftStore
	submitter *sale.Submitter
	producer  EventProducer
	logger    *zap.Logger
	now       func() time.Time
}

// NewPOSService wires the service. scopes and submitter are expected to
// share the storage behind repo.
func NewPOSService(repo Repository, scopes *tenant.Registry, submitter *sale.Submitter, producer EventProducer, logger *zap.Logger) *POSService {
	return &POSService{
		repo:      repo,
		scopes:    scopes,
		drafts:    sale.NewDraftStore(),
		submitter: submitter,
		producer:  producer,
		logger:    logger.Named("pos_service"),
		now:       time.Now,
	}
}

// InitializeScope resolves the default company of userID. A user without a
// usable company is not an error: the returned status carries the reason.
func (s *POSService) InitializeScope(ctx context.Context, userID string) (tenant.Status, error) {
	scope := s.scopes.Scope(userID)
	if err := scope.Initialize(ctx); err != nil && !resolutionOutcome(err) {
		return scope.Status(), fmt.Errorf("failed to initialize company scope: %w", err)
	}
	return scope.Status(), nil
}

// SwitchCompany moves userID to companyID. On failure the status still
// describes the company that stays active, if any.
func (s *POSService) SwitchCompany(ctx context.Context, userID string, companyID uuid.UUID) (tenant.Status, error) {
	scope := s.scopes.Scope(userID)
	if err := scope.SwitchCompany(ctx, companyID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return scope.Status(), fmt.Errorf("%w: company %s", e.ErrNotMember, companyID)
		}
		return scope.Status(), err
	}
	return scope.Status(), nil
}

// ScopeStatus reports the scope of userID without resolving it.
func (s *POSService) ScopeStatus(userID string) tenant.Status {
	scope, ok := s.scopes.Lookup(userID)
	if !ok {
		return tenant.Status{State: tenant.Uninitialized}
	}
	return scope.Status()
}

// ListCompanies returns the companies userID may switch to.
func (s *POSService) ListCompanies(ctx context.Context, userID string) ([]models.Company, error) {
	return s.scopes.Scope(userID).ListAvailableCompanies(ctx)
}

// SignOut drops the scope and the open drafts of userID.
func (s *POSService) SignOut(userID string) {
	s.scopes.Close(userID)
	discarded := s.drafts.DiscardOwner(userID)
	s.logger.Info("User signed out",
		zap.String("user_id", userID),
		zap.Int("discarded_drafts", discarded),
	)
}

// CreateCompany registers a company, provisions its schema and makes
// userID its first member. An empty schema is derived from the CNPJ.
func (s *POSService) CreateCompany(ctx context.Context, userID string, company *models.Company) (*models.Company, error) {
	company.Name = strings.TrimSpace(company.Name)
	if company.Name == "" {
		return nil, e.Invalid("name", "is required")
	}
	company.CNPJ = models.NormalizeCNPJ(company.CNPJ)
	if len(company.CNPJ) != 14 {
		return nil, e.Invalid("cnpj", "must have 14 digits")
	}
	if company.Schema == "" {
		company.Schema = "empresa_" + company.CNPJ
	}
	if !tenant.ValidIdentifier(company.Schema) {
		return nil, e.Invalid("schema", "must be a lower case identifier")
	}

	exists, err := s.repo.CompanyExistsByCNPJ(ctx, company.CNPJ)
	if err != nil {
		return nil, fmt.Errorf("failed to check cnpj existence: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: cnpj %s", e.ErrDuplicate, models.FormatCNPJ(company.CNPJ))
	}

	if err := s.repo.ProvisionSchema(ctx, company.Schema); err != nil {
		return nil, fmt.Errorf("failed to provision company schema: %w", err)
	}
	company.ID = uuid.Nil
	err = s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if err := repo.CreateCompany(ctx, company); err != nil {
			return err
		}
		return repo.AddMembership(ctx, userID, company.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	s.logger.Info("Company created",
		zap.String("company_id", company.ID.String()),
		zap.String("schema", company.Schema),
		zap.String("user_id", userID),
	)
	return company, nil
}

// binding returns the active binding of userID.
func (s *POSService) binding(userID string) (*tenant.Scope, tenant.Binding, error) {
	scope := s.scopes.Scope(userID)
	b, err := scope.Binding()
	return scope, b, err
}

func (s *POSService) produce(eventType events.EventType, b tenant.Binding, sale *models.Sale) {
	if s.producer == nil {
		return
	}
	s.producer.Produce(events.Event{
		Type:      eventType,
		CompanyID: b.CompanyID,
		Schema:    b.Schema,
		Sale:      sale,
	})
}

// resolutionOutcome tells apart a user without a usable company from an
// infrastructure failure.
func resolutionOutcome(err error) bool {
	return e.IsScopeError(err) || errors.Is(err, e.ErrNotFound)
}

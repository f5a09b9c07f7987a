package handlers

import (
	"context"

	posv1 "github.com/gartstein/pdv/api/posv1"
	"github.com/gartstein/pdv/internal/pos/auth"
	"github.com/gartstein/pdv/internal/pos/controller"
	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/gartstein/pdv/internal/pos/sale"
	"github.com/gartstein/pdv/internal/pos/tenant"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// POSController is the service layer the handlers call. Every operation
// acts on behalf of the user id taken from the token.
type POSController interface {
	InitializeScope(ctx context.Context, userID string) (tenant.Status, error)
	SwitchCompany(ctx context.Context, userID string, companyID uuid.UUID) (tenant.Status, error)
	ScopeStatus(userID string) tenant.Status
	ListCompanies(ctx context.Context, userID string) ([]models.Company, error)
	CreateCompany(ctx context.Context, userID string, company *models.Company) (*models.Company, error)
	SignOut(userID string)

	ListProducts(ctx context.Context, userID, term string) ([]models.Product, error)
	GetProduct(ctx context.Context, userID string, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, userID string, p *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, userID string, u *models.ProductUpdate) (*models.Product, error)
	DeleteProduct(ctx context.Context, userID string, id uuid.UUID) error

	ListServices(ctx context.Context, userID, term string) ([]models.Service, error)
	GetService(ctx context.Context, userID string, id uuid.UUID) (*models.Service, error)
	CreateService(ctx context.Context, userID string, s *models.Service) (*models.Service, error)
	UpdateService(ctx context.Context, userID string, u *models.ServiceUpdate) (*models.Service, error)
	DeleteService(ctx context.Context, userID string, id uuid.UUID) error

	ListClients(ctx context.Context, userID, term string) ([]models.Client, error)
	GetClient(ctx context.Context, userID string, id uuid.UUID) (*models.Client, error)
	CreateClient(ctx context.Context, userID string, c *models.Client) (*models.Client, error)
	UpdateClient(ctx context.Context, userID string, u *models.ClientUpdate) (*models.Client, error)
	DeleteClient(ctx context.Context, userID string, id uuid.UUID) error

	ListSellers(ctx context.Context, userID, term string) ([]models.Seller, error)
	GetSeller(ctx context.Context, userID string, id uuid.UUID) (*models.Seller, error)
	CreateSeller(ctx context.Context, userID string, s *models.Seller) (*models.Seller, error)
	UpdateSeller(ctx context.Context, userID string, u *models.SellerUpdate) (*models.Seller, error)
	DeleteSeller(ctx context.Context, userID string, id uuid.UUID) error

	CreateDraft(ctx context.Context, userID string) (*sale.Draft, error)
	GetDraft(userID string, draftID uuid.UUID) (*sale.Draft, error)
	UpdateDraftHeader(userID string, draftID uuid.UUID, h controller.DraftHeader) (*sale.Draft, error)
	AddDraftItem(ctx context.Context, userID string, draftID uuid.UUID, ref models.CatalogRef) (*sale.Draft, error)
	UpdateDraftItemQuantity(userID string, draftID uuid.UUID, index, quantity int) (*sale.Draft, error)
	RemoveDraftItem(userID string, draftID uuid.UUID, index int) (*sale.Draft, error)
	DiscardDraft(userID string, draftID uuid.UUID) error
	SubmitDraft(ctx context.Context, userID string, draftID uuid.UUID) (*models.Sale, error)
	EditSale(ctx context.Context, userID string, saleID uuid.UUID) (*sale.Draft, error)

	ListSales(ctx context.Context, userID string, today bool) ([]models.Sale, error)
	GetSale(ctx context.Context, userID string, saleID uuid.UUID) (*models.Sale, error)
	DeleteSale(ctx context.Context, userID string, saleID uuid.UUID) error
}

type result = map[string]interface{}

type method func(ctx context.Context, userID string, f fields) (result, error)

// POSHandler serves pos.v1.POSService, mapping request structs to the
// POSController.
type POSHandler struct {
	service POSController
	logger  *zap.Logger
	methods map[string]method
	catalog map[string]catalogOps
}

var _ posv1.POSServiceServer = (*POSHandler)(nil)

func NewPOSHandler(service POSController, logger *zap.Logger) *POSHandler {
	h := &POSHandler{
		service: service,
		logger:  logger.Named("grpc_handler"),
	}
	h.catalog = h.catalogOps()
	h.methods = map[string]method{
		posv1.MethodInitializeScope: h.initializeScope,
		posv1.MethodSwitchCompany:   h.switchCompany,
		posv1.MethodGetScope:        h.getScope,
		posv1.MethodListCompanies:   h.listCompanies,
		posv1.MethodCreateCompany:   h.createCompany,
		posv1.MethodSignOut:         h.signOut,

		posv1.MethodListCatalog:       h.listCatalog,
		posv1.MethodGetCatalogItem:    h.getCatalogItem,
		posv1.MethodCreateCatalogItem: h.createCatalogItem,
		posv1.MethodUpdateCatalogItem: h.updateCatalogItem,
		posv1.MethodDeleteCatalogItem: h.deleteCatalogItem,

		posv1.MethodCreateDraft:     h.createDraft,
		posv1.MethodGetDraft:        h.getDraft,
		posv1.MethodUpdateDraft:     h.updateDraft,
		posv1.MethodDeleteDraft:     h.deleteDraft,
		posv1.MethodAddDraftItem:    h.addDraftItem,
		posv1.MethodUpdateDraftItem: h.updateDraftItem,
		posv1.MethodRemoveDraftItem: h.removeDraftItem,
		posv1.MethodSubmitDraft:     h.submitDraft,
		posv1.MethodEditSale:        h.editSale,

		posv1.MethodListSales:  h.listSales,
		posv1.MethodGetSale:    h.getSale,
		posv1.MethodDeleteSale: h.deleteSale,
	}
	return h
}

// Call runs method for the user in the token claims of ctx.
func (h *POSHandler) Call(ctx context.Context, name string, req *structpb.Struct) (*structpb.Struct, error) {
	m, ok := h.methods[name]
	if !ok {
		return nil, status.Errorf(codes.Unimplemented, "method %s not implemented", name)
	}
	userID, ok := auth.UserID(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "user not in context")
	}

	res, err := m(ctx, userID, args(req))
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	return toStruct(res)
}

// Session

func (h *POSHandler) initializeScope(ctx context.Context, userID string, _ fields) (result, error) {
	st, err := h.service.InitializeScope(ctx, userID)
	if err != nil {
		return nil, err
	}
	return statusToMap(st), nil
}

func (h *POSHandler) switchCompany(ctx context.Context, userID string, f fields) (result, error) {
	companyID, err := f.id("company_id")
	if err != nil {
		return nil, err
	}
	st, err := h.service.SwitchCompany(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}
	return statusToMap(st), nil
}

func (h *POSHandler) getScope(_ context.Context, userID string, _ fields) (result, error) {
	return statusToMap(h.service.ScopeStatus(userID)), nil
}

func (h *POSHandler) listCompanies(ctx context.Context, userID string, _ fields) (result, error) {
	companies, err := h.service.ListCompanies(ctx, userID)
	if err != nil {
		return nil, err
	}
	return result{"companies": listOf(companies, companyToMap)}, nil
}

func (h *POSHandler) createCompany(ctx context.Context, userID string, f fields) (result, error) {
	created, err := h.service.CreateCompany(ctx, userID, &models.Company{
		Name:   f.str("name"),
		CNPJ:   f.str("cnpj"),
		Schema: f.str("schema"),
	})
	if err != nil {
		return nil, err
	}
	return result{"company": companyToMap(created)}, nil
}

func (h *POSHandler) signOut(_ context.Context, userID string, _ fields) (result, error) {
	h.service.SignOut(userID)
	return result{}, nil
}

// Drafts

func (h *POSHandler) createDraft(ctx context.Context, userID string, _ fields) (result, error) {
	return draftResult(h.service.CreateDraft(ctx, userID))
}

func (h *POSHandler) getDraft(_ context.Context, userID string, f fields) (result, error) {
	draftID, err := f.id("draft_id")
	if err != nil {
		return nil, err
	}
	return draftResult(h.service.GetDraft(userID, draftID))
}

func (h *POSHandler) updateDraft(_ context.Context, userID string, f fields) (result, error) {
	draftID, err := f.id("draft_id")
	if err != nil {
		return nil, err
	}
	date, err := f.time("date")
	if err != nil {
		return nil, err
	}
	return draftResult(h.service.UpdateDraftHeader(userID, draftID, controller.DraftHeader{
		Client: f.optStr("client"),
		Seller: f.optStr("seller"),
		Notes:  f.optStr("notes"),
		Date:   date,
	}))
}

func (h *POSHandler) deleteDraft(_ context.Context, userID string, f fields) (result, error) {
	draftID, err := f.id("draft_id")
	if err != nil {
		return nil, err
	}
	if err := h.service.DiscardDraft(userID, draftID); err != nil {
		return nil, err
	}
	return result{}, nil
}

func (h *POSHandler) addDraftItem(ctx context.Context, userID string, f fields) (result, error) {
	draftID, err := f.id("draft_id")
	if err != nil {
		return nil, err
	}
	ref, err := refFromFields(f)
	if err != nil {
		return nil, err
	}
	return draftResult(h.service.AddDraftItem(ctx, userID, draftID, ref))
}

func (h *POSHandler) updateDraftItem(_ context.Context, userID string, f fields) (result, error) {
	draftID, err := f.id("draft_id")
	if err != nil {
		return nil, err
	}
	index, err := f.requiredInt("index")
	if err != nil {
		return nil, err
	}
	quantity, err := f.requiredInt("quantity")
	if err != nil {
		return nil, err
	}
	return draftResult(h.service.UpdateDraftItemQuantity(userID, draftID, index, quantity))
}

func (h *POSHandler) removeDraftItem(_ context.Context, userID string, f fields) (result, error) {
	draftID, err := f.id("draft_id")
	if err != nil {
		return nil, err
	}
	index, err := f.requiredInt("index")
	if err != nil {
		return nil, err
	}
	return draftResult(h.service.RemoveDraftItem(userID, draftID, index))
}

func (h *POSHandler) submitDraft(ctx context.Context, userID string, f fields) (result, error) {
	draftID, err := f.id("draft_id")
	if err != nil {
		return nil, err
	}
	persisted, err := h.service.SubmitDraft(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	return result{"sale": saleToMap(persisted)}, nil
}

func (h *POSHandler) editSale(ctx context.Context, userID string, f fields) (result, error) {
	saleID, err := f.id("sale_id")
	if err != nil {
		return nil, err
	}
	return draftResult(h.service.EditSale(ctx, userID, saleID))
}

func draftResult(d *sale.Draft, err error) (result, error) {
	if err != nil {
		return nil, err
	}
	return result{"draft": draftToMap(d)}, nil
}

// Sales

func (h *POSHandler) listSales(ctx context.Context, userID string, f fields) (result, error) {
	sales, err := h.service.ListSales(ctx, userID, f.boolean("today"))
	if err != nil {
		return nil, err
	}
	return result{"sales": listOf(sales, saleToMap)}, nil
}

func (h *POSHandler) getSale(ctx context.Context, userID string, f fields) (result, error) {
	saleID, err := f.id("sale_id")
	if err != nil {
		return nil, err
	}
	persisted, err := h.service.GetSale(ctx, userID, saleID)
	if err != nil {
		return nil, err
	}
	return result{"sale": saleToMap(persisted)}, nil
}

func (h *POSHandler) deleteSale(ctx context.Context, userID string, f fields) (result, error) {
	saleID, err := f.id("sale_id")
	if err != nil {
		return nil, err
	}
	if err := h.service.DeleteSale(ctx, userID, saleID); err != nil {
		return nil, err
	}
	return result{}, nil
}

// Catalog

func (h *POSHandler) kind(f fields) (catalogOps, error) {
	ops, ok := h.catalog[f.str("kind")]
	if !ok {
		return catalogOps{}, e.Invalid("kind", "must be one of products, services, clients, sellers")
	}
	return ops, nil
}

func (h *POSHandler) listCatalog(ctx context.Context, userID string, f fields) (result, error) {
	ops, err := h.kind(f)
	if err != nil {
		return nil, err
	}
	items, err := ops.list(ctx, userID, f.str("term"))
	if err != nil {
		return nil, err
	}
	return result{"items": items}, nil
}

func (h *POSHandler) getCatalogItem(ctx context.Context, userID string, f fields) (result, error) {
	ops, err := h.kind(f)
	if err != nil {
		return nil, err
	}
	id, err := f.id("id")
	if err != nil {
		return nil, err
	}
	return itemResult(ops.get(ctx, userID, id))
}

func (h *POSHandler) createCatalogItem(ctx context.Context, userID string, f fields) (result, error) {
	ops, err := h.kind(f)
	if err != nil {
		return nil, err
	}
	return itemResult(ops.create(ctx, userID, f))
}

func (h *POSHandler) updateCatalogItem(ctx context.Context, userID string, f fields) (result, error) {
	ops, err := h.kind(f)
	if err != nil {
		return nil, err
	}
	id, err := f.id("id")
	if err != nil {
		return nil, err
	}
	return itemResult(ops.update(ctx, userID, id, f))
}

func (h *POSHandler) deleteCatalogItem(ctx context.Context, userID string, f fields) (result, error) {
	ops, err := h.kind(f)
	if err != nil {
		return nil, err
	}
	id, err := f.id("id")
	if err != nil {
		return nil, err
	}
	if err := ops.delete(ctx, userID, id); err != nil {
		return nil, err
	}
	return result{}, nil
}

func itemResult(item result, err error) (result, error) {
	if err != nil {
		return nil, err
	}
	return result{"item": item}, nil
}

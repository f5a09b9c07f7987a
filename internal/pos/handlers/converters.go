package handlers

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gartstein/pdv/internal/pkg/utils"
	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/gartstein/pdv/internal/pos/sale"
	"github.com/gartstein/pdv/internal/pos/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// fields reads typed values out of a request struct. Absent and null
// fields read as unset.
type fields map[string]*structpb.Value

func args(req *structpb.Struct) fields {
	return fields(req.GetFields())
}

func (f fields) has(key string) bool {
	v, ok := f[key]
	if !ok || v == nil {
		return false
	}
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return !null
}

func (f fields) str(key string) string {
	if !f.has(key) {
		return ""
	}
	return f[key].GetStringValue()
}

func (f fields) optStr(key string) *string {
	if !f.has(key) {
		return nil
	}
	s := f[key].GetStringValue()
	return &s
}

func (f fields) boolean(key string) bool {
	if !f.has(key) {
		return false
	}
	switch k := f[key].GetKind().(type) {
	case *structpb.Value_BoolValue:
		return k.BoolValue
	case *structpb.Value_StringValue:
		return k.StringValue == "true"
	}
	return false
}

func (f fields) id(key string) (uuid.UUID, error) {
	id, err := uuid.Parse(f.str(key))
	if err != nil {
		return uuid.Nil, e.Invalid(key, "must be a UUID")
	}
	return id, nil
}

// decimal accepts "12.50" as well as 12.5.
func (f fields) decimal(key string) (*decimal.Decimal, error) {
	if !f.has(key) {
		return nil, nil
	}
	switch k := f[key].GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(k.StringValue))
		if err != nil {
			return nil, e.Invalid(key, "must be a decimal number")
		}
		return &d, nil
	case *structpb.Value_NumberValue:
		d := decimal.NewFromFloat(k.NumberValue)
		return &d, nil
	}
	return nil, e.Invalid(key, "must be a decimal number")
}

func (f fields) integer(key string) (*int, error) {
	if !f.has(key) {
		return nil, nil
	}
	var n float64
	switch k := f[key].GetKind().(type) {
	case *structpb.Value_NumberValue:
		n = k.NumberValue
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(k.StringValue)
		if err != nil {
			return nil, e.Invalid(key, "must be an integer")
		}
		n = d.InexactFloat64()
	default:
		return nil, e.Invalid(key, "must be an integer")
	}
	if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return nil, e.Invalid(key, "must be an integer")
	}
	i := int(n)
	return &i, nil
}

func (f fields) requiredInt(key string) (int, error) {
	n, err := f.integer(key)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, e.Invalid(key, "is required")
	}
	return *n, nil
}

func (f fields) time(key string) (*time.Time, error) {
	if !f.has(key) {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, f.str(key))
	if err != nil {
		return nil, e.Invalid(key, "must be an RFC 3339 timestamp")
	}
	return &t, nil
}

// Requests

func productFromFields(f fields) (*models.Product, error) {
	price, err := f.decimal("price")
	if err != nil {
		return nil, err
	}
	stock, err := f.integer("stock")
	if err != nil {
		return nil, err
	}
	return &models.Product{
		Name:        f.str("name"),
		Price:       utils.Deref(price),
		Description: f.str("description"),
		Stock:       utils.Deref(stock),
	}, nil
}

func productUpdateFromFields(id uuid.UUID, f fields) (*models.ProductUpdate, error) {
	price, err := f.decimal("price")
	if err != nil {
		return nil, err
	}
	stock, err := f.integer("stock")
	if err != nil {
		return nil, err
	}
	return &models.ProductUpdate{
		ID:          id,
		Name:        f.optStr("name"),
		Price:       price,
		Description: f.optStr("description"),
		Stock:       stock,
	}, nil
}

func serviceFromFields(f fields) (*models.Service, error) {
	price, err := f.decimal("price")
	if err != nil {
		return nil, err
	}
	return &models.Service{
		Name:        f.str("name"),
		Price:       utils.Deref(price),
		Description: f.str("description"),
	}, nil
}

func serviceUpdateFromFields(id uuid.UUID, f fields) (*models.ServiceUpdate, error) {
	price, err := f.decimal("price")
	if err != nil {
		return nil, err
	}
	return &models.ServiceUpdate{
		ID:          id,
		Name:        f.optStr("name"),
		Price:       price,
		Description: f.optStr("description"),
	}, nil
}

func clientFromFields(f fields) *models.Client {
	return &models.Client{Name: f.str("name"), Phone: f.str("phone"), Email: f.str("email")}
}

func clientUpdateFromFields(id uuid.UUID, f fields) *models.ClientUpdate {
	return &models.ClientUpdate{ID: id, Name: f.optStr("name"), Phone: f.optStr("phone"), Email: f.optStr("email")}
}

func sellerFromFields(f fields) (*models.Seller, error) {
	commission, err := f.decimal("commission")
	if err != nil {
		return nil, err
	}
	return &models.Seller{
		Name:       f.str("name"),
		Phone:      f.str("phone"),
		Email:      f.str("email"),
		Commission: utils.Deref(commission),
	}, nil
}

func sellerUpdateFromFields(id uuid.UUID, f fields) (*models.SellerUpdate, error) {
	commission, err := f.decimal("commission")
	if err != nil {
		return nil, err
	}
	return &models.SellerUpdate{
		ID:         id,
		Name:       f.optStr("name"),
		Phone:      f.optStr("phone"),
		Email:      f.optStr("email"),
		Commission: commission,
	}, nil
}

func refFromFields(f fields) (models.CatalogRef, error) {
	id, err := f.id("ref_id")
	if err != nil {
		return models.CatalogRef{}, err
	}
	ref := models.CatalogRef{Kind: models.CatalogKind(f.str("ref_kind")), ID: id}
	if err := ref.Validate(); err != nil {
		return models.CatalogRef{}, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	return ref, nil
}

// Responses

func toStruct(m map[string]interface{}) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

func listOf[T any](items []T, conv func(*T) map[string]interface{}) []interface{} {
	out := make([]interface{}, 0, len(items))
	for i := range items {
		out = append(out, conv(&items[i]))
	}
	return out
}

func timestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

func statusToMap(st tenant.Status) map[string]interface{} {
	m := map[string]interface{}{
		"state":              st.State.String(),
		"selection_required": st.State != tenant.Resolved,
	}
	if st.State == tenant.Resolved {
		m["company_id"] = st.CompanyID.String()
		m["company_name"] = st.CompanyName
		m["schema"] = st.Schema
	}
	if st.Err != nil {
		m["error"] = st.Err.Error()
	}
	return m
}

func companyToMap(c *models.Company) map[string]interface{} {
	return map[string]interface{}{
		"id":     c.ID.String(),
		"name":   c.Name,
		"cnpj":   models.FormatCNPJ(c.CNPJ),
		"schema": c.Schema,
	}
}

func productToMap(p *models.Product) map[string]interface{} {
	return map[string]interface{}{
		"id":          p.ID.String(),
		"name":        p.Name,
		"price":       models.Money(p.Price),
		"description": p.Description,
		"stock":       p.Stock,
	}
}

func serviceToMap(s *models.Service) map[string]interface{} {
	return map[string]interface{}{
		"id":          s.ID.String(),
		"name":        s.Name,
		"price":       models.Money(s.Price),
		"description": s.Description,
	}
}

func clientToMap(c *models.Client) map[string]interface{} {
	return map[string]interface{}{
		"id":    c.ID.String(),
		"name":  c.Name,
		"phone": c.Phone,
		"email": c.Email,
	}
}

func sellerToMap(s *models.Seller) map[string]interface{} {
	return map[string]interface{}{
		"id":         s.ID.String(),
		"name":       s.Name,
		"phone":      s.Phone,
		"email":      s.Email,
		"commission": models.Money(s.Commission),
	}
}

func draftToMap(d *sale.Draft) map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID.String(),
		"mode":       d.Mode.String(),
		"company_id": d.CompanyID.String(),
		"client":     d.Client,
		"seller":     d.Seller,
		"notes":      d.Notes,
		"date":       timestamp(d.Date),
		"total":      models.Money(d.Total),
		"items": listOf(d.Items, func(it *sale.DraftLineItem) map[string]interface{} {
			return map[string]interface{}{
				"temp_id":    it.TempID,
				"ref_kind":   string(it.Ref.Kind),
				"ref_id":     it.Ref.ID.String(),
				"name":       it.Name,
				"quantity":   it.Quantity,
				"unit_price": models.Money(it.UnitPrice),
				"subtotal":   models.Money(it.Subtotal),
			}
		}),
	}
	if d.Mode == sale.ModeEdit {
		m["sale_id"] = d.SaleID.String()
	}
	return m
}

func saleToMap(s *models.Sale) map[string]interface{} {
	return map[string]interface{}{
		"id":     s.ID.String(),
		"client": s.Client,
		"seller": s.Seller,
		"notes":  s.Notes,
		"date":   timestamp(s.Date),
		"total":  models.Money(s.Total),
		"items": listOf(s.Items, func(it *models.LineItem) map[string]interface{} {
			return map[string]interface{}{
				"id":         it.ID.String(),
				"ref_kind":   string(it.Ref.Kind),
				"ref_id":     it.Ref.ID.String(),
				"quantity":   it.Quantity,
				"unit_price": models.Money(it.UnitPrice),
				"subtotal":   models.Money(it.Subtotal),
			}
		}),
	}
}

// mapServiceError maps domain or repository errors to gRPC status codes.
func (h *POSHandler) mapServiceError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, e.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, e.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, e.ErrDuplicate):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, e.ErrUninitialized),
		errors.Is(err, e.ErrNoMembership),
		errors.Is(err, e.ErrNoSchema),
		errors.Is(err, e.ErrNotMember):
		return status.Errorf(codes.FailedPrecondition, "company selection required: %v", err)
	case errors.Is(err, e.ErrStaleScope),
		errors.Is(err, e.ErrDraftBusy):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, e.ErrPartialSubmit):
		h.logger.Error("Sale persisted without line items", zap.Error(err))
		return status.Error(codes.DataLoss, err.Error())
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, fmt.Sprintf("internal server error: %v", err))
	}
}

package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/events"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/gartstein/pdv/internal/pos/sale"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DraftHeader carries the draft fields to change. Nil fields are kept.
type DraftHeader struct {
	Client *string
	Seller *string
	Notes  *string
	Date   *time.Time
}

// CreateDraft opens an empty draft in the current company of userID.
func (s *POSService) CreateDraft(ctx context.Context, userID string) (*sale.Draft, error) {
	_, b, err := s.binding(userID)
	if err != nil {
		return nil, err
	}
	return s.drafts.Put(userID, sale.NewDraft(b.CompanyID, s.now())), nil
}

func (s *POSService) GetDraft(userID string, draftID uuid.UUID) (*sale.Draft, error) {
	return s.drafts.Get(userID, draftID)
}

func (s *POSService) UpdateDraftHeader(userID string, draftID uuid.UUID, h DraftHeader) (*sale.Draft, error) {
	return s.drafts.Update(userID, draftID, func(d *sale.Draft) error {
		if h.Client != nil {
			d.Client = *h.Client
		}
		if h.Seller != nil {
			d.Seller = *h.Seller
		}
		if h.Notes != nil {
			d.Notes = *h.Notes
		}
		if h.Date != nil {
			if h.Date.IsZero() {
				return e.Invalid("date", "is required")
			}
			d.Date = *h.Date
		}
		return nil
	})
}

// AddDraftItem appends ref to the draft at the catalog price of the moment.
func (s *POSService) AddDraftItem(ctx context.Context, userID string, draftID uuid.UUID, ref models.CatalogRef) (*sale.Draft, error) {
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	d, err := s.drafts.Get(userID, draftID)
	if err != nil {
		return nil, err
	}
	name, price, err := s.catalogEntry(ctx, userID, d.CompanyID, ref)
	if err != nil {
		return nil, err
	}
	return s.drafts.Update(userID, draftID, func(d *sale.Draft) error {
		_, err := d.AddLineItem(ref, name, price)
		return err
	})
}

func (s *POSService) UpdateDraftItemQuantity(userID string, draftID uuid.UUID, index, quantity int) (*sale.Draft, error) {
	return s.drafts.Update(userID, draftID, func(d *sale.Draft) error {
		return d.UpdateQuantity(index, quantity)
	})
}

func (s *POSService) RemoveDraftItem(userID string, draftID uuid.UUID, index int) (*sale.Draft, error) {
	return s.drafts.Update(userID, draftID, func(d *sale.Draft) error {
		return d.RemoveLineItem(index)
	})
}

func (s *POSService) DiscardDraft(userID string, draftID uuid.UUID) error {
	return s.drafts.Delete(userID, draftID)
}

// SubmitDraft persists the draft in the current company and closes it. The
// draft is claimed for the duration of the submit, so a second submit of
// the same draft fails with ErrDraftBusy. A failed submit keeps the draft
// so it can be retried.
func (s *POSService) SubmitDraft(ctx context.Context, userID string, draftID uuid.UUID) (*models.Sale, error) {
	scope, b, err := s.binding(userID)
	if err != nil {
		return nil, err
	}
	d, err := s.drafts.Claim(userID, draftID)
	if err != nil {
		return nil, err
	}

	persisted, err := s.submitter.Submit(ctx, b, d)
	if err != nil {
		s.drafts.Release(userID, draftID)
		return nil, err
	}
	s.drafts.Done(userID, draftID)

	eventType := events.SaleCreated
	if d.Mode == sale.ModeEdit {
		eventType = events.SaleUpdated
	}
	s.produce(eventType, b, persisted)

	if !scope.IsCurrent(b) {
		s.logger.Warn("Company switched while submitting",
			zap.String("sale_id", persisted.ID.String()),
			zap.String("company_id", b.CompanyID.String()),
		)
	}
	return persisted, nil
}

// EditSale opens an edit draft holding a copy of a persisted sale.
func (s *POSService) EditSale(ctx context.Context, userID string, saleID uuid.UUID) (*sale.Draft, error) {
	scope, b, err := s.binding(userID)
	if err != nil {
		return nil, err
	}
	persisted, err := s.repo.GetSale(ctx, b, saleID)
	if err != nil {
		return nil, err
	}
	if err := scope.Check(b); err != nil {
		return nil, err
	}

	d := sale.EditDraft(b.CompanyID, persisted)
	for i := range d.Items {
		name, _, err := s.catalogEntry(ctx, userID, b.CompanyID, d.Items[i].Ref)
		switch {
		case err == nil:
			d.Items[i].Name = name
		case errors.Is(err, e.ErrNotFound):
			// removed from the catalog since the sale
		default:
			return nil, err
		}
	}
	return s.drafts.Put(userID, d), nil
}

// ListSales returns the sales of the current company, newest first. With
// today set only the sales since local midnight are returned.
func (s *POSService) ListSales(ctx context.Context, userID string, today bool) ([]models.Sale, error) {
	scope, b, err := s.binding(userID)
	if err != nil {
		return nil, err
	}
	var since time.Time
	if today {
		now := s.now()
		since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	sales, err := s.repo.ListSales(ctx, b, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	if err := scope.Check(b); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *POSService) GetSale(ctx context.Context, userID string, saleID uuid.UUID) (*models.Sale, error) {
	scope, b, err := s.binding(userID)
	if err != nil {
		return nil, err
	}
	persisted, err := s.repo.GetSale(ctx, b, saleID)
	if err != nil {
		return nil, err
	}
	if err := scope.Check(b); err != nil {
		return nil, err
	}
	return persisted, nil
}

// DeleteSale removes a sale with its line items.
func (s *POSService) DeleteSale(ctx context.Context, userID string, saleID uuid.UUID) error {
	_, b, err := s.binding(userID)
	if err != nil {
		return err
	}
	persisted, err := s.repo.GetSale(ctx, b, saleID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSale(ctx, b, saleID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete sale: %w", err)
	}
	s.produce(events.SaleDeleted, b, persisted)
	return nil
}

// catalogEntry looks up the name and current price of ref. The draft must
// belong to the company the user is working in.
func (s *POSService) catalogEntry(ctx context.Context, userID string, companyID uuid.UUID, ref models.CatalogRef) (string, decimal.Decimal, error) {
	_, b, err := s.binding(userID)
	if err != nil {
		return "", decimal.Zero, err
	}
	if b.CompanyID != companyID {
		return "", decimal.Zero, fmt.Errorf("%w: draft belongs to company %s", e.ErrStaleScope, companyID)
	}

	switch ref.Kind {
	case models.KindProduct:
		p, err := s.GetProduct(ctx, userID, ref.ID)
		if err != nil {
			return "", decimal.Zero, err
		}
		return strings.TrimSpace(p.Name), p.Price, nil
	case models.KindService:
		svc, err := s.GetService(ctx, userID, ref.ID)
		if err != nil {
			return "", decimal.Zero, err
		}
		return strings.TrimSpace(svc.Name), svc.Price, nil
	}
	return "", decimal.Zero, fmt.Errorf("%w: unknown catalog kind %q", e.ErrInvalidInput, ref.Kind)
}

package sale

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/gartstein/pdv/internal/pos/tenant"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/gartstein/pdv/internal/pos/sale"

// Writer persists sales inside the namespace of a binding. InsertSale and
// InsertLineItems assign the identifiers of what they insert.
type Writer interface {
	InsertSale(ctx context.Context, b tenant.Binding, sale *models.Sale) error
	InsertLineItems(ctx context.Context, b tenant.Binding, items []models.LineItem) error
	UpdateSale(ctx context.Context, b tenant.Binding, sale *models.Sale) error
	DeleteLineItems(ctx context.Context, b tenant.Binding, saleID uuid.UUID) error
}

// Transactor is implemented by writers that can run several writes as one
// transaction.
type Transactor interface {
	Atomic(ctx context.Context, fn func(Writer) error) error
}

// PartialSubmitError reports a sale row that was written while its line
// items were not.
type PartialSubmitError struct {
	SaleID uuid.UUID
	Err    error
}

func (p *PartialSubmitError) Error() string {
	return fmt.Sprintf("%s: sale %s: %v", e.ErrPartialSubmit, p.SaleID, p.Err)
}

func (p *PartialSubmitError) Is(target error) bool {
	return target == e.ErrPartialSubmit
}

func (p *PartialSubmitError) Unwrap() error {
	return p.Err
}

// Submitter validates drafts and writes them through a Writer.
type Submitter struct {
	writer    Writer
	logger    *zap.Logger
	tracer    trace.Tracer
	submitted metric.Int64Counter
}

// NewSubmitter uses the global OpenTelemetry providers.
func NewSubmitter(writer Writer, logger *zap.Logger) *Submitter {
	logger = logger.Named("sale_submitter")

	counter, err := otel.Meter(instrumentationName).Int64Counter("pos.sales.submitted",
		metric.WithDescription("Sales persisted, by draft mode"),
	)
	if err != nil {
		logger.Warn("Failed to create sales counter", zap.Error(err))
		counter = noop.Int64Counter{}
	}

	return &Submitter{
		writer:    writer,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		submitted: counter,
	}
}

// Submit persists d within b. Validation failures never reach the writer.
// The sale row is written before its line items. When the writer is a
// Transactor both writes commit or roll back together; otherwise a line
// item failure is returned as *PartialSubmitError. d is never modified.
func (s *Submitter) Submit(ctx context.Context, b tenant.Binding, d *Draft) (*models.Sale, error) {
	ctx, span := s.tracer.Start(ctx, "sale.submit", trace.WithAttributes(
		attribute.String("sale.mode", d.Mode.String()),
		attribute.String("company.id", b.CompanyID.String()),
		attribute.Int("sale.items", len(d.Items)),
	))
	defer span.End()

	if err := d.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if d.CompanyID != b.CompanyID {
		err := fmt.Errorf("%w: draft was opened for company %s", e.ErrStaleScope, d.CompanyID)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sale := d.toSale()

	var err error
	if tx, ok := s.writer.(Transactor); ok {
		err = tx.Atomic(ctx, func(w Writer) error {
			return persist(ctx, w, b, d.Mode, sale)
		})
		var partial *PartialSubmitError
		if errors.As(err, &partial) {
			// rolled back with the sale row
			err = partial.Err
		}
	} else {
		err = persist(ctx, s.writer, b, d.Mode, sale)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("Sale submit failed",
			zap.Error(err),
			zap.String("mode", d.Mode.String()),
			zap.String("company_id", b.CompanyID.String()),
		)
		if errors.Is(err, e.ErrPartialSubmit) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to persist sale: %w", err)
	}

	span.SetAttributes(attribute.String("sale.id", sale.ID.String()))
	s.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", d.Mode.String())))
	return sale, nil
}

func persist(ctx context.Context, w Writer, b tenant.Binding, mode Mode, sale *models.Sale) error {
	if mode == ModeEdit {
		if err := w.UpdateSale(ctx, b, sale); err != nil {
			return err
		}
		if err := w.DeleteLineItems(ctx, b, sale.ID); err != nil {
			return &PartialSubmitError{SaleID: sale.ID, Err: err}
		}
	} else {
		if err := w.InsertSale(ctx, b, sale); err != nil {
			return err
		}
	}
	if sale.ID == uuid.Nil {
		return errors.New("sale id was not assigned")
	}

	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
	}
	if err := w.InsertLineItems(ctx, b, sale.Items); err != nil {
		return &PartialSubmitError{SaleID: sale.ID, Err: err}
	}
	return nil
}

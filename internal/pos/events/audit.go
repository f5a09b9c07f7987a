package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger keeps running sale totals per company from the event stream.
// Updates replace the previously seen total of the same sale.
type Ledger struct {
	mu     sync.Mutex
	logger *zap.Logger
	sales  map[uuid.UUID]map[uuid.UUID]decimal.Decimal
}

func NewLedger(logger *zap.Logger) *Ledger {
	return &Ledger{
		logger: logger.Named("sales_ledger"),
		sales:  make(map[uuid.UUID]map[uuid.UUID]decimal.Decimal),
	}
}

// Handle applies event. It matches the Consumer handler signature.
func (l *Ledger) Handle(_ context.Context, event Event) error {
	if event.Sale == nil || event.Sale.ID == uuid.Nil {
		return fmt.Errorf("event %s without sale", event.Type)
	}

	l.mu.Lock()
	company, ok := l.sales[event.CompanyID]
	if !ok {
		company = make(map[uuid.UUID]decimal.Decimal)
		l.sales[event.CompanyID] = company
	}
	switch event.Type {
	case SaleCreated, SaleUpdated:
		company[event.Sale.ID] = event.Sale.Total
	case SaleDeleted:
		delete(company, event.Sale.ID)
	default:
		l.mu.Unlock()
		return fmt.Errorf("unknown event type %q", event.Type)
	}
	count, total := len(company), sum(company)
	l.mu.Unlock()

	l.logger.Info("Sale event",
		zap.String("event_type", string(event.Type)),
		zap.String("company_id", event.CompanyID.String()),
		zap.String("schema", event.Schema),
		zap.String("sale_id", event.Sale.ID.String()),
		zap.String("sale_total", event.Sale.Total.StringFixed(2)),
		zap.Int("company_sales", count),
		zap.String("company_total", total.StringFixed(2)),
	)
	return nil
}

// Total returns the number of live sales of companyID and their sum.
func (l *Ledger) Total(companyID uuid.UUID) (int, decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	company := l.sales[companyID]
	return len(company), sum(company)
}

func sum(sales map[uuid.UUID]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, t := range sales {
		total = total.Add(t)
	}
	return total
}

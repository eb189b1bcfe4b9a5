package scoring

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/payscore/internal/model"
	"github.com/sells-group/payscore/internal/source"
)

// mockEvaluator implements Evaluator for testing.
type mockEvaluator struct {
	mu    sync.Mutex
	score model.CustomerScore
	err   error
	calls int
}

func (m *mockEvaluator) Evaluate(_ context.Context, summary model.MetricSummary) (model.CustomerScore, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return model.CustomerScore{}, m.err
	}
	score := m.score
	score.Summary = summary
	return score, nil
}

func (m *mockEvaluator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// cancellingEvaluator succeeds on the first call and cancels the batch
// context, then mirrors a context-aware gateway by failing every later call
// with the context's error.
type cancellingEvaluator struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	calls  int
}

func (e *cancellingEvaluator) Evaluate(ctx context.Context, summary model.MetricSummary) (model.CustomerScore, error) {
	e.mu.Lock()
	e.calls++
	first := e.calls == 1
	e.mu.Unlock()

	if first {
		e.cancel()
		return model.CustomerScore{Score: 90, Source: model.SourceAI, Summary: summary}, nil
	}
	if err := ctx.Err(); err != nil {
		return model.CustomerScore{}, err
	}
	return model.CustomerScore{Score: 90, Source: model.SourceAI, Summary: summary}, nil
}

// mockSource implements source.RecordSource over in-memory fixtures.
type mockSource struct {
	customers   []model.Customer
	invoices    map[string][]model.InvoiceRecord
	payments    map[string][]model.PaymentRecord
	invoiceErrs map[string]error
	paymentErrs map[string]error
}

var _ source.RecordSource = (*mockSource)(nil)

func (m *mockSource) ListCustomers(_ context.Context, limit int) ([]model.Customer, error) {
	if limit < len(m.customers) {
		return m.customers[:limit], nil
	}
	return m.customers, nil
}

func (m *mockSource) GetCustomer(_ context.Context, customerID string) (*model.Customer, error) {
	for _, c := range m.customers {
		if c.ID == customerID {
			return &c, nil
		}
	}
	return nil, &source.Error{Kind: source.KindNotFound}
}

func (m *mockSource) GetInvoices(_ context.Context, customerID string) ([]model.InvoiceRecord, error) {
	if err := m.invoiceErrs[customerID]; err != nil {
		return nil, err
	}
	return m.invoices[customerID], nil
}

func (m *mockSource) GetPayments(_ context.Context, customerID string) ([]model.PaymentRecord, error) {
	if err := m.paymentErrs[customerID]; err != nil {
		return nil, err
	}
	return m.payments[customerID], nil
}

func (m *mockSource) Close() error {
	return nil
}

func overdueInvoices(customerID string, n int, asOf time.Time) []model.InvoiceRecord {
	invoices := make([]model.InvoiceRecord, n)
	for i := range invoices {
		invoices[i] = model.InvoiceRecord{
			ID:         customerID + "-inv",
			CustomerID: customerID,
			Amount:     1000,
			DueDate:    asOf.AddDate(0, 0, -(i + 1)),
		}
	}
	return invoices
}

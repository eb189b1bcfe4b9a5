package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(ts *httptest.Server) *ERPNextClient {
	c := NewERPNext(ERPNextConfig{
		URL:        ts.URL,
		APIKey:     "key",
		APISecret:  "secret",
		RatePerSec: 1000,
	})
	// Keep failing tests fast.
	c.retry.Backoff = time.Millisecond
	return c
}

func TestListCustomers(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/resource/Customer", r.URL.Path)
		assert.Equal(t, "token key:secret", r.Header.Get("Authorization"))
		assert.Equal(t, "25", r.URL.Query().Get("limit_page_length"))

		w.Write([]byte(`{"data": [
			{"name": "CUST-0001", "customer_name": "Acme Corp", "customer_type": "Company"},
			{"name": "CUST-0002", "customer_name": "Beta LLC", "customer_type": "Company"}
		]}`))
	}))
	defer ts.Close()

	customers, err := newTestClient(ts).ListCustomers(context.Background(), 25)
	require.NoError(t, err)

	require.Len(t, customers, 2)
	assert.Equal(t, "CUST-0001", customers[0].ID)
	assert.Equal(t, "Acme Corp", customers[0].Name)
}

func TestGetCustomer_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := newTestClient(ts).GetCustomer(context.Background(), "CUST-9999")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGetCustomer_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	_, err := newTestClient(ts).GetCustomer(context.Background(), "CUST-0001")
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindUnauthorized, kind)
}

func TestGetCustomer_ServerErrorIsUnreachableAfterRetry(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := newTestClient(ts).GetCustomer(context.Background(), "CUST-0001")
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindUnreachable, kind)
	assert.Equal(t, 2, calls)
}

func TestGetCustomer_RetriesThenSucceeds(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data": {"name": "CUST-0001", "customer_name": "Acme Corp", "customer_type": "Company"}}`))
	}))
	defer ts.Close()

	customer, err := newTestClient(ts).GetCustomer(context.Background(), "CUST-0001")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", customer.Name)
	assert.Equal(t, 2, calls)
}

func TestGetInvoices_MapsDocuments(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/resource/Sales Invoice", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("filters"), "CUST-0001")

		w.Write([]byte(`{"data": [
			{"name": "INV-1", "customer": "CUST-0001", "posting_date": "2026-01-05", "due_date": "2026-02-05", "grand_total": 1000, "outstanding_amount": 0, "status": "Paid", "payment_date": "2026-02-10"},
			{"name": "INV-2", "customer": "CUST-0001", "posting_date": "2026-01-20", "due_date": "2026-02-20", "grand_total": 2000, "outstanding_amount": 2000, "status": "Overdue"},
			{"name": "INV-3", "customer": "CUST-0001", "posting_date": "not-a-date", "due_date": "2026-02-20", "grand_total": 500, "outstanding_amount": 500, "status": "Unpaid"}
		]}`))
	}))
	defer ts.Close()

	invoices, err := newTestClient(ts).GetInvoices(context.Background(), "CUST-0001")
	require.NoError(t, err)

	// The unparseable document is discarded.
	require.Len(t, invoices, 2)

	require.True(t, invoices[0].Paid())
	assert.Equal(t, "2026-02-10", invoices[0].PaidDate.Format("2006-01-02"))

	assert.False(t, invoices[1].Paid())
	assert.InDelta(t, 2000.0, invoices[1].Outstanding, 0.001)
}

func TestGetInvoices_SettledWithoutPaymentDateUsesDueDate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [
			{"name": "INV-1", "customer": "CUST-0001", "posting_date": "2026-01-05", "due_date": "2026-02-05", "grand_total": 1000, "outstanding_amount": 0, "status": "Paid"}
		]}`))
	}))
	defer ts.Close()

	invoices, err := newTestClient(ts).GetInvoices(context.Background(), "CUST-0001")
	require.NoError(t, err)

	require.Len(t, invoices, 1)
	require.True(t, invoices[0].Paid())
	assert.Equal(t, "2026-02-05", invoices[0].PaidDate.Format("2006-01-02"))
}

func TestGetPayments_MapsDocuments(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/resource/Payment Entry", r.URL.Path)

		w.Write([]byte(`{"data": [
			{"name": "PAY-1", "party": "CUST-0001", "posting_date": "2026-02-10", "paid_amount": 1000, "payment_type": "Receive", "reference_no": "INV-1"}
		]}`))
	}))
	defer ts.Close()

	payments, err := newTestClient(ts).GetPayments(context.Background(), "CUST-0001")
	require.NoError(t, err)

	require.Len(t, payments, 1)
	assert.Equal(t, "PAY-1", payments[0].ID)
	assert.Equal(t, "INV-1", payments[0].InvoiceID)
	assert.InDelta(t, 1000.0, payments[0].Amount, 0.001)
}

func TestGet_UnreachableHost(t *testing.T) {
	c := NewERPNext(ERPNextConfig{
		URL:        "http://127.0.0.1:1",
		Timeout:    500 * time.Millisecond,
		RatePerSec: 1000,
	})
	c.retry.Backoff = time.Millisecond

	_, err := c.ListCustomers(context.Background(), 10)
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindUnreachable, kind)
}

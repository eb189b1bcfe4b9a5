package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/payscore/internal/model"
	"github.com/sells-group/payscore/internal/scoring"
	"github.com/sells-group/payscore/internal/source"
)

// stubSource serves fixed records so the handlers can be driven without a
// real accounting backend.
type stubSource struct {
	customers []model.Customer
	invoices  map[string][]model.InvoiceRecord
	errs      map[string]error
}

func (s *stubSource) ListCustomers(_ context.Context, limit int) ([]model.Customer, error) {
	if limit < len(s.customers) {
		return s.customers[:limit], nil
	}
	return s.customers, nil
}

func (s *stubSource) GetCustomer(_ context.Context, customerID string) (*model.Customer, error) {
	if err := s.errs[customerID]; err != nil {
		return nil, err
	}
	for _, c := range s.customers {
		if c.ID == customerID {
			return &c, nil
		}
	}
	return nil, &source.Error{Kind: source.KindNotFound}
}

func (s *stubSource) GetInvoices(_ context.Context, customerID string) ([]model.InvoiceRecord, error) {
	return s.invoices[customerID], nil
}

func (s *stubSource) GetPayments(_ context.Context, _ string) ([]model.PaymentRecord, error) {
	return nil, nil
}

func (s *stubSource) Close() error {
	return nil
}

func testEnv() *Env {
	asOf := time.Now().UTC()
	overdue := make([]model.InvoiceRecord, 8)
	for i := range overdue {
		overdue[i] = model.InvoiceRecord{
			ID:         "INV-overdue",
			CustomerID: "CUST-2",
			Amount:     1000,
			DueDate:    asOf.AddDate(0, 0, -(i + 1)),
		}
	}

	src := &stubSource{
		customers: []model.Customer{
			{ID: "CUST-1", Name: "Alpha"},
			{ID: "CUST-2", Name: "Beta"},
		},
		invoices: map[string][]model.InvoiceRecord{
			"CUST-2": overdue,
		},
		errs: map[string]error{},
	}

	return &Env{
		Source:   src,
		Resolver: scoring.NewResolver(nil, scoring.Options{}),
	}
}

func TestServeHealth(t *testing.T) {
	ts := httptest.NewServer(newRouter(testEnv(), 100))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServePaymentScores(t *testing.T) {
	ts := httptest.NewServer(newRouter(testEnv(), 100))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/customers/payment-scores")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report model.BatchReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))

	require.Len(t, report.Results, 2)
	assert.Equal(t, "CUST-1", report.Results[0].CustomerID)
	assert.Equal(t, "CUST-2", report.Results[1].CustomerID)
	assert.Equal(t, 2, report.Fallbacks)
}

func TestServePaymentScores_LimitParam(t *testing.T) {
	ts := httptest.NewServer(newRouter(testEnv(), 100))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/customers/payment-scores?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report model.BatchReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Len(t, report.Results, 1)
}

func TestServeHighRisk(t *testing.T) {
	ts := httptest.NewServer(newRouter(testEnv(), 100))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/customers/high-risk")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var highRisk []model.CustomerScore
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&highRisk))

	require.Len(t, highRisk, 1)
	assert.Equal(t, "CUST-2", highRisk[0].CustomerID)
	assert.Equal(t, model.RiskHigh, highRisk[0].RiskLevel)
}

func TestServeFollowups(t *testing.T) {
	ts := httptest.NewServer(newRouter(testEnv(), 100))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/customers/followups")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var groups model.Followups
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&groups))

	require.Len(t, groups.Immediate, 1)
	assert.Equal(t, "CUST-2", groups.Immediate[0].CustomerID)
	require.Len(t, groups.None, 1)
	assert.Equal(t, "CUST-1", groups.None[0].CustomerID)
}

func TestServeSingleScore(t *testing.T) {
	ts := httptest.NewServer(newRouter(testEnv(), 100))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/customers/CUST-1/score")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var score model.CustomerScore
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&score))

	assert.Equal(t, "CUST-1", score.CustomerID)
	assert.Equal(t, "Alpha", score.CustomerName)
	assert.Equal(t, model.SourceFallback, score.Source)
}

func TestServeInsights(t *testing.T) {
	ts := httptest.NewServer(newRouter(testEnv(), 100))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/customers/CUST-2/insights")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var insights model.CustomerInsights
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&insights))

	assert.Equal(t, "CUST-2", insights.CustomerID)
	assert.Equal(t, "Beta", insights.CustomerName)
	assert.Contains(t, insights.Insights, "Beta is high-risk.")
	assert.NotEmpty(t, insights.TrendAnalysis)
	assert.Equal(t, 8, insights.TotalInvoices)
	assert.Len(t, insights.Invoices, 8)
}

func TestServeInsights_NotFound(t *testing.T) {
	ts := httptest.NewServer(newRouter(testEnv(), 100))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/customers/CUST-9999/insights")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeSingleScore_NotFound(t *testing.T) {
	ts := httptest.NewServer(newRouter(testEnv(), 100))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/customers/CUST-9999/score")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeSingleScore_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    *source.Error
		status int
	}{
		{"unreachable backend", &source.Error{Kind: source.KindUnreachable}, http.StatusBadGateway},
		{"unauthorized backend", &source.Error{Kind: source.KindUnauthorized}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testEnv()
			env.Source.(*stubSource).errs["CUST-1"] = tt.err

			ts := httptest.NewServer(newRouter(env, 100))
			defer ts.Close()

			resp, err := http.Get(ts.URL + "/api/v1/customers/CUST-1/score")
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/payscore/internal/model"
	"github.com/sells-group/payscore/internal/resilience"
)

const erpDateLayout = "2006-01-02"

// ERPNextConfig holds ERPNext API settings.
type ERPNextConfig struct {
	URL        string
	APIKey     string
	APISecret  string
	Timeout    time.Duration
	RatePerSec float64
}

// ERPNextClient implements RecordSource against the ERPNext REST API.
type ERPNextClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewERPNext creates an ERPNext-backed record source.
func NewERPNext(cfg ERPNextConfig) *ERPNextClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 4
	}
	return &ERPNextClient{
		baseURL:   cfg.URL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), int(cfg.RatePerSec)),
		retry:   resilience.DefaultRetryConfig(),
	}
}

// Close implements RecordSource. The underlying http.Client needs no
// teardown.
func (c *ERPNextClient) Close() error {
	return nil
}

func (c *ERPNextClient) ListCustomers(ctx context.Context, limit int) ([]model.Customer, error) {
	params := url.Values{
		"limit_page_length": {fmt.Sprint(limit)},
		"fields":            {`["name", "customer_name", "customer_type"]`},
	}

	var out struct {
		Data []erpCustomer `json:"data"`
	}
	if err := c.get(ctx, "/api/resource/Customer", params, &out); err != nil {
		return nil, err
	}

	customers := make([]model.Customer, 0, len(out.Data))
	for _, doc := range out.Data {
		customers = append(customers, doc.toModel())
	}
	return customers, nil
}

func (c *ERPNextClient) GetCustomer(ctx context.Context, customerID string) (*model.Customer, error) {
	var out struct {
		Data erpCustomer `json:"data"`
	}
	if err := c.get(ctx, "/api/resource/Customer/"+url.PathEscape(customerID), nil, &out); err != nil {
		return nil, err
	}

	customer := out.Data.toModel()
	return &customer, nil
}

func (c *ERPNextClient) GetInvoices(ctx context.Context, customerID string) ([]model.InvoiceRecord, error) {
	params := url.Values{
		"filters": {fmt.Sprintf(`[["customer", "=", %q]]`, customerID)},
		"fields":  {`["name", "customer", "posting_date", "due_date", "grand_total", "outstanding_amount", "status", "payment_date"]`},
	}

	var out struct {
		Data []erpInvoice `json:"data"`
	}
	if err := c.get(ctx, "/api/resource/"+url.PathEscape("Sales Invoice"), params, &out); err != nil {
		return nil, err
	}

	invoices := make([]model.InvoiceRecord, 0, len(out.Data))
	for _, doc := range out.Data {
		inv, ok := doc.toModel()
		if !ok {
			// Malformed documents are rejected here so the aggregator only
			// ever sees well-formed records.
			zap.L().Warn("erpnext: discarding unmappable invoice",
				zap.String("invoice", doc.Name),
				zap.String("customer_id", customerID),
			)
			continue
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

func (c *ERPNextClient) GetPayments(ctx context.Context, customerID string) ([]model.PaymentRecord, error) {
	params := url.Values{
		"filters": {fmt.Sprintf(`[["party", "=", %q]]`, customerID)},
		"fields":  {`["name", "party", "posting_date", "paid_amount", "payment_type", "reference_no"]`},
	}

	var out struct {
		Data []erpPayment `json:"data"`
	}
	if err := c.get(ctx, "/api/resource/"+url.PathEscape("Payment Entry"), params, &out); err != nil {
		return nil, err
	}

	payments := make([]model.PaymentRecord, 0, len(out.Data))
	for _, doc := range out.Data {
		pay, ok := doc.toModel()
		if !ok {
			zap.L().Warn("erpnext: discarding unmappable payment entry",
				zap.String("payment", doc.Name),
				zap.String("customer_id", customerID),
			)
			continue
		}
		payments = append(payments, pay)
	}
	return payments, nil
}

// get performs an authenticated GET with rate limiting and bounded retry,
// mapping HTTP failures onto the source error taxonomy.
func (c *ERPNextClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return newError(KindUnreachable, eris.Wrap(err, "erpnext: rate limiter wait"))
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "erpnext: create request")
		}
		req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.apiKey, c.apiSecret))
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "erpnext: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "erpnext: read response")
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return data, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, newError(KindNotFound, eris.Errorf("erpnext: %s not found", path))
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, newError(KindUnauthorized, eris.Errorf("erpnext: status %d from %s", resp.StatusCode, path))
		case resilience.IsTransientHTTPStatus(resp.StatusCode):
			return nil, resilience.NewTransientError(eris.Errorf("erpnext: status %d from %s", resp.StatusCode, path), resp.StatusCode)
		default:
			return nil, newError(KindUnreachable, eris.Errorf("erpnext: status %d from %s", resp.StatusCode, path))
		}
	})
	if err != nil {
		if _, ok := KindOf(err); ok {
			return err
		}
		return newError(KindUnreachable, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return newError(KindUnreachable, eris.Wrap(err, "erpnext: decode response"))
	}
	return nil
}

// --- ERPNext document mapping ---

type erpCustomer struct {
	Name         string `json:"name"`
	CustomerName string `json:"customer_name"`
	CustomerType string `json:"customer_type"`
}

func (d erpCustomer) toModel() model.Customer {
	name := d.CustomerName
	if name == "" {
		name = d.Name
	}
	return model.Customer{ID: d.Name, Name: name, Type: d.CustomerType}
}

type erpInvoice struct {
	Name        string  `json:"name"`
	Customer    string  `json:"customer"`
	PostingDate string  `json:"posting_date"`
	DueDate     string  `json:"due_date"`
	GrandTotal  float64 `json:"grand_total"`
	Outstanding float64 `json:"outstanding_amount"`
	Status      string  `json:"status"`
	PaymentDate string  `json:"payment_date"`
}

func (d erpInvoice) toModel() (model.InvoiceRecord, bool) {
	posting, err := time.Parse(erpDateLayout, d.PostingDate)
	if err != nil {
		return model.InvoiceRecord{}, false
	}

	inv := model.InvoiceRecord{
		ID:          d.Name,
		CustomerID:  d.Customer,
		Amount:      d.GrandTotal,
		IssueDate:   posting,
		Outstanding: d.Outstanding,
	}

	if due, err := time.Parse(erpDateLayout, d.DueDate); err == nil {
		inv.DueDate = due
	}

	if d.Status == "Paid" || (d.GrandTotal > 0 && d.Outstanding == 0) {
		paid := posting
		if p, err := time.Parse(erpDateLayout, d.PaymentDate); err == nil {
			paid = p
		} else if !inv.DueDate.IsZero() {
			// Settled invoices without an explicit payment date count as
			// paid on the due date, i.e. with zero delay.
			paid = inv.DueDate
		}
		inv.PaidDate = &paid
	}

	return inv, true
}

type erpPayment struct {
	Name        string  `json:"name"`
	Party       string  `json:"party"`
	PostingDate string  `json:"posting_date"`
	PaidAmount  float64 `json:"paid_amount"`
	PaymentType string  `json:"payment_type"`
	ReferenceNo string  `json:"reference_no"`
}

func (d erpPayment) toModel() (model.PaymentRecord, bool) {
	posting, err := time.Parse(erpDateLayout, d.PostingDate)
	if err != nil {
		return model.PaymentRecord{}, false
	}
	return model.PaymentRecord{
		ID:         d.Name,
		CustomerID: d.Party,
		Amount:     d.PaidAmount,
		Date:       posting,
		InvoiceID:  d.ReferenceNo,
	}, true
}

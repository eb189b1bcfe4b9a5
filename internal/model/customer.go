package model

import "time"

// Customer identifies one customer in the accounting system.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// InvoiceRecord is one billing document sourced from the accounting system.
// Records are immutable; the scoring core never mutates them.
type InvoiceRecord struct {
	ID          string     `json:"id"`
	CustomerID  string     `json:"customer_id"`
	Amount      float64    `json:"amount"`
	IssueDate   time.Time  `json:"issue_date"`
	DueDate     time.Time  `json:"due_date"`
	PaidDate    *time.Time `json:"paid_date,omitempty"`
	Outstanding float64    `json:"outstanding_amount"`
}

// Paid reports whether the invoice has been settled.
func (inv InvoiceRecord) Paid() bool {
	return inv.PaidDate != nil
}

// Overdue reports whether the invoice is unpaid and past due as of the given
// time. Invoices without a due date are never overdue.
func (inv InvoiceRecord) Overdue(asOf time.Time) bool {
	if inv.Paid() || inv.DueDate.IsZero() {
		return false
	}
	return inv.DueDate.Before(asOf)
}

// PaymentRecord is one payment application sourced from the accounting system.
type PaymentRecord struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Amount     float64   `json:"amount"`
	Date       time.Time `json:"date"`
	InvoiceID  string    `json:"invoice_id,omitempty"`
}

// Package source provides record retrieval from the accounting system. The
// scoring pipeline consumes the RecordSource contract and never sees wire
// formats; retrieval failures propagate per customer and are never masked.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/payscore/internal/model"
)

// RecordSource is the accounting-system collaborator: it returns customer,
// invoice, and payment records for scoring.
type RecordSource interface {
	ListCustomers(ctx context.Context, limit int) ([]model.Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*model.Customer, error)
	GetInvoices(ctx context.Context, customerID string) ([]model.InvoiceRecord, error)
	GetPayments(ctx context.Context, customerID string) ([]model.PaymentRecord, error)
	Close() error
}

// ErrorKind tags the reason record retrieval failed.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindUnreachable  ErrorKind = "unreachable"
	KindUnauthorized ErrorKind = "unauthorized"
)

// Error is a record-retrieval failure for one customer. The batch continues
// for other customers; this entry alone reports the failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("source: %s", e.Kind)
	}
	return fmt.Sprintf("source: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from an error chain. Returns ("", false)
// when the chain contains no source error.
func KindOf(err error) (ErrorKind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// IsNotFound reports whether the error chain indicates a missing customer.
func IsNotFound(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindNotFound
}

package source

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/payscore/internal/model"
)

// SQLiteSource implements RecordSource over a local SQLite database. It
// serves local evaluation and demos where no ERPNext instance is available;
// it stores records, never scores.
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteSource{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS customers (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'Company'
);

CREATE TABLE IF NOT EXISTS invoices (
	id          TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL REFERENCES customers(id),
	amount      REAL NOT NULL,
	issue_date  DATE NOT NULL,
	due_date    DATE,
	paid_date   DATE
);

CREATE TABLE IF NOT EXISTS payments (
	id          TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL REFERENCES customers(id),
	amount      REAL NOT NULL,
	date        DATE NOT NULL,
	invoice_id  TEXT
);

CREATE INDEX IF NOT EXISTS idx_invoices_customer ON invoices(customer_id);
CREATE INDEX IF NOT EXISTS idx_payments_customer ON payments(customer_id);
`

// Migrate creates the record tables.
func (s *SQLiteSource) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func (s *SQLiteSource) ListCustomers(ctx context.Context, limit int) ([]model.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type FROM customers ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, newError(KindUnreachable, eris.Wrap(err, "sqlite: list customers"))
	}
	defer rows.Close() //nolint:errcheck

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, newError(KindUnreachable, eris.Wrap(err, "sqlite: scan customer"))
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(KindUnreachable, eris.Wrap(err, "sqlite: iterate customers"))
	}
	return customers, nil
}

func (s *SQLiteSource) GetCustomer(ctx context.Context, customerID string) (*model.Customer, error) {
	var c model.Customer
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, type FROM customers WHERE id = ?`, customerID).
		Scan(&c.ID, &c.Name, &c.Type)
	if err == sql.ErrNoRows {
		return nil, newError(KindNotFound, eris.Errorf("sqlite: customer %s not found", customerID))
	}
	if err != nil {
		return nil, newError(KindUnreachable, eris.Wrap(err, "sqlite: get customer"))
	}
	return &c, nil
}

func (s *SQLiteSource) GetInvoices(ctx context.Context, customerID string) ([]model.InvoiceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, customer_id, amount, issue_date, due_date, paid_date
		 FROM invoices WHERE customer_id = ? ORDER BY issue_date`, customerID)
	if err != nil {
		return nil, newError(KindUnreachable, eris.Wrap(err, "sqlite: query invoices"))
	}
	defer rows.Close() //nolint:errcheck

	var invoices []model.InvoiceRecord
	for rows.Next() {
		var inv model.InvoiceRecord
		var due, paid sql.NullTime
		if err := rows.Scan(&inv.ID, &inv.CustomerID, &inv.Amount, &inv.IssueDate, &due, &paid); err != nil {
			return nil, newError(KindUnreachable, eris.Wrap(err, "sqlite: scan invoice"))
		}
		if due.Valid {
			inv.DueDate = due.Time
		}
		if paid.Valid {
			t := paid.Time
			inv.PaidDate = &t
		} else {
			inv.Outstanding = inv.Amount
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(KindUnreachable, eris.Wrap(err, "sqlite: iterate invoices"))
	}
	return invoices, nil
}

func (s *SQLiteSource) GetPayments(ctx context.Context, customerID string) ([]model.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, customer_id, amount, date, invoice_id
		 FROM payments WHERE customer_id = ? ORDER BY date`, customerID)
	if err != nil {
		return nil, newError(KindUnreachable, eris.Wrap(err, "sqlite: query payments"))
	}
	defer rows.Close() //nolint:errcheck

	var payments []model.PaymentRecord
	for rows.Next() {
		var p model.PaymentRecord
		var invoiceID sql.NullString
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.Amount, &p.Date, &invoiceID); err != nil {
			return nil, newError(KindUnreachable, eris.Wrap(err, "sqlite: scan payment"))
		}
		p.InvoiceID = invoiceID.String
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(KindUnreachable, eris.Wrap(err, "sqlite: iterate payments"))
	}
	return payments, nil
}

// Seed loads a deterministic demo dataset: one reliable customer, one with
// moderate delays, and one with a pile of overdue invoices. Idempotent via
// INSERT OR REPLACE.
func (s *SQLiteSource) Seed(ctx context.Context, now time.Time) error {
	day := 24 * time.Hour
	date := func(daysAgo int) time.Time {
		return now.Add(-time.Duration(daysAgo) * day).Truncate(day)
	}

	type seedInvoice struct {
		id         string
		customerID string
		amount     float64
		issuedAgo  int
		dueAgo     int
		paidAgo    int // negative: unpaid
	}

	customers := []model.Customer{
		{ID: "CUST-0001", Name: "Steady Freight Co", Type: "Company"},
		{ID: "CUST-0002", Name: "Slowpay Logistics", Type: "Company"},
		{ID: "CUST-0003", Name: "Overdue Holdings", Type: "Company"},
	}

	invoices := []seedInvoice{
		// Steady Freight: everything paid on time.
		{"INV-0001", "CUST-0001", 1200, 90, 60, 62},
		{"INV-0002", "CUST-0001", 800, 60, 30, 31},
		{"INV-0003", "CUST-0001", 1500, 30, 10, 12},
		// Slowpay: paid, but consistently late.
		{"INV-0010", "CUST-0002", 2000, 90, 60, 48},
		{"INV-0011", "CUST-0002", 3000, 60, 30, 18},
		{"INV-0012", "CUST-0002", 2500, 40, 20, -1},
		// Overdue Holdings: mirrors the high-risk fixture profile.
		{"INV-0020", "CUST-0003", 5000, 45, 30, -1},
		{"INV-0021", "CUST-0003", 3000, 35, 20, -1},
		{"INV-0022", "CUST-0003", 7000, 30, 15, -1},
		{"INV-0023", "CUST-0003", 4500, 25, 10, -1},
		{"INV-0024", "CUST-0003", 2000, 20, 5, -1},
		{"INV-0025", "CUST-0003", 6000, 15, 0, -1},
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin seed")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, c := range customers {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO customers (id, name, type) VALUES (?, ?, ?)`,
			c.ID, c.Name, c.Type,
		); err != nil {
			return eris.Wrapf(err, "sqlite: seed customer %s", c.ID)
		}
	}

	for _, inv := range invoices {
		var paid any
		if inv.paidAgo >= 0 {
			paid = date(inv.paidAgo)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO invoices (id, customer_id, amount, issue_date, due_date, paid_date)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			inv.id, inv.customerID, inv.amount, date(inv.issuedAgo), date(inv.dueAgo), paid,
		); err != nil {
			return eris.Wrapf(err, "sqlite: seed invoice %s", inv.id)
		}

		if inv.paidAgo >= 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO payments (id, customer_id, amount, date, invoice_id)
				 VALUES (?, ?, ?, ?, ?)`,
				"PAY-"+inv.id, inv.customerID, inv.amount, date(inv.paidAgo), inv.id,
			); err != nil {
				return eris.Wrapf(err, "sqlite: seed payment for %s", inv.id)
			}
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit seed")
}

package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/consuldesk/invoicedesk/libs/db"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/invoice"
)

type InvoiceRepository struct {
	pool *db.Pool
}

func NewInvoiceRepository(pool *db.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

func (r *InvoiceRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Insert persists the invoice header and its items in the caller's
// transaction, so the outbox event commits atomically with them.
func (r *InvoiceRepository) Insert(ctx context.Context, tx pgx.Tx, inv invoice.Data) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO invoices
			(invoice_number, client_id, client_name, issue_date, due_date, subtotal, tax, total, status, payment_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, inv.InvoiceNumber, inv.ClientID, inv.ClientName, inv.IssueDate, inv.DueDate,
		inv.Subtotal, inv.Tax, inv.Total, inv.Status, nullIfEmpty(inv.PaymentLink)).Scan(&id)
	if err != nil {
		return "", err
	}

	for _, item := range inv.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO invoice_items (invoice_id, description, amount, item_type, appointment_date)
			VALUES ($1, $2, $3, $4, $5)
		`, id, item.Description, item.Amount, item.Type, item.Date)
		if err != nil {
			return "", err
		}
	}
	return id, nil
}

func (r *InvoiceRepository) Get(ctx context.Context, id string) (invoice.Data, error) {
	return r.getBy(ctx, "id", id)
}

// GetByNumber looks an invoice up by its human-facing number.
func (r *InvoiceRepository) GetByNumber(ctx context.Context, number string) (invoice.Data, error) {
	return r.getBy(ctx, "invoice_number", number)
}

func (r *InvoiceRepository) getBy(ctx context.Context, column, value string) (invoice.Data, error) {
	var inv invoice.Data
	var paymentLink string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, invoice_number, client_id::text, client_name, issue_date, due_date,
			subtotal, tax, total, status, COALESCE(payment_link, '')
		FROM invoices
		WHERE `+column+` = $1
	`, value).Scan(
		&inv.ID,
		&inv.InvoiceNumber,
		&inv.ClientID,
		&inv.ClientName,
		&inv.IssueDate,
		&inv.DueDate,
		&inv.Subtotal,
		&inv.Tax,
		&inv.Total,
		&inv.Status,
		&paymentLink,
	)
	if err != nil {
		return invoice.Data{}, err
	}
	inv.PaymentLink = paymentLink

	rows, err := r.pool.Query(ctx, `
		SELECT description, amount, item_type, appointment_date
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY appointment_date ASC, id ASC
	`, inv.ID)
	if err != nil {
		return invoice.Data{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var item invoice.Item
		if err := rows.Scan(&item.Description, &item.Amount, &item.Type, &item.Date); err != nil {
			return invoice.Data{}, err
		}
		inv.Items = append(inv.Items, item)
	}
	if rows.Err() != nil {
		return invoice.Data{}, rows.Err()
	}
	return inv, nil
}

func (r *InvoiceRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]invoice.Data, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, invoice_number, client_id::text, client_name, issue_date, due_date,
			subtotal, tax, total, status, COALESCE(payment_link, '')
		FROM invoices
		WHERE client_id = $1
		ORDER BY issue_date DESC
		LIMIT $2
	`, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []invoice.Data
	for rows.Next() {
		var inv invoice.Data
		if err := rows.Scan(
			&inv.ID,
			&inv.InvoiceNumber,
			&inv.ClientID,
			&inv.ClientName,
			&inv.IssueDate,
			&inv.DueDate,
			&inv.Subtotal,
			&inv.Tax,
			&inv.Total,
			&inv.Status,
			&inv.PaymentLink,
		); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// MarkOverdue flips pending invoices past their due date. Run periodically.
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET status = 'overdue'
		WHERE status = 'pending' AND due_date < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkPaidByNumber settles an invoice after a completed checkout. Returns
// false when the invoice is unknown or already paid.
func (r *InvoiceRepository) MarkPaidByNumber(ctx context.Context, tx pgx.Tx, number string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE invoices
		SET status = 'paid'
		WHERE invoice_number = $1 AND status IN ('pending', 'overdue')
	`, number)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

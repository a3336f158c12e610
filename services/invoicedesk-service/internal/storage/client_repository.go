package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/consuldesk/invoicedesk/libs/db"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
)

type ClientRepository struct {
	pool *db.Pool
}

func NewClientRepository(pool *db.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

func (r *ClientRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const clientColumns = `
	id::text, name, COALESCE(region, ''), COALESCE(contact_name, ''),
	COALESCE(contact_email, ''), COALESCE(contact_phone, ''),
	COALESCE(billing_address, ''), COALESCE(tax_id, ''),
	COALESCE(payment_terms, ''), cancellation_policy, created_at`

func (r *ClientRepository) Create(ctx context.Context, c model.Client) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients
			(name, region, contact_name, contact_email, contact_phone, billing_address, tax_id, payment_terms, cancellation_policy)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, c.Name, nullIfEmpty(c.Region), nullIfEmpty(c.ContactName), nullIfEmpty(c.ContactEmail),
		nullIfEmpty(c.ContactPhone), nullIfEmpty(c.BillingAddress), nullIfEmpty(c.TaxID),
		nullIfEmpty(c.PaymentTerms), c.CancellationPolicy).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ClientRepository) Update(ctx context.Context, c model.Client) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clients
		SET name = $2,
			region = $3,
			contact_name = $4,
			contact_email = $5,
			contact_phone = $6,
			billing_address = $7,
			tax_id = $8,
			payment_terms = $9,
			cancellation_policy = $10
		WHERE id = $1
	`, c.ID, c.Name, nullIfEmpty(c.Region), nullIfEmpty(c.ContactName), nullIfEmpty(c.ContactEmail),
		nullIfEmpty(c.ContactPhone), nullIfEmpty(c.BillingAddress), nullIfEmpty(c.TaxID),
		nullIfEmpty(c.PaymentTerms), c.CancellationPolicy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ClientRepository) Get(ctx context.Context, id string) (model.Client, error) {
	var c model.Client
	err := r.pool.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE id = $1
	`, id).Scan(
		&c.ID,
		&c.Name,
		&c.Region,
		&c.ContactName,
		&c.ContactEmail,
		&c.ContactPhone,
		&c.BillingAddress,
		&c.TaxID,
		&c.PaymentTerms,
		&c.CancellationPolicy,
		&c.CreatedAt,
	)
	if err != nil {
		return model.Client{}, err
	}
	return c, nil
}

func (r *ClientRepository) List(ctx context.Context, limit int) ([]model.Client, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		ORDER BY name ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Region,
			&c.ContactName,
			&c.ContactEmail,
			&c.ContactPhone,
			&c.BillingAddress,
			&c.TaxID,
			&c.PaymentTerms,
			&c.CancellationPolicy,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return clients, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

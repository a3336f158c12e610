package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrDuplicateProviderEvent = errors.New("provider event already recorded")

// InsertProviderEvent records an incoming webhook event for idempotent
// handling; replays map to ErrDuplicateProviderEvent via the unique
// (provider, provider_event_id) constraint.
func (r *InvoiceRepository) InsertProviderEvent(ctx context.Context, tx pgx.Tx, provider, providerEventID, eventType string, payload []byte) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO provider_events (provider, provider_event_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`, provider, providerEventID, eventType, payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateProviderEvent
		}
		return err
	}
	return nil
}

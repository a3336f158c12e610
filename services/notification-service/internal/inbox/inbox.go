package inbox

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/consuldesk/invoicedesk/libs/db"
)

// Repository records processed event ids so redelivered Kafka messages
// are handled at most once.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// MarkProcessed inserts the event id into inbox_events. It returns false
// when the event was already recorded.
func (r *Repository) MarkProcessed(ctx context.Context, eventID string, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Remove releases an event id so a failed handler can be retried on redelivery.
func (r *Repository) Remove(ctx context.Context, eventID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM inbox_events WHERE event_id = $1`, eventID)
	return err
}

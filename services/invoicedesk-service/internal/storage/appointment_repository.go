package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/consuldesk/invoicedesk/libs/db"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
)

// ErrAlreadyReviewed is returned when a review decision targets a
// cancellation whose reviewed flag is already set. The flag never clears.
var ErrAlreadyReviewed = errors.New("cancellation already reviewed")

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const appointmentColumns = `
	id::text, client_id::text, person_name, service, start_time, duration_mins, rate, status,
	cancelled_at, COALESCE(hours_before, 0), refund_status, COALESCE(cancellation_reason, ''),
	COALESCE(reviewed, false), cancelled_by,
	COALESCE(company, ''), COALESCE(contact_name, ''), COALESCE(contact_email, ''),
	COALESCE(professional_name, ''), COALESCE(type, ''), COALESCE(specialty, ''),
	COALESCE(location, ''), COALESCE(notes, ''), created_at`

func (r *AppointmentRepository) Create(ctx context.Context, appt model.Appointment) (string, error) {
	var (
		cancelledAt  *time.Time
		hoursBefore  *float64
		refundStatus *string
		reason       *string
		reviewed     *bool
		cancelledBy  *string
	)
	if c := appt.Cancellation; c != nil {
		cancelledAt = &c.Timestamp
		hoursBefore = &c.HoursBefore
		rs := string(c.RefundStatus)
		refundStatus = &rs
		reason = &c.Reason
		reviewed = &c.Reviewed
		cb := string(c.CancelledBy)
		cancelledBy = &cb
	}

	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(client_id, person_name, service, start_time, duration_mins, rate, status,
			 cancelled_at, hours_before, refund_status, cancellation_reason, reviewed, cancelled_by,
			 company, contact_name, contact_email, professional_name, type, specialty, location, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id
	`, appt.ClientID, appt.PersonName, appt.Service, appt.StartTime, appt.DurationMins, appt.Rate, appt.Status,
		cancelledAt, hoursBefore, refundStatus, reason, reviewed, cancelledBy,
		nullIfEmpty(appt.Company), nullIfEmpty(appt.ContactName), nullIfEmpty(appt.ContactEmail),
		nullIfEmpty(appt.ProfessionalName), nullIfEmpty(appt.Type), nullIfEmpty(appt.Specialty),
		nullIfEmpty(appt.Location), nullIfEmpty(appt.Notes)).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *AppointmentRepository) List(ctx context.Context, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY start_time DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *AppointmentRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE client_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListCancelled returns cancelled appointments only. The review queue is
// computed from this set by the policy layer.
func (r *AppointmentRepository) ListCancelled(ctx context.Context, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'cancelled'
		ORDER BY cancelled_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ApplyDecision sets the refund outcome and latches the reviewed flag.
// The WHERE clause rejects a second decision at the database level.
func (r *AppointmentRepository) ApplyDecision(ctx context.Context, tx pgx.Tx, appointmentID string, refund model.RefundStatus) (model.Appointment, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET refund_status = $2,
			reviewed = true,
			reviewed_at = now()
		WHERE id = $1 AND status = 'cancelled' AND reviewed = false
	`, appointmentID, refund)
	if err != nil {
		return model.Appointment{}, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND status = 'cancelled'
	`, appointmentID)
	appt, err := scanAppointment(row)
	if err != nil {
		return model.Appointment{}, err
	}
	if tag.RowsAffected() == 0 {
		// Row exists but the update did not take: a decision was already recorded.
		return appt, ErrAlreadyReviewed
	}
	return appt, nil
}

type appointmentRow interface {
	Scan(dest ...any) error
}

func scanAppointment(row appointmentRow) (model.Appointment, error) {
	var (
		appt         model.Appointment
		cancelledAt  *time.Time
		hoursBefore  float64
		refundStatus *string
		reason       string
		reviewed     bool
		cancelledBy  *string
	)
	err := row.Scan(
		&appt.ID,
		&appt.ClientID,
		&appt.PersonName,
		&appt.Service,
		&appt.StartTime,
		&appt.DurationMins,
		&appt.Rate,
		&appt.Status,
		&cancelledAt,
		&hoursBefore,
		&refundStatus,
		&reason,
		&reviewed,
		&cancelledBy,
		&appt.Company,
		&appt.ContactName,
		&appt.ContactEmail,
		&appt.ProfessionalName,
		&appt.Type,
		&appt.Specialty,
		&appt.Location,
		&appt.Notes,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.Status == model.StatusCancelled && cancelledAt != nil {
		c := &model.Cancellation{
			Timestamp:   *cancelledAt,
			HoursBefore: hoursBefore,
			Reason:      reason,
			Reviewed:    reviewed,
		}
		if refundStatus != nil {
			c.RefundStatus = model.RefundStatus(*refundStatus)
		}
		if cancelledBy != nil {
			c.CancelledBy = model.CancelActor(*cancelledBy)
		}
		appt.Cancellation = c
	}
	return appt, nil
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

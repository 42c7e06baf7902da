package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orego/hospital/internal/platform/db"
)

// PGRepository implements Repository backed by PostgreSQL. Staff and resource
// allocations live in the booking_staff and booking_resources join tables.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const bookingColumns = `id, kind, patient_id, doctor_id, start_time, end_time,
	duration_hours, status, notes, created_by, created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.Kind, &b.PatientID, &b.DoctorID, &b.StartTime, &b.EndTime,
		&b.DurationHours, &b.Status, &b.Notes, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	return &b, nil
}

func (r *PGRepository) Create(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO bookings (
			id, kind, patient_id, doctor_id, start_time, end_time,
			duration_hours, status, notes, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.conn(ctx).QueryRow(ctx, query,
		b.ID, b.Kind, b.PatientID, b.DoctorID, b.StartTime, b.EndTime,
		b.DurationHours, b.Status, b.Notes, b.CreatedBy,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	for _, staffID := range b.StaffIDs {
		if _, err := r.conn(ctx).Exec(ctx,
			`INSERT INTO booking_staff (booking_id, staff_id) VALUES ($1, $2)`,
			b.ID, staffID); err != nil {
			return fmt.Errorf("insert booking staff: %w", err)
		}
	}
	for _, resourceID := range b.ResourceIDs {
		if _, err := r.conn(ctx).Exec(ctx,
			`INSERT INTO booking_resources (booking_id, resource_id) VALUES ($1, $2)`,
			b.ID, resourceID); err != nil {
			return fmt.Errorf("insert booking resource: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadAllocations(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *PGRepository) loadAllocations(ctx context.Context, b *Booking) error {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT staff_id FROM booking_staff WHERE booking_id = $1`, b.ID)
	if err != nil {
		return fmt.Errorf("load booking staff: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan staff id: %w", err)
		}
		b.StaffIDs = append(b.StaffIDs, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.conn(ctx).Query(ctx,
		`SELECT resource_id FROM booking_resources WHERE booking_id = $1`, b.ID)
	if err != nil {
		return fmt.Errorf("load booking resources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan resource id: %w", err)
		}
		b.ResourceIDs = append(b.ResourceIDs, id)
	}
	return rows.Err()
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) UpdateWindow(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE bookings
		 SET start_time = $2, end_time = $3,
		     duration_hours = EXTRACT(EPOCH FROM ($3::timestamptz - $2::timestamptz)) / 3600,
		     updated_at = now()
		 WHERE id = $1`,
		id, start, end)
	if err != nil {
		return fmt.Errorf("update booking window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) List(ctx context.Context, f Filter) ([]*Booking, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	n := 0
	add := func(cond string, arg interface{}) {
		n++
		where = append(where, fmt.Sprintf(cond, n))
		args = append(args, arg)
	}

	if f.PatientID != uuid.Nil {
		add("patient_id = $%d", f.PatientID)
	}
	if f.DoctorID != uuid.Nil {
		add("doctor_id = $%d", f.DoctorID)
	}
	if f.StaffID != uuid.Nil {
		add("id IN (SELECT booking_id FROM booking_staff WHERE staff_id = $%d)", f.StaffID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Kind != "" {
		add("kind = $%d", f.Kind)
	}
	if !f.From.IsZero() {
		add("end_time > $%d", f.From)
	}
	if !f.To.IsZero() {
		add("start_time < $%d", f.To)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM bookings WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + cond +
		fmt.Sprintf(" ORDER BY start_time LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	for _, b := range bookings {
		if err := r.loadAllocations(ctx, b); err != nil {
			return nil, 0, err
		}
	}
	return bookings, total, nil
}

// Overlap predicate on half-open windows: existing.start < new.end AND
// new.start < existing.end. Back-to-back bookings do not collide.

func (r *PGRepository) CountDoctorOverlaps(ctx context.Context, doctorID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error) {
	query := `
		SELECT count(*) FROM bookings
		WHERE doctor_id = $1 AND status = 'scheduled' AND id <> $4
		  AND start_time < $3 AND $2 < end_time`
	var count int
	err := r.conn(ctx).QueryRow(ctx, query, doctorID, start, end, exclude).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count doctor overlaps: %w", err)
	}
	return count, nil
}

func (r *PGRepository) CountStaffOverlaps(ctx context.Context, staffID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error) {
	query := `
		SELECT count(*) FROM bookings b
		INNER JOIN booking_staff bs ON bs.booking_id = b.id
		WHERE bs.staff_id = $1 AND b.status = 'scheduled' AND b.id <> $4
		  AND b.start_time < $3 AND $2 < b.end_time`
	var count int
	err := r.conn(ctx).QueryRow(ctx, query, staffID, start, end, exclude).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count staff overlaps: %w", err)
	}
	return count, nil
}

func (r *PGRepository) CountResourceOverlaps(ctx context.Context, resourceID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error) {
	query := `
		SELECT count(*) FROM bookings b
		INNER JOIN booking_resources br ON br.booking_id = b.id
		WHERE br.resource_id = $1 AND b.status = 'scheduled' AND b.id <> $4
		  AND b.start_time < $3 AND $2 < b.end_time`
	var count int
	err := r.conn(ctx).QueryRow(ctx, query, resourceID, start, end, exclude).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count resource overlaps: %w", err)
	}
	return count, nil
}

func (r *PGRepository) ReleaseAllocations(ctx context.Context, bookingID uuid.UUID, at time.Time) error {
	if _, err := r.conn(ctx).Exec(ctx,
		`UPDATE booking_staff SET released_at = $2 WHERE booking_id = $1 AND released_at IS NULL`,
		bookingID, at); err != nil {
		return fmt.Errorf("release staff allocations: %w", err)
	}
	if _, err := r.conn(ctx).Exec(ctx,
		`UPDATE booking_resources SET released_at = $2 WHERE booking_id = $1 AND released_at IS NULL`,
		bookingID, at); err != nil {
		return fmt.Errorf("release resource allocations: %w", err)
	}
	return nil
}

func (r *PGRepository) CountResourceScheduled(ctx context.Context, resourceID uuid.UUID, exclude uuid.UUID) (int, error) {
	query := `
		SELECT count(*) FROM bookings b
		INNER JOIN booking_resources br ON br.booking_id = b.id
		WHERE br.resource_id = $1 AND b.status = 'scheduled' AND b.id <> $2`
	var count int
	err := r.conn(ctx).QueryRow(ctx, query, resourceID, exclude).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count resource scheduled: %w", err)
	}
	return count, nil
}

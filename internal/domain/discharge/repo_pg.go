package discharge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orego/hospital/internal/platform/db"
)

// PGRepository implements Repository backed by PostgreSQL.
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

const dischargeColumns = `id, patient_id, doctor_id, bed_id, admission_date,
	discharge_date, diagnosis, treatment, medications, follow_up, summary,
	status, approved_by, approved_at, created_by, created_at, updated_at`

func scanDischarge(row pgx.Row) (*Discharge, error) {
	var d Discharge
	err := row.Scan(
		&d.ID, &d.PatientID, &d.DoctorID, &d.BedID, &d.AdmissionDate,
		&d.DischargeDate, &d.Diagnosis, &d.Treatment, &d.Medications,
		&d.FollowUp, &d.Summary, &d.Status, &d.ApprovedBy, &d.ApprovedAt,
		&d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan discharge: %w", err)
	}
	return &d, nil
}

func (r *PGRepository) Create(ctx context.Context, d *Discharge) error {
	query := `
		INSERT INTO discharges (
			id, patient_id, doctor_id, bed_id, admission_date, discharge_date,
			diagnosis, treatment, medications, follow_up, summary, status,
			created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	err := r.conn(ctx).QueryRow(ctx, query,
		d.ID, d.PatientID, d.DoctorID, d.BedID, d.AdmissionDate,
		d.DischargeDate, d.Diagnosis, d.Treatment, d.Medications, d.FollowUp,
		d.Summary, d.Status, d.CreatedBy,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert discharge: %w", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*Discharge, error) {
	query := `SELECT ` + dischargeColumns + ` FROM discharges WHERE id = $1`
	return scanDischarge(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *PGRepository) Update(ctx context.Context, d *Discharge) error {
	query := `
		UPDATE discharges SET
			discharge_date = $2, diagnosis = $3, treatment = $4,
			medications = $5, follow_up = $6, summary = $7, status = $8,
			approved_by = $9, approved_at = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.conn(ctx).QueryRow(ctx, query,
		d.ID, d.DischargeDate, d.Diagnosis, d.Treatment, d.Medications,
		d.FollowUp, d.Summary, d.Status, d.ApprovedBy, d.ApprovedAt,
	).Scan(&d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update discharge: %w", err)
	}
	return nil
}

func (r *PGRepository) List(ctx context.Context, f Filter) ([]*Discharge, int, error) {
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
	if f.CreatedBy != uuid.Nil {
		add("created_by = $%d", f.CreatedBy)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM discharges WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count discharges: %w", err)
	}

	query := `SELECT ` + dischargeColumns + ` FROM discharges WHERE ` + cond +
		fmt.Sprintf(" ORDER BY discharge_date DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list discharges: %w", err)
	}
	defer rows.Close()

	var out []*Discharge
	for rows.Next() {
		d, err := scanDischarge(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

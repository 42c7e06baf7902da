package resource

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

const resourceColumns = `id, kind, name, status, ward_id, bed_number,
	ot_number, serial_number, description, created_at, updated_at`

func scanResource(row pgx.Row) (*Resource, error) {
	var res Resource
	err := row.Scan(
		&res.ID, &res.Kind, &res.Name, &res.Status, &res.WardID, &res.BedNumber,
		&res.OTNumber, &res.SerialNumber, &res.Description, &res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan resource: %w", err)
	}
	return &res, nil
}

func (r *PGRepository) Create(ctx context.Context, res *Resource) error {
	query := `
		INSERT INTO resources (
			id, kind, name, status, ward_id, bed_number, ot_number,
			serial_number, description
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.conn(ctx).QueryRow(ctx, query,
		res.ID, res.Kind, res.Name, res.Status, res.WardID, res.BedNumber,
		res.OTNumber, res.SerialNumber, res.Description,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`
	return scanResource(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *PGRepository) Update(ctx context.Context, res *Resource) error {
	query := `
		UPDATE resources SET
			name = $2, status = $3, ward_id = $4, bed_number = $5,
			ot_number = $6, serial_number = $7, description = $8,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.conn(ctx).QueryRow(ctx, query,
		res.ID, res.Name, res.Status, res.WardID, res.BedNumber,
		res.OTNumber, res.SerialNumber, res.Description,
	).Scan(&res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update resource: %w", err)
	}
	return nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE resources SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("update resource status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) List(ctx context.Context, f Filter) ([]*Resource, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	n := 0

	if f.Kind != "" {
		n++
		where = append(where, fmt.Sprintf("kind = $%d", n))
		args = append(args, f.Kind)
	}
	if f.Status != "" {
		n++
		where = append(where, fmt.Sprintf("status = $%d", n))
		args = append(args, f.Status)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM resources WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count resources: %w", err)
	}

	query := `SELECT ` + resourceColumns + ` FROM resources WHERE ` + cond +
		fmt.Sprintf(" ORDER BY kind, name LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []*Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, res)
	}
	return out, total, rows.Err()
}

package hospital

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orego/hospital/internal/platform/db"
)

// PGRepository implements Repository backed by PostgreSQL. The table holds at
// most one row, keyed by a fixed id.
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

func (r *PGRepository) Get(ctx context.Context) (*Info, error) {
	query := `
		SELECT name, address, phone_number, email, description, updated_at
		FROM hospital_info WHERE id = 1`

	var info Info
	err := r.conn(ctx).QueryRow(ctx, query).Scan(
		&info.Name, &info.Address, &info.PhoneNumber, &info.Email,
		&info.Description, &info.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get hospital info: %w", err)
	}
	return &info, nil
}

func (r *PGRepository) Upsert(ctx context.Context, info *Info) error {
	query := `
		INSERT INTO hospital_info (id, name, address, phone_number, email, description)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address,
			phone_number = EXCLUDED.phone_number, email = EXCLUDED.email,
			description = EXCLUDED.description, updated_at = now()
		RETURNING updated_at`

	err := r.conn(ctx).QueryRow(ctx, query,
		info.Name, info.Address, info.PhoneNumber, info.Email, info.Description,
	).Scan(&info.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert hospital info: %w", err)
	}
	return nil
}

package identity

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

// conn returns the transaction bound to ctx, if any, or the pool.
func (r *PGRepository) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const userColumns = `id, username, password_hash, role, name, birthday,
	id_card_number, address, phone_number, email, speciality, medical_status,
	operation_type, is_active, reset_token, reset_token_expiry, last_login,
	created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Name, &u.Birthday,
		&u.IDCardNumber, &u.Address, &u.PhoneNumber, &u.Email, &u.Speciality,
		&u.MedicalStatus, &u.OperationType, &u.IsActive, &u.ResetToken,
		&u.ResetTokenExpiry, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *PGRepository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (
			id, username, password_hash, role, name, birthday, id_card_number,
			address, phone_number, email, speciality, medical_status,
			operation_type, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	err := r.conn(ctx).QueryRow(ctx, query,
		u.ID, u.Username, u.PasswordHash, u.Role, u.Name, u.Birthday,
		u.IDCardNumber, u.Address, u.PhoneNumber, u.Email, u.Speciality,
		u.MedicalStatus, u.OperationType, u.IsActive,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *PGRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.conn(ctx).QueryRow(ctx, query, username))
}

func (r *PGRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.conn(ctx).QueryRow(ctx, query, email))
}

func (r *PGRepository) GetByIDCard(ctx context.Context, idCard string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id_card_number = $1`
	return scanUser(r.conn(ctx).QueryRow(ctx, query, idCard))
}

func (r *PGRepository) GetByResetToken(ctx context.Context, token string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE reset_token = $1 AND reset_token_expiry > now()`
	return scanUser(r.conn(ctx).QueryRow(ctx, query, token))
}

func (r *PGRepository) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE users SET
			username = $2, password_hash = $3, role = $4, name = $5,
			birthday = $6, id_card_number = $7, address = $8, phone_number = $9,
			email = $10, speciality = $11, medical_status = $12,
			operation_type = $13, is_active = $14, reset_token = $15,
			reset_token_expiry = $16, last_login = $17, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.conn(ctx).QueryRow(ctx, query,
		u.ID, u.Username, u.PasswordHash, u.Role, u.Name, u.Birthday,
		u.IDCardNumber, u.Address, u.PhoneNumber, u.Email, u.Speciality,
		u.MedicalStatus, u.OperationType, u.IsActive, u.ResetToken,
		u.ResetTokenExpiry, u.LastLogin,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *PGRepository) List(ctx context.Context, f Filter) ([]*User, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	n := 0

	if f.Role != "" {
		n++
		where = append(where, fmt.Sprintf("role = $%d", n))
		args = append(args, f.Role)
	}
	if f.ActiveOnly {
		where = append(where, "is_active = true")
	}
	if f.Search != "" {
		n++
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR username ILIKE $%d)", n, n))
		args = append(args, "%"+f.Search+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT count(*) FROM users WHERE ` + cond
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + cond +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

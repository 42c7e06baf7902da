package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const connKey contextKey = "db_conn"

// Conn is the query surface shared by *pgxpool.Pool, *pgxpool.Conn and
// pgx.Tx. Repositories run against whatever Conn the request context
// carries, so a transaction opened by a service is used transparently by
// every repository it calls.
type Conn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// WithConn returns a context carrying the given connection or transaction.
func WithConn(ctx context.Context, conn Conn) context.Context {
	return context.WithValue(ctx, connKey, conn)
}

// ConnFromContext retrieves the request-scoped connection, or nil when the
// context carries none and the caller should fall back to its pool.
func ConnFromContext(ctx context.Context) Conn {
	conn, _ := ctx.Value(connKey).(Conn)
	return conn
}

// WithTx runs fn inside a transaction placed on the context. The transaction
// is committed when fn returns nil and rolled back otherwise, exactly once
// per call. Booking allocation runs this at pgx.Serializable so two requests
// racing for the same doctor/resource cannot both pass the overlap check and
// commit.
func WithTx(ctx context.Context, pool *pgxpool.Pool, opts pgx.TxOptions, fn func(ctx context.Context) error) error {
	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	if err := fn(WithConn(ctx, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// Serializable are the transaction options used for conflict-checked writes.
var Serializable = pgx.TxOptions{IsoLevel: pgx.Serializable}

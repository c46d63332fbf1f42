package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const _postgresTableName = "collab_updates"

// PostgresBackend stores records as rows of a single table ordered by a serial column.
type PostgresBackend struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresBackend connects to dsn and creates the updates table if needed.
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	b := &PostgresBackend{pool: pool, table: _postgresTableName}
	if err := b.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

func (b *PostgresBackend) ident() string {
	return pgx.Identifier{b.table}.Sanitize()
}

func (b *PostgresBackend) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL PRIMARY KEY,
			note_key TEXT NOT NULL,
			data BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, b.ident())
	if _, err := b.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", b.table, err)
	}
	return nil
}

func (b *PostgresBackend) Load(ctx context.Context, key string) ([][]byte, error) {
	rows, err := b.pool.Query(ctx, fmt.Sprintf("SELECT data FROM %s WHERE note_key = $1 ORDER BY seq", b.ident()), key)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	result, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return result, nil
}

func (b *PostgresBackend) Append(ctx context.Context, key string, record []byte) (int, error) {
	query := fmt.Sprintf(`
		WITH inserted AS (INSERT INTO %[1]s (note_key, data) VALUES ($1, $2) RETURNING 1)
		SELECT (SELECT COUNT(*) FROM %[1]s WHERE note_key = $1) + (SELECT COUNT(*) FROM inserted)`, b.ident())
	var count int64
	if err := b.pool.QueryRow(ctx, query, key, record).Scan(&count); err != nil {
		return 0, fmt.Errorf("append to %q: %w", key, err)
	}
	return int(count), nil
}

func (b *PostgresBackend) Replace(ctx context.Context, key string, record []byte) error {
	err := pgx.BeginFunc(ctx, b.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE note_key = $1", b.ident()), key); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (note_key, data) VALUES ($1, $2)", b.ident()), key, record)
		return err
	})
	if err != nil {
		return fmt.Errorf("replace %q: %w", key, err)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

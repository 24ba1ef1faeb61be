package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"transitadmin/internal/models"
)

// PgxPool is the subset of *pgxpool.Pool the adapter needs; pgxmock
// implements it too.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// PostgresAdapter stores each collection as one jsonb array row. Update
// takes a row lock so read-modify-write cycles from several API replicas
// serialize per collection.
type PostgresAdapter struct {
	pool PgxPool
}

func NewPostgresAdapter(pool PgxPool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

func (p *PostgresAdapter) Read(ctx context.Context, name Name) ([]json.RawMessage, error) {
	const query = `SELECT records FROM collections WHERE name = $1`

	var raw []byte
	if err := p.pool.QueryRow(ctx, query, string(name)).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return decodeRecords(raw)
}

func (p *PostgresAdapter) Write(ctx context.Context, name Name, records []json.RawMessage) error {
	const query = `
		INSERT INTO collections (name, records, version, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (name)
		DO UPDATE SET
			records = EXCLUDED.records,
			version = collections.version + 1,
			updated_at = NOW()
	`

	raw, err := encodeRecords(records)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, query, string(name), raw); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (p *PostgresAdapter) Update(ctx context.Context, name Name, fn UpdateFunc) error {
	const (
		ensureQuery = `
			INSERT INTO collections (name, records, version, updated_at)
			VALUES ($1, '[]'::jsonb, 0, NOW())
			ON CONFLICT (name) DO NOTHING
		`
		lockQuery   = `SELECT records FROM collections WHERE name = $1 FOR UPDATE`
		updateQuery = `
			UPDATE collections
			SET records = $2,
			    version = version + 1,
			    updated_at = NOW()
			WHERE name = $1
		`
	)

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(ctx, ensureQuery, string(name)); err != nil {
		return fmt.Errorf("ensure %s: %w", name, err)
	}

	var raw []byte
	if err := tx.QueryRow(ctx, lockQuery, string(name)).Scan(&raw); err != nil {
		return fmt.Errorf("lock %s: %w", name, err)
	}

	records, err := decodeRecords(raw)
	if err != nil {
		return err
	}

	next, err := fn(records)
	if err != nil {
		if errors.Is(err, ErrUnchanged) {
			return nil
		}
		return err
	}

	encoded, err := encodeRecords(next)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, updateQuery, string(name), encoded); err != nil {
		return fmt.Errorf("update %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (p *PostgresAdapter) ReadSession(ctx context.Context, id string) (models.Session, error) {
	const query = `SELECT record FROM sessions WHERE id = $1 AND expires_at > NOW()`

	var raw []byte
	if err := p.pool.QueryRow(ctx, query, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, fmt.Errorf("read session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return models.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func (p *PostgresAdapter) WriteSession(ctx context.Context, session models.Session) error {
	// Expired rows are pruned on every write; reads already ignore them.
	const query = `
		WITH pruned AS (
			DELETE FROM sessions WHERE expires_at <= NOW() AND id <> $1
		)
		INSERT INTO sessions (id, record, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET
			record = EXCLUDED.record,
			expires_at = EXCLUDED.expires_at
	`

	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, query, session.SessionID, raw, session.ExpiresAt); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) ClearSession(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	if _, err := p.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crowdfundr/sdk"
)

// sqlDialect holds the statements that differ between drivers, placeholders mostly.
type sqlDialect struct {
	name   string
	get    string
	upsert string
	delete string
}

var (
	sqliteDialect = sqlDialect{
		name:   "sqlite",
		get:    `SELECT state_value FROM state_entries WHERE state_key = ?`,
		upsert: `INSERT INTO state_entries (state_key, state_value) VALUES (?, ?) ON CONFLICT (state_key) DO UPDATE SET state_value = excluded.state_value`,
		delete: `DELETE FROM state_entries WHERE state_key = ?`,
	}
	postgresDialect = sqlDialect{
		name:   "postgres",
		get:    `SELECT state_value FROM state_entries WHERE state_key = $1`,
		upsert: `INSERT INTO state_entries (state_key, state_value) VALUES ($1, $2) ON CONFLICT (state_key) DO UPDATE SET state_value = excluded.state_value`,
		delete: `DELETE FROM state_entries WHERE state_key = $1`,
	}
)

// SQLStore keeps state in a single key/value table. Apply runs in one database transaction.
type SQLStore struct {
	db      *sql.DB
	dialect sqlDialect
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, s.dialect.get, []byte(key)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s get: %w", s.dialect.name, err)
	}
	return string(raw), true, nil
}

func (s *SQLStore) Apply(ctx context.Context, muts []sdk.Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s begin: %w", s.dialect.name, err)
	}
	for _, m := range muts {
		if m.Delete {
			_, err = tx.ExecContext(ctx, s.dialect.delete, []byte(m.Key))
		} else {
			_, err = tx.ExecContext(ctx, s.dialect.upsert, []byte(m.Key), []byte(m.Value))
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s apply: %w", s.dialect.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s commit: %w", s.dialect.name, err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

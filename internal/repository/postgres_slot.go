package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const createSlotsTable = `
	CREATE TABLE IF NOT EXISTS slots (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

type postgresSlot struct {
	db  *PostgresDB
	key string
}

// NewPostgresSlot хранит слот строкой таблицы slots, создавая таблицу при необходимости
func NewPostgresSlot(ctx context.Context, db *PostgresDB, key string) (Slot, error) {
	if _, err := db.Pool.Exec(ctx, createSlotsTable); err != nil {
		return nil, fmt.Errorf("failed to create slots table: %w", err)
	}

	return &postgresSlot{db: db, key: key}, nil
}

func (r *postgresSlot) Load(ctx context.Context) ([]byte, error) {
	query := `SELECT value FROM slots WHERE key = $1`

	var data []byte
	err := r.db.Pool.QueryRow(ctx, query, r.key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to read slot: %w", err)
	}

	return data, nil
}

func (r *postgresSlot) Save(ctx context.Context, data []byte) error {
	query := `
		INSERT INTO slots (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.Pool.Exec(ctx, query, r.key, data); err != nil {
		return fmt.Errorf("failed to write slot: %w", err)
	}

	return nil
}

func (r *postgresSlot) Clear(ctx context.Context) error {
	query := `DELETE FROM slots WHERE key = $1`

	if _, err := r.db.Pool.Exec(ctx, query, r.key); err != nil {
		return fmt.Errorf("failed to clear slot: %w", err)
	}

	return nil
}

func (r *postgresSlot) Name() string {
	return "postgres:slots/" + r.key
}

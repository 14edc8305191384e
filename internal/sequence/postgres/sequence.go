package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

const incrementCounterQuery = `
INSERT INTO sequence_counters (prefix, year, value, updated_at)
VALUES ($1, $2, 1, NOW())
ON CONFLICT (prefix, year)
DO UPDATE SET value = sequence_counters.value + 1, updated_at = NOW()
RETURNING value`

const currentCounterQuery = `SELECT value FROM sequence_counters WHERE prefix = $1 AND year = $2`

// CounterRepository stores (prefix, year) counters. The upsert keeps increments
// atomic across concurrent writers.
type CounterRepository struct {
	db *sqlx.DB
}

func NewCounterRepository(db *sqlx.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

func (r *CounterRepository) Increment(ctx context.Context, prefix string, year int) (int64, error) {
	var value int64
	if err := r.db.GetContext(ctx, &value, incrementCounterQuery, prefix, year); err != nil {
		return 0, err
	}
	return value, nil
}

func (r *CounterRepository) Current(ctx context.Context, prefix string, year int) (int64, error) {
	var value int64
	err := r.db.GetContext(ctx, &value, currentCounterQuery, prefix, year)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}

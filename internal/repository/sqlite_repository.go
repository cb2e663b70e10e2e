package repository

import (
	"context"
	"database/sql"
	"errors"
)

type sqliteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) AddExchange(ctx context.Context, rec *ExchangeRecord) error {
	query := `INSERT INTO exchanges (id, session_id, contract, outcome, status_code, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.SessionID, rec.Contract, rec.Outcome, rec.StatusCode, rec.LatencyMs, rec.CreatedAt)
	return err
}

func (r *sqliteRepository) GetExchange(ctx context.Context, id string) (*ExchangeRecord, error) {
	query := `SELECT id, session_id, contract, outcome, status_code, latency_ms, created_at
		FROM exchanges WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	var rec ExchangeRecord
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.Contract, &rec.Outcome,
		&rec.StatusCode, &rec.LatencyMs, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *sqliteRepository) ListExchanges(ctx context.Context, sessionID string) ([]ExchangeRecord, error) {
	query := `SELECT id, session_id, contract, outcome, status_code, latency_ms, created_at
		FROM exchanges WHERE session_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []ExchangeRecord
	for rows.Next() {
		var rec ExchangeRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Contract, &rec.Outcome,
			&rec.StatusCode, &rec.LatencyMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

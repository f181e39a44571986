package db

import (
	"context"
	"database/sql"

	"juku-import/internal/model"
)

const maxHistoryLimit = 200

type Repository interface {
	InsertHistory(ctx context.Context, h *model.ImportHistory) error
	ListHistory(ctx context.Context, limit int) ([]model.ImportHistory, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InsertHistory(ctx context.Context, h *model.ImportHistory) error {
	query := `INSERT INTO import_history
			  (session_id, kind, year, period, filename, status, success_count, failed_count, error_message, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())`

	res, err := r.db.ExecContext(ctx, query, h.SessionID, h.Kind, h.Year, h.Period, h.Filename,
		h.Status, h.SuccessCount, h.FailedCount, h.ErrorMessage)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = id
	return nil
}

// ListHistory returns the most recent imports first.
func (r *repository) ListHistory(ctx context.Context, limit int) ([]model.ImportHistory, error) {
	limit = ClampLimit(limit)

	query := `SELECT id, session_id, kind, year, period, filename, status, success_count, failed_count, error_message, created_at
			  FROM import_history ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]model.ImportHistory, 0, limit)
	for rows.Next() {
		var h model.ImportHistory
		err := rows.Scan(&h.ID, &h.SessionID, &h.Kind, &h.Year, &h.Period, &h.Filename,
			&h.Status, &h.SuccessCount, &h.FailedCount, &h.ErrorMessage, &h.CreatedAt)
		if err != nil {
			return nil, err
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

// ClampLimit bounds a caller supplied page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	}
	return limit
}

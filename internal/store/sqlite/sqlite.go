package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nulzo/ollama-openai-proxy/internal/store"
	"github.com/nulzo/ollama-openai-proxy/internal/store/model"
)

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SqliteRepository implements store.Repository
type SqliteRepository struct {
	db *sqlx.DB
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{db: db}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) Requests() store.RequestRepository {
	return &requestRepo{db: r.db}
}

type requestRepo struct {
	db DB
}

func (r *requestRepo) Log(ctx context.Context, log *model.RequestLog) error {
	query := `
	INSERT INTO request_logs (
		id, correlation_id, endpoint, model_id, upstream_model_id,
		finish_reason, input_tokens, output_tokens,
		latency_ms, status_code, error_kind, is_streamed, created_at
	) VALUES (
		:id, :correlation_id, :endpoint, :model_id, :upstream_model_id,
		:finish_reason, :input_tokens, :output_tokens,
		:latency_ms, :status_code, :error_kind, :is_streamed, :created_at
	)`
	_, err := r.db.NamedExecContext(ctx, query, log)
	return err
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (*model.RequestLog, error) {
	var log model.RequestLog
	query := `SELECT * FROM request_logs WHERE id = ?`
	if err := r.db.GetContext(ctx, &log, query, id); err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *requestRepo) GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error) {
	var logs []model.RequestLog
	query := `SELECT * FROM request_logs ORDER BY created_at DESC LIMIT ?`
	err := r.db.SelectContext(ctx, &logs, query, limit)
	return logs, err
}

func (r *requestRepo) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	var stats []model.DailyStats
	query := `
		SELECT
			DATE(created_at) as date,
			COUNT(*) as total_requests,
			SUM(CASE WHEN error_kind != '' THEN 1 ELSE 0 END) as total_errors,
			SUM(input_tokens + output_tokens) as total_tokens,
			AVG(latency_ms) as avg_latency
		FROM request_logs
		WHERE created_at >= DATE('now', ?)
		GROUP BY date
		ORDER BY date DESC
	`
	// SQLite date offset format is '-7 days'
	err := r.db.SelectContext(ctx, &stats, query, fmt.Sprintf("-%d days", days))
	return stats, err
}

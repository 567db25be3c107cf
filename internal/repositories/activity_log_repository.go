package repositories

import (
	"context"

	"dress-rental/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityLogRepository struct {
	DB *pgxpool.Pool
}

func NewActivityLogRepository(db *pgxpool.Pool) *ActivityLogRepository {
	return &ActivityLogRepository{DB: db}
}

func (r *ActivityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (user_id, action, table_name, record_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.DB.QueryRow(ctx, query,
		entry.UserID, entry.Action, entry.TableName, entry.RecordID, entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// List returns the newest entries first
func (r *ActivityLogRepository) List(ctx context.Context, limit int) ([]*models.ActivityLog, error) {
	query := `
		SELECT a.id, a.user_id, COALESCE(u.username, ''), a.action, a.table_name, a.record_id, a.details, a.created_at
		FROM activity_logs a
		LEFT JOIN users u ON a.user_id = u.id
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $1
	`
	return r.query(ctx, query, limit)
}

func (r *ActivityLogRepository) ListByUser(ctx context.Context, userID, limit int) ([]*models.ActivityLog, error) {
	query := `
		SELECT a.id, a.user_id, COALESCE(u.username, ''), a.action, a.table_name, a.record_id, a.details, a.created_at
		FROM activity_logs a
		LEFT JOIN users u ON a.user_id = u.id
		WHERE a.user_id = $1
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $2
	`
	return r.query(ctx, query, userID, limit)
}

func (r *ActivityLogRepository) query(ctx context.Context, sql string, args ...any) ([]*models.ActivityLog, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.ActivityLog
	for rows.Next() {
		entry := &models.ActivityLog{}
		err := rows.Scan(&entry.ID, &entry.UserID, &entry.Username, &entry.Action,
			&entry.TableName, &entry.RecordID, &entry.Details, &entry.CreatedAt)
		if err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

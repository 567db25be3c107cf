package repositories

import (
	"context"

	"dress-rental/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SystemSettingRepository struct {
	DB *pgxpool.Pool
}

func NewSystemSettingRepository(db *pgxpool.Pool) *SystemSettingRepository {
	return &SystemSettingRepository{DB: db}
}

func scanSetting(row scanner) (*models.SystemSetting, error) {
	setting := &models.SystemSetting{}
	err := row.Scan(
		&setting.ID,
		&setting.SettingKey,
		&setting.SettingValue,
		&setting.Description,
		&setting.UpdatedAt,
		&setting.UpdatedByUserID,
	)
	if err != nil {
		return nil, err
	}
	return setting, nil
}

func (r *SystemSettingRepository) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	query := `
		SELECT id, setting_key, setting_value, description, updated_at, COALESCE(updated_by_user_id, 0)
		FROM system_settings
		WHERE setting_key = $1
	`
	return scanSetting(r.DB.QueryRow(ctx, query, key))
}

func (r *SystemSettingRepository) List(ctx context.Context) ([]*models.SystemSetting, error) {
	query := `
		SELECT id, setting_key, setting_value, description, updated_at, COALESCE(updated_by_user_id, 0)
		FROM system_settings
		ORDER BY setting_key
	`

	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []*models.SystemSetting
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

// Values returns every setting as a key/value map
func (r *SystemSettingRepository) Values(ctx context.Context) (map[string]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT setting_key, setting_value FROM system_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		values[key] = value
	}
	return values, rows.Err()
}

// Upsert creates a new setting or updates an existing one. userID 0 records no operator.
func (r *SystemSettingRepository) Upsert(ctx context.Context, key, value, description string, userID int) error {
	query := `
		INSERT INTO system_settings (setting_key, setting_value, description, updated_at, updated_by_user_id)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, NULLIF($4, 0))
		ON CONFLICT (setting_key)
		DO UPDATE SET setting_value = $2,
		    description = CASE WHEN $3 = '' THEN system_settings.description ELSE $3 END,
		    updated_at = CURRENT_TIMESTAMP, updated_by_user_id = NULLIF($4, 0)
	`

	_, err := r.DB.Exec(ctx, query, key, value, description, userID)
	return err
}

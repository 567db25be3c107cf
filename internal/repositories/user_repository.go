package repositories

import (
	"context"
	"errors"
	"time"

	"dress-rental/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateUsername is returned when the username is already taken
var ErrDuplicateUsername = errors.New("username already exists")

const userColumns = `id, username, password_hash, role, full_name, email, phone, is_active,
	last_login, totp_secret, totp_enabled, created_at, updated_at`

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.FullName,
		&user.Email, &user.Phone, &user.IsActive, &user.LastLogin, &user.TOTPSecret,
		&user.TOTPEnabled, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = models.RoleStaff // Default role
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO users(username, password_hash, role, full_name, email, phone, is_active)
         VALUES($1, $2, $3, $4, $5, $6, $7)
         RETURNING id, created_at, updated_at`,
		u.Username, u.PasswordHash, u.Role, u.FullName, u.Email, u.Phone, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if uniqueViolation(err, "users_username_key") {
		return ErrDuplicateUsername
	}
	return err
}

func (r *UserRepository) Get(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username))
}

// List returns all users
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Update saves profile fields and role. The password is changed through UpdatePassword.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	return execOne(ctx, r.DB,
		`UPDATE users SET full_name=$1, email=$2, phone=$3, role=$4, updated_at=CURRENT_TIMESTAMP
         WHERE id=$5`,
		u.FullName, u.Email, u.Phone, u.Role, u.ID)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int, hash string) error {
	return execOne(ctx, r.DB,
		`UPDATE users SET password_hash=$1, updated_at=CURRENT_TIMESTAMP WHERE id=$2`, hash, id)
}

func (r *UserRepository) SetActive(ctx context.Context, id int, active bool) error {
	return execOne(ctx, r.DB,
		`UPDATE users SET is_active=$1, updated_at=CURRENT_TIMESTAMP WHERE id=$2`, active, id)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	return execOne(ctx, r.DB, `UPDATE users SET last_login=$1 WHERE id=$2`, at, id)
}

// SetTOTPSecret stores a pending secret; 2FA stays disabled until EnableTOTP
func (r *UserRepository) SetTOTPSecret(ctx context.Context, id int, secret string) error {
	return execOne(ctx, r.DB,
		`UPDATE users SET totp_secret=$1, totp_enabled=false, updated_at=CURRENT_TIMESTAMP WHERE id=$2`,
		secret, id)
}

func (r *UserRepository) EnableTOTP(ctx context.Context, id int) error {
	return execOne(ctx, r.DB,
		`UPDATE users SET totp_enabled=true, updated_at=CURRENT_TIMESTAMP WHERE id=$1 AND totp_secret<>''`, id)
}

func (r *UserRepository) DisableTOTP(ctx context.Context, id int) error {
	return execOne(ctx, r.DB,
		`UPDATE users SET totp_enabled=false, totp_secret='', updated_at=CURRENT_TIMESTAMP WHERE id=$1`, id)
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	return execOne(ctx, r.DB, `DELETE FROM users WHERE id=$1`, id)
}

// CountActiveAdministrators guards against locking every administrator out
func (r *UserRepository) CountActiveAdministrators(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role=$1 AND is_active`, models.RoleAdministrator,
	).Scan(&count)
	return count, err
}

// execOne runs a statement expected to touch exactly one row
func execOne(ctx context.Context, q DBTX, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

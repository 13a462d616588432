package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/pkg/database"
	apperrors "github.com/oakmart/storefront/pkg/errors"
)

const userColumns = `id, name, email, password_hash, role, avatar, reset_password_token, reset_password_expires_at, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	avatarJSON, err := json.Marshal(u.Avatar)
	if err != nil {
		return fmt.Errorf("marshal avatar: %w", err)
	}

	sql := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.pool.Exec(ctx, sql,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.Role,
		avatarJSON,
		nullableString(u.ResetPasswordToken),
		u.ResetPasswordExpiresAt,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by its ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	sql := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	return r.scanUser(ctx, sql, id)
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	sql := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`

	return r.scanUser(ctx, sql, email)
}

// GetByResetToken retrieves a user whose stored reset token digest matches
// and has not yet expired.
func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	sql := `
		SELECT ` + userColumns + `
		FROM users
		WHERE reset_password_token = $1
		  AND reset_password_expires_at > $2`

	return r.scanUser(ctx, sql, tokenHash, time.Now().UTC())
}

// List returns all users ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	sql := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUserFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}

	return users, nil
}

// Update modifies an existing user in the database.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	avatarJSON, err := json.Marshal(u.Avatar)
	if err != nil {
		return fmt.Errorf("marshal avatar: %w", err)
	}

	u.UpdatedAt = time.Now().UTC()

	sql := `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, role = $4, avatar = $5,
		    reset_password_token = $6, reset_password_expires_at = $7, updated_at = $8
		WHERE id = $9`

	ct, err := r.pool.Exec(ctx, sql,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.Role,
		avatarJSON,
		nullableString(u.ResetPasswordToken),
		u.ResetPasswordExpiresAt,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}

	return nil
}

// Delete removes a user from the database by its ID.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// scanUser is a helper that executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, sql string, args ...any) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, sql, args...)
	u, err := scanUserFrom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func scanUserFrom(row rowScanner) (*domain.User, error) {
	var (
		u          domain.User
		avatarJSON []byte
		resetToken *string
	)

	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&avatarJSON,
		&resetToken,
		&u.ResetPasswordExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if avatarJSON != nil {
		if err := json.Unmarshal(avatarJSON, &u.Avatar); err != nil {
			return nil, fmt.Errorf("unmarshal avatar: %w", err)
		}
	}
	if resetToken != nil {
		u.ResetPasswordToken = *resetToken
	}

	return &u, nil
}

// nullableString maps an empty string to SQL NULL.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"internboard/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, email, hash string) error

	// password recovery; each call is a single conditional UPDATE
	SetOTP(ctx context.Context, email, code string, expiresAt time.Time) error
	ConsumeOTP(ctx context.Context, email, code string, now time.Time) (bool, error)
	CompleteReset(ctx context.Context, email, hash string) (bool, error)
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `id, email, password_hash, otp_code, otp_expires_at, reset_authorized, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	err := r.DB.QueryRowContext(ctx, q, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("user create: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, q, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, q, email))
}

func (r *userRepository) scanOne(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var (
		code    sql.NullString
		expires sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &code, &expires, &u.ResetAuthorized, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user scan: %w", err)
	}
	if code.Valid && expires.Valid {
		c := code.String
		t := expires.Time
		u.OTPCode = &c
		u.OTPExpiresAt = &t
	}
	return u, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, email, hash string) error {
	const q = `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE email = $1
	`
	res, err := r.DB.ExecContext(ctx, q, email, hash)
	if err != nil {
		return fmt.Errorf("user update password: %w", err)
	}
	return expectAffected(res)
}

// SetOTP replaces any previous code and revokes a pending reset authorization.
func (r *userRepository) SetOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	const q = `
		UPDATE users
		SET otp_code = $2, otp_expires_at = $3, reset_authorized = FALSE, updated_at = NOW()
		WHERE email = $1
	`
	res, err := r.DB.ExecContext(ctx, q, email, code, expiresAt)
	if err != nil {
		return fmt.Errorf("user set otp: %w", err)
	}
	return expectAffected(res)
}

// ConsumeOTP clears a matching, unexpired code and authorizes the reset.
// It reports false when no row matched.
func (r *userRepository) ConsumeOTP(ctx context.Context, email, code string, now time.Time) (bool, error) {
	const q = `
		UPDATE users
		SET otp_code = NULL, otp_expires_at = NULL, reset_authorized = TRUE, updated_at = NOW()
		WHERE email = $1 AND otp_code = $2 AND otp_expires_at > $3
	`
	res, err := r.DB.ExecContext(ctx, q, email, code, now)
	if err != nil {
		return false, fmt.Errorf("user consume otp: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("user consume otp: %w", err)
	}
	return n == 1, nil
}

// CompleteReset stores the new hash only while the reset is authorized and
// consumes the authorization in the same statement.
func (r *userRepository) CompleteReset(ctx context.Context, email, hash string) (bool, error) {
	const q = `
		UPDATE users
		SET password_hash = $2, reset_authorized = FALSE, updated_at = NOW()
		WHERE email = $1 AND reset_authorized
	`
	res, err := r.DB.ExecContext(ctx, q, email, hash)
	if err != nil {
		return false, fmt.Errorf("user complete reset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("user complete reset: %w", err)
	}
	return n == 1, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

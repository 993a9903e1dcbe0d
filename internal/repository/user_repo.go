package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-tours-api/internal/model"
)

const uniqueViolation = "23505"

// userColumns is the trusted internal projection, including the secret hash
// and reset-token state. Handlers never see these fields; model.User keeps
// them out of JSON.
const userColumns = `id, name, email, role, password_hash, password_changed_at,
	reset_token_hash, reset_token_expires_at, active, created_at, updated_at`

// UserRepository is the credential store. Every lookup filters
// active = true, so soft-deleted users are invisible to the auth flows.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	return r.findOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND active`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = lower($1) AND active`, email)
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, role, password_hash, active, created_at, updated_at)
		 VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8)`,
		u.ID, u.Name, u.Email, u.Role, u.PasswordHash, u.Active, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrUserAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// RotatePassword applies the hash update and the changed-at timestamp as a
// single atomic update so no window exists where one is visible without the
// other. Any pending reset token is cleared in the same statement.
func (r *UserRepository) RotatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET password_hash = $2, password_changed_at = $3,
		     reset_token_hash = NULL, reset_token_expires_at = NULL,
		     updated_at = $4
		 WHERE id = $1 AND active`,
		id, passwordHash, changedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rotate password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = $4
		 WHERE id = $1 AND active`,
		id, tokenHash, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ClearResetToken(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = $2
		 WHERE id = $1`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	return nil
}

// RedeemResetToken is the compare-and-clear the reset flow relies on: the
// rotation succeeds only while the stored token hash still matches and has
// not expired, and the same statement clears both reset fields. Of two
// concurrent redeemers, the loser matches zero rows.
func (r *UserRepository) RedeemResetToken(ctx context.Context, tokenHash string, passwordHash string, changedAt time.Time, now time.Time) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx,
		`UPDATE users
		 SET password_hash = $2, password_changed_at = $3,
		     reset_token_hash = NULL, reset_token_expires_at = NULL,
		     updated_at = $4
		 WHERE reset_token_hash = $1 AND reset_token_expires_at > $4 AND active
		 RETURNING `+userColumns,
		tokenHash, passwordHash, changedAt, now).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.PasswordChangedAt,
			&u.ResetTokenHash, &u.ResetTokenExpiresAt, &u.Active, &u.CreatedAt, &u.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrResetTokenInvalid
	}
	if err != nil {
		return model.User{}, fmt.Errorf("redeem reset token: %w", err)
	}
	return u, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, name string, email string) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET name = $2, email = lower($3), updated_at = $4
		 WHERE id = $1 AND active
		 RETURNING `+userColumns,
		id, name, email, time.Now().UTC()).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.PasswordChangedAt,
			&u.ResetTokenHash, &u.ResetTokenExpiresAt, &u.Active, &u.CreatedAt, &u.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.User{}, model.ErrUserAlreadyExists
		}
		return model.User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// Deactivate is the soft delete: the row stays, but every lookup above
// stops seeing it.
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET active = false, updated_at = $2 WHERE id = $1 AND active`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.PublicUser, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE active ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.PublicUser, 0)
	for rows.Next() {
		var u model.PublicUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.PasswordChangedAt,
			&u.ResetTokenHash, &u.ResetTokenExpiresAt, &u.Active, &u.CreatedAt, &u.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

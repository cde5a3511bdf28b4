package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, is_active, is_locked, lock_until, login_attempts,
	last_login_at, first_name, last_name, avatar_url, phone_number, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, password_hash, first_name, last_name, avatar_url, phone_number)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, is_active, is_locked, login_attempts, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		models.NormalizeEmail(user.Email), user.PasswordHash,
		user.FirstName, user.LastName, user.AvatarURL, user.PhoneNumber,
	).Scan(&user.ID, &user.IsActive, &user.IsLocked, &user.LoginAttempts, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Email = models.NormalizeEmail(user.Email)
	return user, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE email = $1
		 `
	return r.getOne(ctx, query, models.NormalizeEmail(email))
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var lockUntil, lastLogin sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.IsActive, &user.IsLocked, &lockUntil,
		&user.LoginAttempts, &lastLogin, &user.FirstName, &user.LastName, &user.AvatarURL,
		&user.PhoneNumber, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.LockUntil = timePtr(lockUntil)
	user.LastLoginAt = timePtr(lastLogin)
	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, upd models.UserUpdate) error {
	if upd.IsEmpty() {
		return nil
	}

	set := map[string]any{"updated_at": squirrel.Expr("NOW()")}
	if upd.Email != nil {
		set["email"] = models.NormalizeEmail(*upd.Email)
	}
	if upd.PasswordHash != nil {
		set["password_hash"] = *upd.PasswordHash
	}
	if upd.IsActive != nil {
		set["is_active"] = *upd.IsActive
	}
	if upd.LastLoginAt != nil {
		set["last_login_at"] = *upd.LastLoginAt
	}
	if upd.FirstName != nil {
		set["first_name"] = *upd.FirstName
	}
	if upd.LastName != nil {
		set["last_name"] = *upd.LastName
	}
	if upd.AvatarURL != nil {
		set["avatar_url"] = *upd.AvatarURL
	}
	if upd.PhoneNumber != nil {
		set["phone_number"] = *upd.PhoneNumber
	}

	query, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Update("users").
		SetMap(set).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) RecordFailedLogin(ctx context.Context, id string, threshold int, lockUntil time.Time) (models.LoginFailure, error) {
	query :=
		`UPDATE users SET
		   login_attempts = CASE WHEN login_attempts + 1 >= $2 THEN 0 ELSE login_attempts + 1 END,
		   is_locked      = CASE WHEN login_attempts + 1 >= $2 THEN TRUE ELSE is_locked END,
		   lock_until     = CASE WHEN login_attempts + 1 >= $2 THEN $3 ELSE lock_until END,
		   updated_at     = NOW()
		 WHERE id = $1 AND is_locked = FALSE
		 RETURNING is_locked, login_attempts, lock_until
		 `

	var res models.LoginFailure
	var until sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id, threshold, lockUntil).Scan(&res.Locked, &res.Attempts, &until)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.LoginFailure{}, common.ErrorAlreadyLocked
		}
		return models.LoginFailure{}, fmt.Errorf("db error: %w", err)
	}

	if res.Locked {
		res.LockUntil = timePtr(until)
	}
	return res, nil
}

func (r *PostgresRepository) ResetLoginAttempts(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET login_attempts = 0, updated_at = NOW()
		 WHERE id = $1
		 `
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Unlock(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET is_locked = FALSE, lock_until = NULL, login_attempts = 0, updated_at = NOW()
		 WHERE id = $1
		 `
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

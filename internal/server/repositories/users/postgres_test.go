package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var userRowColumns = []string{
	"id", "email", "password_hash", "is_active", "is_locked", "lock_until", "login_attempts",
	"last_login_at", "first_name", "last_name", "avatar_url", "phone_number", "created_at", "updated_at",
}

const (
	insertUserQuery  = `(?s)^INSERT\s+INTO\s+users\s*\(email,\s*password_hash,\s*first_name,\s*last_name,\s*avatar_url,\s*phone_number\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+id,\s*is_active,\s*is_locked,\s*login_attempts,\s*created_at,\s*updated_at\s*$`
	selectByEmail    = `(?s)^SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`
	selectByID       = `(?s)^SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	recordFailedSQL  = `(?s)^UPDATE\s+users\s+SET\s+login_attempts\s*=\s*CASE.*WHERE\s+id\s*=\s*\$1\s+AND\s+is_locked\s*=\s*FALSE\s+RETURNING\s+is_locked,\s*login_attempts,\s*lock_until\s*$`
	resetAttemptsSQL = `(?s)^UPDATE\s+users\s+SET\s+login_attempts\s*=\s*0,\s*updated_at\s*=\s*NOW\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`
	unlockSQL        = `(?s)^UPDATE\s+users\s+SET\s+is_locked\s*=\s*FALSE,\s*lock_until\s*=\s*NULL,\s*login_attempts\s*=\s*0,\s*updated_at\s*=\s*NOW\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`
)

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "is_active", "is_locked", "login_attempts", "created_at", "updated_at"}).
		AddRow("42", true, false, 0, now, now)
	mock.ExpectQuery(insertUserQuery).
		WithArgs("alice@example.com", "hash", "Alice", "", "", "").
		WillReturnRows(rows)

	u := &models.User{Email: " Alice@Example.com", PasswordHash: "hash", FirstName: "Alice"}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "42" || got.Email != "alice@example.com" || !got.IsActive {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertUserQuery).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{Email: "alice@example.com", PasswordHash: "hash"})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want common.ErrorAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertUserQuery).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "alice@example.com", PasswordHash: "hash"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetUserByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	lockUntil := now.Add(10 * time.Minute)
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u-1", "alice@example.com", "hash", true, true, lockUntil, 0, nil, "Alice", "Smith", "", "", now, now)
	mock.ExpectQuery(selectByEmail).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	got, err := repo.GetUserByEmail(context.Background(), "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail error: %v", err)
	}
	if got.ID != "u-1" || !got.IsLocked || got.LockUntil == nil || !got.LockUntil.Equal(lockUntil) {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.LastLoginAt != nil {
		t.Fatalf("expected nil LastLoginAt, got %v", got.LastLoginAt)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectByEmail).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetUserByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectByID).
		WithArgs("u-1").
		WillReturnError(errors.New("db err"))

	_, err := repo.GetUserByID(context.Background(), "u-1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdate_BuildsPartialSet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^UPDATE users SET first_name = \$1, phone_number = \$2, updated_at = NOW\(\) WHERE id = \$3$`
	mock.ExpectExec(q).
		WithArgs("Bob", "+15551234567", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	name, phone := "Bob", "+15551234567"
	if err := repo.Update(context.Background(), "u-1", models.UserUpdate{FirstName: &name, PhoneNumber: &phone}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdate_NormalizesEmailAndMapsConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^UPDATE users SET email = \$1, updated_at = NOW\(\) WHERE id = \$2$`
	mock.ExpectExec(q).
		WithArgs("taken@example.com", "u-1").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	email := "Taken@Example.com"
	err := repo.Update(context.Background(), "u-1", models.UserUpdate{Email: &email})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want common.ErrorAlreadyExists, got %v", err)
	}
}

func TestUpdate_NotFoundAndEmpty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	if err := repo.Update(context.Background(), "u-1", models.UserUpdate{}); err != nil {
		t.Fatalf("empty update should be a no-op, got %v", err)
	}

	mock.ExpectExec(`^UPDATE users SET password_hash = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	hash := "h"
	err := repo.Update(context.Background(), "ghost", models.UserUpdate{PasswordHash: &hash})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestRecordFailedLogin_Increments(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	until := time.Now().Add(30 * time.Minute)
	mock.ExpectQuery(recordFailedSQL).
		WithArgs("u-1", 5, until).
		WillReturnRows(sqlmock.NewRows([]string{"is_locked", "login_attempts", "lock_until"}).AddRow(false, 3, nil))

	got, err := repo.RecordFailedLogin(context.Background(), "u-1", 5, until)
	if err != nil {
		t.Fatalf("RecordFailedLogin error: %v", err)
	}
	if got.Locked || got.Attempts != 3 || got.LockUntil != nil {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestRecordFailedLogin_Locks(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	until := time.Now().Add(30 * time.Minute)
	mock.ExpectQuery(recordFailedSQL).
		WithArgs("u-1", 5, until).
		WillReturnRows(sqlmock.NewRows([]string{"is_locked", "login_attempts", "lock_until"}).AddRow(true, 0, until))

	got, err := repo.RecordFailedLogin(context.Background(), "u-1", 5, until)
	if err != nil {
		t.Fatalf("RecordFailedLogin error: %v", err)
	}
	if !got.Locked || got.Attempts != 0 || got.LockUntil == nil || !got.LockUntil.Equal(until) {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestRecordFailedLogin_AlreadyLocked(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(recordFailedSQL).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.RecordFailedLogin(context.Background(), "u-1", 5, time.Now())
	if !errors.Is(err, common.ErrorAlreadyLocked) {
		t.Fatalf("want common.ErrorAlreadyLocked, got %v", err)
	}
}

func TestResetLoginAttempts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(resetAttemptsSQL).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.ResetLoginAttempts(context.Background(), "u-1"); err != nil {
		t.Fatalf("ResetLoginAttempts error: %v", err)
	}

	mock.ExpectExec(resetAttemptsSQL).WithArgs("u-2").WillReturnError(errors.New("boom"))
	err := repo.ResetLoginAttempts(context.Background(), "u-2")
	if err == nil || !regexp.MustCompile(`db error: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUnlock(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(unlockSQL).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Unlock(context.Background(), "u-1"); err != nil {
		t.Fatalf("Unlock error: %v", err)
	}

	mock.ExpectExec(unlockSQL).WithArgs("ghost").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Unlock(context.Background(), "ghost"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

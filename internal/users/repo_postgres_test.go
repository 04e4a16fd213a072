package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var identityCols = []string{"id", "name", "email", "role", "password_hash", "created_at", "updated_at"}

func TestPostgresRepo_CreateLowercasesEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("u1", "Ann", "ann@x.com", "employee", "hash").
		WillReturnRows(sqlmock.NewRows(identityCols).AddRow("u1", "Ann", "ann@x.com", "employee", "hash", now, now))

	repo := NewPostgresRepo(db)
	u, err := repo.Create(context.Background(), Identity{ID: "u1", Name: "Ann", Email: "Ann@X.com", Role: RoleEmployee, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "ann@x.com" || u.Role != RoleEmployee || !u.CreatedAt.Equal(now) {
		t.Fatalf("unexpected identity: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepo_CreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	_, err = NewPostgresRepo(db).Create(context.Background(), Identity{ID: "u1", Email: "a@x.com"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestPostgresRepo_FindByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE email").
		WithArgs("missing@x.com").
		WillReturnRows(sqlmock.NewRows(identityCols))

	_, err = NewPostgresRepo(db).FindByEmail(context.Background(), "MISSING@x.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresRepo_DeleteMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM users").WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewPostgresRepo(db).Delete(context.Background(), "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresRepo_UpdatePassesOnlyChangedFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Unix(1700000000, 0).UTC()
	role := RoleAdmin
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE users").
		WithArgs("u1", nil, nil, "admin").
		WillReturnRows(sqlmock.NewRows(identityCols).AddRow("u1", "Ann", "ann@x.com", "admin", "hash", now, now))
	mock.ExpectCommit()

	u, err := NewPostgresRepo(db).Update(context.Background(), "u1", Update{Role: &role})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.Role != RoleAdmin {
		t.Fatalf("expected admin role, got %q", u.Role)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepo_UpdateRollsBackPasswordOnDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	hash := "new-hash"
	email := "Taken@x.com"
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("u1", "new-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE users").
		WithArgs("u1", nil, "taken@x.com", nil).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
	mock.ExpectRollback()

	_, err = NewPostgresRepo(db).Update(context.Background(), "u1", Update{Email: &email, PasswordHash: &hash})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepo_UpdateMissingUserSkipsFieldWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	hash := "new-hash"
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("gone", "new-hash").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = NewPostgresRepo(db).Update(context.Background(), "gone", Update{PasswordHash: &hash})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepo_EnsureSchemaRunsInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := NewPostgresRepo(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

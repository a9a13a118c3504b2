package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/webgis-caps/rocksample-api/internal/models"
)

func newUserRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestUserRepositoryCreateAndFindByEmail(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{
		Username:  "areyes",
		Email:     "areyes@example.edu",
		FirstName: "Ana",
		LastName:  "Reyes",
		Role:      models.RoleStudent,
		IsActive:  true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	require.NotEmpty(t, user.ID)

	rows := sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "first_name", "last_name",
		"role", "school_id", "is_active", "last_login", "created_at", "updated_at",
	}).AddRow(user.ID, "areyes", "areyes@example.edu", "hash", "Ana", "Reyes",
		"student", nil, true, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("LOWER(email) = LOWER($1)")).
		WithArgs("AReyes@Example.edu").
		WillReturnRows(rows)

	found, err := repo.FindByEmail(context.Background(), "AReyes@Example.edu")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)
	require.Equal(t, models.RoleStudent, found.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WithArgs(models.RolePersonnel, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "first_name", "last_name",
		"role", "school_id", "is_active", "last_login", "created_at", "updated_at",
	}).AddRow("user-2", "bcruz", "bcruz@example.edu", "hash", "Ben", "Cruz",
		"personnel", nil, true, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE role = $1 AND is_active = $2")).
		WillReturnRows(rows)

	role := models.RolePersonnel
	active := true
	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role, IsActive: &active})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, users, 1)
	require.Equal(t, models.RolePersonnel, users[0].Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositorySetActiveMissing(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), "missing", false)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryRevokeRefreshTokenAlreadyRevoked(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RevokeRefreshToken(context.Background(), "token-1")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/webgis-caps/rocksample-api/internal/models"
)

func newArchiveRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestArchiveRepositoryCreateWritesTrail(t *testing.T) {
	db, mock, cleanup := newArchiveRepoMock(t)
	defer cleanup()

	repo := NewArchiveRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO archives")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	archivedBy := "admin-1"
	rec := &models.Archive{
		SampleID:      "sample-1",
		ArchivedBy:    &archivedBy,
		ArchiveReason: "duplicate of BSK-0001",
	}
	require.NoError(t, repo.Create(context.Background(), rec, "BSK-0044"))
	require.NotEmpty(t, rec.ID)
	require.False(t, rec.ArchivedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryRemoveMissing(t *testing.T) {
	db, mock, cleanup := newArchiveRepoMock(t)
	defer cleanup()

	repo := NewArchiveRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM archives WHERE sample_id")).
		WithArgs("sample-9").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Remove(context.Background(), "sample-9", "BSK-0009", "admin-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryListScopedToOwner(t *testing.T) {
	db, mock, cleanup := newArchiveRepoMock(t)
	defer cleanup()

	repo := NewArchiveRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "sample_id", "rock_id", "rock_type", "location_name",
		"archived_by_name", "archive_reason", "archived_at",
	}).AddRow("arc-1", "sample-1", "BSK-0001", "basalt", "Mount Batur",
		"Admin One", "outdated coordinates", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE rs.user_id = $1")).
		WithArgs("user-1", 50, 0).
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), models.ArchiveFilter{OwnerID: "user-1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "BSK-0001", entries[0].RockID)
	require.NoError(t, mock.ExpectationsWereMet())
}

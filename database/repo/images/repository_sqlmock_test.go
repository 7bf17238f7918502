package images

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anoixa/image-store/database"
)

func setupMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewRepository(database.NewGormProviderFromDB(db, "postgres")), mock
}

func TestRepository_GetByImageID_DBError(t *testing.T) {
	repo, mock := setupMockRepo(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	_, err := repo.GetByImageID(context.Background(), "img_1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrImageNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByImageID_NoRows(t *testing.T) {
	repo, mock := setupMockRepo(t)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"image_id"}))

	_, err := repo.GetByImageID(context.Background(), "img_1")
	assert.ErrorIs(t, err, ErrImageNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteByImageID_NothingDeleted(t *testing.T) {
	repo, mock := setupMockRepo(t)
	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteByImageID(context.Background(), "img_1")
	assert.ErrorIs(t, err, ErrImageNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteByImageID_DBError(t *testing.T) {
	repo, mock := setupMockRepo(t)
	mock.ExpectExec("DELETE").WillReturnError(errors.New("deadlock detected"))

	err := repo.DeleteByImageID(context.Background(), "img_1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrImageNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByUser_DBError(t *testing.T) {
	repo, mock := setupMockRepo(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("timeout"))

	_, err := repo.ListByUser(context.Background(), ListQuery{UserID: "alice"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

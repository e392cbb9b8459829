package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/personality-predictor/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

var userColumns = []string{"id", "name", "email", "password", "google_id", "facebook_id", "profile_pic", "is_verified", "token_version"}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(4, "Ada", "ada@example.com", "hash", nil, nil, "", true, 1))

	user, err := repo.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint(4), user.ID)
	assert.Equal(t, "Ada", user.Name)
	assert.True(t, user.IsVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	user := &model.User{Name: "Ada", Email: "ada@example.com", Password: "hash"}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, uint(7), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmailOrProvider_PrefersProviderMatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE .*email = \$1 OR google_id = \$2`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "Email Owner", "ada@example.com", "hash", nil, nil, "", true, 1).
			AddRow(2, "Google Owner", "other@example.com", "hash", "g-1", nil, "", true, 1))

	user, err := repo.FindByEmailOrProvider(context.Background(), "ada@example.com", "google", "g-1")
	require.NoError(t, err)
	assert.Equal(t, uint(2), user.ID)
}

func TestUserRepository_FindByEmailOrProvider_UnknownProvider(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewUserRepository(db)

	_, err := repo.FindByEmailOrProvider(context.Background(), "ada@example.com", "myspace", "x")
	assert.Error(t, err)
}

func TestUserRepository_LinkProvider_OnlyWhenUnlinked(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE "users" SET .*"facebook_id"=.*facebook_id IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.LinkProvider(context.Background(), 3, "facebook", "fb-9", "https://pic"))

	mock.ExpectExec(`UPDATE "users" SET .*"facebook_id"=.*facebook_id IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.LinkProvider(context.Background(), 3, "facebook", "fb-other", "")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ConsumeVerificationToken_NoMatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE "users" SET .*"is_verified"=.*verification_token = \$\d+ AND verification_token_expires > \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ConsumeVerificationToken(context.Background(), "ada@example.com", "deadbeef", time.Now())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUserRepository_ConsumeResetToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "users" WHERE .*reset_password_token = \$1 AND reset_password_expires > \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectExec(`UPDATE "users" SET .*"token_version"=token_version \+ 1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := repo.ConsumeResetToken(context.Background(), "hash", "newbcrypt", time.Now())
	require.NoError(t, err)
	assert.Equal(t, uint(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ConsumeResetToken_Expired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "users" WHERE .*reset_password_token`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.ConsumeResetToken(context.Background(), "hash", "newbcrypt", time.Now())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContactRepository(db)

	mock.ExpectQuery(`INSERT INTO "contacts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))

	contact := &model.Contact{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Subject:   "Hello",
		Message:   "Great site",
		Status:    "pending",
		Meta:      datatypes.JSONMap{"client_ip": "127.0.0.1"},
	}
	require.NoError(t, repo.Create(context.Background(), contact))
	assert.Equal(t, uint(21), contact.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

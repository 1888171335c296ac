package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/simplim/backend-go/internal/auth"
	apperrors "github.com/simplim/backend-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func testJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-unit-tests", "simplim", 30*time.Minute)
}

func TestRegisterSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewUserService(db, testJWTService())

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(1))
	mock.ExpectCommit()

	user, err := svc.Register("alice", "Alice@Example.com", "sunlight42moon")
	require.NoError(t, err)

	assert.Equal(t, uint(1), user.UserID)
	assert.Equal(t, "alice", user.Username)
	// 邮箱归一化为小写
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "sunlight42moon", user.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewUserService(db, testJWTService())

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := svc.Register("alice", "alice@example.com", "sunlight42moon")
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeConflict, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterValidation(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewUserService(db, testJWTService())

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"empty username", "", "a@b.com", "sunlight42moon"},
		{"bad email", "alice", "not-an-email", "sunlight42moon"},
		{"weak password", "alice", "a@b.com", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(tt.username, tt.email, tt.password)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewUserService(db, testJWTService())

	hash, err := auth.HashPassword("sunlight42moon")
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"user_id", "username", "email", "password_hash", "is_active"}).
		AddRow(1, "alice", "alice@example.com", hash, true)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(rows)

	token, user, err := svc.Login("alice@example.com", "sunlight42moon")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice", user.Username)

	// 签发的token必须可被校验
	claims, err := testJWTService().ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewUserService(db, testJWTService())

	hash, err := auth.HashPassword("sunlight42moon")
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"user_id", "username", "email", "password_hash", "is_active"}).
		AddRow(1, "alice", "alice@example.com", hash, true)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(rows)

	_, _, err = svc.Login("alice@example.com", "wrongpassword1")
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, appErr.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewUserService(db, testJWTService())

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnError(gorm.ErrRecordNotFound)

	_, _, err := svc.Login("ghost@example.com", "sunlight42moon")
	require.Error(t, err)
	// 未知用户与密码错误返回同样的错误，不泄露账号是否存在
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, appErr.Code)
	assert.Equal(t, "invalid credentials", appErr.Message)
}

func TestLoginDisabledAccount(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewUserService(db, testJWTService())

	hash, err := auth.HashPassword("sunlight42moon")
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"user_id", "username", "email", "password_hash", "is_active"}).
		AddRow(1, "alice", "alice@example.com", hash, false)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(rows)

	_, _, err = svc.Login("alice@example.com", "sunlight42moon")
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, appErr.Code)
}

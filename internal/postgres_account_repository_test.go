package internal

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exdock/exdock"
)

func newAccountRepoForTest(t *testing.T) (*PostgresAccountRepository, pgxmock.PgxPoolIface, *FlagSet) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	flags := NewFlagSet()
	return NewPostgresAccountRepository(mock, flags), mock, flags
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo, mock, flags := newAccountRepoForTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO users (email, password) VALUES ($1, $2) RETURNING user_id, email`,
	)).WithArgs("admin@example.com", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "email"}).AddRow(int64(1), "admin@example.com"))

	user, err := repo.CreateUser(context.Background(), exdock.UserCreation{
		Email:    "admin@example.com",
		Password: "hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.UserID)
	assert.Empty(t, user.Password)
	require.NoError(t, mock.ExpectationsWereMet())

	dirty, err := flags.IsDirty(context.Background(), exdock.CacheDomainAccounts)
	require.NoError(t, err)
	assert.True(t, dirty)
}

func TestCreateUserRejectsBlankCredentials(t *testing.T) {
	repo, _, _ := newAccountRepoForTest(t)

	_, err := repo.CreateUser(context.Background(), exdock.UserCreation{Email: "a@b.c"})
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeInvalidDefinition))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo, mock, _ := newAccountRepoForTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("admin@example.com", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.CreateUser(context.Background(), exdock.UserCreation{
		Email:    "admin@example.com",
		Password: "hunter2",
	})
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeDuplicateKey))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserWithoutPasswordKeepsHash(t *testing.T) {
	repo, mock, _ := newAccountRepoForTest(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET email = $1 WHERE user_id = $2`)).
		WithArgs("new@example.com", int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	user, err := repo.UpdateUser(context.Background(), exdock.User{UserID: 1, Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserNotFound(t *testing.T) {
	repo, mock, _ := newAccountRepoForTest(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET email = $1 WHERE user_id = $2`)).
		WithArgs("ghost@example.com", int64(99)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := repo.UpdateUser(context.Background(), exdock.User{UserID: 99, Email: "ghost@example.com"})
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserRemovesPermissionsFirst(t *testing.T) {
	repo, mock, _ := newAccountRepoForTest(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM backend_permissions WHERE user_id = $1`)).
		WithArgs(int64(1)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE user_id = $1`)).
		WithArgs(int64(1)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	require.NoError(t, repo.DeleteUser(context.Background(), 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserNotFoundRollsBack(t *testing.T) {
	repo, mock, _ := newAccountRepoForTest(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM backend_permissions WHERE user_id = $1`)).
		WithArgs(int64(99)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE user_id = $1`)).
		WithArgs(int64(99)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := repo.DeleteUser(context.Background(), 99)
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPermissionsParsesLevels(t *testing.T) {
	repo, mock, _ := newAccountRepoForTest(t)

	columns := []string{
		"user_id", "user_permissions", "server_settings", "template",
		"category_content", "category_products", "product_content",
		"product_price", "product_warehouse", "text_pages", "api_key",
	}
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT user_id, ` + permissionColumns + ` FROM backend_permissions WHERE user_id = $1`,
	)).WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(
			int64(1), "write", "read", "none",
			"write", "read", "none",
			"write", "banana", "none", "key-123",
		))

	perms, err := repo.GetPermissionsByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, exdock.PermissionWrite, perms.UserPermission)
	assert.Equal(t, exdock.PermissionRead, perms.ServerSettings)
	// Unknown levels degrade to none rather than failing the read.
	assert.Equal(t, exdock.PermissionNone, perms.ProductWarehouse)
	assert.Equal(t, "key-123", perms.APIKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPermissionsNotFound(t *testing.T) {
	repo, mock, _ := newAccountRepoForTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id, ` + permissionColumns)).
		WithArgs(int64(5)).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetPermissionsByUserID(context.Background(), 5)
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePermissionsRejectsUnknownLevel(t *testing.T) {
	repo, _, _ := newAccountRepoForTest(t)

	_, err := repo.CreatePermissions(context.Background(), exdock.BackendPermissions{
		UserID:         1,
		UserPermission: exdock.Permission("root"),
	})
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeInvalidDefinition))
}

func TestGetFullUserByEmail(t *testing.T) {
	repo, mock, _ := newAccountRepoForTest(t)

	columns := []string{
		"user_id", "email", "password", "p_user_id",
		"user_permissions", "server_settings", "template",
		"category_content", "category_products", "product_content",
		"product_price", "product_warehouse", "text_pages", "api_key",
	}
	mock.ExpectQuery(`SELECT u\.user_id, u\.email, u\.password, p\.user_id`).
		WithArgs("admin@example.com").
		WillReturnRows(pgxmock.NewRows(columns).AddRow(
			int64(1), "admin@example.com", "$2a$10$hash", int64(1),
			"write", "write", "write",
			"write", "write", "write",
			"write", "write", "write", "key-123",
		))

	full, err := repo.GetFullUserByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), full.User.UserID)
	assert.Equal(t, exdock.PermissionWrite, full.Permissions.TextPages)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFullUserByIDNotFound(t *testing.T) {
	repo, mock, _ := newAccountRepoForTest(t)

	mock.ExpectQuery(`SELECT u\.user_id, u\.email, u\.password, p\.user_id`).
		WithArgs(int64(42)).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetFullUserByID(context.Background(), 42)
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

package internal

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/exdock/exdock"
)

const permissionColumns = "user_permissions, server_settings, template, category_content, " +
	"category_products, product_content, product_price, product_warehouse, text_pages, api_key"

// PostgresAccountRepository stores backend users and their permission rows.
// Passwords are bcrypt-hashed before they reach the users table and never
// leave it through the read paths.
type PostgresAccountRepository struct {
	pool  dbPool
	flags exdock.FlagStore
}

func NewPostgresAccountRepository(pool dbPool, flags exdock.FlagStore) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool, flags: flags}
}

func (r *PostgresAccountRepository) GetAllUsers(ctx context.Context) ([]exdock.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, email FROM users ORDER BY user_id`)
	if err != nil {
		return nil, exdock.NewStoreFailureError("list users", err)
	}
	defer rows.Close()

	var users []exdock.User
	for rows.Next() {
		var user exdock.User
		if err := rows.Scan(&user.UserID, &user.Email); err != nil {
			return nil, exdock.NewStoreFailureError("scan user row", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, exdock.NewStoreFailureError("iterate user rows", err)
	}
	return users, nil
}

func (r *PostgresAccountRepository) GetUserByID(ctx context.Context, userID int64) (exdock.User, error) {
	var user exdock.User
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, email FROM users WHERE user_id = $1`, userID,
	).Scan(&user.UserID, &user.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return exdock.User{}, exdock.NewNotFoundError("user not found")
		}
		return exdock.User{}, exdock.NewStoreFailureError("read user", err)
	}
	return user, nil
}

func (r *PostgresAccountRepository) CreateUser(ctx context.Context, creation exdock.UserCreation) (exdock.User, error) {
	if creation.Email == "" || creation.Password == "" {
		return exdock.User{}, exdock.NewInvalidDefinitionError("user email and password must be set")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(creation.Password), bcrypt.DefaultCost)
	if err != nil {
		return exdock.User{}, exdock.NewStoreFailureError("hash user password", err)
	}

	var user exdock.User
	err = r.pool.QueryRow(ctx,
		`INSERT INTO users (email, password) VALUES ($1, $2) RETURNING user_id, email`,
		creation.Email, string(hash),
	).Scan(&user.UserID, &user.Email)
	if err != nil {
		if isUniqueViolation(err) {
			return exdock.User{}, exdock.NewDuplicateKeyError("a user with this email already exists")
		}
		return exdock.User{}, exdock.NewStoreFailureError("create user", err)
	}

	r.markDirty(ctx)
	zap.S().Infow("user created", "userId", user.UserID)
	return user, nil
}

// UpdateUser rewrites email and, when a new password is supplied, the bcrypt
// hash. An empty password keeps the stored hash.
func (r *PostgresAccountRepository) UpdateUser(ctx context.Context, user exdock.User) (exdock.User, error) {
	var tag pgconn.CommandTag
	var err error
	if user.Password != "" {
		var hash []byte
		hash, err = bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
		if err != nil {
			return exdock.User{}, exdock.NewStoreFailureError("hash user password", err)
		}
		tag, err = r.pool.Exec(ctx,
			`UPDATE users SET email = $1, password = $2 WHERE user_id = $3`,
			user.Email, string(hash), user.UserID)
	} else {
		tag, err = r.pool.Exec(ctx,
			`UPDATE users SET email = $1 WHERE user_id = $2`,
			user.Email, user.UserID)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return exdock.User{}, exdock.NewDuplicateKeyError("a user with this email already exists")
		}
		return exdock.User{}, exdock.NewStoreFailureError("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return exdock.User{}, exdock.NewNotFoundError("user not found")
	}

	r.markDirty(ctx)
	return exdock.User{UserID: user.UserID, Email: user.Email}, nil
}

// DeleteUser removes the user row and its permission row in one transaction.
// A missing permission row is fine; a missing user row is NotFound and rolls
// everything back.
func (r *PostgresAccountRepository) DeleteUser(ctx context.Context, userID int64) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return exdock.NewStoreFailureError("begin user delete transaction", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	if _, err := tx.Exec(ctx, `DELETE FROM backend_permissions WHERE user_id = $1`, userID); err != nil {
		return exdock.NewStoreFailureError("delete user permissions", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return exdock.NewStoreFailureError("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return exdock.NewNotFoundError("user not found")
	}
	if err := tx.Commit(ctx); err != nil {
		return exdock.NewStoreFailureError("commit user delete transaction", err)
	}

	r.markDirty(ctx)
	zap.S().Infow("user deleted", "userId", userID)
	return nil
}

func (r *PostgresAccountRepository) GetPermissionsByUserID(ctx context.Context, userID int64) (exdock.BackendPermissions, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT user_id, `+permissionColumns+` FROM backend_permissions WHERE user_id = $1`, userID)
	perms, err := scanPermissions(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return exdock.BackendPermissions{}, exdock.NewNotFoundError("permissions not found for user")
		}
		return exdock.BackendPermissions{}, exdock.NewStoreFailureError("read permissions", err)
	}
	return perms, nil
}

func (r *PostgresAccountRepository) CreatePermissions(ctx context.Context, perms exdock.BackendPermissions) (exdock.BackendPermissions, error) {
	if err := validatePermissions(perms); err != nil {
		return exdock.BackendPermissions{}, err
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO backend_permissions (user_id, `+permissionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		permissionArgs(perms)...)
	if err != nil {
		if isUniqueViolation(err) {
			return exdock.BackendPermissions{}, exdock.NewDuplicateKeyError("permissions already exist for this user")
		}
		return exdock.BackendPermissions{}, exdock.NewStoreFailureError("create permissions", err)
	}

	r.markDirty(ctx)
	return perms, nil
}

func (r *PostgresAccountRepository) UpdatePermissions(ctx context.Context, perms exdock.BackendPermissions) (exdock.BackendPermissions, error) {
	if err := validatePermissions(perms); err != nil {
		return exdock.BackendPermissions{}, err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE backend_permissions SET
			user_permissions = $2, server_settings = $3, template = $4,
			category_content = $5, category_products = $6, product_content = $7,
			product_price = $8, product_warehouse = $9, text_pages = $10, api_key = $11
		 WHERE user_id = $1`,
		permissionArgs(perms)...)
	if err != nil {
		return exdock.BackendPermissions{}, exdock.NewStoreFailureError("update permissions", err)
	}
	if tag.RowsAffected() == 0 {
		return exdock.BackendPermissions{}, exdock.NewNotFoundError("permissions not found for user")
	}

	r.markDirty(ctx)
	return perms, nil
}

func (r *PostgresAccountRepository) DeletePermissions(ctx context.Context, userID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM backend_permissions WHERE user_id = $1`, userID)
	if err != nil {
		return exdock.NewStoreFailureError("delete permissions", err)
	}
	if tag.RowsAffected() == 0 {
		return exdock.NewNotFoundError("permissions not found for user")
	}

	r.markDirty(ctx)
	return nil
}

func (r *PostgresAccountRepository) GetFullUserByEmail(ctx context.Context, email string) (exdock.FullUser, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT u.user_id, u.email, u.password, p.user_id, `+prefixedPermissionColumns("p")+`
		 FROM users u JOIN backend_permissions p ON p.user_id = u.user_id
		 WHERE u.email = $1`, email)
	return scanFullUser(row)
}

func (r *PostgresAccountRepository) GetFullUserByID(ctx context.Context, userID int64) (exdock.FullUser, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT u.user_id, u.email, u.password, p.user_id, `+prefixedPermissionColumns("p")+`
		 FROM users u JOIN backend_permissions p ON p.user_id = u.user_id
		 WHERE u.user_id = $1`, userID)
	return scanFullUser(row)
}

func (r *PostgresAccountRepository) markDirty(ctx context.Context) {
	if r.flags == nil {
		return
	}
	if err := r.flags.MarkDirty(ctx, exdock.CacheDomainAccounts); err != nil {
		zap.S().Warnw("mark cache domain dirty", "domain", exdock.CacheDomainAccounts, "error", err)
	}
}

func validatePermissions(perms exdock.BackendPermissions) error {
	for _, p := range []exdock.Permission{
		perms.UserPermission, perms.ServerSettings, perms.Template,
		perms.CategoryContent, perms.CategoryProducts, perms.ProductContent,
		perms.ProductPrice, perms.ProductWarehouse, perms.TextPages,
	} {
		if !p.Valid() {
			return exdock.NewInvalidDefinitionError("unknown permission level: " + string(p))
		}
	}
	return nil
}

func permissionArgs(perms exdock.BackendPermissions) []any {
	return []any{
		perms.UserID,
		string(perms.UserPermission), string(perms.ServerSettings), string(perms.Template),
		string(perms.CategoryContent), string(perms.CategoryProducts), string(perms.ProductContent),
		string(perms.ProductPrice), string(perms.ProductWarehouse), string(perms.TextPages),
		perms.APIKey,
	}
}

func prefixedPermissionColumns(alias string) string {
	return alias + ".user_permissions, " + alias + ".server_settings, " + alias + ".template, " +
		alias + ".category_content, " + alias + ".category_products, " + alias + ".product_content, " +
		alias + ".product_price, " + alias + ".product_warehouse, " + alias + ".text_pages, " + alias + ".api_key"
}

func scanPermissions(row pgx.Row) (exdock.BackendPermissions, error) {
	var perms exdock.BackendPermissions
	var levels [9]string
	if err := row.Scan(
		&perms.UserID,
		&levels[0], &levels[1], &levels[2], &levels[3], &levels[4],
		&levels[5], &levels[6], &levels[7], &levels[8],
		&perms.APIKey,
	); err != nil {
		return exdock.BackendPermissions{}, err
	}
	perms.UserPermission = exdock.ParsePermission(levels[0])
	perms.ServerSettings = exdock.ParsePermission(levels[1])
	perms.Template = exdock.ParsePermission(levels[2])
	perms.CategoryContent = exdock.ParsePermission(levels[3])
	perms.CategoryProducts = exdock.ParsePermission(levels[4])
	perms.ProductContent = exdock.ParsePermission(levels[5])
	perms.ProductPrice = exdock.ParsePermission(levels[6])
	perms.ProductWarehouse = exdock.ParsePermission(levels[7])
	perms.TextPages = exdock.ParsePermission(levels[8])
	return perms, nil
}

func scanFullUser(row pgx.Row) (exdock.FullUser, error) {
	var full exdock.FullUser
	var levels [9]string
	err := row.Scan(
		&full.User.UserID, &full.User.Email, &full.User.Password,
		&full.Permissions.UserID,
		&levels[0], &levels[1], &levels[2], &levels[3], &levels[4],
		&levels[5], &levels[6], &levels[7], &levels[8],
		&full.Permissions.APIKey,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return exdock.FullUser{}, exdock.NewNotFoundError("user not found")
		}
		return exdock.FullUser{}, exdock.NewStoreFailureError("read full user", err)
	}
	full.Permissions.UserPermission = exdock.ParsePermission(levels[0])
	full.Permissions.ServerSettings = exdock.ParsePermission(levels[1])
	full.Permissions.Template = exdock.ParsePermission(levels[2])
	full.Permissions.CategoryContent = exdock.ParsePermission(levels[3])
	full.Permissions.CategoryProducts = exdock.ParsePermission(levels[4])
	full.Permissions.ProductContent = exdock.ParsePermission(levels[5])
	full.Permissions.ProductPrice = exdock.ParsePermission(levels[6])
	full.Permissions.ProductWarehouse = exdock.ParsePermission(levels[7])
	full.Permissions.TextPages = exdock.ParsePermission(levels[8])
	return full, nil
}

var _ exdock.AccountRepository = (*PostgresAccountRepository)(nil)

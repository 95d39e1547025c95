package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/exdock/exdock"
)

// optionChecker is the slice of the option store the value store needs to
// validate multiselect selections.
type optionChecker interface {
	MissingOptions(ctx context.Context, def exdock.AttributeDefinition, ids []int32) ([]int32, error)
}

// PostgresValueStore is the single write path for scoped attribute values. It
// resolves the target table from the registry, enforces type and scope, and
// keeps the identity table consistent with the scoped rows.
type PostgresValueStore struct {
	pool     dbPool
	registry exdock.AttributeRegistry
	options  optionChecker
	flags    exdock.FlagStore
}

func NewPostgresValueStore(pool dbPool, registry exdock.AttributeRegistry, options optionChecker, flags exdock.FlagStore) *PostgresValueStore {
	return &PostgresValueStore{
		pool:     pool,
		registry: registry,
		options:  options,
		flags:    flags,
	}
}

// rowKey builds the WHERE fragment and arguments addressing one scoped row.
// Placeholders start at $1: product_id, [scope id,] attribute_key.
func rowKey(scope exdock.ScopeKey, productID int64, attributeKey string) (string, []any) {
	col := scopeColumn(scope.Level)
	if col == "" {
		return "product_id = $1 AND attribute_key = $2", []any{productID, attributeKey}
	}
	return fmt.Sprintf("product_id = $1 AND %s = $2 AND attribute_key = $3", col), []any{productID, scope.ID(), attributeKey}
}

func (s *PostgresValueStore) SetValue(ctx context.Context, productID int64, scope exdock.ScopeKey, attributeKey string, value exdock.Value) error {
	def, err := s.registry.Lookup(ctx, attributeKey)
	if err != nil {
		return err
	}
	if err := checkScope(def, scope); err != nil {
		return err
	}
	if err := checkValueType(def, value); err != nil {
		return err
	}
	if def.Multiselect {
		missing, err := s.options.MissingOptions(ctx, def, value.Selection)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return exdock.NewUnknownOptionError(attributeKey, missing[0])
		}
	}

	arg, err := valueArg(def, value)
	if err != nil {
		return err
	}

	table := valueTable(def.Type, scope.Level, def.Multiselect)
	col := scopeColumn(scope.Level)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return exdock.NewStoreFailureError("begin value write transaction", err).WithKey(attributeKey)
	}
	defer tx.Rollback(ctx) // no-op if committed

	identityQuery := fmt.Sprintf(
		`INSERT INTO %s (product_id, attribute_key) VALUES ($1, $2) ON CONFLICT (product_id, attribute_key) DO NOTHING`,
		identityTable,
	)
	if _, err := tx.Exec(ctx, identityQuery, productID, attributeKey); err != nil {
		return exdock.NewStoreFailureError("upsert eav identity", err).WithKey(attributeKey)
	}

	var upsert string
	var args []any
	if col == "" {
		upsert = fmt.Sprintf(
			`INSERT INTO %s (product_id, attribute_key, value) VALUES ($1, $2, $3)
				ON CONFLICT (product_id, attribute_key) DO UPDATE SET value = EXCLUDED.value`,
			table,
		)
		args = []any{productID, attributeKey, arg}
	} else {
		upsert = fmt.Sprintf(
			`INSERT INTO %s (product_id, %s, attribute_key, value) VALUES ($1, $2, $3, $4)
				ON CONFLICT (product_id, %s, attribute_key) DO UPDATE SET value = EXCLUDED.value`,
			table, col, col,
		)
		args = []any{productID, scope.ID(), attributeKey, arg}
	}
	if _, err := tx.Exec(ctx, upsert, args...); err != nil {
		return exdock.NewStoreFailureError("upsert scoped attribute value", err).WithKey(attributeKey)
	}

	if err := tx.Commit(ctx); err != nil {
		return exdock.NewStoreFailureError("commit value write transaction", err).WithKey(attributeKey)
	}

	s.markDirty(ctx)
	zap.S().Debugw("value set", "product", productID, "key", attributeKey, "scope", scope.Level.String())
	return nil
}

// GetValue reads the exact scope only. Fallback across scope levels is the
// resolver's job, layered on top.
func (s *PostgresValueStore) GetValue(ctx context.Context, productID int64, scope exdock.ScopeKey, attributeKey string) (exdock.Value, error) {
	def, err := s.registry.Lookup(ctx, attributeKey)
	if err != nil {
		return exdock.Value{}, err
	}
	if err := checkScope(def, scope); err != nil {
		return exdock.Value{}, err
	}

	table := valueTable(def.Type, scope.Level, def.Multiselect)
	where, args := rowKey(scope, productID, attributeKey)
	query := fmt.Sprintf(`SELECT value FROM %s WHERE %s`, table, where)

	target := scanTarget(def)
	if err := s.pool.QueryRow(ctx, query, args...).Scan(target); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return exdock.Value{}, exdock.NewNotFoundError("no value at requested scope").WithKey(attributeKey)
		}
		return exdock.Value{}, exdock.NewStoreFailureError("select scoped attribute value", err).WithKey(attributeKey)
	}
	return valueFromScan(def, target)
}

// DeleteValue removes the scoped row. When it was the last row for the
// identity across every level the attribute can occupy, the identity row goes
// with it, in the same transaction.
func (s *PostgresValueStore) DeleteValue(ctx context.Context, productID int64, scope exdock.ScopeKey, attributeKey string) error {
	def, err := s.registry.Lookup(ctx, attributeKey)
	if err != nil {
		return err
	}
	if err := checkScope(def, scope); err != nil {
		return err
	}

	table := valueTable(def.Type, scope.Level, def.Multiselect)
	where, args := rowKey(scope, productID, attributeKey)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return exdock.NewStoreFailureError("begin value delete transaction", err).WithKey(attributeKey)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s`, table, where), args...)
	if err != nil {
		return exdock.NewStoreFailureError("delete scoped attribute value", err).WithKey(attributeKey)
	}
	if tag.RowsAffected() == 0 {
		return exdock.NewNotFoundError("no value at requested scope").WithKey(attributeKey)
	}

	remaining := false
	for _, t := range valueTablesFor(def) {
		query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE product_id = $1 AND attribute_key = $2)`, t)
		var exists bool
		if err := tx.QueryRow(ctx, query, productID, attributeKey).Scan(&exists); err != nil {
			return exdock.NewStoreFailureError("check remaining scoped values", err).WithKey(attributeKey)
		}
		if exists {
			remaining = true
			break
		}
	}
	if !remaining {
		query := fmt.Sprintf(`DELETE FROM %s WHERE product_id = $1 AND attribute_key = $2`, identityTable)
		if _, err := tx.Exec(ctx, query, productID, attributeKey); err != nil {
			return exdock.NewStoreFailureError("delete eav identity", err).WithKey(attributeKey)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return exdock.NewStoreFailureError("commit value delete transaction", err).WithKey(attributeKey)
	}

	s.markDirty(ctx)
	zap.S().Debugw("value deleted", "product", productID, "key", attributeKey, "scope", scope.Level.String())
	return nil
}

// DeleteProduct removes the product's identity rows and every scoped value row
// across all types and scopes. All-or-nothing: a failure on any table rolls
// the whole delete back.
func (s *PostgresValueStore) DeleteProduct(ctx context.Context, productID int64) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return exdock.NewStoreFailureError("begin product delete transaction", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range allValueTables() {
		query := fmt.Sprintf(`DELETE FROM %s WHERE product_id = $1`, table)
		if _, err := tx.Exec(ctx, query, productID); err != nil {
			return exdock.NewStoreFailureError("delete product scoped values", err)
		}
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE product_id = $1`, identityTable)
	if _, err := tx.Exec(ctx, query, productID); err != nil {
		return exdock.NewStoreFailureError("delete product eav identities", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return exdock.NewStoreFailureError("commit product delete transaction", err)
	}

	s.markDirty(ctx)
	zap.S().Infow("product values deleted", "product", productID)
	return nil
}

func (s *PostgresValueStore) markDirty(ctx context.Context) {
	if s.flags == nil {
		return
	}
	if err := s.flags.MarkDirty(ctx, exdock.CacheDomainProducts); err != nil {
		zap.S().Warnw("mark cache domain dirty", "domain", exdock.CacheDomainProducts, "error", err)
	}
}

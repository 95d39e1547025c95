package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/exdock/exdock"
)

const attributeTable = "custom_product_attributes"

// PostgresAttributeRegistry stores attribute definitions in Postgres and
// serves lookups from an in-process read-through cache. The cache is safe
// because definitions are immutable once referenced by values; mutations go
// through Define/Remove which invalidate it.
type PostgresAttributeRegistry struct {
	pool  dbPool
	flags exdock.FlagStore

	cacheMu sync.RWMutex
	cache   map[string]exdock.AttributeDefinition
}

func NewPostgresAttributeRegistry(pool dbPool, flags exdock.FlagStore) *PostgresAttributeRegistry {
	return &PostgresAttributeRegistry{
		pool:  pool,
		flags: flags,
		cache: make(map[string]exdock.AttributeDefinition),
	}
}

func validateDefinition(def exdock.AttributeDefinition) error {
	if def.Key == "" {
		return exdock.NewInvalidDefinitionError("attribute key must not be empty")
	}
	if _, ok := typeSuffix[def.Type]; !ok {
		return exdock.NewInvalidDefinitionError(fmt.Sprintf("unknown value type: %q", def.Type)).WithKey(def.Key)
	}
	if _, ok := scopeInfix[def.Scope]; !ok {
		return exdock.NewInvalidDefinitionError(fmt.Sprintf("unknown scope level: %d", def.Scope)).WithKey(def.Key)
	}
	return nil
}

func (r *PostgresAttributeRegistry) Define(ctx context.Context, def exdock.AttributeDefinition) (exdock.AttributeDefinition, error) {
	if err := validateDefinition(def); err != nil {
		return exdock.AttributeDefinition{}, err
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (attribute_key, scope, name, type, multiselect, required) VALUES ($1, $2, $3, $4, $5, $6)`,
		attributeTable,
	)
	if _, err := r.pool.Exec(ctx, query, def.Key, int16(def.Scope), def.Name, string(def.Type), def.Multiselect, def.Required); err != nil {
		if isUniqueViolation(err) {
			return exdock.AttributeDefinition{}, exdock.NewDuplicateKeyError(def.Key)
		}
		return exdock.AttributeDefinition{}, exdock.NewStoreFailureError("insert attribute definition", err).WithKey(def.Key)
	}

	r.cacheMu.Lock()
	r.cache[def.Key] = def
	r.cacheMu.Unlock()

	r.markDirty(ctx)
	zap.S().Infow("attribute defined", "key", def.Key, "type", def.Type, "scope", def.Scope.String())
	return def, nil
}

func (r *PostgresAttributeRegistry) Lookup(ctx context.Context, key string) (exdock.AttributeDefinition, error) {
	r.cacheMu.RLock()
	def, ok := r.cache[key]
	r.cacheMu.RUnlock()
	if ok {
		return def, nil
	}

	query := fmt.Sprintf(
		`SELECT attribute_key, scope, name, type, multiselect, required FROM %s WHERE attribute_key = $1`,
		attributeTable,
	)
	var scope int16
	var valueType string
	err := r.pool.QueryRow(ctx, query, key).Scan(&def.Key, &scope, &def.Name, &valueType, &def.Multiselect, &def.Required)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return exdock.AttributeDefinition{}, exdock.NewNotFoundError("attribute is not defined").WithKey(key)
		}
		return exdock.AttributeDefinition{}, exdock.NewStoreFailureError("select attribute definition", err).WithKey(key)
	}
	def.Scope = exdock.ScopeLevel(scope)
	def.Type = exdock.ValueType(valueType)

	r.cacheMu.Lock()
	r.cache[key] = def
	r.cacheMu.Unlock()
	return def, nil
}

func (r *PostgresAttributeRegistry) List(ctx context.Context) ([]exdock.AttributeDefinition, error) {
	query := fmt.Sprintf(
		`SELECT attribute_key, scope, name, type, multiselect, required FROM %s ORDER BY attribute_key`,
		attributeTable,
	)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, exdock.NewStoreFailureError("list attribute definitions", err)
	}
	defer rows.Close()

	var defs []exdock.AttributeDefinition
	for rows.Next() {
		var def exdock.AttributeDefinition
		var scope int16
		var valueType string
		if err := rows.Scan(&def.Key, &scope, &def.Name, &valueType, &def.Multiselect, &def.Required); err != nil {
			return nil, exdock.NewStoreFailureError("scan attribute definition", err)
		}
		def.Scope = exdock.ScopeLevel(scope)
		def.Type = exdock.ValueType(valueType)
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, exdock.NewStoreFailureError("iterate attribute definitions", err)
	}
	return defs, nil
}

// Remove deletes a definition. The value-reference guard runs first: while any
// scoped row references the key the delete fails with AttributeInUse; cascade
// removal is the explicit separate operation.
func (r *PostgresAttributeRegistry) Remove(ctx context.Context, key string) error {
	def, err := r.Lookup(ctx, key)
	if err != nil {
		return err
	}

	inUse, err := r.hasValueRows(ctx, def)
	if err != nil {
		return err
	}
	if inUse {
		return exdock.NewAttributeInUseError(key)
	}

	return r.deleteDefinition(ctx, def, false)
}

// RemoveCascade deletes the definition together with every scoped value row,
// identity row and option row that references it, in one transaction.
func (r *PostgresAttributeRegistry) RemoveCascade(ctx context.Context, key string) error {
	def, err := r.Lookup(ctx, key)
	if err != nil {
		return err
	}
	return r.deleteDefinition(ctx, def, true)
}

func (r *PostgresAttributeRegistry) hasValueRows(ctx context.Context, def exdock.AttributeDefinition) (bool, error) {
	for _, table := range valueTablesFor(def) {
		query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE attribute_key = $1)`, table)
		var exists bool
		if err := r.pool.QueryRow(ctx, query, def.Key).Scan(&exists); err != nil {
			return false, exdock.NewStoreFailureError("check attribute value references", err).WithKey(def.Key)
		}
		if exists {
			return true, nil
		}
	}
	return false, nil
}

func (r *PostgresAttributeRegistry) deleteDefinition(ctx context.Context, def exdock.AttributeDefinition, cascade bool) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return exdock.NewStoreFailureError("begin attribute removal transaction", err).WithKey(def.Key)
	}
	defer tx.Rollback(ctx) // no-op if committed

	if cascade {
		for _, table := range valueTablesFor(def) {
			query := fmt.Sprintf(`DELETE FROM %s WHERE attribute_key = $1`, table)
			if _, err := tx.Exec(ctx, query, def.Key); err != nil {
				return exdock.NewStoreFailureError("cascade delete attribute values", err).WithKey(def.Key)
			}
		}
		if def.Multiselect {
			query := fmt.Sprintf(`DELETE FROM %s WHERE attribute_key = $1`, optionTable(def.Type))
			if _, err := tx.Exec(ctx, query, def.Key); err != nil {
				return exdock.NewStoreFailureError("cascade delete attribute options", err).WithKey(def.Key)
			}
		}
		identityQuery := fmt.Sprintf(`DELETE FROM %s WHERE attribute_key = $1`, identityTable)
		if _, err := tx.Exec(ctx, identityQuery, def.Key); err != nil {
			return exdock.NewStoreFailureError("cascade delete attribute identities", err).WithKey(def.Key)
		}
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE attribute_key = $1`, attributeTable)
	tag, err := tx.Exec(ctx, query, def.Key)
	if err != nil {
		return exdock.NewStoreFailureError("delete attribute definition", err).WithKey(def.Key)
	}
	if tag.RowsAffected() == 0 {
		return exdock.NewNotFoundError("attribute is not defined").WithKey(def.Key)
	}

	if err := tx.Commit(ctx); err != nil {
		return exdock.NewStoreFailureError("commit attribute removal transaction", err).WithKey(def.Key)
	}

	r.cacheMu.Lock()
	delete(r.cache, def.Key)
	r.cacheMu.Unlock()

	r.markDirty(ctx)
	zap.S().Infow("attribute removed", "key", def.Key, "cascade", cascade)
	return nil
}

func (r *PostgresAttributeRegistry) markDirty(ctx context.Context) {
	if r.flags == nil {
		return
	}
	if err := r.flags.MarkDirty(ctx, exdock.CacheDomainProducts); err != nil {
		zap.S().Warnw("mark cache domain dirty", "domain", exdock.CacheDomainProducts, "error", err)
	}
}

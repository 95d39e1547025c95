package internal

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/exdock/exdock"
)

// PostgresOptionStore manages the option universe for multiselect attributes.
// Option IDs are allocated per attribute key, ascending from 1, inside the
// insert statement so concurrent AddOption calls cannot collide.
type PostgresOptionStore struct {
	pool     dbPool
	registry exdock.AttributeRegistry
	flags    exdock.FlagStore
}

func NewPostgresOptionStore(pool dbPool, registry exdock.AttributeRegistry, flags exdock.FlagStore) *PostgresOptionStore {
	return &PostgresOptionStore{
		pool:     pool,
		registry: registry,
		flags:    flags,
	}
}

func (s *PostgresOptionStore) multiselectDef(ctx context.Context, attributeKey string) (exdock.AttributeDefinition, error) {
	def, err := s.registry.Lookup(ctx, attributeKey)
	if err != nil {
		return exdock.AttributeDefinition{}, err
	}
	if !def.Multiselect {
		return exdock.AttributeDefinition{}, exdock.NewInvalidDefinitionError("attribute is not multiselect").WithKey(attributeKey)
	}
	return def, nil
}

func (s *PostgresOptionStore) AddOption(ctx context.Context, attributeKey string, value exdock.Value) (int32, error) {
	def, err := s.multiselectDef(ctx, attributeKey)
	if err != nil {
		return 0, err
	}
	arg, err := optionValueArg(def, value)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (attribute_key, option, value)
			SELECT $1, COALESCE(MAX(option), 0) + 1, $2 FROM %s WHERE attribute_key = $1
			RETURNING option`,
		optionTable(def.Type), optionTable(def.Type),
	)
	var id int32
	if err := s.pool.QueryRow(ctx, query, attributeKey, arg).Scan(&id); err != nil {
		return 0, exdock.NewStoreFailureError("insert multiselect option", err).WithKey(attributeKey)
	}

	zap.S().Debugw("option added", "key", attributeKey, "option", id)
	return id, nil
}

// ListOptions returns the option catalog ordered by id ascending. The read is
// restartable: re-issuing it yields the same prefix plus any appended options.
func (s *PostgresOptionStore) ListOptions(ctx context.Context, attributeKey string) ([]exdock.Option, error) {
	def, err := s.multiselectDef(ctx, attributeKey)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT option, value FROM %s WHERE attribute_key = $1 ORDER BY option ASC`,
		optionTable(def.Type),
	)
	rows, err := s.pool.Query(ctx, query, attributeKey)
	if err != nil {
		return nil, exdock.NewStoreFailureError("list multiselect options", err).WithKey(attributeKey)
	}
	defer rows.Close()

	scalarDef := def
	scalarDef.Multiselect = false

	var options []exdock.Option
	for rows.Next() {
		var id int32
		target := scanTarget(scalarDef)
		if err := rows.Scan(&id, target); err != nil {
			return nil, exdock.NewStoreFailureError("scan multiselect option", err).WithKey(attributeKey)
		}
		value, err := valueFromScan(scalarDef, target)
		if err != nil {
			return nil, exdock.NewStoreFailureError("decode multiselect option", err).WithKey(attributeKey)
		}
		options = append(options, exdock.Option{ID: id, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, exdock.NewStoreFailureError("iterate multiselect options", err).WithKey(attributeKey)
	}
	return options, nil
}

// RemoveOption deletes one option from the catalog. While any scoped value row
// still references the id the delete fails with OptionInUse.
func (s *PostgresOptionStore) RemoveOption(ctx context.Context, attributeKey string, optionID int32) error {
	def, err := s.multiselectDef(ctx, attributeKey)
	if err != nil {
		return err
	}

	for _, table := range valueTablesFor(def) {
		query := fmt.Sprintf(
			`SELECT EXISTS (SELECT 1 FROM %s WHERE attribute_key = $1 AND $2 = ANY(value))`,
			table,
		)
		var exists bool
		if err := s.pool.QueryRow(ctx, query, attributeKey, optionID).Scan(&exists); err != nil {
			return exdock.NewStoreFailureError("check option references", err).WithKey(attributeKey)
		}
		if exists {
			return exdock.NewOptionInUseError(attributeKey, optionID)
		}
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE attribute_key = $1 AND option = $2`, optionTable(def.Type))
	tag, err := s.pool.Exec(ctx, query, attributeKey, optionID)
	if err != nil {
		return exdock.NewStoreFailureError("delete multiselect option", err).WithKey(attributeKey)
	}
	if tag.RowsAffected() == 0 {
		return exdock.NewNotFoundError("option is not defined").WithKey(attributeKey).WithDetail("option", optionID)
	}

	zap.S().Debugw("option removed", "key", attributeKey, "option", optionID)
	return nil
}

// MissingOptions returns the selection ids that are absent from the option
// catalog, in selection order. Used by the value store to reject writes
// referencing unknown options.
func (s *PostgresOptionStore) MissingOptions(ctx context.Context, def exdock.AttributeDefinition, ids []int32) ([]int32, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		`SELECT option FROM %s WHERE attribute_key = $1 AND option = ANY($2)`,
		optionTable(def.Type),
	)
	rows, err := s.pool.Query(ctx, query, def.Key, ids)
	if err != nil {
		return nil, exdock.NewStoreFailureError("validate selection options", err).WithKey(def.Key)
	}
	defer rows.Close()

	known := NewSet[int32]()
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, exdock.NewStoreFailureError("scan selection option", err).WithKey(def.Key)
		}
		known.Add(id)
	}
	if err := rows.Err(); err != nil {
		return nil, exdock.NewStoreFailureError("iterate selection options", err).WithKey(def.Key)
	}

	var missing []int32
	for _, id := range ids {
		if !known.Contains(id) {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

var _ optionChecker = (*PostgresOptionStore)(nil)

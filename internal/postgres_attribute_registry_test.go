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

func newRegistryForTest(t *testing.T) (*PostgresAttributeRegistry, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresAttributeRegistry(mock, NewFlagSet()), mock
}

func TestRegistryDefine(t *testing.T) {
	registry, mock := newRegistryForTest(t)

	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO custom_product_attributes (attribute_key, scope, name, type, multiselect, required) VALUES ($1, $2, $3, $4, $5, $6)`,
	)).WithArgs("color", int16(exdock.ScopeStoreView), "Color", "string", false, false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	def, err := registry.Define(context.Background(), exdock.AttributeDefinition{
		Key:   "color",
		Scope: exdock.ScopeStoreView,
		Name:  "Color",
		Type:  exdock.ValueTypeString,
	})
	require.NoError(t, err)
	assert.Equal(t, "color", def.Key)
	require.NoError(t, mock.ExpectationsWereMet())

	// The fresh definition is served from the cache, no second query.
	cached, err := registry.Lookup(context.Background(), "color")
	require.NoError(t, err)
	assert.Equal(t, def, cached)
}

func TestRegistryDefineDuplicateKey(t *testing.T) {
	registry, mock := newRegistryForTest(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO custom_product_attributes`)).
		WithArgs("color", int16(exdock.ScopeGlobal), "Color", "string", false, false).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := registry.Define(context.Background(), exdock.AttributeDefinition{
		Key:   "color",
		Scope: exdock.ScopeGlobal,
		Name:  "Color",
		Type:  exdock.ValueTypeString,
	})
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeDuplicateKey))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryDefineRejectsInvalidDefinition(t *testing.T) {
	registry, _ := newRegistryForTest(t)

	_, err := registry.Define(context.Background(), exdock.AttributeDefinition{
		Key:  "",
		Type: exdock.ValueTypeString,
	})
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeInvalidDefinition))

	_, err = registry.Define(context.Background(), exdock.AttributeDefinition{
		Key:  "size",
		Type: exdock.ValueType("decimal"),
	})
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeInvalidDefinition))
}

func TestRegistryLookupNotFound(t *testing.T) {
	registry, mock := newRegistryForTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT attribute_key, scope, name, type, multiselect, required FROM custom_product_attributes WHERE attribute_key = $1`,
	)).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

	_, err := registry.Lookup(context.Background(), "ghost")
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryRemoveGuardsReferencedValues(t *testing.T) {
	registry, mock := newRegistryForTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT attribute_key, scope, name, type, multiselect, required`)).
		WithArgs("weight").
		WillReturnRows(pgxmock.NewRows([]string{"attribute_key", "scope", "name", "type", "multiselect", "required"}).
			AddRow("weight", int16(exdock.ScopeGlobal), "Weight", "float", false, false))
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT EXISTS (SELECT 1 FROM eav_global_float WHERE attribute_key = $1)`,
	)).WithArgs("weight").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := registry.Remove(context.Background(), "weight")
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeAttributeInUse))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryRemoveUnreferenced(t *testing.T) {
	registry, mock := newRegistryForTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT attribute_key, scope, name, type, multiselect, required`)).
		WithArgs("weight").
		WillReturnRows(pgxmock.NewRows([]string{"attribute_key", "scope", "name", "type", "multiselect", "required"}).
			AddRow("weight", int16(exdock.ScopeGlobal), "Weight", "float", false, false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM eav_global_float`)).
		WithArgs("weight").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM custom_product_attributes WHERE attribute_key = $1`)).
		WithArgs("weight").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	require.NoError(t, registry.Remove(context.Background(), "weight"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryRemoveCascadeMultiselect(t *testing.T) {
	registry, mock := newRegistryForTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT attribute_key, scope, name, type, multiselect, required`)).
		WithArgs("tags").
		WillReturnRows(pgxmock.NewRows([]string{"attribute_key", "scope", "name", "type", "multiselect", "required"}).
			AddRow("tags", int16(exdock.ScopeStoreView), "Tags", "string", true, false))

	mock.ExpectBegin()
	for _, table := range []string{"eav_global_multi_select", "eav_website_multi_select", "eav_store_view_multi_select"} {
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM ` + table + ` WHERE attribute_key = $1`)).
			WithArgs("tags").WillReturnResult(pgxmock.NewResult("DELETE", 2))
	}
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM multi_select_string WHERE attribute_key = $1`)).
		WithArgs("tags").WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM eav WHERE attribute_key = $1`)).
		WithArgs("tags").WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM custom_product_attributes WHERE attribute_key = $1`)).
		WithArgs("tags").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	require.NoError(t, registry.RemoveCascade(context.Background(), "tags"))
	require.NoError(t, mock.ExpectationsWereMet())
}

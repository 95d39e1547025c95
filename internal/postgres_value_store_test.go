package internal

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exdock/exdock"
)

// stubRegistry serves a fixed definition set without touching SQL.
type stubRegistry struct {
	defs map[string]exdock.AttributeDefinition
}

func (s *stubRegistry) Define(_ context.Context, def exdock.AttributeDefinition) (exdock.AttributeDefinition, error) {
	s.defs[def.Key] = def
	return def, nil
}

func (s *stubRegistry) Lookup(_ context.Context, key string) (exdock.AttributeDefinition, error) {
	def, ok := s.defs[key]
	if !ok {
		return exdock.AttributeDefinition{}, exdock.NewNotFoundError("attribute is not defined").WithKey(key)
	}
	return def, nil
}

func (s *stubRegistry) Remove(_ context.Context, key string) error {
	delete(s.defs, key)
	return nil
}

func (s *stubRegistry) RemoveCascade(ctx context.Context, key string) error {
	return s.Remove(ctx, key)
}

func (s *stubRegistry) List(_ context.Context) ([]exdock.AttributeDefinition, error) {
	defs := make([]exdock.AttributeDefinition, 0, len(s.defs))
	for _, def := range s.defs {
		defs = append(defs, def)
	}
	return defs, nil
}

// stubOptions reports a fixed set of known option ids.
type stubOptions struct {
	known map[int32]bool
}

func (s *stubOptions) MissingOptions(_ context.Context, _ exdock.AttributeDefinition, ids []int32) ([]int32, error) {
	var missing []int32
	for _, id := range ids {
		if !s.known[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func newValueStoreForTest(t *testing.T, defs ...exdock.AttributeDefinition) (*PostgresValueStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	registry := &stubRegistry{defs: make(map[string]exdock.AttributeDefinition)}
	for _, def := range defs {
		registry.defs[def.Key] = def
	}
	options := &stubOptions{known: map[int32]bool{1: true, 2: true, 3: true}}
	return NewPostgresValueStore(mock, registry, options, NewFlagSet()), mock
}

func TestSetValueGlobal(t *testing.T) {
	store, mock := newValueStoreForTest(t, exdock.AttributeDefinition{
		Key: "weight", Scope: exdock.ScopeGlobal, Type: exdock.ValueTypeFloat,
	})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO eav (product_id, attribute_key) VALUES ($1, $2) ON CONFLICT (product_id, attribute_key) DO NOTHING`,
	)).WithArgs(int64(42), "weight").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO eav_global_float (product_id, attribute_key, value) VALUES ($1, $2, $3)`)).
		WithArgs(int64(42), "weight", 1.5).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := store.SetValue(context.Background(), 42, exdock.GlobalScope(), "weight", exdock.FloatValue(1.5))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetValueStoreViewScope(t *testing.T) {
	store, mock := newValueStoreForTest(t, exdock.AttributeDefinition{
		Key: "label", Scope: exdock.ScopeStoreView, Type: exdock.ValueTypeString,
	})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO eav (product_id, attribute_key)`)).
		WithArgs(int64(7), "label").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO eav_store_view_string (product_id, store_view_id, attribute_key, value) VALUES ($1, $2, $3, $4)`,
	)).WithArgs(int64(7), int64(10), "label", "sale").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := store.SetValue(context.Background(), 7, exdock.StoreViewScope(10), "label", exdock.StringValue("sale"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetValueRejectsScopeMismatch(t *testing.T) {
	store, _ := newValueStoreForTest(t, exdock.AttributeDefinition{
		Key: "tax_class", Scope: exdock.ScopeWebsite, Type: exdock.ValueTypeInt,
	})

	err := store.SetValue(context.Background(), 1, exdock.GlobalScope(), "tax_class", exdock.IntValue(3))
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeScopeMismatch))
}

func TestSetValueRejectsTypeMismatch(t *testing.T) {
	store, _ := newValueStoreForTest(t, exdock.AttributeDefinition{
		Key: "weight", Scope: exdock.ScopeGlobal, Type: exdock.ValueTypeFloat,
	})

	err := store.SetValue(context.Background(), 1, exdock.GlobalScope(), "weight", exdock.StringValue("heavy"))
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeTypeMismatch))
}

func TestSetValueRejectsUnknownOption(t *testing.T) {
	store, _ := newValueStoreForTest(t, exdock.AttributeDefinition{
		Key: "tags", Scope: exdock.ScopeGlobal, Type: exdock.ValueTypeString, Multiselect: true,
	})

	err := store.SetValue(context.Background(), 1, exdock.GlobalScope(), "tags", exdock.SelectionValue(1, 9))
	require.True(t, exdock.IsCode(err, exdock.ErrCodeUnknownOption))

	var e *exdock.ExDockError
	require.True(t, errors.As(err, &e))
	assert.Equal(t, int32(9), e.Details["option"])
}

func TestGetValueNotFound(t *testing.T) {
	store, mock := newValueStoreForTest(t, exdock.AttributeDefinition{
		Key: "weight", Scope: exdock.ScopeGlobal, Type: exdock.ValueTypeFloat,
	})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM eav_global_float WHERE product_id = $1 AND attribute_key = $2`)).
		WithArgs(int64(42), "weight").WillReturnError(pgx.ErrNoRows)

	_, err := store.GetValue(context.Background(), 42, exdock.GlobalScope(), "weight")
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetValueScopedRead(t *testing.T) {
	store, mock := newValueStoreForTest(t, exdock.AttributeDefinition{
		Key: "price", Scope: exdock.ScopeWebsite, Type: exdock.ValueTypeMoney,
	})

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT value FROM eav_website_money WHERE product_id = $1 AND website_id = $2 AND attribute_key = $3`,
	)).WithArgs(int64(42), int64(2), "price").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(12.5))

	value, err := store.GetValue(context.Background(), 42, exdock.WebsiteScope(2), "price")
	require.NoError(t, err)
	m, ok := value.Money()
	require.True(t, ok)
	assert.Equal(t, 12.5, m)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteValueRemovesOrphanedIdentity(t *testing.T) {
	store, mock := newValueStoreForTest(t, exdock.AttributeDefinition{
		Key: "weight", Scope: exdock.ScopeGlobal, Type: exdock.ValueTypeFloat,
	})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM eav_global_float WHERE product_id = $1 AND attribute_key = $2`)).
		WithArgs(int64(42), "weight").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT EXISTS (SELECT 1 FROM eav_global_float WHERE product_id = $1 AND attribute_key = $2)`,
	)).WithArgs(int64(42), "weight").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM eav WHERE product_id = $1 AND attribute_key = $2`)).
		WithArgs(int64(42), "weight").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := store.DeleteValue(context.Background(), 42, exdock.GlobalScope(), "weight")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteValueKeepsIdentityWhileOtherScopesRemain(t *testing.T) {
	store, mock := newValueStoreForTest(t, exdock.AttributeDefinition{
		Key: "label", Scope: exdock.ScopeStoreView, Type: exdock.ValueTypeString,
	})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`DELETE FROM eav_store_view_string WHERE product_id = $1 AND store_view_id = $2 AND attribute_key = $3`,
	)).WithArgs(int64(7), int64(10), "label").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	// The global row survives, so the identity stays.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM eav_global_string`)).
		WithArgs(int64(7), "label").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := store.DeleteValue(context.Background(), 7, exdock.StoreViewScope(10), "label")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteValueNotFound(t *testing.T) {
	store, mock := newValueStoreForTest(t, exdock.AttributeDefinition{
		Key: "weight", Scope: exdock.ScopeGlobal, Type: exdock.ValueTypeFloat,
	})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM eav_global_float`)).
		WithArgs(int64(42), "weight").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := store.DeleteValue(context.Background(), 42, exdock.GlobalScope(), "weight")
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

// A failure on any table rolls the whole product delete back.
func TestDeleteProductRollsBackOnFailure(t *testing.T) {
	store, mock := newValueStoreForTest(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM eav_global_bool WHERE product_id = $1`)).
		WithArgs(int64(42)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM eav_global_int WHERE product_id = $1`)).
		WithArgs(int64(42)).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.DeleteProduct(context.Background(), 42)
	require.True(t, exdock.IsCode(err, exdock.ErrCodeStoreFailure))
	require.NoError(t, mock.ExpectationsWereMet())
}

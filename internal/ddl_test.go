package internal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaDDLCoversAllTables(t *testing.T) {
	ddl := SchemaDDL()

	for _, table := range []string{
		"custom_product_attributes", "eav", "store_views",
		"users", "backend_permissions",
	} {
		assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	for _, table := range allValueTables() {
		assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	for _, table := range []string{
		"multi_select_bool", "multi_select_int", "multi_select_float",
		"multi_select_string", "multi_select_money",
	} {
		assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestSchemaDDLIsIdempotent(t *testing.T) {
	ddl := SchemaDDL()
	assert.Zero(t, strings.Count(ddl, "CREATE TABLE ")-strings.Count(ddl, "CREATE TABLE IF NOT EXISTS "))
}

func TestSchemaDDLScopedColumns(t *testing.T) {
	ddl := SchemaDDL()
	assert.Contains(t, ddl, "eav_website_money")
	assert.Contains(t, ddl, "integer[]")
	assert.Contains(t, ddl, "numeric(12,2)")
}

package internal

import (
	"fmt"
	"strings"

	"github.com/exdock/exdock"
)

var valueColumnType = map[exdock.ValueType]string{
	exdock.ValueTypeBool:   "boolean",
	exdock.ValueTypeInt:    "bigint",
	exdock.ValueTypeFloat:  "double precision",
	exdock.ValueTypeString: "text",
	exdock.ValueTypeMoney:  "numeric(12,2)",
}

// SchemaDDL returns the full catalog schema: the attribute definition table,
// the identity table, the scoped value fan-out, the multiselect option
// catalogs, store hierarchy and the account tables. The statements are
// idempotent so tools and test harnesses can apply them repeatedly.
func SchemaDDL() string {
	var b strings.Builder

	b.WriteString(`CREATE TABLE IF NOT EXISTS custom_product_attributes (
	attribute_key text PRIMARY KEY,
	scope         smallint NOT NULL,
	name          text NOT NULL,
	type          text NOT NULL,
	multiselect   boolean NOT NULL DEFAULT false,
	required      boolean NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS eav (
	product_id    bigint NOT NULL,
	attribute_key text NOT NULL REFERENCES custom_product_attributes (attribute_key),
	PRIMARY KEY (product_id, attribute_key)
);

CREATE TABLE IF NOT EXISTS store_views (
	store_view_id bigint PRIMARY KEY,
	website_id    bigint NOT NULL
);

`)

	for _, s := range []exdock.ScopeLevel{exdock.ScopeGlobal, exdock.ScopeWebsite, exdock.ScopeStoreView} {
		for _, t := range exdock.ValueTypes() {
			writeValueTable(&b, valueTable(t, s, false), s, valueColumnType[t])
		}
		writeValueTable(&b, valueTable("", s, true), s, "integer[]")
	}

	for _, t := range exdock.ValueTypes() {
		fmt.Fprintf(&b, `CREATE TABLE IF NOT EXISTS %s (
	attribute_key text NOT NULL REFERENCES custom_product_attributes (attribute_key),
	option        integer NOT NULL,
	value         %s NOT NULL,
	PRIMARY KEY (attribute_key, option)
);

`, optionTable(t), valueColumnType[t])
	}

	b.WriteString(`CREATE TABLE IF NOT EXISTS users (
	user_id  bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	email    text NOT NULL UNIQUE,
	password text NOT NULL
);

CREATE TABLE IF NOT EXISTS backend_permissions (
	user_id           bigint PRIMARY KEY REFERENCES users (user_id),
	user_permissions  text NOT NULL DEFAULT 'none',
	server_settings   text NOT NULL DEFAULT 'none',
	template          text NOT NULL DEFAULT 'none',
	category_content  text NOT NULL DEFAULT 'none',
	category_products text NOT NULL DEFAULT 'none',
	product_content   text NOT NULL DEFAULT 'none',
	product_price     text NOT NULL DEFAULT 'none',
	product_warehouse text NOT NULL DEFAULT 'none',
	text_pages        text NOT NULL DEFAULT 'none',
	api_key           text NOT NULL DEFAULT ''
);
`)

	return b.String()
}

func writeValueTable(b *strings.Builder, table string, scope exdock.ScopeLevel, columnType string) {
	extra := scopeColumn(scope)
	keyColumns := "product_id, attribute_key"
	extraDDL := ""
	if extra != "" {
		keyColumns += ", " + extra
		extraDDL = fmt.Sprintf("\n\t%-13s bigint NOT NULL,", extra)
	}
	fmt.Fprintf(b, `CREATE TABLE IF NOT EXISTS %s (
	product_id    bigint NOT NULL,
	attribute_key text NOT NULL REFERENCES custom_product_attributes (attribute_key),%s
	value         %s NOT NULL,
	PRIMARY KEY (%s)
);

`, table, extraDDL, columnType, keyColumns)
}

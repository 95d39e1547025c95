package internal

import (
	"github.com/exdock/exdock"
)

// Table fan-out for the EAV layout: one identity table, fifteen scoped value
// tables (5 types x 3 scope levels) and five multiselect option tables. Names
// are fixed identifiers, never derived from user input.

const identityTable = "eav"

var typeSuffix = map[exdock.ValueType]string{
	exdock.ValueTypeBool:   "bool",
	exdock.ValueTypeInt:    "int",
	exdock.ValueTypeFloat:  "float",
	exdock.ValueTypeString: "string",
	exdock.ValueTypeMoney:  "money",
}

var scopeInfix = map[exdock.ScopeLevel]string{
	exdock.ScopeGlobal:    "global",
	exdock.ScopeWebsite:   "website",
	exdock.ScopeStoreView: "store_view",
}

// valueTable returns the scoped value table for a (type, scope) pair,
// e.g. "eav_store_view_money". Multiselect attributes use the same tables
// with an int-array value column regardless of their option type.
func valueTable(t exdock.ValueType, s exdock.ScopeLevel, multiselect bool) string {
	if multiselect {
		return "eav_" + scopeInfix[s] + "_multi_select"
	}
	return "eav_" + scopeInfix[s] + "_" + typeSuffix[t]
}

// optionTable returns the option catalog table for a multiselect attribute's
// declared type, e.g. "multi_select_string".
func optionTable(t exdock.ValueType) string {
	return "multi_select_" + typeSuffix[t]
}

// scopeColumn returns the partition column for a scope level, empty for global.
func scopeColumn(s exdock.ScopeLevel) string {
	switch s {
	case exdock.ScopeWebsite:
		return "website_id"
	case exdock.ScopeStoreView:
		return "store_view_id"
	default:
		return ""
	}
}

// writeLevels returns the scope levels an attribute accepts writes at. Global
// and website scoped attributes accept only their declared level; store-view
// scoped attributes accept every level of their fallback chain so that broader
// defaults can be stored underneath store-view overrides.
func writeLevels(declared exdock.ScopeLevel) []exdock.ScopeLevel {
	if declared == exdock.ScopeStoreView {
		return []exdock.ScopeLevel{exdock.ScopeGlobal, exdock.ScopeWebsite, exdock.ScopeStoreView}
	}
	return []exdock.ScopeLevel{declared}
}

func writeLevelAllowed(declared, requested exdock.ScopeLevel) bool {
	for _, l := range writeLevels(declared) {
		if l == requested {
			return true
		}
	}
	return false
}

// valueTablesFor lists every table that can hold values of the attribute,
// used by referential cleanup and the in-use guards.
func valueTablesFor(def exdock.AttributeDefinition) []string {
	levels := writeLevels(def.Scope)
	tables := make([]string, 0, len(levels))
	for _, l := range levels {
		tables = append(tables, valueTable(def.Type, l, def.Multiselect))
	}
	return tables
}

// allValueTables lists the full fan-out, used by whole-product deletes.
func allValueTables() []string {
	tables := make([]string, 0, 18)
	for _, s := range []exdock.ScopeLevel{exdock.ScopeGlobal, exdock.ScopeWebsite, exdock.ScopeStoreView} {
		for _, t := range exdock.ValueTypes() {
			tables = append(tables, valueTable(t, s, false))
		}
		tables = append(tables, valueTable("", s, true))
	}
	return tables
}

package internal

import (
	"fmt"

	"github.com/exdock/exdock"
)

// checkValueType validates a caller-supplied value against the attribute's
// declared type and multiselect flag before it gets near a statement.
func checkValueType(def exdock.AttributeDefinition, v exdock.Value) error {
	if def.Multiselect {
		if !v.IsSelection() {
			return exdock.NewTypeMismatchError("multiselect attribute requires a selection of option ids").WithKey(def.Key)
		}
		return nil
	}
	if v.IsSelection() {
		return exdock.NewTypeMismatchError("attribute is not multiselect").WithKey(def.Key)
	}
	if v.Type != def.Type {
		return exdock.NewTypeMismatchError(
			fmt.Sprintf("attribute declares type %s, got %s", def.Type, v.Type)).WithKey(def.Key)
	}
	if _, err := valueArg(def, v); err != nil {
		return err
	}
	return nil
}

// checkScope validates the write scope against the attribute's declared level.
func checkScope(def exdock.AttributeDefinition, scope exdock.ScopeKey) error {
	if !writeLevelAllowed(def.Scope, scope.Level) {
		return exdock.NewScopeMismatchError(
			fmt.Sprintf("attribute declares %s scope, got %s", def.Scope, scope.Level)).WithKey(def.Key)
	}
	if scope.Level == exdock.ScopeWebsite && scope.WebsiteID == 0 {
		return exdock.NewScopeMismatchError("website scope requires a website id").WithKey(def.Key)
	}
	if scope.Level == exdock.ScopeStoreView && scope.StoreViewID == 0 {
		return exdock.NewScopeMismatchError("store view scope requires a store view id").WithKey(def.Key)
	}
	return nil
}

// valueArg converts a validated value into the statement argument for its
// value column. Money is rounded to two decimals so upserts are idempotent.
func valueArg(def exdock.AttributeDefinition, v exdock.Value) (any, error) {
	if def.Multiselect {
		return v.Selection, nil
	}
	switch def.Type {
	case exdock.ValueTypeBool:
		b, ok := v.Bool()
		if !ok {
			return nil, exdock.NewTypeMismatchError("expected bool payload").WithKey(def.Key)
		}
		return b, nil
	case exdock.ValueTypeInt:
		i, ok := v.Int()
		if !ok {
			return nil, exdock.NewTypeMismatchError("expected int64 payload").WithKey(def.Key)
		}
		return i, nil
	case exdock.ValueTypeFloat:
		f, ok := v.Float()
		if !ok {
			return nil, exdock.NewTypeMismatchError("expected float64 payload").WithKey(def.Key)
		}
		return f, nil
	case exdock.ValueTypeString:
		s, ok := v.Str()
		if !ok {
			return nil, exdock.NewTypeMismatchError("expected string payload").WithKey(def.Key)
		}
		return s, nil
	case exdock.ValueTypeMoney:
		m, ok := v.Money()
		if !ok {
			return nil, exdock.NewTypeMismatchError("expected money payload").WithKey(def.Key)
		}
		return exdock.RoundMoney(m), nil
	default:
		return nil, exdock.NewInvalidDefinitionError(fmt.Sprintf("unsupported value type: %s", def.Type)).WithKey(def.Key)
	}
}

// scanTarget returns a pointer suitable for row.Scan into the attribute's
// value column.
func scanTarget(def exdock.AttributeDefinition) any {
	if def.Multiselect {
		return &[]int32{}
	}
	switch def.Type {
	case exdock.ValueTypeBool:
		return new(bool)
	case exdock.ValueTypeInt:
		return new(int64)
	case exdock.ValueTypeFloat, exdock.ValueTypeMoney:
		return new(float64)
	default:
		return new(string)
	}
}

// valueFromScan rebuilds the public Value from a scanned column.
func valueFromScan(def exdock.AttributeDefinition, target any) (exdock.Value, error) {
	if def.Multiselect {
		ids, ok := target.(*[]int32)
		if !ok {
			return exdock.Value{}, fmt.Errorf("unexpected scan target %T for multiselect", target)
		}
		return exdock.SelectionValue(*ids...), nil
	}
	switch def.Type {
	case exdock.ValueTypeBool:
		return exdock.BoolValue(*target.(*bool)), nil
	case exdock.ValueTypeInt:
		return exdock.IntValue(*target.(*int64)), nil
	case exdock.ValueTypeFloat:
		return exdock.FloatValue(*target.(*float64)), nil
	case exdock.ValueTypeMoney:
		return exdock.MoneyValue(*target.(*float64)), nil
	case exdock.ValueTypeString:
		return exdock.StringValue(*target.(*string)), nil
	default:
		return exdock.Value{}, fmt.Errorf("unsupported value type: %s", def.Type)
	}
}

// optionValueArg converts an option catalog value for the option table of the
// attribute's declared type. Options are always scalar, even for multiselect
// attributes; the multiselect flag applies to the scoped rows referencing them.
func optionValueArg(def exdock.AttributeDefinition, v exdock.Value) (any, error) {
	if v.IsSelection() {
		return nil, exdock.NewTypeMismatchError("option values must be scalar").WithKey(def.Key)
	}
	if v.Type != def.Type {
		return nil, exdock.NewTypeMismatchError(
			fmt.Sprintf("attribute declares type %s, got option of type %s", def.Type, v.Type)).WithKey(def.Key)
	}
	scalarDef := def
	scalarDef.Multiselect = false
	return valueArg(scalarDef, v)
}

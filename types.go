package exdock

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// ScopeLevel is the visibility level at which an attribute value applies.
// Levels are ordered from broadest to most specific.
type ScopeLevel int

const (
	ScopeGlobal ScopeLevel = iota
	ScopeWebsite
	ScopeStoreView
)

func (s ScopeLevel) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopeWebsite:
		return "website"
	case ScopeStoreView:
		return "store_view"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// ParseScopeLevel converts a wire-format scope name back into a ScopeLevel.
func ParseScopeLevel(name string) (ScopeLevel, error) {
	switch name {
	case "global":
		return ScopeGlobal, nil
	case "website":
		return ScopeWebsite, nil
	case "store_view":
		return ScopeStoreView, nil
	default:
		return 0, fmt.Errorf("unknown scope level: %q", name)
	}
}

// MarshalJSON writes the wire-format scope name rather than the ordinal.
func (s ScopeLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ScopeLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	level, err := ParseScopeLevel(name)
	if err != nil {
		return err
	}
	*s = level
	return nil
}

// ValueType represents supported attribute value types.
type ValueType string

const (
	ValueTypeBool   ValueType = "bool"
	ValueTypeInt    ValueType = "int"
	ValueTypeFloat  ValueType = "float"
	ValueTypeString ValueType = "string"
	ValueTypeMoney  ValueType = "money"
)

// ValueTypes lists every supported type in a stable order. Table fan-out and
// cascade deletes iterate over this.
func ValueTypes() []ValueType {
	return []ValueType{ValueTypeBool, ValueTypeInt, ValueTypeFloat, ValueTypeString, ValueTypeMoney}
}

// AttributeDefinition describes a custom product attribute. Key is unique
// across the catalog; Scope and Type determine which value table rows for this
// attribute occupy.
type AttributeDefinition struct {
	Key         string     `json:"key"`
	Scope       ScopeLevel `json:"scope"`
	Name        string     `json:"name"`
	Type        ValueType  `json:"type"`
	Multiselect bool       `json:"multiselect"`
	Required    bool       `json:"required"`
}

// ScopeKey addresses one partition of the scoped value tables. WebsiteID is
// set for website scope, StoreViewID for store-view scope; both are zero for
// global.
type ScopeKey struct {
	Level       ScopeLevel `json:"level"`
	WebsiteID   int64      `json:"websiteId,omitempty"`
	StoreViewID int64      `json:"storeViewId,omitempty"`
}

func GlobalScope() ScopeKey {
	return ScopeKey{Level: ScopeGlobal}
}

func WebsiteScope(websiteID int64) ScopeKey {
	return ScopeKey{Level: ScopeWebsite, WebsiteID: websiteID}
}

func StoreViewScope(storeViewID int64) ScopeKey {
	return ScopeKey{Level: ScopeStoreView, StoreViewID: storeViewID}
}

// ID returns the partition identifier for the scope key's level, zero for global.
func (k ScopeKey) ID() int64 {
	switch k.Level {
	case ScopeWebsite:
		return k.WebsiteID
	case ScopeStoreView:
		return k.StoreViewID
	default:
		return 0
	}
}

// Value is the tagged union carried across the value store boundary. Scalar
// values set Type and Data; multiselect values set Selection (the option IDs)
// and leave Data nil.
type Value struct {
	Type      ValueType `json:"type,omitempty"`
	Data      any       `json:"data,omitempty"`
	Selection []int32   `json:"selection,omitempty"`
}

func BoolValue(v bool) Value {
	return Value{Type: ValueTypeBool, Data: v}
}

func IntValue(v int64) Value {
	return Value{Type: ValueTypeInt, Data: v}
}

func FloatValue(v float64) Value {
	return Value{Type: ValueTypeFloat, Data: v}
}

func StringValue(v string) Value {
	return Value{Type: ValueTypeString, Data: v}
}

// MoneyValue rounds to two decimal places on construction so that the stored
// amount and every comparison against it share the same rounding semantics.
func MoneyValue(v float64) Value {
	return Value{Type: ValueTypeMoney, Data: RoundMoney(v)}
}

// SelectionValue builds a multiselect value referencing option IDs from the
// option store of the attribute's declared type.
func SelectionValue(ids ...int32) Value {
	if ids == nil {
		ids = []int32{}
	}
	return Value{Selection: ids}
}

// IsSelection reports whether the value is a multiselect option-ID set.
func (v Value) IsSelection() bool {
	return v.Selection != nil
}

func (v Value) Bool() (bool, bool) {
	b, ok := v.Data.(bool)
	return b, ok && v.Type == ValueTypeBool
}

func (v Value) Int() (int64, bool) {
	i, ok := v.Data.(int64)
	return i, ok && v.Type == ValueTypeInt
}

func (v Value) Float() (float64, bool) {
	f, ok := v.Data.(float64)
	return f, ok && v.Type == ValueTypeFloat
}

func (v Value) Str() (string, bool) {
	s, ok := v.Data.(string)
	return s, ok && v.Type == ValueTypeString
}

func (v Value) Money() (float64, bool) {
	f, ok := v.Data.(float64)
	return f, ok && v.Type == ValueTypeMoney
}

func (v Value) String() string {
	if v.IsSelection() {
		return fmt.Sprintf("selection%v", v.Selection)
	}
	return fmt.Sprintf("%v", v.Data)
}

// UnmarshalJSON restores the typed scalar behind Data: JSON numbers arrive as
// float64, so int values are narrowed back to int64 and money amounts are
// re-rounded to two decimals.
func (v *Value) UnmarshalJSON(data []byte) error {
	type wire Value
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*v = Value(w)
	switch v.Type {
	case ValueTypeInt:
		if f, ok := v.Data.(float64); ok {
			v.Data = int64(f)
		}
	case ValueTypeMoney:
		if f, ok := v.Data.(float64); ok {
			v.Data = RoundMoney(f)
		}
	}
	return nil
}

// RoundMoney normalizes a monetary amount to two decimal places.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// EavIdentity ties a product to an attribute key regardless of scope. A scoped
// value row cannot exist without its identity row.
type EavIdentity struct {
	ProductID    int64  `json:"productId"`
	AttributeKey string `json:"attributeKey"`
}

// Option is one selectable value of a multiselect attribute.
type Option struct {
	ID    int32 `json:"id"`
	Value Value `json:"value"`
}

// Reply is the result of an asynchronously dispatched operation.
type Reply struct {
	ID   uuid.UUID
	Body any
	Err  error
}

// Cache domains invalidated as a unit.
const (
	CacheDomainProducts   = "products"
	CacheDomainAccounts   = "accounts"
	CacheDomainCategories = "categories"
)

// Request payloads for the named dispatcher operations.

type DefineAttributeRequest struct {
	Definition AttributeDefinition `json:"definition"`
}

type RemoveAttributeRequest struct {
	Key     string `json:"key"`
	Cascade bool   `json:"cascade,omitempty"`
}

type SetValueRequest struct {
	ProductID    int64    `json:"productId"`
	Scope        ScopeKey `json:"scope"`
	AttributeKey string   `json:"attributeKey"`
	Value        Value    `json:"value"`
}

type GetValueRequest struct {
	ProductID    int64    `json:"productId"`
	Scope        ScopeKey `json:"scope"`
	AttributeKey string   `json:"attributeKey"`
}

type ResolveValueRequest struct {
	ProductID    int64  `json:"productId"`
	AttributeKey string `json:"attributeKey"`
	StoreViewID  int64  `json:"storeViewId"`
}

type DeleteValueRequest struct {
	ProductID    int64    `json:"productId"`
	Scope        ScopeKey `json:"scope"`
	AttributeKey string   `json:"attributeKey"`
}

type AddOptionRequest struct {
	AttributeKey string `json:"attributeKey"`
	Value        Value  `json:"value"`
}

type ListOptionsRequest struct {
	AttributeKey string `json:"attributeKey"`
}

type RemoveOptionRequest struct {
	AttributeKey string `json:"attributeKey"`
	OptionID     int32  `json:"optionId"`
}

type CacheDomainRequest struct {
	Domain string `json:"domain"`
}

package exdock

import (
	"context"
)

// AttributeRegistry holds the custom attribute definitions. Lookup is on the
// hot path of every value store operation and is served from an in-process
// read-through cache.
type AttributeRegistry interface {
	// Define registers a new attribute definition. Fails with DuplicateKey if
	// the key exists and InvalidDefinition if the definition is malformed.
	Define(ctx context.Context, def AttributeDefinition) (AttributeDefinition, error)
	// Lookup returns the definition for a key, or a NotFound error.
	Lookup(ctx context.Context, key string) (AttributeDefinition, error)
	// Remove deletes a definition. Fails with AttributeInUse while any scoped
	// value row still references the key.
	Remove(ctx context.Context, key string) error
	// RemoveCascade deletes a definition together with every value, identity
	// and option row referencing it, in one transaction.
	RemoveCascade(ctx context.Context, key string) error
	// List returns all registered definitions.
	List(ctx context.Context) ([]AttributeDefinition, error)
}

// ValueStore is the single read/write path for scoped attribute values. It
// hides the per-type, per-scope table fan-out behind a uniform interface and
// marks the product cache domain dirty on every successful write.
type ValueStore interface {
	// SetValue upserts the value at the exact scope. The attribute's declared
	// type and scope level are enforced; multiselect selections are validated
	// against the option store.
	SetValue(ctx context.Context, productID int64, scope ScopeKey, attributeKey string, value Value) error
	// GetValue reads the exact scope only; fallback is the resolver's job.
	GetValue(ctx context.Context, productID int64, scope ScopeKey, attributeKey string) (Value, error)
	// DeleteValue removes the scoped row and, when it was the last row for the
	// identity, the identity row as well, atomically.
	DeleteValue(ctx context.Context, productID int64, scope ScopeKey, attributeKey string) error
	// DeleteProduct removes the product's identity rows and every scoped value
	// row across all types and scopes in one transaction.
	DeleteProduct(ctx context.Context, productID int64) error
}

// OptionStore manages the option universe for multiselect attributes.
type OptionStore interface {
	// AddOption appends a new option and returns its id.
	AddOption(ctx context.Context, attributeKey string, value Value) (int32, error)
	// ListOptions returns the options ordered by id ascending.
	ListOptions(ctx context.Context, attributeKey string) ([]Option, error)
	// RemoveOption fails with OptionInUse while any scoped value still
	// references the option id.
	RemoveOption(ctx context.Context, attributeKey string, optionID int32) error
}

// Resolver computes the effective attribute value visible to a storefront
// render, applying hierarchical override: the most specific defined scope wins.
type Resolver interface {
	Resolve(ctx context.Context, productID int64, attributeKey string, storeViewID int64) (Value, error)
}

// StoreHierarchy maps a store view to its owning website. External
// collaborator of the resolver.
type StoreHierarchy interface {
	WebsiteFor(ctx context.Context, storeViewID int64) (int64, error)
}

// FlagStore is the cache invalidation bus: process-wide (or, backed by a
// shared store, deployment-wide) dirty flags per cache domain. Losing flag
// state is safe; reporting clean after an unacknowledged write is not, which
// is what the snapshot/compare-and-clear pair guards.
type FlagStore interface {
	MarkDirty(ctx context.Context, domain string) error
	IsDirty(ctx context.Context, domain string) (bool, error)
	// Snapshot returns an opaque token capturing the current write version of
	// the domain. Take it before starting a rebuild read.
	Snapshot(ctx context.Context, domain string) (uint64, error)
	// CompareAndClear clears the dirty flag only if no MarkDirty happened
	// after the snapshot was taken. Returns whether the clear was applied.
	CompareAndClear(ctx context.Context, domain string, snapshot uint64) (bool, error)
}

// Dispatcher maps named operations onto the catalog components and produces
// typed success or failure results. Call is synchronous; Send returns a
// single-reply channel for callers that want the request/reply style.
type Dispatcher interface {
	Call(ctx context.Context, op string, body any) (any, error)
	Send(ctx context.Context, op string, body any) <-chan Reply
	Operations() []string
}

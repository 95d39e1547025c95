package internal

import (
	"context"

	"github.com/exdock/exdock"
)

// ScopeResolver computes the effective attribute value for a storefront
// render. It holds no state of its own: every probe goes to the value store,
// so a cache layer in front of the store sees exactly the same traffic.
type ScopeResolver struct {
	registry  exdock.AttributeRegistry
	store     exdock.ValueStore
	hierarchy exdock.StoreHierarchy
}

func NewScopeResolver(registry exdock.AttributeRegistry, store exdock.ValueStore, hierarchy exdock.StoreHierarchy) *ScopeResolver {
	return &ScopeResolver{
		registry:  registry,
		store:     store,
		hierarchy: hierarchy,
	}
}

// probeChain builds the ordered list of scope keys to try, most specific
// first. Adding a scope level later means adding one entry here.
func (r *ScopeResolver) probeChain(ctx context.Context, def exdock.AttributeDefinition, storeViewID int64) ([]exdock.ScopeKey, error) {
	switch def.Scope {
	case exdock.ScopeGlobal:
		return []exdock.ScopeKey{exdock.GlobalScope()}, nil
	case exdock.ScopeWebsite:
		websiteID, err := r.hierarchy.WebsiteFor(ctx, storeViewID)
		if err != nil {
			return nil, err
		}
		// Website scoped attributes have no global row by construction, so the
		// chain stops here.
		return []exdock.ScopeKey{exdock.WebsiteScope(websiteID)}, nil
	case exdock.ScopeStoreView:
		websiteID, err := r.hierarchy.WebsiteFor(ctx, storeViewID)
		if err != nil {
			return nil, err
		}
		return []exdock.ScopeKey{
			exdock.StoreViewScope(storeViewID),
			exdock.WebsiteScope(websiteID),
			exdock.GlobalScope(),
		}, nil
	default:
		return nil, exdock.NewInvalidDefinitionError("attribute has an unknown scope level").WithKey(def.Key)
	}
}

// Resolve walks the attribute's scope chain and returns the first defined
// value. The most specific scope always wins when present, regardless of
// write recency.
func (r *ScopeResolver) Resolve(ctx context.Context, productID int64, attributeKey string, storeViewID int64) (exdock.Value, error) {
	def, err := r.registry.Lookup(ctx, attributeKey)
	if err != nil {
		return exdock.Value{}, err
	}

	probes, err := r.probeChain(ctx, def, storeViewID)
	if err != nil {
		return exdock.Value{}, err
	}

	for _, scope := range probes {
		value, err := r.store.GetValue(ctx, productID, scope, attributeKey)
		if err != nil {
			if exdock.IsCode(err, exdock.ErrCodeNotFound) {
				continue
			}
			return exdock.Value{}, err
		}
		return value, nil
	}
	return exdock.Value{}, exdock.NewNotFoundError("no value at any scope level").WithKey(attributeKey)
}

var _ exdock.Resolver = (*ScopeResolver)(nil)

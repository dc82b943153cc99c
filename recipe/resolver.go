package recipe

import (
	"context"
	"fmt"
)

// Resolver picks the best known recipe for a URL or domain.
// Priority: verified store recipe > unverified store recipe > catalog
// entry > none. Resolution is read-only; only the feedback loop mutates
// recipe state.
type Resolver struct {
	store   *Store
	catalog *Catalog
}

// Resolver priorities, high to low.
const (
	PriorityVerified = 3
	PriorityStore    = 2
	PriorityCatalog  = 1
	PriorityNone     = 0
)

// NewResolver builds a resolver. Either source may be nil.
func NewResolver(store *Store, catalog *Catalog) *Resolver {
	return &Resolver{store: store, catalog: catalog}
}

// Resolve normalizes the input and returns the highest-priority recipe.
// "No recipe" is not an error: the caller proceeds to the smart scraper.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*Resolution, error) {
	domain, err := NormalizeDomain(rawURL)
	if err != nil {
		return nil, err
	}

	if r.store != nil {
		rec, err := r.store.GetByDomain(ctx, domain)
		if err != nil {
			return nil, fmt.Errorf("recipe: resolve %s: %w", domain, err)
		}
		if rec != nil {
			prio := PriorityStore
			if rec.IsVerified {
				prio = PriorityVerified
			}
			return &Resolution{Source: SourceDatabase, Recipe: rec, Priority: prio}, nil
		}
	}

	if r.catalog != nil {
		if rec := r.catalog.Lookup(domain); rec != nil {
			return &Resolution{Source: SourceCatalog, Recipe: rec, Priority: PriorityCatalog}, nil
		}
	}

	return &Resolution{Source: SourceNone, Priority: PriorityNone}, nil
}

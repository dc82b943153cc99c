package recipe

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// catalogDoc is the on-disk shape of the static recipe catalog.
type catalogDoc struct {
	Sites []catalogSite `json:"sites"`
}

type catalogSite struct {
	Domain           string           `json:"domain"`
	Name             string           `json:"name"`
	Enabled          bool             `json:"enabled"`
	Selectors        Selectors        `json:"selectors"`
	ListingSelectors ListingSelectors `json:"listingSelectors,omitempty"`
	CleaningRules    []CleaningRule   `json:"cleaningRules,omitempty"`
	NeedsBrowser     bool             `json:"needsBrowser,omitempty"`
	OCRCapable       bool             `json:"ocrCapable,omitempty"`
	Confidence       float64          `json:"confidence,omitempty"`
}

// Catalog serves recipes from a static JSON file. It is an explicitly
// constructed service with a Load/Reload lifecycle: no ambient global
// state, so tests can run isolated instances. A failed Reload keeps the
// previous snapshot.
type Catalog struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	sites map[string]*Recipe // by normalized domain
}

// NewCatalog creates a catalog bound to a JSON file. Call Load before use.
// An empty path yields a valid, permanently empty catalog.
func NewCatalog(path string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		path:   path,
		logger: logger,
		sites:  map[string]*Recipe{},
	}
}

// Load reads and validates the catalog file. Any malformed entry aborts
// the load; on error the previous snapshot stays in place.
func (c *Catalog) Load() error {
	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("recipe: read catalog: %w", err)
	}

	var doc catalogDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("recipe: parse catalog: %w", err)
	}

	sites := make(map[string]*Recipe, len(doc.Sites))
	for i := range doc.Sites {
		site := &doc.Sites[i]
		if !site.Enabled {
			continue
		}
		r, err := site.toRecipe()
		if err != nil {
			return fmt.Errorf("recipe: catalog entry %d (%s): %w", i, site.Domain, err)
		}
		sites[r.Domain] = r
	}

	c.mu.Lock()
	c.sites = sites
	c.mu.Unlock()

	c.logger.Info("recipe: catalog loaded", "path", c.path, "sites", len(sites))
	return nil
}

// Reload is Load under its hot-reload name.
func (c *Catalog) Reload() error { return c.Load() }

// Lookup returns the catalog recipe for a normalized domain, or nil.
func (c *Catalog) Lookup(domain string) *Recipe {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sites[domain]
}

// Len returns the number of loaded sites.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sites)
}

func (s *catalogSite) toRecipe() (*Recipe, error) {
	domain, err := NormalizeDomain(s.Domain)
	if err != nil {
		return nil, err
	}

	confidence := s.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.5
	}

	r := &Recipe{
		ID:               "catalog:" + domain,
		Domain:           domain,
		Name:             s.Name,
		IsActive:         true,
		Selectors:        s.Selectors,
		ListingSelectors: s.ListingSelectors,
		CleaningRules:    s.CleaningRules,
		NeedsBrowser:     s.NeedsBrowser,
		OCRCapable:       s.OCRCapable,
		Confidence:       confidence,
	}
	if err := validateRecipeInput(r); err != nil {
		return nil, err
	}
	return r, nil
}

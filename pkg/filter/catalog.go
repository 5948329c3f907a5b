package filter

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/teslashibe/go-facefilter/internal/log"
)

// Catalog holds filter definitions keyed by id.
type Catalog struct {
	mu      sync.RWMutex
	filters map[string]*Filter
	order   []string
	logger  *slog.Logger

	// ids registered from each directory, replaced as a unit on reload
	owned map[string][]string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		filters: make(map[string]*Filter),
		logger:  log.Component("catalog"),
		owned:   make(map[string][]string),
	}
}

// Builtin returns a catalog pre-loaded with the embedded filters.
func Builtin() (*Catalog, error) {
	c := NewCatalog()
	if err := c.LoadBuiltIn(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadBuiltIn registers every embedded filter.
func (c *Catalog) LoadBuiltIn() error {
	filters, err := LoadEmbedded()
	if err != nil {
		return err
	}
	return c.RegisterAll(filters)
}

// LoadDir registers every filter file found in dir.
func (c *Catalog) LoadDir(dir string) error {
	return c.ReloadDir(dir)
}

// ReloadDir replaces the filters previously loaded from dir with its
// current contents. On any error the catalog is left unchanged.
func (c *Catalog) ReloadDir(dir string) error {
	filters, err := LoadFromDirectory(dir)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.owned[dir]
	seen := make(map[string]bool, len(filters))
	for _, f := range filters {
		_, exists := c.filters[f.ID]
		if seen[f.ID] || (exists && !lo.Contains(prev, f.ID)) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, f.ID)
		}
		seen[f.ID] = true
	}

	for _, id := range prev {
		delete(c.filters, id)
	}
	c.order = lo.Without(c.order, prev...)

	ids := make([]string, 0, len(filters))
	for _, f := range filters {
		if len(f.Overlays) == 0 {
			c.logger.Warn("filter has no overlays", "id", f.ID)
		}
		c.filters[f.ID] = f
		c.order = append(c.order, f.ID)
		ids = append(ids, f.ID)
	}
	c.owned[dir] = ids
	return nil
}

// RegisterAll registers filters in order, stopping at the first failure.
func (c *Catalog) RegisterAll(filters []*Filter) error {
	for _, f := range filters {
		if err := c.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// Register adds a filter. Ids must be unique across the catalog.
func (c *Catalog) Register(f *Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if len(f.Overlays) == 0 {
		c.logger.Warn("filter has no overlays", "id", f.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.filters[f.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, f.ID)
	}
	c.filters[f.ID] = f
	c.order = append(c.order, f.ID)
	return nil
}

// Remove deletes a filter. Unknown ids are ignored.
func (c *Catalog) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.filters[id]; !ok {
		return
	}
	delete(c.filters, id)
	c.order = lo.Without(c.order, id)
}

// Get retrieves a filter by id.
func (c *Catalog) Get(id string) (*Filter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, ok := c.filters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return f, nil
}

// List returns all filters in registration order.
func (c *Catalog) List() []*Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return lo.Map(c.order, func(id string, _ int) *Filter {
		return c.filters[id]
	})
}

// IDs returns all filter ids, sorted alphabetically.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := lo.Keys(c.filters)
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered filters.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.filters)
}

package catalog

import (
	"context"
	"sync"

	"github.com/agrolink/tradepost/internal/fault"
)

// MemCatalog is an in-memory Catalog for tests and local runs.
type MemCatalog struct {
	mu    sync.RWMutex
	items map[string]Item
}

func NewMemCatalog(items ...Item) *MemCatalog {
	c := &MemCatalog{items: make(map[string]Item, len(items))}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (c *MemCatalog) GetItem(_ context.Context, inventoryID string) (Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[inventoryID]
	if !ok {
		return Item{}, fault.NotFound("inventory item %s not found", inventoryID)
	}
	return it, nil
}

// Put replaces an item; later catalog edits must not affect stored orders.
func (c *MemCatalog) Put(it Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[it.ID] = it
}

package game

import "sync"

type Factory func() Adapter

// Catalog maps a gameType to the adapter variant that serves it.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

func (c *Catalog) Register(gameType string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[gameType] = f
}

// New returns a fresh adapter, or ok=false when gameType is unknown.
func (c *Catalog) New(gameType string) (Adapter, bool) {
	c.mu.RLock()
	f, ok := c.factories[gameType]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return f(), true
}

func (c *Catalog) Has(gameType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[gameType]
	return ok
}

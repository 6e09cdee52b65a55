package memory

import "sync"

// WriteOnce is a threadsafe map whose entries can be set once and are never
// evicted or overwritten. The zero value is not usable; use NewWriteOnce.
type WriteOnce[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func NewWriteOnce[K comparable, V any]() *WriteOnce[K, V] {
	return &WriteOnce[K, V]{items: make(map[K]V)}
}

func (c *WriteOnce[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

// SetIfAbsent stores value unless key is already present. It returns the
// value held after the call and whether this call stored it.
func (c *WriteOnce[K, V]) SetIfAbsent(key K, value V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.items[key]; ok {
		return v, false
	}
	c.items[key] = value
	return value, true
}

func (c *WriteOnce[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Snapshot copies the current entries.
func (c *WriteOnce[K, V]) Snapshot() map[K]V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[K]V, len(c.items))
	for k, v := range c.items {
		out[k] = v
	}
	return out
}

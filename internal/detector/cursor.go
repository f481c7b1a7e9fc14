package detector

import "sync"

// Cursor remembers the dedup key of the newest notice already handled for
// one source. The zero value is an unset cursor.
type Cursor struct {
	mu  sync.Mutex
	key string
}

func (c *Cursor) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

func (c *Cursor) Set(key string) {
	c.mu.Lock()
	c.key = key
	c.mu.Unlock()
}

// Package stripecache provides an in-memory LRU cache for encoded stripe
// query results. Values are held snappy-compressed and bounded by a total
// byte budget; any write to the store purges the cache, so entries never
// outlive the data they were computed from.
package stripecache

import (
	"container/list"
	"strconv"
	"sync"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"
)

// Key identifies one cached result: the 128-bit murmur3 hash of the full
// query descriptor.
type Key [16]byte

// KeyOf hashes the descriptor parts into a Key. Parts are length-prefixed so
// distinct part lists never collide by concatenation.
func KeyOf(parts ...string) Key {
	h := murmur3.New128()
	for _, part := range parts {
		h.Write([]byte(strconv.Itoa(len(part))))
		h.Write([]byte{':'})
		h.Write([]byte(part))
	}
	var key Key
	h.Sum(key[:0])
	return key
}

// Cache is an LRU cache from Key to a compressed value. It tracks entries by
// compressed size and evicts least-recently-used entries when the total
// exceeds the configured maximum.
type Cache struct {
	mu       sync.Mutex
	maxBytes int64
	curBytes int64

	// items maps key → list element (whose value is *entry)
	items map[Key]*list.Element
	order *list.List // front = most recently used
}

type entry struct {
	key  Key
	blob []byte
}

// New creates an LRU stripe cache. maxBytes is the maximum total compressed
// size of cached values (default 8MB).
func New(maxBytes int64) *Cache {
	if maxBytes <= 0 {
		maxBytes = 8 * 1024 * 1024 // 8 MB
	}
	return &Cache{
		maxBytes: maxBytes,
		items:    make(map[Key]*list.Element),
		order:    list.New(),
	}
}

// Get returns the decompressed value for key, or false if not cached. On hit
// the entry is promoted to most-recently-used. An entry that no longer
// decompresses is evicted and reported as a miss.
func (c *Cache) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}

	value, err := snappy.Decode(nil, elem.Value.(*entry).blob)
	if err != nil {
		c.removeLocked(elem)
		return nil, false
	}

	c.order.MoveToFront(elem)
	return value, true
}

// Put compresses and stores a value under key. If adding the entry pushes
// the total over maxBytes, LRU entries are evicted.
func (c *Cache) Put(key Key, value []byte) {
	blob := snappy.Encode(nil, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		old := elem.Value.(*entry)
		c.curBytes -= int64(len(old.blob))
		old.blob = blob
		c.curBytes += int64(len(blob))
		c.order.MoveToFront(elem)
	} else {
		elem := c.order.PushFront(&entry{key: key, blob: blob})
		c.items[key] = elem
		c.curBytes += int64(len(blob))
	}

	for c.curBytes > c.maxBytes && c.order.Len() > 1 {
		c.evictOldestLocked()
	}
}

// evictOldestLocked removes the least-recently-used entry.
// Caller must hold c.mu.
func (c *Cache) evictOldestLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	c.removeLocked(back)
}

// removeLocked removes a specific element from the cache.
// Caller must hold c.mu.
func (c *Cache) removeLocked(elem *list.Element) {
	e := elem.Value.(*entry)
	c.order.Remove(elem)
	delete(c.items, e.key)
	c.curBytes -= int64(len(e.blob))
}

// Purge removes every entry. Write paths call this so stale aggregations are
// never served after the store changes.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[Key]*list.Element)
	c.order.Init()
	c.curBytes = 0
}

// Size returns the current total compressed size in bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curBytes
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

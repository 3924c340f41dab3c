package recommend

import (
	"container/list"
	"strconv"
	"strings"
	"sync"

	"github.com/hyperjump/movierec/internal/models"
)

// ResultCache is an LRU cache of recommendation results keyed by lower-cased
// title and k. Results are deterministic, so a hit is indistinguishable from
// a fresh lookup.
type ResultCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []models.Item
}

// NewResultCache creates a new cache with the given capacity.
func NewResultCache(capacity int) *ResultCache {
	return &ResultCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func cacheKey(title string, k int) string {
	return strings.ToLower(title) + "\x00" + strconv.Itoa(k)
}

// Get returns a copy of the cached result for (title, k) if present.
func (c *ResultCache) Get(title string, k int) ([]models.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[cacheKey(title, k)]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return cloneItems(elem.Value.(*cacheEntry).value), true
}

// Set stores the result for (title, k), evicting the oldest entry if at capacity.
func (c *ResultCache) Set(title string, k int, items []models.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(title, k)
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = cloneItems(items)
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, value: cloneItems(items)})
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func cloneItems(items []models.Item) []models.Item {
	out := make([]models.Item, len(items))
	copy(out, items)
	return out
}

package encoder

import (
	"container/list"
	"context"
	"sync"
)

// CachedEmbedder wraps an Embedder with a bounded, content-addressed LRU
// cache keyed on the exact canonical text. A single mutex is enough since
// hits and misses both need to mutate LRU order.
type CachedEmbedder struct {
	inner Embedder
	cap   int

	mu    sync.Mutex
	ll    *list.List
	items map[string]*list.Element
}

type cacheEntry struct {
	text string
	vec  []float32
}

// NewCachedEmbedder wraps inner with an LRU cache holding up to capacity
// distinct texts. A non-positive capacity disables caching.
func NewCachedEmbedder(inner Embedder, capacity int) *CachedEmbedder {
	return &CachedEmbedder{
		inner: inner,
		cap:   capacity,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *CachedEmbedder) Dim() int { return c.inner.Dim() }

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.cap <= 0 {
		v, err := c.inner.Embed(ctx, text)
		return v, wrapEmbedderErr(err)
	}

	c.mu.Lock()
	if el, ok := c.items[text]; ok {
		c.ll.MoveToFront(el)
		vec := el.Value.(*cacheEntry).vec
		c.mu.Unlock()
		return vec, nil
	}
	c.mu.Unlock()

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, wrapEmbedderErr(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[text]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*cacheEntry).vec, nil
	}
	el := c.ll.PushFront(&cacheEntry{text: text, vec: vec})
	c.items[text] = el
	if c.ll.Len() > c.cap {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).text)
		}
	}
	return vec, nil
}

// Len reports the current number of cached entries, for metrics and tests.
func (c *CachedEmbedder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

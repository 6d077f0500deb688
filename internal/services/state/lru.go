package state

import "container/list"

// routeCache is a bounded LRU of route results. It is only touched from the
// coordinator loop, so it carries no lock.
type routeCache[K comparable, V any] struct {
	items   map[K]*list.Element
	lru     *list.List
	maxSize int
}

type cacheEntry[K comparable, V any] struct {
	key   K
	value V
}

func newRouteCache[K comparable, V any](maxSize int) *routeCache[K, V] {
	return &routeCache[K, V]{
		items:   make(map[K]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

func (c *routeCache[K, V]) Get(key K) (V, bool) {
	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry[K, V]).value, true
}

func (c *routeCache[K, V]) Set(key K, value V) {
	if c.maxSize <= 0 {
		return
	}
	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry[K, V]).value = value
		return
	}

	for len(c.items) >= c.maxSize {
		back := c.lru.Back()
		if back == nil {
			break
		}
		c.lru.Remove(back)
		delete(c.items, back.Value.(*cacheEntry[K, V]).key)
	}

	c.items[key] = c.lru.PushFront(&cacheEntry[K, V]{key: key, value: value})
}

func (c *routeCache[K, V]) Len() int {
	return len(c.items)
}

func (c *routeCache[K, V]) Clear() {
	if len(c.items) == 0 {
		return
	}
	c.items = make(map[K]*list.Element, c.maxSize)
	c.lru.Init()
}

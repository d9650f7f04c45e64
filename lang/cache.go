package lang

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/livexpr/log"
)

// DefaultCacheSize is the capacity of [DefaultCache].
const DefaultCacheSize = 1024

// DefaultCache memoizes [Parse] unless another cache is selected.
var DefaultCache = NewCache(DefaultCacheSize)

// Cache is a bounded, least-recently-used memo of parse results keyed by
// source text and the trailing-text mode. It hands out clones only; the
// stored trees are never bound. A Cache is safe for concurrent use.
type Cache struct {
	lru *lru.Cache
}

type cacheKey struct {
	hash     uint64
	trailing bool
}

type cacheEntry struct {
	ast  Node
	src  string
	stop int
}

// NewCache returns a cache holding at most size parse results.
// A size below one is raised to one.
func NewCache(size int) *Cache {
	c, err := lru.New(max(1, size))
	if err != nil {
		panic(err)
	}

	return &Cache{lru: c}
}

// Len returns the number of cached parse results.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge empties the cache.
func (c *Cache) Purge() { c.lru.Purge() }

func (c *Cache) parse(text string, trailing bool, logger log.Logger) (Node, int, error) {
	key := cacheKey{hash: xxh3.HashString(text), trailing: trailing}

	if v, ok := c.lru.Get(key); ok {
		if e := v.(cacheEntry); e.src == text {
			logger.Trace("parse cache hit",
				slog.String("source", text),
				slog.Bool("trailing", trailing))

			return e.ast.Clone(), e.stop, nil
		}
	}

	n, stop, err := parse(text, trailing)
	if err != nil {
		return nil, 0, err
	}

	evicted := c.lru.Add(key, cacheEntry{ast: n, src: text, stop: stop})

	logger.Trace("parse cache miss",
		slog.String("source", text),
		slog.Bool("trailing", trailing),
		slog.Bool("evicted", evicted))

	return n.Clone(), stop, nil
}

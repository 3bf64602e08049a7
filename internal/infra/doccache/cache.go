// Package doccache decorates a document gateway with an in-memory LRU for
// point reads. Writes go through to the backing gateway first.
package doccache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/chompy-labs/chompy/internal/domain"
	"github.com/chompy-labs/chompy/internal/infra/metrics"
)

// Gateway is a read-through, write-through cache over another gateway.
// List is never cached.
type Gateway struct {
	next domain.Gateway
	lru  *expirable.LRU[string, []byte]
}

// New wraps next with a cache of size entries expiring after ttl.
func New(next domain.Gateway, size int, ttl time.Duration) *Gateway {
	return &Gateway{
		next: next,
		lru:  expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

func cacheKey(userID string, entity domain.EntityType, key string) string {
	return userID + "\x00" + string(entity) + "\x00" + key
}

// Load serves from cache, falling back to the backing gateway.
// Absent documents are not cached.
func (g *Gateway) Load(ctx context.Context, userID string, entity domain.EntityType, key string) ([]byte, bool, error) {
	k := cacheKey(userID, entity, key)
	if doc, ok := g.lru.Get(k); ok {
		metrics.DocCacheHits.WithLabelValues("hit").Inc()
		return clone(doc), true, nil
	}
	metrics.DocCacheHits.WithLabelValues("miss").Inc()

	doc, found, err := g.next.Load(ctx, userID, entity, key)
	if err != nil || !found {
		return doc, found, err
	}
	g.lru.Add(k, clone(doc))
	return doc, true, nil
}

// Save writes to the backing gateway, then refreshes the cached copy.
// A failed write evicts the entry so the next read goes to storage.
func (g *Gateway) Save(ctx context.Context, userID string, entity domain.EntityType, key string, doc []byte) error {
	k := cacheKey(userID, entity, key)
	if err := g.next.Save(ctx, userID, entity, key, doc); err != nil {
		g.lru.Remove(k)
		return err
	}
	g.lru.Add(k, clone(doc))
	return nil
}

// List always reads the backing gateway.
func (g *Gateway) List(ctx context.Context, userID string, entity domain.EntityType) ([][]byte, error) {
	return g.next.List(ctx, userID, entity)
}

// Len returns the number of cached documents.
func (g *Gateway) Len() int {
	return g.lru.Len()
}

// Purge drops every cached document.
func (g *Gateway) Purge() {
	g.lru.Purge()
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

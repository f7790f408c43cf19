// Package catalog serves celestial body searches through a short-lived
// in-memory cache.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"skydish/internal/models"
)

// Searcher is the underlying catalog query.
type Searcher interface {
	SearchCelestialBodies(ctx context.Context, query string, limit int) ([]models.CelestialBody, error)
}

// Cache is a read-through cache in front of catalog searches. The
// catalog only changes on fleet syncs, so a short TTL keeps repeated
// searches off the database without serving stale entries for long.
type Cache struct {
	source Searcher
	cache  *gocache.Cache
	logger zerolog.Logger
}

// NewCache wraps source with a TTL cache.
func NewCache(source Searcher, ttl time.Duration, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		source: source,
		cache:  gocache.New(ttl, 2*ttl),
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// Search returns catalog entries whose name contains query. Results are
// cached per normalized query.
func (c *Cache) Search(ctx context.Context, query string, limit int) ([]models.CelestialBody, error) {
	key := fmt.Sprintf("%s|%d", strings.ToLower(strings.TrimSpace(query)), limit)
	if hit, found := c.cache.Get(key); found {
		return hit.([]models.CelestialBody), nil
	}

	bodies, err := c.source.SearchCelestialBodies(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, bodies, gocache.DefaultExpiration)
	return bodies, nil
}

// Invalidate drops every cached search result. Called after fleet syncs.
func (c *Cache) Invalidate() {
	c.cache.Flush()
	c.logger.Debug().Msg("catalog cache flushed")
}

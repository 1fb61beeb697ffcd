package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/samirrijal/aoiexplorer/internal/core/ports"
	"github.com/samirrijal/aoiexplorer/internal/pkg/geospatial"
	"github.com/samirrijal/aoiexplorer/internal/pkg/metrics"
)

const cacheKeyPrefix = "aoi:result:"

// CachedTransport serves repeated (endpoint, AOI) queries from a short-lived
// cache. Only successful results are stored. Cache failures fall through to
// the wrapped transport.
type CachedTransport struct {
	next   ports.QueryTransport
	cache  ports.CacheService
	ttl    int
	logger *slog.Logger
}

// NewCachedTransport wraps next with cache.
func NewCachedTransport(next ports.QueryTransport, cache ports.CacheService, ttlSeconds int, logger *slog.Logger) *CachedTransport {
	return &CachedTransport{next: next, cache: cache, ttl: ttlSeconds, logger: logger}
}

func (t *CachedTransport) Fetch(ctx context.Context, endpointID string, ring orb.Ring) (json.RawMessage, error) {
	key, err := CacheKey(endpointID, ring)
	if err != nil {
		return t.next.Fetch(ctx, endpointID, ring)
	}

	cached, err := t.cache.Get(ctx, key)
	switch {
	case err != nil:
		t.logger.Warn("result cache read failed", "key", key, "error", err)
	case cached != nil && json.Valid(cached):
		metrics.CacheHits.WithLabelValues("fetch").Inc()
		return json.RawMessage(cached), nil
	case cached != nil:
		metrics.CacheMisses.WithLabelValues("fetch").Inc()
		t.logger.Warn("evicting corrupt cached result", "key", key)
		if err := t.cache.Delete(ctx, key); err != nil {
			t.logger.Warn("result cache delete failed", "key", key, "error", err)
		}
	default:
		metrics.CacheMisses.WithLabelValues("fetch").Inc()
	}

	payload, err := t.next.Fetch(ctx, endpointID, ring)
	if err != nil {
		return nil, err
	}
	if err := t.cache.Set(ctx, key, payload, t.ttl); err != nil {
		t.logger.Warn("result cache write failed", "key", key, "error", err)
	}
	return payload, nil
}

func (t *CachedTransport) Ping(ctx context.Context) error {
	return t.next.Ping(ctx)
}

// CacheKey derives the cache key for an (endpoint, AOI) pair.
func CacheKey(endpointID string, ring orb.Ring) (string, error) {
	data, err := geospatial.MarshalRing(ring)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + endpointID + ":" + hex.EncodeToString(sum[:]), nil
}

package risk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claimpay/claims-core/internal/domain/claim"
	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CachedHistorySource resolves provider claim-outcome history from Postgres
// with a Redis cache in front. History only changes when a claim reaches a
// terminal assessment, so a short TTL keeps scoring cheap without letting
// the rates go stale.
type CachedHistorySource struct {
	logger *slog.Logger
	claims claim.Repository
	cache  *redis.Client
	ttl    time.Duration
}

func NewCachedHistorySource(logger *slog.Logger, claims claim.Repository, cache *redis.Client, ttl time.Duration) *CachedHistorySource {
	return &CachedHistorySource{
		logger: logger,
		claims: claims,
		cache:  cache,
		ttl:    ttl,
	}
}

func historyCacheKey(providerID uuid.UUID) string {
	return "provider_history:" + providerID.String()
}

// History returns the provider's accepted/total assessed claim counts.
// Cache failures fall through to the database.
func (s *CachedHistorySource) History(ctx context.Context, providerID uuid.UUID) (provider.History, error) {
	key := historyCacheKey(providerID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			var h provider.History
			if err := json.Unmarshal([]byte(cached), &h); err == nil {
				return h, nil
			}
			// Corrupt cache entry; drop it and recompute.
			s.cache.Del(ctx, key)
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Provider history cache read failed",
				"provider_id", providerID.String(),
				"error", err,
			)
		}
	}

	accepted, total, err := s.claims.OutcomeCounts(ctx, providerID)
	if err != nil {
		return provider.History{}, fmt.Errorf("failed to load provider history: %w", err)
	}

	h := provider.History{AcceptedClaims: accepted, TotalClaims: total}

	if s.cache != nil {
		payload, err := json.Marshal(h)
		if err == nil {
			if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
				s.logger.Warn("Provider history cache write failed",
					"provider_id", providerID.String(),
					"error", err,
				)
			}
		}
	}

	return h, nil
}

// Invalidate drops the cached history for a provider. The pipeline calls
// this after each terminal assessment so the next score sees it.
func (s *CachedHistorySource) Invalidate(ctx context.Context, providerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, historyCacheKey(providerID)).Err(); err != nil {
		s.logger.Warn("Provider history cache invalidation failed",
			"provider_id", providerID.String(),
			"error", err,
		)
	}
}

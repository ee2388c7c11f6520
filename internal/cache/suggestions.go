package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/themobileprof/medoffice-be/internal/db"
)

const suggestionKeyPrefix = "suggestion:"

// SuggestionCache stores suggestion records as JSON.
// Backend failures are logged and treated as misses.
type SuggestionCache struct {
	backend Cache
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewSuggestionCache wraps a backend. A nil backend disables caching.
func NewSuggestionCache(backend Cache, ttl time.Duration, logger zerolog.Logger) *SuggestionCache {
	if backend == nil {
		backend = Noop{}
	}
	return &SuggestionCache{backend: backend, ttl: ttl, logger: logger}
}

// SuggestionKey returns the cache key of a suggestion id
func SuggestionKey(id string) string {
	return suggestionKeyPrefix + id
}

// Get returns the cached record, or false on a miss
func (c *SuggestionCache) Get(ctx context.Context, id string) (*db.SuggestionRecord, bool) {
	data, err := c.backend.Get(ctx, SuggestionKey(id))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn().Err(err).Str("suggestion_id", id).Msg("cache read failed")
		}
		return nil, false
	}

	var rec db.SuggestionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		c.logger.Warn().Err(err).Str("suggestion_id", id).Msg("discarding corrupt cache entry")
		_ = c.backend.Delete(ctx, SuggestionKey(id))
		return nil, false
	}
	return &rec, true
}

// Put caches a record
func (c *SuggestionCache) Put(ctx context.Context, rec *db.SuggestionRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		c.logger.Warn().Err(err).Str("suggestion_id", rec.ID).Msg("cache encode failed")
		return
	}
	if err := c.backend.Set(ctx, SuggestionKey(rec.ID), data, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("suggestion_id", rec.ID).Msg("cache write failed")
	}
}

// Invalidate drops a record, e.g. after it was reviewed
func (c *SuggestionCache) Invalidate(ctx context.Context, id string) {
	if err := c.backend.Delete(ctx, SuggestionKey(id)); err != nil {
		c.logger.Warn().Err(err).Str("suggestion_id", id).Msg("cache delete failed")
	}
}

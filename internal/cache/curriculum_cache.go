// Package cache keeps curriculum documents and import job state in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/curriculum-backend/internal/config"
	"github.com/stemsi/curriculum-backend/internal/model"
)

// CurriculumCache stores full curriculum records by id.
type CurriculumCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCurriculumCache(rdb *redis.Client, ttl time.Duration) *CurriculumCache {
	return &CurriculumCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached record. A miss is (nil, false, nil).
func (c *CurriculumCache) Get(ctx context.Context, id uuid.UUID) (*model.CurriculumRecord, bool, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.CurriculumDocumentKey(id.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rec model.CurriculumRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("decode cached curriculum: %w", err)
	}
	return &rec, true, nil
}

func (c *CurriculumCache) Set(ctx context.Context, rec *model.CurriculumRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode curriculum: %w", err)
	}
	return c.rdb.Set(ctx, config.CacheKey.CurriculumDocumentKey(rec.ID.String()), raw, c.ttl).Err()
}

func (c *CurriculumCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	return c.rdb.Del(ctx, config.CacheKey.CurriculumDocumentKey(id.String())).Err()
}

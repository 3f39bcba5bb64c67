// Package cache stores search results and property insights in Redis as JSON.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"property-search/internal/common/logger"
	"property-search/internal/models"
)

const (
	searchPrefix   = "search:"
	insightsPrefix = "insights:"
	scanBatch      = 200
)

type SearchCache struct {
	client      redis.UniversalClient
	searchTTL   time.Duration
	insightsTTL time.Duration
	logger      logger.Logger
}

func NewSearchCache(client redis.UniversalClient, searchTTL, insightsTTL time.Duration, log logger.Logger) *SearchCache {
	return &SearchCache{
		client:      client,
		searchTTL:   searchTTL,
		insightsTTL: insightsTTL,
		logger:      log.WithFields(map[string]interface{}{"component": "search-cache"}),
	}
}

// SearchKey derives the cache key from the canonical JSON form of the criteria.
func SearchKey(c models.SearchCriteria) string {
	b, _ := json.Marshal(c)
	sum := md5.Sum(b)
	return searchPrefix + hex.EncodeToString(sum[:])
}

func (c *SearchCache) GetSearch(ctx context.Context, criteria models.SearchCriteria) ([]models.Property, bool, error) {
	var out []models.Property
	ok, err := c.getJSON(ctx, SearchKey(criteria), &out)
	return out, ok, err
}

func (c *SearchCache) SetSearch(ctx context.Context, criteria models.SearchCriteria, properties []models.Property) error {
	return c.setJSON(ctx, SearchKey(criteria), properties, c.searchTTL)
}

// InvalidateSearches drops every cached search result.
func (c *SearchCache) InvalidateSearches(ctx context.Context) error {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, searchPrefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan search keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete search keys: %w", err)
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Debug("search cache invalidated", map[string]interface{}{"keys": removed})
	return nil
}

func insightsKey(propertyID int64, language string) string {
	return fmt.Sprintf("%s%d:%s", insightsPrefix, propertyID, language)
}

func (c *SearchCache) GetInsights(ctx context.Context, propertyID int64, language string) (models.Insights, bool, error) {
	var out models.Insights
	ok, err := c.getJSON(ctx, insightsKey(propertyID, language), &out)
	return out, ok, err
}

func (c *SearchCache) SetInsights(ctx context.Context, propertyID int64, language string, insights models.Insights) error {
	return c.setJSON(ctx, insightsKey(propertyID, language), insights, c.insightsTTL)
}

func (c *SearchCache) getJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *SearchCache) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gaslink/backend-go/internal/config"
	"github.com/gaslink/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	summaryKeyPrefix = "inventory:summaries"
	scanBatchSize    = 100
)

// SummaryCache caches summary listings per distributor and date window. Any
// write to a distributor's summaries must invalidate its entries.
type SummaryCache interface {
	GetSummaries(ctx context.Context, distributorID int64, from, to string) ([]domain.DailyInventorySummary, bool, error)
	SetSummaries(ctx context.Context, distributorID int64, from, to string, rows []domain.DailyInventorySummary) error
	InvalidateDistributor(ctx context.Context, distributorID int64) error
}

type redisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSummaryCache struct{}

func NewSummaryCache(cfg config.CacheConfig) (SummaryCache, error) {
	if !cfg.Enabled {
		return &noopSummaryCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisSummaryCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopSummaryCache() SummaryCache {
	return &noopSummaryCache{}
}

func (c *redisSummaryCache) GetSummaries(ctx context.Context, distributorID int64, from, to string) ([]domain.DailyInventorySummary, bool, error) {
	key := buildSummaryKey(distributorID, from, to)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var rows []domain.DailyInventorySummary
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, false, fmt.Errorf("decode summary cache: %w", err)
	}

	return rows, true, nil
}

func (c *redisSummaryCache) SetSummaries(ctx context.Context, distributorID int64, from, to string, rows []domain.DailyInventorySummary) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode summary cache: %w", err)
	}

	if err := c.client.Set(ctx, buildSummaryKey(distributorID, from, to), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisSummaryCache) InvalidateDistributor(ctx context.Context, distributorID int64) error {
	return deleteKeysWithPrefix(ctx, c.client, distributorPrefix(distributorID), scanBatchSize)
}

func (n *noopSummaryCache) GetSummaries(ctx context.Context, distributorID int64, from, to string) ([]domain.DailyInventorySummary, bool, error) {
	return nil, false, nil
}

func (n *noopSummaryCache) SetSummaries(ctx context.Context, distributorID int64, from, to string, rows []domain.DailyInventorySummary) error {
	return nil
}

func (n *noopSummaryCache) InvalidateDistributor(ctx context.Context, distributorID int64) error {
	return nil
}

func distributorPrefix(distributorID int64) string {
	return fmt.Sprintf("%s:%d:", summaryKeyPrefix, distributorID)
}

func buildSummaryKey(distributorID int64, from, to string) string {
	return distributorPrefix(distributorID) + windowHash(from, to)
}

func windowHash(from, to string) string {
	raw := "from=" + strings.TrimSpace(from) + "|to=" + strings.TrimSpace(to)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

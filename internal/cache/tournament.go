package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/proarena/arena/internal/logger"
	"github.com/proarena/arena/internal/models"
)

const (
	publicListKey = "tournaments:public"
	publicListTTL = 5 * time.Minute
)

// TournamentCache holds the public tournament list in Redis. Misses and
// Redis failures both read as a cache miss; the caller falls through to
// the database either way.
type TournamentCache struct {
	client *Client
	logger *logger.Logger
}

func NewTournamentCache(client *Client, log *logger.Logger) *TournamentCache {
	return &TournamentCache{
		client: client,
		logger: log.With("component", "tournament-cache"),
	}
}

func (c *TournamentCache) GetPublicList(ctx context.Context) ([]models.Tournament, bool) {
	raw, err := c.client.rdb.Get(ctx, publicListKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache read failed", "key", publicListKey, "error", err)
		return nil, false
	}

	var tournaments []models.Tournament
	if err := json.Unmarshal(raw, &tournaments); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", "key", publicListKey, "error", err)
		c.Invalidate(ctx)
		return nil, false
	}

	return tournaments, true
}

func (c *TournamentCache) SetPublicList(ctx context.Context, tournaments []models.Tournament) {
	raw, err := json.Marshal(tournaments)
	if err != nil {
		c.logger.Error("failed to marshal tournament list", "error", err)
		return
	}

	if err := c.client.rdb.Set(ctx, publicListKey, raw, publicListTTL).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", publicListKey, "error", err)
	}
}

func (c *TournamentCache) Invalidate(ctx context.Context) {
	if err := c.client.rdb.Del(ctx, publicListKey).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", "key", publicListKey, "error", err)
	}
}

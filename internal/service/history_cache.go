package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const historyCacheTTL = 30 * time.Minute

// HistoryCache keeps recent chat histories in Redis so the orchestrator
// does not hit Postgres on every turn. All methods are safe on a nil
// receiver, which is how the service runs when REDIS_URL is unset.
type HistoryCache struct {
	client *redis.Client
}

func NewHistoryCacheFromURL(redisURL string) (*HistoryCache, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &HistoryCache{client: client}, nil
}

func historyKey(sessionID uuid.UUID) string {
	return "chat:history:" + sessionID.String()
}

// Get returns the cached history for a session, or ok=false on a miss.
// Cache errors are logged and treated as misses.
func (c *HistoryCache) Get(ctx context.Context, sessionID uuid.UUID) ([]ChatTurn, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, historyKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("history cache get failed for %s: %v", sessionID, err)
		return nil, false
	}
	var turns []ChatTurn
	if err := json.Unmarshal(raw, &turns); err != nil {
		log.Printf("history cache decode failed for %s: %v", sessionID, err)
		return nil, false
	}
	return turns, true
}

func (c *HistoryCache) Put(ctx context.Context, sessionID uuid.UUID, turns []ChatTurn) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, historyKey(sessionID), raw, historyCacheTTL).Err(); err != nil {
		log.Printf("history cache put failed for %s: %v", sessionID, err)
	}
}

// Invalidate drops the cached history after new messages are persisted.
func (c *HistoryCache) Invalidate(ctx context.Context, sessionID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		log.Printf("history cache invalidate failed for %s: %v", sessionID, err)
	}
}

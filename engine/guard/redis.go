package guard

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/pkg/kernel"
	"github.com/go-redis/redis/v8"
)

const (
	loopGuardPrefix = "chatflow:loopguard:"
	dedupPrefix     = "chatflow:dedup:"
)

// ============================================================================
// Redis Loop Guard
// ============================================================================

// RedisLoopGuard contador compartido con expiración, para que el límite de
// re-entradas sobreviva reinicios y aplique entre instancias
type RedisLoopGuard struct {
	redis   *redis.Client
	ceiling int
	window  time.Duration
}

var _ engine.LoopGuard = (*RedisLoopGuard)(nil)

func NewRedisLoopGuard(redisClient *redis.Client, ceiling int, window time.Duration) *RedisLoopGuard {
	if ceiling <= 0 {
		ceiling = DefaultLoopCeiling
	}
	if window <= 0 {
		window = DefaultLoopWindow
	}
	return &RedisLoopGuard{
		redis:   redisClient,
		ceiling: ceiling,
		window:  window,
	}
}

func (g *RedisLoopGuard) Admit(ctx context.Context, sessionID kernel.SessionID, nodeID string) bool {
	key := fmt.Sprintf("%s%s:%s", loopGuardPrefix, sessionID.String(), nodeID)

	count, err := g.redis.Incr(ctx, key).Result()
	if err != nil {
		// safety net best-effort: si Redis no responde, no bloqueamos la sesión
		log.Printf("⚠️  Loop guard INCR failed for %s: %v", key, err)
		return true
	}

	if count == 1 {
		if err := g.redis.Expire(ctx, key, g.window).Err(); err != nil {
			log.Printf("⚠️  Loop guard EXPIRE failed for %s: %v", key, err)
		}
	}

	return count <= int64(g.ceiling)
}

func (g *RedisLoopGuard) Reset(ctx context.Context, sessionID kernel.SessionID, nodeID string) {
	key := fmt.Sprintf("%s%s:%s", loopGuardPrefix, sessionID.String(), nodeID)
	if err := g.redis.Del(ctx, key).Err(); err != nil {
		log.Printf("⚠️  Loop guard DEL failed for %s: %v", key, err)
	}
}

// ============================================================================
// Redis Duplicate Filter
// ============================================================================

// RedisDuplicateFilter dedup de message ids con SET NX y TTL
type RedisDuplicateFilter struct {
	redis *redis.Client
	ttl   time.Duration
}

var _ engine.DuplicateFilter = (*RedisDuplicateFilter)(nil)

func NewRedisDuplicateFilter(redisClient *redis.Client, ttl time.Duration) *RedisDuplicateFilter {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &RedisDuplicateFilter{redis: redisClient, ttl: ttl}
}

func (f *RedisDuplicateFilter) Seen(ctx context.Context, sessionID kernel.SessionID, messageID string) bool {
	if messageID == "" {
		return false
	}

	key := fmt.Sprintf("%s%s:%s", dedupPrefix, sessionID.String(), messageID)

	inserted, err := f.redis.SetNX(ctx, key, 1, f.ttl).Result()
	if err != nil {
		log.Printf("⚠️  Duplicate filter SETNX failed for %s: %v", key, err)
		return false
	}

	return !inserted
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RateLimiter 基于 Redis 有序集合的滑动窗口限流器
type RateLimiter struct {
	client *Client
	window time.Duration
	limit  int64
}

// NewRateLimiter 创建限流器
func NewRateLimiter(client *Client, window time.Duration, limit int64) *RateLimiter {
	return &RateLimiter{
		client: client,
		window: window,
		limit:  limit,
	}
}

// Allow 检查单次请求是否允许通过
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return r.AllowN(ctx, key, 1)
}

// AllowN 检查 n 次请求是否允许通过
func (r *RateLimiter) AllowN(ctx context.Context, key string, n int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "redis.RateLimiter.AllowN",
		trace.WithAttributes(
			attribute.String("ratelimit.key", key),
			attribute.Int64("ratelimit.n", n),
		))
	defer span.End()

	now := time.Now()
	windowStart := now.Add(-r.window)

	pipe := r.client.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	current := countCmd.Val()
	if current+n > r.limit {
		span.SetAttributes(attribute.Bool("ratelimit.allowed", false))
		return false, nil
	}

	// 写入本次请求记录
	members := make([]redis.Z, 0, n)
	for i := int64(0); i < n; i++ {
		members = append(members, redis.Z{
			Score:  float64(now.UnixNano()),
			Member: fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()),
		})
	}

	pipe = r.client.rdb.Pipeline()
	pipe.ZAdd(ctx, key, members...)
	pipe.Expire(ctx, key, r.window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("rate limit record failed: %w", err)
	}

	span.SetAttributes(attribute.Bool("ratelimit.allowed", true))
	return true, nil
}

// Remaining 返回窗口内剩余可用配额
func (r *RateLimiter) Remaining(ctx context.Context, key string) (int64, error) {
	windowStart := time.Now().Add(-r.window)

	pipe := r.client.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit query failed: %w", err)
	}

	remaining := r.limit - countCmd.Val()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset 清除指定 key 的限流记录
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, key)
}

// BuildRateLimitKey 构造限流 key
func BuildRateLimitKey(scope, identity string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, identity)
}

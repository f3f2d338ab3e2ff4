package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"mbs-coding-api/pkg/logger"
)

// Cache 基于 Redis 的缓存实现
type Cache struct {
	client *Client
	group  singleflight.Group
}

// NewCache 创建缓存实例
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// Get 获取缓存值，未命中返回 (_, false, nil)
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key)
	if err != nil {
		if IsNil(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache get failed: %w", err)
	}
	return val, true, nil
}

// Set 设置缓存值
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Delete 删除缓存
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...)
}

// GetJSON 获取缓存并反序列化到 dest
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		// 缓存数据损坏，删除后按未命中处理
		logger.Warn(ctx, "缓存数据反序列化失败，已删除", "key", key, "error", err)
		_ = c.client.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

// SetJSON 序列化 value 并写入缓存
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return c.Set(ctx, key, string(data), ttl)
}

// GetOrLoadJSON 获取缓存，未命中时通过 loader 加载并回填
// singleflight 保证同一 key 并发时只有一个 loader 执行
func (c *Cache) GetOrLoadJSON(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	if ok, err := c.GetJSON(ctx, key, dest); err == nil && ok {
		return nil
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		// 二次检查，避免并发等待者重复加载
		if ok, err := c.GetJSON(ctx, key, dest); err == nil && ok {
			return nil, nil
		}

		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		if err := c.SetJSON(ctx, key, loaded, ttl); err != nil {
			logger.Warn(ctx, "缓存回填失败", "key", key, "error", err)
		}
		return loaded, nil
	})
	if err != nil {
		return err
	}
	if val == nil {
		// 二次检查命中，dest 已填充
		return nil
	}

	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return json.Unmarshal(data, dest)
}

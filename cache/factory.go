package cache

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/image-store/cache/redis"
	"github.com/anoixa/image-store/cache/ristretto"
	"github.com/anoixa/image-store/cache/types"
	"github.com/anoixa/image-store/config"
)

// New 按配置创建对象缓存，cache_type 为 none 时返回 nil
func New(ctx context.Context, cfg *config.Config) (types.Cache, error) {
	switch cfg.CacheType {
	case "", "none":
		return nil, nil
	case "memory":
		maxBytes := cfg.CacheMaxSizeMB << 20
		if maxBytes <= 0 {
			maxBytes = 64 << 20
		}
		c, err := ristretto.NewRistretto(ristretto.DefaultConfig(maxBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}
		log.Printf("[Cache] Using in-process cache, max %d MB", maxBytes>>20)
		return c, nil
	case "redis":
		c, err := redis.NewRedis(ctx, cfg.CacheRedisAddr, cfg.CacheRedisPassword, cfg.CacheRedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis cache at %s: %w", cfg.CacheRedisAddr, err)
		}
		log.Printf("[Cache] Using redis cache at %s", cfg.CacheRedisAddr)
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
}

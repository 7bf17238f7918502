package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/anoixa/image-store/cache/types"
)

// Ristretto 进程内字节缓存
type Ristretto struct {
	client *ristretto.Cache
}

// Config Ristretto配置
type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// DefaultConfig 按最大字节数生成配置
func DefaultConfig(maxBytes int64) Config {
	// 按平均 64KB 一项估算计数器数量，官方建议为条目数的 10 倍
	counters := maxBytes / (64 << 10) * 10
	if counters < 1000 {
		counters = 1000
	}
	return Config{
		NumCounters: counters,
		MaxCost:     maxBytes,
		BufferItems: 64,
	}
}

// NewRistretto 创建新的Ristretto实例
func NewRistretto(config Config) (*Ristretto, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
		Metrics:     config.Metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Ristretto{client: cache}, nil
}

// Set 设置缓存项，成本按字节数计算
func (r *Ristretto) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if r.client.SetWithTTL(key, value, int64(len(value)), expiration) {
		// 等待写缓冲落地，之后的 Get 才能读到
		r.client.Wait()
	}
	return nil
}

// Get 获取缓存项
func (r *Ristretto) Get(ctx context.Context, key string) ([]byte, error) {
	value, found := r.client.Get(key)
	if !found {
		return nil, types.ErrCacheMiss
	}
	data, ok := value.([]byte)
	if !ok {
		return nil, types.ErrCacheMiss
	}
	return data, nil
}

// Delete 删除缓存项
func (r *Ristretto) Delete(ctx context.Context, key string) error {
	r.client.Del(key)
	return nil
}

// Close 关闭缓存
func (r *Ristretto) Close() error {
	r.client.Close()
	return nil
}

package storage

import (
	"bytes"
	"context"
	"io"
	"log"
	"time"

	"github.com/anoixa/image-store/cache"
	"github.com/anoixa/image-store/cache/types"
	"github.com/anoixa/image-store/utils"
)

// CachedProvider 对象内容读穿缓存
// 存储键永不复用，缓存只保存不可变的对象内容，删除时先失效缓存
type CachedProvider struct {
	Provider
	cache types.Cache
	ttl   time.Duration
}

// NewCachedProvider 包装对象存储
func NewCachedProvider(inner Provider, c types.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{Provider: inner, cache: c, ttl: ttl}
}

// encodeCached 缓存值格式: etag + '\n' + content-type + '\n' + data
func encodeCached(obj *Object) []byte {
	buf := make([]byte, 0, len(obj.ETag)+len(obj.ContentType)+2+len(obj.Data))
	buf = append(buf, obj.ETag...)
	buf = append(buf, '\n')
	buf = append(buf, obj.ContentType...)
	buf = append(buf, '\n')
	return append(buf, obj.Data...)
}

func decodeCached(raw []byte) (*Object, bool) {
	i := bytes.IndexByte(raw, '\n')
	if i < 0 {
		return nil, false
	}
	j := bytes.IndexByte(raw[i+1:], '\n')
	if j < 0 {
		return nil, false
	}
	j += i + 1
	obj := &Object{
		ETag:        string(raw[:i]),
		ContentType: string(raw[i+1 : j]),
		Data:        raw[j+1:],
	}
	if obj.ETag == "" {
		obj.ETag = contentETag(obj.Data)
	}
	return obj, true
}

// GetWithContext 先查缓存，未命中时读底层存储并回填
func (c *CachedProvider) GetWithContext(ctx context.Context, key string) (*Object, error) {
	cacheKey := cache.ObjectBytes.Build(key)

	if raw, err := c.cache.Get(ctx, cacheKey); err == nil {
		if obj, ok := decodeCached(raw); ok {
			utils.LogIfDevf("[ObjectCache] hit %s", key)
			return obj, nil
		}
	} else if !types.IsCacheMiss(err) {
		log.Printf("[ObjectCache] get %s failed: %v", utils.SanitizeLogMessage(key), err)
	}

	obj, err := c.Provider.GetWithContext(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, cacheKey, encodeCached(obj), c.ttl); err != nil {
		log.Printf("[ObjectCache] set %s failed: %v", utils.SanitizeLogMessage(key), err)
	}
	return obj, nil
}

// PutWithContext 直接写底层存储，不预热缓存
func (c *CachedProvider) PutWithContext(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, error) {
	return c.Provider.PutWithContext(ctx, key, data, size, contentType)
}

// DeleteWithContext 先失效缓存再删除对象
func (c *CachedProvider) DeleteWithContext(ctx context.Context, key string) error {
	if err := c.cache.Delete(ctx, cache.ObjectBytes.Build(key)); err != nil {
		log.Printf("[ObjectCache] invalidate %s failed: %v", utils.SanitizeLogMessage(key), err)
	}
	return c.Provider.DeleteWithContext(ctx, key)
}

// Name 返回底层存储名称
func (c *CachedProvider) Name() string {
	return c.Provider.Name() + "+cache"
}

package storage

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoixa/image-store/cache/ristretto"
)

func TestMemoryStorage(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	key := "images/alice/img_1/cat.gif"

	_, err := store.PutWithContext(ctx, key, bytes.NewReader([]byte("GIF89a")), 6, "")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	obj, err := store.GetWithContext(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "image/gif", obj.ContentType)

	// 返回的是副本
	obj.Data[0] = 'X'
	again, err := store.GetWithContext(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("GIF89a"), again.Data)

	require.NoError(t, store.DeleteWithContext(ctx, key))
	require.NoError(t, store.DeleteWithContext(ctx, key))
	assert.Equal(t, 0, store.Len())

	_, err = store.GetWithContext(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

// countingProvider 统计底层读取次数
type countingProvider struct {
	*MemoryStorage
	gets int
}

func (c *countingProvider) GetWithContext(ctx context.Context, key string) (*Object, error) {
	c.gets++
	return c.MemoryStorage.GetWithContext(ctx, key)
}

func TestCachedProvider(t *testing.T) {
	c, err := ristretto.NewRistretto(ristretto.DefaultConfig(1 << 20))
	require.NoError(t, err)
	defer c.Close()

	inner := &countingProvider{MemoryStorage: NewMemoryStorage()}
	store := NewCachedProvider(inner, c, time.Minute)
	ctx := context.Background()
	key := "images/alice/img_1/cat.png"
	payload := []byte("\x89PNG\r\n\x1a\n\npayload with newline")

	_, err = store.PutWithContext(ctx, key, bytes.NewReader(payload), int64(len(payload)), "image/png")
	require.NoError(t, err)

	first, err := store.GetWithContext(ctx, key)
	require.NoError(t, err)
	second, err := store.GetWithContext(ctx, key)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, payload, second.Data)
	assert.Equal(t, "image/png", second.ContentType)
	assert.Equal(t, first.ETag, second.ETag)

	require.NoError(t, store.DeleteWithContext(ctx, key))
	_, err = store.GetWithContext(ctx, key)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 2, inner.gets)
	assert.Equal(t, "memory+cache", store.Name())
}

func TestCachedEncoding(t *testing.T) {
	obj := &Object{ContentType: "image/webp", Data: []byte("RIFF\n\nWEBP"), ETag: `"abc123"`}
	decoded, ok := decodeCached(encodeCached(obj))
	require.True(t, ok)
	assert.Equal(t, obj.ContentType, decoded.ContentType)
	assert.Equal(t, obj.Data, decoded.Data)
	assert.Equal(t, obj.ETag, decoded.ETag)

	noETag, ok := decodeCached(encodeCached(&Object{ContentType: "image/png", Data: []byte("x")}))
	require.True(t, ok)
	assert.Equal(t, contentETag([]byte("x")), noETag.ETag)

	_, ok = decodeCached([]byte("no separator"))
	assert.False(t, ok)
	_, ok = decodeCached([]byte("etag only\n"))
	assert.False(t, ok)
}

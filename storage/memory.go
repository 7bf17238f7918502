package storage

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/anoixa/image-store/utils"
)

// MemoryStorage 内存对象存储，用于开发和测试
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]*Object
}

// NewMemoryStorage 创建内存存储
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]*Object)}
}

func (s *MemoryStorage) PutWithContext(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, error) {
	if !IsValidStoragePath(key) {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	buf, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("failed to read payload for '%s': %w", key, err)
	}
	if contentType == "" {
		contentType = utils.MIMEFromKey(key)
	}

	obj := &Object{Data: buf, ContentType: contentType, ETag: contentETag(buf)}

	s.mu.Lock()
	s.objects[key] = obj
	s.mu.Unlock()

	return obj.ETag, nil
}

func (s *MemoryStorage) GetWithContext(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}

	data := make([]byte, len(obj.Data))
	copy(data, obj.Data)
	return &Object{Data: data, ContentType: obj.ContentType, ETag: obj.ETag}, nil
}

func (s *MemoryStorage) DeleteWithContext(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	return ok, nil
}

func (s *MemoryStorage) Health(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) Name() string {
	return "memory"
}

// Len 当前对象数量
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("object not found")

// Object 从对象存储读取的内容
type Object struct {
	Data        []byte
	ContentType string
	ETag        string
}

// Provider 对象存储接口
// 以不透明字符串为键，保持 Content-Type，同一进程写后读强一致
type Provider interface {
	// PutWithContext 写入对象，返回 ETag
	PutWithContext(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, error)

	// GetWithContext 读取对象，不存在时返回 ErrObjectNotFound
	GetWithContext(ctx context.Context, key string) (*Object, error)

	// DeleteWithContext 删除对象，对象不存在不视为错误
	DeleteWithContext(ctx context.Context, key string) error

	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}

// IsNotFound 是否为对象不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

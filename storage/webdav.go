package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"

	"github.com/anoixa/image-store/utils"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	RootPath string
	Timeout  time.Duration
}

// WebDAVStorage WebDAV 存储实现
type WebDAVStorage struct {
	client   *gowebdav.Client
	baseURL  string
	rootPath string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者并验证连接
func NewWebDAVStorage(ctx context.Context, cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	rootPath := strings.Trim(cfg.RootPath, "/")
	if rootPath != "" {
		rootPath = "/" + rootPath
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	s := &WebDAVStorage{
		client:   client,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		rootPath: rootPath,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if rootPath != "" {
		if err := runWithContext(checkCtx, func() error { return client.MkdirAll(rootPath, 0755) }); err != nil {
			return nil, fmt.Errorf("webdav root path %s unavailable: %w", rootPath, err)
		}
	}
	if err := s.Health(checkCtx); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}

	return s, nil
}

// runWithContext gowebdav 不接受 context，在协程里执行并等待取消
func runWithContext(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// fullPath 生成完整的 WebDAV 路径
func (s *WebDAVStorage) fullPath(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.rootPath != "" {
		return s.rootPath + "/" + key
	}
	return "/" + key
}

// PutWithContext 写入对象，父目录不存在时逐级创建
func (s *WebDAVStorage) PutWithContext(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, error) {
	if !IsValidStoragePath(key) {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}

	buf, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("failed to read payload for '%s': %w", key, err)
	}
	if size >= 0 && int64(len(buf)) != size {
		return "", fmt.Errorf("short read for '%s': got %d of %d bytes", key, len(buf), size)
	}

	fullPath := s.fullPath(key)
	if parent := path.Dir(fullPath); parent != "/" && parent != "." {
		if err := runWithContext(ctx, func() error { return s.client.MkdirAll(parent, 0755) }); err != nil {
			return "", fmt.Errorf("failed to ensure parent directory for %s: %w", key, err)
		}
	}

	if err := runWithContext(ctx, func() error { return s.client.Write(fullPath, buf, os.FileMode(0644)) }); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", key, err)
	}
	return contentETag(buf), nil
}

// GetWithContext 从 WebDAV 读取对象
func (s *WebDAVStorage) GetWithContext(ctx context.Context, key string) (*Object, error) {
	var data []byte
	err := runWithContext(ctx, func() error {
		var readErr error
		data, readErr = s.client.Read(s.fullPath(key))
		return readErr
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", key, err)
	}

	return &Object{
		Data:        data,
		ContentType: utils.MIMEFromKey(key),
		ETag:        contentETag(data),
	}, nil
}

// DeleteWithContext 从 WebDAV 删除对象
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, key string) error {
	err := runWithContext(ctx, func() error { return s.client.Remove(s.fullPath(key)) })
	if err != nil && !gowebdav.IsErrNotFound(err) {
		return fmt.Errorf("failed to delete file %s: %w", key, err)
	}
	return nil
}

// Exists 检查对象是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, key string) (bool, error) {
	err := runWithContext(ctx, func() error {
		_, statErr := s.client.Stat(s.fullPath(key))
		return statErr
	})
	if err == nil {
		return true, nil
	}
	if gowebdav.IsErrNotFound(err) {
		return false, nil
	}
	return false, err
}

// Health 检查存储健康状态
func (s *WebDAVStorage) Health(ctx context.Context) error {
	root := s.rootPath
	if root == "" {
		root = "/"
	}
	return runWithContext(ctx, func() error {
		_, err := s.client.ReadDir(root)
		return err
	})
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	return "webdav"
}

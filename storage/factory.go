package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/image-store/cache/types"
	"github.com/anoixa/image-store/config"
)

// NewProvider 按配置创建对象存储，objectCache 非空时包装读穿缓存
func NewProvider(ctx context.Context, cfg *config.Config, objectCache types.Cache) (Provider, error) {
	var (
		provider Provider
		err      error
	)

	switch cfg.StorageType {
	case "local":
		provider, err = NewLocalStorage(cfg.StorageLocalPath)
	case "memory":
		provider = NewMemoryStorage()
	case "minio":
		provider, err = NewMinioStorage(ctx, MinioConfig{
			Endpoint:        cfg.StorageMinioEndpoint,
			AccessKeyID:     cfg.StorageMinioAccessKey,
			SecretAccessKey: cfg.StorageMinioSecretKey,
			BucketName:      cfg.StorageMinioBucket,
			UseSSL:          cfg.StorageMinioUseSSL,
			Region:          cfg.StorageMinioRegion,
		})
	case "s3":
		provider, err = NewS3Storage(ctx, S3Config{
			Bucket:    cfg.StorageS3Bucket,
			Region:    cfg.StorageS3Region,
			Endpoint:  cfg.StorageS3Endpoint,
			Prefix:    cfg.StorageS3Prefix,
			PathStyle: cfg.StorageS3PathStyle,
			AccessKey: cfg.StorageS3AccessKey,
			SecretKey: cfg.StorageS3SecretKey,
		})
	case "webdav":
		provider, err = NewWebDAVStorage(ctx, WebDAVConfig{
			URL:      cfg.StorageWebDAVURL,
			Username: cfg.StorageWebDAVUsername,
			Password: cfg.StorageWebDAVPassword,
			RootPath: cfg.StorageWebDAVRootPath,
			Timeout:  cfg.StorageWebDAVTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.StorageType, err)
	}

	log.Printf("[Storage] Using '%s' object store", provider.Name())

	if objectCache != nil {
		return NewCachedProvider(provider, objectCache, cfg.CacheTTL), nil
	}
	return provider, nil
}

package images

import (
	"context"
	"time"

	"github.com/anoixa/image-store/database/models"
	"github.com/anoixa/image-store/internal/services/image"
)

// ImageService 图片协调服务
type ImageService interface {
	Upload(ctx context.Context, in image.UploadInput) (*models.Image, error)
	List(ctx context.Context, in image.ListInput) (*image.ListResult, error)
	Get(ctx context.Context, in image.GetInput) (*image.GetResult, error)
	Delete(ctx context.Context, userID, imageID string) error
}

// defaultCacheMaxAge 图片响应的私有缓存时间
const defaultCacheMaxAge = 24 * time.Hour

// Handler 图片处理器
type Handler struct {
	svc            ImageService
	maxUploadBytes int64
	cacheMaxAge    time.Duration
}

// NewHandler 图片处理器
func NewHandler(svc ImageService, maxUploadBytes int64) *Handler {
	return &Handler{
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		cacheMaxAge:    defaultCacheMaxAge,
	}
}

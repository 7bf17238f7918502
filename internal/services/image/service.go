// Package image 协调对象存储与元数据存储的图片上传、查询与删除
package image

import (
	"context"
	"log"
	"time"

	"github.com/anoixa/image-store/database/models"
	"github.com/anoixa/image-store/database/repo/images"
	"github.com/anoixa/image-store/internal/services/reconcile"
	"github.com/anoixa/image-store/storage"
	"github.com/anoixa/image-store/utils"
)

// cleanupTimeout 补偿删除脱离请求上下文后的超时
const cleanupTimeout = 15 * time.Second

// Options 服务参数
type Options struct {
	MaxUploadBytes int64
	StrictDecode   bool
}

// Service 图片协调服务，调用之间不持有任何状态
type Service struct {
	repo   images.RepositoryInterface
	store  storage.Provider
	ledger reconcile.Ledger
	opts   Options

	now   func() time.Time
	newID func() string
}

// NewService 创建图片服务，ledger 可以为 nil
func NewService(repo images.RepositoryInterface, store storage.Provider, ledger reconcile.Ledger, opts Options) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		ledger: ledger,
		opts:   opts,
		now:    time.Now,
		newID:  NewImageID,
	}
}

// cleanupContext 补偿操作不随请求取消
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

// recordOrphan 对象已写入但没有元数据引用
func (s *Service) recordOrphan(ctx context.Context, record *models.Image, reason string, cause error) {
	log.Printf("[OrphanObject] key=%s image_id=%s user=%s reason=%s err=%v",
		utils.SanitizeLogMessage(record.StorageKey),
		record.ImageID,
		utils.SanitizeLogMessage(record.UserID),
		reason, cause)
	s.record(ctx, reconcile.KindOrphanObject, record, reason, cause)
}

// recordDangling 元数据存在但对象缺失
func (s *Service) recordDangling(ctx context.Context, record *models.Image, cause error) {
	log.Printf("[StorageInconsistent] key=%s image_id=%s user=%s err=%v",
		utils.SanitizeLogMessage(record.StorageKey),
		record.ImageID,
		utils.SanitizeLogMessage(record.UserID),
		cause)
	s.record(ctx, reconcile.KindDanglingMetadata, record, "object missing on read", cause)
}

func (s *Service) record(ctx context.Context, kind reconcile.Kind, record *models.Image, reason string, cause error) {
	if s.ledger == nil {
		return
	}
	if cause != nil {
		reason = reason + ": " + cause.Error()
	}

	ledgerCtx, cancel := cleanupContext(ctx)
	defer cancel()

	err := s.ledger.Record(ledgerCtx, reconcile.Entry{
		Kind:       kind,
		ImageID:    record.ImageID,
		UserID:     record.UserID,
		StorageKey: record.StorageKey,
		Reason:     reason,
	})
	if err != nil {
		log.Printf("[Ledger] failed to record %s for %s: %v", kind, utils.SanitizeLogMessage(record.StorageKey), err)
	}
}

package image

import (
	"context"
	"errors"
	"log"

	"github.com/anoixa/image-store/database/repo/images"
	"github.com/anoixa/image-store/utils"
)

// Delete 先删元数据再删对象；对象删除失败只记录孤儿，不影响结果
func (s *Service) Delete(ctx context.Context, userID, imageID string) error {
	record, err := s.authorize(ctx, userID, imageID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteByImageID(ctx, record.ImageID); err != nil {
		if errors.Is(err, images.ErrImageNotFound) {
			return notFound()
		}
		return unavailable("failed to delete image metadata", err)
	}

	cleanupCtx, cancel := cleanupContext(ctx)
	defer cancel()

	if err := s.store.DeleteWithContext(cleanupCtx, record.StorageKey); err != nil {
		s.recordOrphan(ctx, record, "object delete after metadata removal", err)
		return nil
	}

	log.Printf("[Delete] user=%s image_id=%s removed", utils.SanitizeLogMessage(userID), record.ImageID)
	return nil
}

package image

import (
	"bytes"
	"context"
	"log"
	"time"

	"github.com/anoixa/image-store/database/models"
	"github.com/anoixa/image-store/utils"
)

// UploadInput 上传参数
type UploadInput struct {
	UserID      string
	ImageName   string
	Description string
	Tags        []string
	Data        []byte
	// ContentType 调用方声明的类型，可为空
	ContentType string
}

// Upload 先写对象、再写元数据；元数据写入失败时删除刚写入的对象
func (s *Service) Upload(ctx context.Context, in UploadInput) (*models.Image, error) {
	fields, err := s.validateUpload(in)
	if err != nil {
		return nil, err
	}

	imageID := s.newID()
	record := &models.Image{
		ImageID:     imageID,
		UserID:      in.UserID,
		ImageName:   fields.imageName,
		Description: fields.description,
		Tags:        fields.tags,
		ContentType: fields.contentType,
		SizeBytes:   int64(len(in.Data)),
		StorageKey:  StorageKey(in.UserID, imageID, fields.imageName, fields.contentType),
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
	}

	if _, err := s.store.PutWithContext(ctx, record.StorageKey, bytes.NewReader(in.Data), record.SizeBytes, record.ContentType); err != nil {
		return nil, s.objectWriteFailed(record, err)
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, s.metadataWriteFailed(ctx, record, err)
	}

	utils.LogIfDevf("[Upload] user=%s image_id=%s key=%s size=%d",
		utils.SanitizeLogMessage(record.UserID), record.ImageID,
		utils.SanitizeLogMessage(record.StorageKey), record.SizeBytes)
	return record, nil
}

// objectWriteFailed 对象未写入，无需补偿
func (s *Service) objectWriteFailed(record *models.Image, err error) error {
	log.Printf("[Upload] object write failed for key %s: %v", utils.SanitizeLogMessage(record.StorageKey), err)
	return unavailable("failed to store image object", err)
}

// metadataWriteFailed 删除已写入的对象；删除失败时记为孤儿对象，不阻塞调用方
func (s *Service) metadataWriteFailed(ctx context.Context, record *models.Image, err error) error {
	log.Printf("[Upload] metadata write failed for image %s: %v", record.ImageID, err)

	cleanupCtx, cancel := cleanupContext(ctx)
	defer cancel()

	if delErr := s.store.DeleteWithContext(cleanupCtx, record.StorageKey); delErr != nil {
		s.recordOrphan(ctx, record, "compensating delete after metadata write failure", delErr)
	}
	return unavailable("failed to store image metadata", err)
}

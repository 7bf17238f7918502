package images

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/anoixa/image-store/database"
	"github.com/anoixa/image-store/database/models"
)

// Repository 基于 gorm 的图片元数据仓库
type Repository struct {
	db database.Provider
}

// NewRepository 创建新的图片仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// Create 写入新记录
func (r *Repository) Create(ctx context.Context, image *models.Image) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", ErrDuplicateImage, image.ImageID)
		}
		return fmt.Errorf("failed to create image record: %w", err)
	}
	return nil
}

// GetByImageID 按 image_id 查询
func (r *Repository) GetByImageID(ctx context.Context, imageID string) (*models.Image, error) {
	var image models.Image
	err := r.db.WithContext(ctx).Where("image_id = ?", imageID).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to get image record: %w", err)
	}
	return &image, nil
}

// DeleteByImageID 删除记录
func (r *Repository) DeleteByImageID(ctx context.Context, imageID string) error {
	result := r.db.WithContext(ctx).Where("image_id = ?", imageID).Delete(&models.Image{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete image record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrImageNotFound
	}
	return nil
}

// escapeLike 转义 LIKE 通配符
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListByUser 键集分页查询，多取一条判断是否还有下一页
func (r *Repository) ListByUser(ctx context.Context, q ListQuery) (*Page, error) {
	q = q.withDefaults()

	cur, err := decodeCursor(q)
	if err != nil {
		return nil, err
	}

	col := "created_at"
	if q.SortBy == SortByImageName {
		col = "image_name"
	}
	dir, op := "DESC", "<"
	if q.SortOrder == SortAsc {
		dir, op = "ASC", ">"
	}

	db := r.db.WithContext(ctx).Model(&models.Image{}).Where("user_id = ?", q.UserID)
	if q.NameContains != "" {
		db = db.Where(`LOWER(image_name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(q.NameContains))+"%")
	}
	if !q.StartTime.IsZero() {
		db = db.Where("created_at >= ?", q.StartTime.UTC())
	}
	if !q.EndTime.IsZero() {
		db = db.Where("created_at <= ?", q.EndTime.UTC())
	}
	if cur != nil {
		var v any = cur.Value
		if q.SortBy == SortByCreatedAt {
			v = cur.timeValue()
		}
		db = db.Where(fmt.Sprintf("(%s %s ? OR (%s = ? AND image_id %s ?))", col, op, col, op), v, v, cur.ImageID)
	}

	var items []*models.Image
	err = db.Order(fmt.Sprintf("%s %s, image_id %s", col, dir, dir)).
		Limit(q.Limit + 1).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list image records: %w", err)
	}

	page := &Page{Items: items}
	if len(items) > q.Limit {
		page.Items = items[:q.Limit]
		page.NextCursor = encodeCursor(q, page.Items[len(page.Items)-1])
	}
	return page, nil
}

// Ping 检查数据库连接
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

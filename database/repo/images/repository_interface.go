package images

import (
	"context"
	"errors"
	"time"

	"github.com/anoixa/image-store/database/models"
)

var (
	// ErrImageNotFound 元数据记录不存在
	ErrImageNotFound = errors.New("image record not found")
	// ErrDuplicateImage image_id 或 storage_key 已存在
	ErrDuplicateImage = errors.New("image record already exists")
	// ErrInvalidCursor 分页游标无法解析或与查询不匹配
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)

// 排序字段与方向
const (
	SortByCreatedAt = "created_at"
	SortByImageName = "image_name"
	SortAsc         = "asc"
	SortDesc        = "desc"
)

// ListQuery 按用户分页查询条件
type ListQuery struct {
	UserID       string
	Cursor       string
	Limit        int
	NameContains string
	// StartTime/EndTime 为闭区间，零值表示不限制
	StartTime time.Time
	EndTime   time.Time
	SortBy    string
	SortOrder string
}

// Page 一页查询结果
type Page struct {
	Items      []*models.Image
	NextCursor string
}

func (q ListQuery) withDefaults() ListQuery {
	if q.SortBy == "" {
		q.SortBy = SortByCreatedAt
	}
	if q.SortOrder == "" {
		q.SortOrder = SortDesc
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	return q
}

// RepositoryInterface 图片元数据仓库接口
type RepositoryInterface interface {
	// Create 写入新记录
	Create(ctx context.Context, image *models.Image) error
	// GetByImageID 按 image_id 查询，不存在返回 ErrImageNotFound
	GetByImageID(ctx context.Context, imageID string) (*models.Image, error)
	// DeleteByImageID 删除记录，未删除任何记录时返回 ErrImageNotFound
	DeleteByImageID(ctx context.Context, imageID string) error
	// ListByUser 按用户分页查询
	ListByUser(ctx context.Context, q ListQuery) (*Page, error)
	// Ping 检查存储连接
	Ping(ctx context.Context) error
}

var (
	_ RepositoryInterface = (*Repository)(nil)
	_ RepositoryInterface = (*BadgerRepository)(nil)
)

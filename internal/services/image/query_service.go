package image

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/anoixa/image-store/database/models"
	"github.com/anoixa/image-store/database/repo/images"
	"github.com/anoixa/image-store/storage"
)

// 分页限制
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

const dateLayout = "2006-01-02"

// ListInput 列表查询参数
type ListInput struct {
	UserID string
	Cursor string
	// Limit 为 0 时使用默认值
	Limit        int
	NameContains string
	StartDate    string
	EndDate      string
	SortBy       string
	SortOrder    string
}

// ListResult 一页元数据
type ListResult struct {
	Images     []*models.Image
	NextCursor string
}

// GetInput 获取图片参数
type GetInput struct {
	UserID          string
	ImageID         string
	IncludeMetadata bool
	AsAttachment    bool
}

// GetResult 图片内容
type GetResult struct {
	Data        []byte
	ContentType string
	ETag        string
	// FileName 下载文件名
	FileName     string
	Record       *models.Image
	AsAttachment bool
}

// List 只查询元数据存储
func (s *Service) List(ctx context.Context, in ListInput) (*ListResult, error) {
	q, err := buildListQuery(in)
	if err != nil {
		return nil, err
	}

	page, err := s.repo.ListByUser(ctx, q)
	if err != nil {
		if errors.Is(err, images.ErrInvalidCursor) {
			return nil, invalidf(CodeInvalidCursor, "cursor is invalid or does not match the requested ordering")
		}
		return nil, unavailable("failed to list images", err)
	}

	items := page.Items
	if items == nil {
		items = []*models.Image{}
	}
	return &ListResult{Images: items, NextCursor: page.NextCursor}, nil
}

func buildListQuery(in ListInput) (images.ListQuery, error) {
	if err := validateUserID(in.UserID); err != nil {
		return images.ListQuery{}, err
	}

	limit := in.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 1 || limit > MaxListLimit {
		return images.ListQuery{}, invalidf(CodeValidation, "limit must be between 1 and %d", MaxListLimit)
	}

	if utf8.RuneCountInString(in.NameContains) > maxNameFilterLen {
		return images.ListQuery{}, invalidf(CodeValidation, "name_contains must be at most %d characters", maxNameFilterLen)
	}

	sortBy := in.SortBy
	switch sortBy {
	case "":
		sortBy = images.SortByCreatedAt
	case images.SortByCreatedAt, images.SortByImageName:
	default:
		return images.ListQuery{}, invalidf(CodeValidation, "sort_by must be %s or %s", images.SortByCreatedAt, images.SortByImageName)
	}

	sortOrder := in.SortOrder
	switch sortOrder {
	case "":
		sortOrder = images.SortDesc
	case images.SortAsc, images.SortDesc:
	default:
		return images.ListQuery{}, invalidf(CodeValidation, "sort_order must be %s or %s", images.SortAsc, images.SortDesc)
	}

	var start, end time.Time
	if in.StartDate != "" {
		t, err := time.ParseInLocation(dateLayout, in.StartDate, time.UTC)
		if err != nil {
			return images.ListQuery{}, invalidf(CodeValidation, "start_date must be formatted as YYYY-MM-DD")
		}
		start = t
	}
	if in.EndDate != "" {
		t, err := time.ParseInLocation(dateLayout, in.EndDate, time.UTC)
		if err != nil {
			return images.ListQuery{}, invalidf(CodeValidation, "end_date must be formatted as YYYY-MM-DD")
		}
		end = t.Add(24*time.Hour - time.Microsecond)
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return images.ListQuery{}, invalidf(CodeValidation, "start_date must not be after end_date")
	}

	return images.ListQuery{
		UserID:       in.UserID,
		Cursor:       in.Cursor,
		Limit:        limit,
		NameContains: in.NameContains,
		StartTime:    start,
		EndTime:      end,
		SortBy:       sortBy,
		SortOrder:    sortOrder,
	}, nil
}

// Get 读取图片内容；元数据存在但对象缺失视为存储不一致
func (s *Service) Get(ctx context.Context, in GetInput) (*GetResult, error) {
	record, err := s.authorize(ctx, in.UserID, in.ImageID)
	if err != nil {
		return nil, err
	}

	obj, err := s.store.GetWithContext(ctx, record.StorageKey)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, s.missingObject(ctx, in.UserID, record, err)
		}
		return nil, unavailable("failed to read image object", err)
	}

	result := &GetResult{
		Data:         obj.Data,
		ContentType:  record.ContentType,
		ETag:         obj.ETag,
		FileName:     DownloadName(record.ImageName, record.ContentType),
		AsAttachment: in.AsAttachment,
	}
	if in.IncludeMetadata {
		result.Record = record
	}
	return result, nil
}

// missingObject 对象缺失时重新读取记录，记录已被并发删除则视为未找到
func (s *Service) missingObject(ctx context.Context, userID string, record *models.Image, cause error) error {
	current, err := s.repo.GetByImageID(ctx, record.ImageID)
	if err != nil {
		if errors.Is(err, images.ErrImageNotFound) {
			return notFound()
		}
		return unavailable("failed to re-read image metadata", errors.Join(cause, err))
	}
	if current.UserID != userID {
		return notFound()
	}
	s.recordDangling(ctx, current, cause)
	return inconsistent("image metadata exists but its object is missing", cause)
}

// authorize 查询记录并校验归属，其他用户的记录同样返回未找到
func (s *Service) authorize(ctx context.Context, userID, imageID string) (*models.Image, error) {
	if userID == "" {
		return nil, invalidf(CodeValidation, "user_id is required")
	}
	if !isImageID(imageID) {
		return nil, notFound()
	}

	record, err := s.repo.GetByImageID(ctx, imageID)
	if err != nil {
		if errors.Is(err, images.ErrImageNotFound) {
			return nil, notFound()
		}
		return nil, unavailable("failed to read image metadata", err)
	}
	if record.UserID != userID {
		return nil, notFound()
	}
	return record, nil
}

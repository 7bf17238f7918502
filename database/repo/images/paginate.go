package images

import (
	"sort"
	"strings"

	"github.com/anoixa/image-store/database/models"
)

// Paginate 在内存中对单个用户的全部记录做过滤、排序与键集分页
// 与 SQL 实现的语义保持一致，供不支持二级索引查询的存储使用
func Paginate(items []*models.Image, q ListQuery) (*Page, error) {
	q = q.withDefaults()

	cur, err := decodeCursor(q)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(q.NameContains)
	filtered := make([]*models.Image, 0, len(items))
	for _, img := range items {
		if img.UserID != q.UserID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(img.ImageName), needle) {
			continue
		}
		if !q.StartTime.IsZero() && img.CreatedAt.Before(q.StartTime) {
			continue
		}
		if !q.EndTime.IsZero() && img.CreatedAt.After(q.EndTime) {
			continue
		}
		filtered = append(filtered, img)
	}

	desc := q.SortOrder == SortDesc
	sort.Slice(filtered, func(i, j int) bool {
		c := compareBy(filtered[i], filtered[j], q.SortBy)
		if desc {
			return c > 0
		}
		return c < 0
	})

	start := 0
	if cur != nil {
		start = len(filtered)
		for i, img := range filtered {
			if afterCursor(img, cur, q) {
				start = i
				break
			}
		}
	}
	filtered = filtered[start:]

	page := &Page{Items: filtered}
	if len(filtered) > q.Limit {
		page.Items = filtered[:q.Limit]
		page.NextCursor = encodeCursor(q, page.Items[len(page.Items)-1])
	}
	return page, nil
}

// compareBy 先比较排序字段，再比较 image_id
func compareBy(a, b *models.Image, sortBy string) int {
	var c int
	if sortBy == SortByImageName {
		c = strings.Compare(a.ImageName, b.ImageName)
	} else {
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c != 0 {
		return c
	}
	return strings.Compare(a.ImageID, b.ImageID)
}

// afterCursor 记录在遍历顺序上是否位于游标之后
func afterCursor(img *models.Image, cur *cursorToken, q ListQuery) bool {
	var c int
	if q.SortBy == SortByImageName {
		c = strings.Compare(img.ImageName, cur.Value)
	} else {
		c = img.CreatedAt.Compare(cur.timeValue())
	}
	if c == 0 {
		c = strings.Compare(img.ImageID, cur.ImageID)
	}
	if q.SortOrder == SortDesc {
		return c < 0
	}
	return c > 0
}

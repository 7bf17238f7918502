package images

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/anoixa/image-store/database/models"
)

// cursorToken 游标内容，对调用方不透明
type cursorToken struct {
	SortBy    string `json:"s"`
	SortOrder string `json:"o"`
	Value     string `json:"v"`
	ImageID   string `json:"id"`
}

// sortValue 排序字段的游标取值，时间以微秒整数表示
func sortValue(img *models.Image, sortBy string) string {
	if sortBy == SortByImageName {
		return img.ImageName
	}
	return strconv.FormatInt(img.CreatedAt.UnixMicro(), 10)
}

func encodeCursor(q ListQuery, last *models.Image) string {
	raw, _ := json.Marshal(cursorToken{
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Value:     sortValue(last, q.SortBy),
		ImageID:   last.ImageID,
	})
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(q ListQuery) (*cursorToken, error) {
	if q.Cursor == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(q.Cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: not base64", ErrInvalidCursor)
	}

	var tok cursorToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("%w: malformed", ErrInvalidCursor)
	}
	if tok.ImageID == "" {
		return nil, fmt.Errorf("%w: missing position", ErrInvalidCursor)
	}
	if tok.SortBy != q.SortBy || tok.SortOrder != q.SortOrder {
		return nil, fmt.Errorf("%w: issued for a different ordering", ErrInvalidCursor)
	}
	if tok.SortBy == SortByCreatedAt {
		if _, err := strconv.ParseInt(tok.Value, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: bad timestamp", ErrInvalidCursor)
		}
	}
	return &tok, nil
}

// timeValue 游标中的时间值
func (c *cursorToken) timeValue() time.Time {
	us, _ := strconv.ParseInt(c.Value, 10, 64)
	return time.UnixMicro(us).UTC()
}

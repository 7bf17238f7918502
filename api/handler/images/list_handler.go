package images

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anoixa/image-store/api/common"
	"github.com/anoixa/image-store/api/middleware"
	"github.com/anoixa/image-store/internal/services/image"
)

// ListImages 分页列出当前用户的图片
func (h *Handler) ListImages(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			common.RespondError(c, http.StatusBadRequest, image.CodeValidation, "limit must be an integer")
			return
		}
		limit = n
	}

	result, err := h.svc.List(c.Request.Context(), image.ListInput{
		UserID:       middleware.CurrentUserID(c),
		Cursor:       c.Query("cursor"),
		Limit:        limit,
		NameContains: c.Query("name_contains"),
		StartDate:    c.Query("start_date"),
		EndDate:      c.Query("end_date"),
		SortBy:       c.Query("sort_by"),
		SortOrder:    c.Query("sort_order"),
	})
	if err != nil {
		respondServiceError(c, "List", err)
		return
	}

	common.RespondSuccess(c, gin.H{
		"images":      result.Images,
		"next_cursor": result.NextCursor,
		"count":       len(result.Images),
	})
}

package images

import (
	"github.com/gin-gonic/gin"

	"github.com/anoixa/image-store/api/common"
	"github.com/anoixa/image-store/api/middleware"
)

// DeleteImage 删除单张图片
func (h *Handler) DeleteImage(c *gin.Context) {
	imageID := c.Param("image_id")
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUserID(c), imageID); err != nil {
		respondServiceError(c, "Delete", err)
		return
	}

	common.RespondSuccess(c, gin.H{"image_id": imageID})
}

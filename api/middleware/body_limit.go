package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anoixa/image-store/api/common"
	"github.com/anoixa/image-store/utils/format"
)

// CodePayloadTooLarge 请求体超过上限
const CodePayloadTooLarge = "FILE_SIZE_EXCEEDED"

// MaxBytesReader 限制请求体大小
func MaxBytesReader(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			common.RespondErrorAbort(c, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body exceeds "+format.HumanReadableSize(limit))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

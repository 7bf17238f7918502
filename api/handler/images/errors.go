package images

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anoixa/image-store/api/common"
	"github.com/anoixa/image-store/internal/services/image"
	"github.com/anoixa/image-store/utils"
)

// statusFor 错误类别到 HTTP 状态码
func statusFor(e *image.Error) int {
	switch e.Kind {
	case image.ErrInvalidInput:
		if e.Code == image.CodeFileSizeExceeded {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case image.ErrImageNotFound:
		return http.StatusNotFound
	case image.ErrStorageUnavailable:
		return http.StatusBadGateway
	case image.ErrStorageInconsistent:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError 将服务错误写成统一响应，存储类错误不向调用方暴露底层原因
func respondServiceError(c *gin.Context, op string, err error) {
	e, ok := image.AsError(err)
	if !ok {
		log.Printf("[%s] unexpected error: %v", op, err)
		common.RespondError(c, http.StatusInternalServerError, common.CodeInternal, "Internal server error")
		return
	}

	status := statusFor(e)
	msg := e.Message
	if status >= http.StatusInternalServerError {
		log.Printf("[%s] %s request_id=%s: %v", op, e.Code, c.GetString(common.RequestIDKey), utils.SanitizeLogMessage(err.Error()))
	}
	common.RespondError(c, status, e.Code, msg)
}

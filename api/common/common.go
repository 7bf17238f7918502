package common

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	RequestIDKey = "request_id"
	UserIDKey    = "user_id"
)

// CodeInternal 未分类错误的错误码
const CodeInternal = "INTERNAL_SERVER_ERROR"

type Response struct {
	Status    string      `json:"status"`
	Code      string      `json:"code,omitempty"`
	Msg       string      `json:"msg"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

func newResponse(c *gin.Context, status, code, message string, data interface{}) Response {
	return Response{
		Status:    status,
		Code:      code,
		Msg:       message,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: c.GetString(RequestIDKey),
	}
}

func Respond(c *gin.Context, httpStatus int, status string, message string, data interface{}) {
	c.JSON(httpStatus, newResponse(c, status, "", message, data))
}

// RespondSuccess sends a success response with data.
func RespondSuccess(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, "success", "", data)
}

// RespondCreated sends a 201 response with data.
func RespondCreated(c *gin.Context, data interface{}) {
	Respond(c, http.StatusCreated, "success", "", data)
}

// RespondError sends an error response with an error code.
func RespondError(c *gin.Context, httpStatus int, code, message string) {
	c.JSON(httpStatus, newResponse(c, "error", code, message, nil))
}

// RespondErrorAbort sends an error response and aborts the handler chain.
func RespondErrorAbort(c *gin.Context, httpStatus int, code, message string) {
	c.AbortWithStatusJSON(httpStatus, newResponse(c, "error", code, message, nil))
}

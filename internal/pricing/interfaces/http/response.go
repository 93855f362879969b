package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionsrisk/pkg/middleware"
)

// Response 统一响应结构
type Response struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Error     any    `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   "success",
		Data:      data,
		RequestID: c.GetString(middleware.RequestIDKey),
	})
}

// ErrorWithStatus 错误响应，detail 为结构化错误信息
func ErrorWithStatus(c *gin.Context, status int, message string, detail any) {
	c.AbortWithStatusJSON(status, Response{
		Code:      status,
		Message:   message,
		Error:     detail,
		RequestID: c.GetString(middleware.RequestIDKey),
	})
}

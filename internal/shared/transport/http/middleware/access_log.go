package middleware

import (
	"github.com/gin-gonic/gin"

	"LevelVault/internal/shared/transport"
	"LevelVault/modules/kit/logx"
)

// ctxKeyErrorCode 由 handler 写入 gin.Context，中间件收尾时读出。
const (
	CtxKeyErrorCode   = "error_code"
	CtxKeyErrorReason = "error_reason"
)

// AccessLog 统一写访问日志：trace 注入、状态码、错误码。
func AccessLog(log logx.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		action := c.Request.Method + " " + route

		ctx := transport.NewContextWithParent(c.Request.Context(), action, "http")
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		transport.SetStatus(ctx, c.Writer.Status())
		transport.SetError(ctx, c.GetString(CtxKeyErrorCode), c.GetString(CtxKeyErrorReason))
		transport.WriteAccessLog(ctx, log)
	}
}

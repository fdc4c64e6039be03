package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"LevelVault/internal/shared/security"
)

// CtxKeyOperator 解析后的操作者 id。
const CtxKeyOperator = "operator"

// Auth 校验 Authorization: Bearer <token>，失败直接 401。
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || tokenStr == "" {
			c.Set(CtxKeyErrorCode, "AUTH_MISSING")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "AUTH_MISSING", "msg": "缺少 token"})
			return
		}
		_, claims, err := security.ParseToken(tokenStr)
		if err != nil {
			c.Set(CtxKeyErrorCode, "AUTH_INVALID")
			c.Set(CtxKeyErrorReason, err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "AUTH_INVALID", "msg": "token 无效"})
			return
		}
		c.Set(CtxKeyOperator, claims.Operator)
		c.Next()
	}
}

package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shiftcare/backend/pkg/jwt"
	"shiftcare/backend/pkg/response"
)

// 与 handler 包约定的上下文键
const (
	ctxStaffID = "staff_id"
	ctxIsAdmin = "is_admin"
	ctxClaims  = "claims"
)

// BlacklistChecker 已登出 Token 查询（*redis.Client 实现）
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token。
// blacklist 为 nil 或查询出错时跳过黑名单检查。
func JWTAuth(jwtMgr *jwt.Manager, blacklist BlacklistChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if !claims.IsAccess() {
			response.Unauthorized(c, 10002, "Token 类型无效")
			c.Abort()
			return
		}

		if blacklist != nil && claims.ID != "" {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			switch {
			case err != nil:
				logger.Warn("黑名单查询失败，降级放行", zap.Error(err))
			case revoked:
				response.Unauthorized(c, 10002, "Token 已失效，请重新登录")
				c.Abort()
				return
			}
		}

		c.Set(ctxStaffID, claims.StaffID)
		c.Set(ctxIsAdmin, claims.IsAdmin)
		c.Set(ctxClaims, claims)

		c.Next()
	}
}

// AdminOnly 仅管理员可访问；需挂在 JWTAuth 之后
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ctxStaffID); !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}
		if !c.GetBool(ctxIsAdmin) {
			response.Forbidden(c, 10003, "仅管理员可操作")
			c.Abort()
			return
		}
		c.Next()
	}
}

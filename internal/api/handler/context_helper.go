package handler

import (
	"github.com/gin-gonic/gin"

	"shiftcare/backend/pkg/jwt"
	"shiftcare/backend/pkg/response"
)

// 由 JWTAuth 中间件注入的上下文键
const (
	ctxStaffID = "staff_id"
	ctxIsAdmin = "is_admin"
	ctxClaims  = "claims"
)

// MustGetStaffID 从 Gin 上下文中安全提取 staff_id。
// 如果 JWT 中间件未正确注入 staff_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetStaffID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxStaffID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// IsAdmin 当前职员是否为管理员；未认证时为 false
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ctxIsAdmin)
}

// MustGetClaims 提取当前 Token 的声明（登出时使用）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ctxClaims)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}

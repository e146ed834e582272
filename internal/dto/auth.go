package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求；未设置密码的职员可省略 password
type LoginRequest struct {
	StaffID  string `json:"staff_id" binding:"required,max=36"`
	Password string `json:"password" binding:"omitempty,max=72"`
}

package dto

// ── 职员模块 DTO ──

// StaffListRequest 职员列表查询参数
type StaffListRequest struct {
	PaginationRequest
	Group   string `form:"group"   binding:"omitempty,max=20"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// CreateStaffRequest 新增职员请求
type CreateStaffRequest struct {
	StaffID    string   `json:"staff_id"   binding:"required,max=36"`
	Name       string   `json:"name"       binding:"required,max=100"`
	Groups     []string `json:"groups"     binding:"omitempty,dive,max=20"`
	Unit       string   `json:"unit"       binding:"omitempty,max=50"`
	Role       string   `json:"role"       binding:"omitempty,max=50"`
	Qualified  bool     `json:"qualified"`
	Employment string   `json:"employment" binding:"omitempty,max=20"`
	IsAdmin    bool     `json:"is_admin"`
	Password   string   `json:"password"   binding:"omitempty,min=4,max=72"`
	SortOrder  int      `json:"sort_order"`
}

// UpdateStaffRequest 更新职员请求（指针字段为 nil 时不修改）
type UpdateStaffRequest struct {
	Name       *string   `json:"name"       binding:"omitempty,max=100"`
	Groups     *[]string `json:"groups"`
	Unit       *string   `json:"unit"       binding:"omitempty,max=50"`
	Role       *string   `json:"role"       binding:"omitempty,max=50"`
	Qualified  *bool     `json:"qualified"`
	Employment *string   `json:"employment" binding:"omitempty,max=20"`
	IsAdmin    *bool     `json:"is_admin"`
	Password   *string   `json:"password"   binding:"omitempty,max=72"` // 空串表示清除密码
	SortOrder  *int      `json:"sort_order"`
}

// StaffResponse 职员信息响应（脱敏）
type StaffResponse struct {
	StaffID     string   `json:"staff_id"`
	Name        string   `json:"name"`
	Groups      []string `json:"groups"`
	Unit        string   `json:"unit,omitempty"`
	Role        string   `json:"role,omitempty"`
	Qualified   bool     `json:"qualified"`
	Employment  string   `json:"employment"`
	IsAdmin     bool     `json:"is_admin"`
	HasPassword bool     `json:"has_password"`
	SortOrder   int      `json:"sort_order"`
}

// ImportStaffResponse 批量导入职员响应
type ImportStaffResponse struct {
	Total   int                `json:"total"`
	Created int                `json:"created"`
	Updated int                `json:"updated"`
	Failed  int                `json:"failed"`
	Errors  []ImportStaffError `json:"errors,omitempty"`
}

// ImportStaffError 导入错误详情
type ImportStaffError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

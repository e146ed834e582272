package dto

// ── 排班希望模块 DTO ──

// RequestListQuery 希望列表查询参数；staff_id 为空时管理员查看全员
type RequestListQuery struct {
	MonthQuery
	StaffID string `form:"staff_id" binding:"omitempty,max=36"`
}

// ShiftRequestItem 单条希望
type ShiftRequestItem struct {
	Date      string `json:"date"       binding:"required,datetime=2006-01-02"`
	ShiftCode string `json:"shift_code" binding:"omitempty,max=10"` // 为空表示休み
	Note      string `json:"note"       binding:"omitempty,max=500"`
}

// SaveRequestsRequest 保存希望请求：整体替换该职员当月的希望
type SaveRequestsRequest struct {
	StaffID  string             `json:"staff_id" binding:"omitempty,max=36"` // 为空表示本人
	Year     int                `json:"year"     binding:"required,min=1"`
	Month    int                `json:"month"    binding:"required,min=1,max=12"`
	Requests []ShiftRequestItem `json:"requests" binding:"omitempty,max=62,dive"`
}

// ShiftRequestResponse 希望响应
type ShiftRequestResponse struct {
	ID          string `json:"id"`
	StaffID     string `json:"staff_id"`
	Date        string `json:"date"`
	ShiftCode   string `json:"shift_code"`
	Note        string `json:"note,omitempty"`
	SubmittedAt string `json:"submitted_at"`
}

package dto

// ── 设施行事模块 DTO ──

// EventListQuery 行事列表查询参数
type EventListQuery struct {
	MonthQuery
	Group string `form:"group" binding:"omitempty,max=20"`
}

// CreateEventRequest 新增行事请求
type CreateEventRequest struct {
	Date        string   `json:"date"        binding:"required,datetime=2006-01-02"`
	Title       string   `json:"title"       binding:"required,max=200"`
	Description string   `json:"description" binding:"omitempty,max=2000"`
	Groups      []string `json:"groups"      binding:"omitempty,dive,max=20"`
}

// UpdateEventRequest 更新行事请求
type UpdateEventRequest struct {
	Date        *string   `json:"date"        binding:"omitempty,datetime=2006-01-02"`
	Title       *string   `json:"title"       binding:"omitempty,max=200"`
	Description *string   `json:"description" binding:"omitempty,max=2000"`
	Groups      *[]string `json:"groups"`
}

// ImportEventsURLRequest 通过 URL 导入 ICS
type ImportEventsURLRequest struct {
	URL    string   `json:"url"    binding:"required,url"`
	Groups []string `json:"groups" binding:"omitempty,dive,max=20"`
}

// EventResponse 行事响应
type EventResponse struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Groups      []string `json:"groups"`
	ExternalUID string   `json:"external_uid,omitempty"`
}

// ImportEventsResponse ICS 导入结果
type ImportEventsResponse struct {
	Total   int      `json:"total"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

package dto

import "time"

// ── 班次类型 / 人数下限 ──

// ShiftTypeResponse 班次类型（含显示颜色）
type ShiftTypeResponse struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Working   bool   `json:"working"`
	Color     string `json:"color"`
	TextColor string `json:"text_color"`
}

// CoverageRuleResponse 人数下限规则
type CoverageRuleResponse struct {
	ShiftCode string `json:"shift_code"`
	Minimum   int    `json:"minimum"`
}

// UpdateCoverageRuleRequest 更新人数下限；minimum 为 0 表示取消该规则
type UpdateCoverageRuleRequest struct {
	Minimum *int `json:"minimum" binding:"required,min=0,max=1000"`
}

// ── 排班生成 ──

// GenerateRequest 生成请求；strategy 为空时使用配置中的默认策略
type GenerateRequest struct {
	Year     int    `json:"year"     binding:"required,min=1"`
	Month    int    `json:"month"    binding:"required,min=1,max=12"`
	Strategy string `json:"strategy" binding:"omitempty,oneof=random request_only constraint"`
	Seed     *int64 `json:"seed"`
}

// RequestConflictResponse 重复希望的处理记录
type RequestConflictResponse struct {
	StaffID   string `json:"staff_id"`
	Date      string `json:"date"`
	KeptID    string `json:"kept_id"`
	DroppedID string `json:"dropped_id"`
}

// GenerateResponse 同步生成结果
type GenerateResponse struct {
	Year        int                       `json:"year"`
	Month       int                       `json:"month"`
	Strategy    string                    `json:"strategy"`
	Assignments int                       `json:"assignments"`
	Ignored     int                       `json:"ignored_requests"`
	Conflicts   []RequestConflictResponse `json:"conflicts"`
	ElapsedMS   int64                     `json:"elapsed_ms"`
	Shortfalls  int                       `json:"shortfall_days"`
}

// GenerationJobResponse 异步生成任务状态
type GenerationJobResponse struct {
	ID         string            `json:"id"`
	Year       int               `json:"year"`
	Month      int               `json:"month"`
	Strategy   string            `json:"strategy"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Result     *GenerateResponse `json:"result,omitempty"`
}

// ── 单元格 / 人数判定 ──

// AssignmentQuery 单元格查询
type AssignmentQuery struct {
	StaffID string `form:"staff_id" binding:"required,max=36"`
	Date    string `form:"date"     binding:"required,datetime=2006-01-02"`
}

// SetAssignmentRequest 人工调整单元格
type SetAssignmentRequest struct {
	StaffID   string `json:"staff_id"   binding:"required,max=36"`
	Date      string `json:"date"       binding:"required,datetime=2006-01-02"`
	ShiftCode string `json:"shift_code" binding:"required,max=10"`
}

// AssignmentResponse 单元格
type AssignmentResponse struct {
	ID        string `json:"id"`
	StaffID   string `json:"staff_id"`
	Date      string `json:"date"`
	ShiftCode string `json:"shift_code"`
}

// CoverageQuery 某日人数判定查询
type CoverageQuery struct {
	Date string `form:"date" binding:"required,datetime=2006-01-02"`
}

// VerdictResponse 某日某班次的人数判定
type VerdictResponse struct {
	ShiftCode    string `json:"shift_code"`
	Count        int    `json:"count"`
	Minimum      int    `json:"minimum"`
	HasMinimum   bool   `json:"has_minimum"`
	MeetsMinimum bool   `json:"meets_minimum"`
}

// DayCoverageResponse 某日全部班次的判定
type DayCoverageResponse struct {
	Date     string            `json:"date"`
	OK       bool              `json:"ok"`
	Verdicts []VerdictResponse `json:"verdicts"`
}

// GridRow 排班表的一行（一名职员）
type GridRow struct {
	StaffID string            `json:"staff_id"`
	Name    string            `json:"name,omitempty"`
	Shifts  map[string]string `json:"shifts"` // date → shift_code
}

// GridResponse 整月排班表与人数判定
type GridResponse struct {
	Year       int                   `json:"year"`
	Month      int                   `json:"month"`
	Days       int                   `json:"days"`
	Status     string                `json:"status"` // draft | published
	Version    uint64                `json:"version"`
	Rows       []GridRow             `json:"rows"`
	Coverage   []DayCoverageResponse `json:"coverage"`
	Shortfalls int                   `json:"shortfall_days"`
}

// PublishResponse 发布结果
type PublishResponse struct {
	PlanID      string    `json:"plan_id"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Assignments int       `json:"assignments"`
	Version     int       `json:"version"`
	PublishedAt time.Time `json:"published_at"`
}

// SetAssignmentResponse 调整结果，附带当日重新计算的人数判定
type SetAssignmentResponse struct {
	Assignment AssignmentResponse  `json:"assignment"`
	Coverage   DayCoverageResponse `json:"coverage"`
}

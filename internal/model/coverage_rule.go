package model

// CoverageRule 每日最低人数规则表 — 对应 coverage_rules
type CoverageRule struct {
	ShiftCode string  `gorm:"type:varchar(10);primaryKey" json:"shift_code"`
	Minimum   int     `gorm:"not null;default:0"          json:"minimum"`
	UpdatedBy *string `gorm:"type:varchar(36)"            json:"updated_by,omitempty"`
	BaseModel
}

// TableName 指定表名
func (CoverageRule) TableName() string { return "coverage_rules" }

package model

import (
	"time"

	"gorm.io/gorm"
)

// 排班计划状态
const (
	PlanStatusDraft     = "draft"
	PlanStatusPublished = "published"
)

// ShiftPlan 月度排班计划表 — 对应 shift_plans（每月一条）
type ShiftPlan struct {
	PlanID      string     `gorm:"type:varchar(36);primaryKey"                       json:"plan_id"`
	Year        int        `gorm:"not null;uniqueIndex:idx_shift_plans_month"        json:"year"`
	Month       int        `gorm:"not null;uniqueIndex:idx_shift_plans_month"        json:"month"`
	Status      string     `gorm:"type:varchar(20);not null;default:'draft'"         json:"status"` // draft | published
	Strategy    string     `gorm:"type:varchar(20)"                                  json:"strategy,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	PublishedBy *string    `gorm:"type:varchar(36)"                                  json:"published_by,omitempty"`
	VersionedModel

	// 关联
	Assignments []ShiftAssignment `gorm:"foreignKey:PlanID" json:"assignments,omitempty"`
}

// TableName 指定表名
func (ShiftPlan) TableName() string { return "shift_plans" }

// BeforeCreate 生成主键
func (p *ShiftPlan) BeforeCreate(_ *gorm.DB) error {
	if p.PlanID == "" {
		p.PlanID = newID()
	}
	return nil
}

// ShiftAssignment 排班明细表 — 对应 shift_assignments
type ShiftAssignment struct {
	AssignmentID string `gorm:"type:varchar(64);primaryKey"                              json:"assignment_id"` // <staff_id>-<yyyy-MM-dd>
	PlanID       string `gorm:"type:varchar(36);not null;uniqueIndex:idx_plan_cell"      json:"plan_id"`
	StaffID      string `gorm:"type:varchar(36);not null;uniqueIndex:idx_plan_cell"      json:"staff_id"`
	Date         string `gorm:"type:varchar(10);not null;uniqueIndex:idx_plan_cell"      json:"date"`
	ShiftCode    string `gorm:"type:varchar(10);not null"                                json:"shift_code"`
	BaseModel
}

// TableName 指定表名
func (ShiftAssignment) TableName() string { return "shift_assignments" }

package model

import (
	"time"

	"gorm.io/gorm"
)

// ShiftRequest 排班希望表 — 对应 shift_requests
type ShiftRequest struct {
	RequestID   string    `gorm:"type:varchar(36);primaryKey"              json:"request_id"`
	StaffID     string    `gorm:"type:varchar(36);not null;index"          json:"staff_id"`
	Date        string    `gorm:"type:varchar(10);not null;index"          json:"date"` // yyyy-MM-dd
	ShiftCode   string    `gorm:"type:varchar(10);not null"                json:"shift_code"`
	Note        string    `gorm:"type:varchar(500)"                        json:"note,omitempty"`
	SubmittedAt time.Time `gorm:"not null"                                 json:"submitted_at"`
	BaseModel

	// 关联
	Staff *Staff `gorm:"foreignKey:StaffID;references:StaffID" json:"staff,omitempty"`
}

// TableName 指定表名
func (ShiftRequest) TableName() string { return "shift_requests" }

// BeforeCreate 生成主键
func (r *ShiftRequest) BeforeCreate(_ *gorm.DB) error {
	if r.RequestID == "" {
		r.RequestID = newID()
	}
	return nil
}

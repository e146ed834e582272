package model

import "gorm.io/gorm"

// FacilityEvent 设施行事表 — 对应 facility_events（仅作排班参考，不参与生成）
type FacilityEvent struct {
	EventID     string    `gorm:"type:varchar(36);primaryKey"           json:"event_id"`
	Date        string    `gorm:"type:varchar(10);not null;index"       json:"date"` // yyyy-MM-dd
	Title       string    `gorm:"type:varchar(200);not null"            json:"title"`
	Description string    `gorm:"type:text"                             json:"description,omitempty"`
	Groups      GroupList `gorm:"column:group_ids;type:text;not null;default:''" json:"groups"`
	ExternalUID string    `gorm:"type:varchar(255);index"               json:"external_uid,omitempty"` // ICS 导入时的 UID
	SoftDeleteModel
}

// TableName 指定表名
func (FacilityEvent) TableName() string { return "facility_events" }

// BeforeCreate 生成主键
func (e *FacilityEvent) BeforeCreate(_ *gorm.DB) error {
	if e.EventID == "" {
		e.EventID = newID()
	}
	return nil
}

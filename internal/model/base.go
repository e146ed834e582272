package model

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shiftcare/backend/internal/engine"
)

// ── 小组列表自定义类型 ──

// GroupList 以逗号分隔文本存储的小组列表（"1,2,3"），实现 GORM Scanner/Valuer 接口。
// postgres 与 sqlite 均存为 TEXT。
type GroupList []string

// Scan 将 "1,2,3" 文本解析为有序去重的列表。
func (g *GroupList) Scan(src interface{}) error {
	if src == nil {
		*g = GroupList{}
		return nil
	}
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("GroupList.Scan: unsupported type %T", src)
	}
	*g = ParseGroupList(s)
	return nil
}

// Value 序列化为逗号分隔文本。
func (g GroupList) Value() (driver.Value, error) {
	return g.String(), nil
}

// String 规范化后的逗号分隔文本
func (g GroupList) String() string {
	return strings.Join(g.Normalize(), ",")
}

// ParseGroupList 解析逗号分隔文本，忽略空白项
func ParseGroupList(s string) GroupList {
	out := GroupList{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out.Normalize()
}

// Set 转换为引擎侧的小组集合
func (g GroupList) Set() engine.GroupSet {
	set := engine.NewGroupSet()
	for _, id := range g {
		set.Add(engine.GroupID(id))
	}
	return set
}

// Normalize 去重并升序
func (g GroupList) Normalize() GroupList {
	seen := make(map[string]bool, len(g))
	out := make(GroupList, 0, len(g))
	for _, id := range g {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ── 审计字段 ──

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// SoftDeleteModel 支持软删除的审计字段
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// VersionedModel 支持乐观锁的模型
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// newID 应用侧生成主键，保证 postgres 与 sqlite 行为一致
func newID() string { return uuid.NewString() }

// AllModels 需要迁移的全部模型（sqlite AutoMigrate 使用）
func AllModels() []interface{} {
	return []interface{}{
		&Staff{},
		&ShiftRequest{},
		&FacilityEvent{},
		&CoverageRule{},
		&ShiftPlan{},
		&ShiftAssignment{},
	}
}

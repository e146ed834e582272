package model

// 雇佣类别
const (
	EmploymentFullTime   = "full_time"
	EmploymentDispatched = "dispatched"
	EmploymentPartTime   = "part_time"
)

// Staff 职员表 — 对应 staff
type Staff struct {
	StaffID      string    `gorm:"type:varchar(36);primaryKey"                     json:"staff_id"` // 登录用职员编号，如 U001
	Name         string    `gorm:"type:varchar(100);not null"                      json:"name"`
	Groups       GroupList `gorm:"column:group_ids;type:text;not null;default:''"    json:"groups"`
	Unit         string    `gorm:"type:varchar(50)"                                json:"unit,omitempty"`
	Role         string    `gorm:"type:varchar(50)"                                json:"role,omitempty"`
	Qualified    bool      `gorm:"not null;default:false"                          json:"qualified"` // 喀痰吸引资格
	Employment   string    `gorm:"type:varchar(20);not null;default:'full_time'"   json:"employment"`
	IsAdmin      bool      `gorm:"not null;default:false"                          json:"is_admin"`
	PasswordHash string    `gorm:"type:varchar(255);not null;default:''"           json:"-"` // 为空表示无需密码
	SortOrder    int       `gorm:"not null;default:0;index"                        json:"sort_order"`
	SoftDeleteModel
}

// TableName 指定表名
func (Staff) TableName() string { return "staff" }

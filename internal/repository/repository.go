package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Staff        StaffRepository
	ShiftRequest ShiftRequestRepository
	Event        FacilityEventRepository
	CoverageRule CoverageRuleRepository
	ShiftPlan    ShiftPlanRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Staff:        NewStaffRepo(db),
		ShiftRequest: NewShiftRequestRepo(db),
		Event:        NewFacilityEventRepo(db),
		CoverageRule: NewCoverageRuleRepo(db),
		ShiftPlan:    NewShiftPlanRepo(db),
	}
}

// Transaction 在事务中执行 fn，fn 收到绑定到事务的 Repository
// 未绑定数据库时（单元测试中的 mock 聚合）直接执行 fn
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// Ping 数据库健康检查
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// monthRange 返回某月首末日的 yyyy-MM-dd 文本，用于日期字符串范围查询
func monthRange(year, month int) (string, string) {
	first := fmt.Sprintf("%04d-%02d-01", year, month)
	last := fmt.Sprintf("%04d-%02d-31", year, month)
	return first, last
}

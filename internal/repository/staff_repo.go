package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shiftcare/backend/internal/engine"
	"shiftcare/backend/internal/model"
)

// StaffListFilters 职员列表筛选条件
type StaffListFilters struct {
	Group   string
	Keyword string
}

// StaffRepository 职员数据访问接口
type StaffRepository interface {
	Create(ctx context.Context, staff *model.Staff) error
	GetByID(ctx context.Context, id string) (*model.Staff, error)
	List(ctx context.Context, filters *StaffListFilters) ([]model.Staff, error)
	Update(ctx context.Context, staff *model.Staff) error
	Delete(ctx context.Context, id string) error
}

type staffRepo struct {
	db *gorm.DB
}

// NewStaffRepo 创建 StaffRepository 实例
func NewStaffRepo(db *gorm.DB) StaffRepository {
	return &staffRepo{db: db}
}

// Create 新建职员；同编号的已删除记录被复用
func (r *staffRepo) Create(ctx context.Context, staff *model.Staff) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "staff_id"}},
		UpdateAll: true,
	}).Create(staff).Error
}

func (r *staffRepo) GetByID(ctx context.Context, id string) (*model.Staff, error) {
	var staff model.Staff
	err := r.db.WithContext(ctx).Where("staff_id = ?", id).First(&staff).Error
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

// List 按 sort_order、staff_id 排序，即排班表的行顺序
func (r *staffRepo) List(ctx context.Context, filters *StaffListFilters) ([]model.Staff, error) {
	var list []model.Staff
	db := r.db.WithContext(ctx).Model(&model.Staff{})

	var group string
	if filters != nil {
		group = strings.TrimSpace(filters.Group)
		if filters.Keyword != "" {
			like := "%" + escapeLike(filters.Keyword) + "%"
			db = db.Where("name LIKE ? ESCAPE '!' OR staff_id LIKE ? ESCAPE '!'", like, like)
		}
	}

	if err := db.Order("sort_order ASC, staff_id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	if group == "" {
		return list, nil
	}

	// 小组成员资格按集合判断，不做文本匹配
	id := engine.GroupID(group)
	out := list[:0]
	for _, s := range list {
		if s.Groups.Set().Has(id) {
			out = append(out, s)
		}
	}
	return out, nil
}

// escapeLike 转义 LIKE 通配符，配合 ESCAPE '!' 使用
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

func (r *staffRepo) Update(ctx context.Context, staff *model.Staff) error {
	return r.db.WithContext(ctx).Save(staff).Error
}

func (r *staffRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("staff_id = ?", id).Delete(&model.Staff{}).Error
}

package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"shiftcare/backend/internal/engine"
	"shiftcare/backend/internal/model"
)

// FacilityEventRepository 设施行事数据访问接口
type FacilityEventRepository interface {
	Create(ctx context.Context, event *model.FacilityEvent) error
	GetByID(ctx context.Context, id string) (*model.FacilityEvent, error)
	GetByExternalUID(ctx context.Context, uid string) (*model.FacilityEvent, error)
	ListByMonth(ctx context.Context, year, month int, group string) ([]model.FacilityEvent, error)
	Update(ctx context.Context, event *model.FacilityEvent) error
	Delete(ctx context.Context, id string) error
}

type facilityEventRepo struct {
	db *gorm.DB
}

// NewFacilityEventRepo 创建 FacilityEventRepository 实例
func NewFacilityEventRepo(db *gorm.DB) FacilityEventRepository {
	return &facilityEventRepo{db: db}
}

func (r *facilityEventRepo) Create(ctx context.Context, event *model.FacilityEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *facilityEventRepo) GetByID(ctx context.Context, id string) (*model.FacilityEvent, error) {
	var event model.FacilityEvent
	if err := r.db.WithContext(ctx).Where("event_id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *facilityEventRepo) GetByExternalUID(ctx context.Context, uid string) (*model.FacilityEvent, error) {
	var event model.FacilityEvent
	if err := r.db.WithContext(ctx).Where("external_uid = ?", uid).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// ListByMonth group 非空时只返回该小组或未指定小组的行事
func (r *facilityEventRepo) ListByMonth(ctx context.Context, year, month int, group string) ([]model.FacilityEvent, error) {
	first, last := monthRange(year, month)
	var list []model.FacilityEvent
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", first, last).
		Order("date ASC, title ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	group = strings.TrimSpace(group)
	if group == "" {
		return list, nil
	}

	id := engine.GroupID(group)
	out := list[:0]
	for _, e := range list {
		if groups := e.Groups.Set(); groups.Len() == 0 || groups.Has(id) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *facilityEventRepo) Update(ctx context.Context, event *model.FacilityEvent) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *facilityEventRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("event_id = ?", id).Delete(&model.FacilityEvent{}).Error
}

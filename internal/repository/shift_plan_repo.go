package repository

import (
	"context"

	"gorm.io/gorm"

	"shiftcare/backend/internal/model"
	pkgerrors "shiftcare/backend/pkg/errors"
)

const assignmentBatchSize = 500

// ShiftPlanRepository 月度排班计划数据访问接口
type ShiftPlanRepository interface {
	Create(ctx context.Context, plan *model.ShiftPlan) error
	GetByMonth(ctx context.Context, year, month int) (*model.ShiftPlan, error)
	Update(ctx context.Context, plan *model.ShiftPlan) error
	ListAssignments(ctx context.Context, planID string) ([]model.ShiftAssignment, error)
	// ReplaceAssignments 以新明细整体替换计划下的全部明细
	ReplaceAssignments(ctx context.Context, planID string, assignments []model.ShiftAssignment) error
}

type shiftPlanRepo struct {
	db *gorm.DB
}

// NewShiftPlanRepo 创建 ShiftPlanRepository 实例
func NewShiftPlanRepo(db *gorm.DB) ShiftPlanRepository {
	return &shiftPlanRepo{db: db}
}

func (r *shiftPlanRepo) Create(ctx context.Context, plan *model.ShiftPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *shiftPlanRepo) GetByMonth(ctx context.Context, year, month int) (*model.ShiftPlan, error) {
	var plan model.ShiftPlan
	err := r.db.WithContext(ctx).
		Where("year = ? AND month = ?", year, month).
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// Update 乐观锁更新：version 不匹配时返回 ErrOptimisticLock
func (r *shiftPlanRepo) Update(ctx context.Context, plan *model.ShiftPlan) error {
	oldVersion := plan.Version
	result := r.db.WithContext(ctx).
		Model(plan).
		Where("plan_id = ? AND version = ?", plan.PlanID, oldVersion).
		Updates(map[string]interface{}{
			"status":       plan.Status,
			"strategy":     plan.Strategy,
			"published_at": plan.PublishedAt,
			"published_by": plan.PublishedBy,
			"version":      oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	plan.Version = oldVersion + 1
	return nil
}

func (r *shiftPlanRepo) ListAssignments(ctx context.Context, planID string) ([]model.ShiftAssignment, error) {
	var list []model.ShiftAssignment
	err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("staff_id ASC, date ASC").
		Find(&list).Error
	return list, err
}

func (r *shiftPlanRepo) ReplaceAssignments(ctx context.Context, planID string, assignments []model.ShiftAssignment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", planID).Delete(&model.ShiftAssignment{}).Error; err != nil {
			return err
		}
		if len(assignments) == 0 {
			return nil
		}
		return tx.CreateInBatches(&assignments, assignmentBatchSize).Error
	})
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"shiftcare/backend/internal/model"
)

// ShiftRequestRepository 排班希望数据访问接口
type ShiftRequestRepository interface {
	ListByMonth(ctx context.Context, year, month int) ([]model.ShiftRequest, error)
	ListByStaffAndMonth(ctx context.Context, staffID string, year, month int) ([]model.ShiftRequest, error)
	// ReplaceForStaffMonth 删除该职员当月全部希望后写入新的列表
	ReplaceForStaffMonth(ctx context.Context, staffID string, year, month int, requests []model.ShiftRequest) error
}

type shiftRequestRepo struct {
	db *gorm.DB
}

// NewShiftRequestRepo 创建 ShiftRequestRepository 实例
func NewShiftRequestRepo(db *gorm.DB) ShiftRequestRepository {
	return &shiftRequestRepo{db: db}
}

func (r *shiftRequestRepo) ListByMonth(ctx context.Context, year, month int) ([]model.ShiftRequest, error) {
	first, last := monthRange(year, month)
	var list []model.ShiftRequest
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", first, last).
		Order("staff_id ASC, date ASC, submitted_at ASC").
		Find(&list).Error
	return list, err
}

func (r *shiftRequestRepo) ListByStaffAndMonth(ctx context.Context, staffID string, year, month int) ([]model.ShiftRequest, error) {
	first, last := monthRange(year, month)
	var list []model.ShiftRequest
	err := r.db.WithContext(ctx).
		Where("staff_id = ? AND date >= ? AND date <= ?", staffID, first, last).
		Order("date ASC, submitted_at ASC").
		Find(&list).Error
	return list, err
}

func (r *shiftRequestRepo) ReplaceForStaffMonth(ctx context.Context, staffID string, year, month int, requests []model.ShiftRequest) error {
	first, last := monthRange(year, month)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("staff_id = ? AND date >= ? AND date <= ?", staffID, first, last).
			Delete(&model.ShiftRequest{}).Error; err != nil {
			return err
		}
		if len(requests) == 0 {
			return nil
		}
		return tx.Create(&requests).Error
	})
}

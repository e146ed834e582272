package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shiftcare/backend/internal/model"
)

// CoverageRuleRepository 人数下限规则数据访问接口
type CoverageRuleRepository interface {
	List(ctx context.Context) ([]model.CoverageRule, error)
	GetByCode(ctx context.Context, code string) (*model.CoverageRule, error)
	Upsert(ctx context.Context, rule *model.CoverageRule) error
	Delete(ctx context.Context, code string) error
	// SeedDefaults 仅插入不存在的规则，已有规则保持不变
	SeedDefaults(ctx context.Context, rules []model.CoverageRule) error
}

type coverageRuleRepo struct {
	db *gorm.DB
}

// NewCoverageRuleRepo 创建 CoverageRuleRepository 实例
func NewCoverageRuleRepo(db *gorm.DB) CoverageRuleRepository {
	return &coverageRuleRepo{db: db}
}

func (r *coverageRuleRepo) List(ctx context.Context) ([]model.CoverageRule, error) {
	var list []model.CoverageRule
	err := r.db.WithContext(ctx).Order("shift_code ASC").Find(&list).Error
	return list, err
}

func (r *coverageRuleRepo) GetByCode(ctx context.Context, code string) (*model.CoverageRule, error) {
	var rule model.CoverageRule
	if err := r.db.WithContext(ctx).Where("shift_code = ?", code).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *coverageRuleRepo) Upsert(ctx context.Context, rule *model.CoverageRule) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "shift_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"minimum", "updated_by", "updated_at"}),
	}).Create(rule).Error
}

func (r *coverageRuleRepo) Delete(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Where("shift_code = ?", code).Delete(&model.CoverageRule{}).Error
}

func (r *coverageRuleRepo) SeedDefaults(ctx context.Context, rules []model.CoverageRule) error {
	if len(rules) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rules).Error
}

package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"shiftcare/backend/internal/dto"
	"shiftcare/backend/internal/engine"
	"shiftcare/backend/internal/model"
	"shiftcare/backend/internal/repository"
)

// CoverageRuleService 人数下限规则业务接口
type CoverageRuleService interface {
	// Load 将配置中的默认规则补入数据库，再以数据库内容刷新 RuleBook
	Load(ctx context.Context, defaults engine.Rules) error
	List(ctx context.Context) ([]dto.CoverageRuleResponse, error)
	// Update minimum 为 0 时删除该规则
	Update(ctx context.Context, code string, minimum int, callerID string) (*dto.CoverageRuleResponse, error)
}

type coverageRuleService struct {
	repo    *repository.Repository
	catalog *engine.Catalog
	book    *RuleBook
	logger  *zap.Logger
}

// NewCoverageRuleService 创建 CoverageRuleService 实例
func NewCoverageRuleService(repo *repository.Repository, catalog *engine.Catalog, book *RuleBook, logger *zap.Logger) CoverageRuleService {
	return &coverageRuleService{repo: repo, catalog: catalog, book: book, logger: logger}
}

func (s *coverageRuleService) Load(ctx context.Context, defaults engine.Rules) error {
	seed := make([]model.CoverageRule, 0, len(defaults))
	for code, min := range defaults {
		seed = append(seed, model.CoverageRule{ShiftCode: code, Minimum: min})
	}
	sort.Slice(seed, func(i, j int) bool { return seed[i].ShiftCode < seed[j].ShiftCode })
	if err := s.repo.CoverageRule.SeedDefaults(ctx, seed); err != nil {
		s.logger.Error("写入默认下限规则失败", zap.Error(err))
		return err
	}
	return s.refresh(ctx)
}

// refresh 从数据库重建规则；未知班次的规则忽略并告警
func (s *coverageRuleService) refresh(ctx context.Context) error {
	list, err := s.repo.CoverageRule.List(ctx)
	if err != nil {
		return err
	}
	rules := make(engine.Rules, len(list))
	for _, r := range list {
		if !s.catalog.Has(r.ShiftCode) {
			s.logger.Warn("下限规则引用了未知班次，已忽略", zap.String("shift_code", r.ShiftCode))
			continue
		}
		rules[r.ShiftCode] = r.Minimum
	}
	if err := s.book.Replace(rules); err != nil {
		return err
	}
	s.logger.Info("下限规则已加载", zap.Any("rules", rules))
	return nil
}

func (s *coverageRuleService) List(_ context.Context) ([]dto.CoverageRuleResponse, error) {
	rules := s.book.Rules()
	out := make([]dto.CoverageRuleResponse, 0, len(rules))
	// 按注册表顺序输出
	for _, code := range s.catalog.Codes() {
		if min, ok := rules[code]; ok {
			out = append(out, dto.CoverageRuleResponse{ShiftCode: code, Minimum: min})
		}
	}
	return out, nil
}

func (s *coverageRuleService) Update(ctx context.Context, code string, minimum int, callerID string) (*dto.CoverageRuleResponse, error) {
	resolved, ok := s.catalog.Resolve(code)
	if !ok {
		return nil, engine.ErrUnknownShiftType
	}
	if minimum < 0 {
		return nil, engine.ErrInvalidRule
	}

	var err error
	if minimum == 0 {
		err = s.repo.CoverageRule.Delete(ctx, resolved)
	} else {
		by := callerID
		err = s.repo.CoverageRule.Upsert(ctx, &model.CoverageRule{
			ShiftCode: resolved,
			Minimum:   minimum,
			UpdatedBy: &by,
		})
	}
	if err != nil {
		s.logger.Error("更新下限规则失败", zap.String("shift_code", resolved), zap.Error(err))
		return nil, err
	}

	if err := s.refresh(ctx); err != nil {
		s.logger.Error("刷新下限规则失败", zap.Error(err))
		return nil, err
	}
	s.logger.Info("下限规则已更新",
		zap.String("shift_code", resolved), zap.Int("minimum", minimum), zap.String("by", callerID))
	return &dto.CoverageRuleResponse{ShiftCode: resolved, Minimum: minimum}, nil
}

package service

import (
	"fmt"
	"sync"

	"shiftcare/backend/config"
	"shiftcare/backend/internal/engine"
)

// NewCatalogFromConfig 按 engine.shift_types 构建班次注册表；未配置时使用默认班次表
func NewCatalogFromConfig(cfg *config.EngineConfig) (*engine.Catalog, error) {
	if len(cfg.ShiftTypes) == 0 {
		return engine.DefaultCatalog(), nil
	}
	types := make([]engine.ShiftType, 0, len(cfg.ShiftTypes))
	for _, t := range cfg.ShiftTypes {
		types = append(types, engine.ShiftType{
			Code:      t.Code,
			Name:      t.Name,
			Category:  engine.Category(t.Category),
			StartTime: t.StartTime,
			EndTime:   t.EndTime,
			Color:     t.Color,
			TextColor: t.TextColor,
		})
	}
	return engine.NewCatalog(types)
}

// RulesFromConfig 将配置中的下限表映射到注册表代码（viper 会把 map 键转为小写）
func RulesFromConfig(catalog *engine.Catalog, minimums map[string]int) (engine.Rules, error) {
	if minimums == nil {
		return engine.DefaultRules(catalog), nil
	}
	rules := make(engine.Rules, len(minimums))
	for key, min := range minimums {
		code, ok := catalog.Resolve(key)
		if !ok {
			return nil, fmt.Errorf("%w: engine.coverage_minimums.%s", engine.ErrUnknownShiftType, key)
		}
		rules[code] = min
	}
	if err := rules.Validate(catalog); err != nil {
		return nil, err
	}
	return rules, nil
}

// weightsFromConfig 同上，为空时由策略使用默认权重
func weightsFromConfig(catalog *engine.Catalog, weights map[string]float64) (map[string]float64, error) {
	if len(weights) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(weights))
	for key, w := range weights {
		code, ok := catalog.Resolve(key)
		if !ok {
			return nil, fmt.Errorf("%w: engine.weights.%s", engine.ErrUnknownShiftType, key)
		}
		out[code] = w
	}
	return out, nil
}

// strategyOptions 由配置与当前下限规则组装策略参数
func strategyOptions(cfg *config.EngineConfig, catalog *engine.Catalog, rules engine.Rules) (engine.StrategyOptions, error) {
	weights, err := weightsFromConfig(catalog, cfg.Weights)
	if err != nil {
		return engine.StrategyOptions{}, err
	}
	defaultCode := cfg.DefaultShift
	if defaultCode != "" {
		code, ok := catalog.Resolve(defaultCode)
		if !ok {
			return engine.StrategyOptions{}, fmt.Errorf("%w: engine.default_shift=%s", engine.ErrUnknownShiftType, defaultCode)
		}
		defaultCode = code
	}
	return engine.StrategyOptions{
		Seed:                   cfg.Seed,
		Weights:                weights,
		DefaultCode:            defaultCode,
		Rules:                  rules,
		MaxConsecutiveDays:     cfg.MaxConsecutiveDays,
		MinDaysOff:             cfg.MinDaysOff,
		RestAfterNight:         cfg.RestAfterNight,
		NightRequiresQualified: cfg.NightRequiresQualified,
	}, nil
}

// ── RuleBook ──

// RuleBook 当前生效的人数下限校验器，规则更新时整体替换
type RuleBook struct {
	catalog   *engine.Catalog
	mu        sync.RWMutex
	validator *engine.Validator
}

// NewRuleBook 创建 RuleBook
func NewRuleBook(catalog *engine.Catalog, rules engine.Rules) (*RuleBook, error) {
	v, err := engine.NewValidator(catalog, rules)
	if err != nil {
		return nil, err
	}
	return &RuleBook{catalog: catalog, validator: v}, nil
}

// Validator 当前校验器（只读，可并发使用）
func (b *RuleBook) Validator() *engine.Validator {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.validator
}

// Rules 当前规则副本
func (b *RuleBook) Rules() engine.Rules {
	return b.Validator().Rules()
}

// Replace 以新规则重建校验器；规则无效时保持原状
func (b *RuleBook) Replace(rules engine.Rules) error {
	v, err := engine.NewValidator(b.catalog, rules)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.validator = v
	b.mu.Unlock()
	return nil
}

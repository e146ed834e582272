package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// GridView 生成过程中已决定部分的只读视图
type GridView interface {
	// Assigned 查询已决定的单元格
	Assigned(staffID string, d Date) (string, bool)
	// Count 某日某班次已决定的人数
	Count(d Date, code string) int
}

// Decision 策略的单元格输入
type Decision struct {
	Staff         StaffMember
	StaffIndex    int
	RosterSize    int
	Date          Date
	Month         Month
	HasRequest    bool
	RequestedCode string
	Grid          GridView
}

// StrategyKind 策略变体标签
type StrategyKind string

const (
	StrategyRandomFill  StrategyKind = "random"
	StrategyRequestOnly StrategyKind = "request_only"
	StrategyConstraint  StrategyKind = "constraint"
)

const (
	defaultStrategyKind   = StrategyRandomFill
	defaultMaxConsecutive = 5
)

// Strategy 为单元格选择班次。
//
// Generator 对每个单元格都会调用 Decide（包括已有希望的单元格，便于有状态的
// 策略感知希望休）；有希望的单元格最终一律采用希望的班次。ctx 取消时应尽快返回。
type Strategy interface {
	Kind() StrategyKind
	Decide(ctx context.Context, d Decision) (string, error)
}

// StrategyOptions 构建策略所需参数（来自配置）
type StrategyOptions struct {
	Seed                   int64
	Weights                map[string]float64
	DefaultCode            string
	Rules                  Rules
	MaxConsecutiveDays     int
	MinDaysOff             int
	RestAfterNight         bool
	NightRequiresQualified bool
}

// NewStrategy 按标签构建策略
func NewStrategy(kind StrategyKind, catalog *Catalog, opts StrategyOptions) (Strategy, error) {
	if kind == "" {
		kind = defaultStrategyKind
	}
	switch kind {
	case StrategyRandomFill:
		return NewRandomFill(catalog, opts.Weights, opts.Seed)
	case StrategyRequestOnly:
		return NewRequestOnly(catalog, opts.DefaultCode)
	case StrategyConstraint:
		return NewConstraintOptimizing(catalog, opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
}

// ── RandomFill ──

// DefaultWeights 早出 .2 / 日勤 .4 / 遅出 .2 / 夜勤 .1 / 休み .1
func DefaultWeights(catalog *Catalog) map[string]float64 {
	byCat := map[Category]float64{
		CategoryEarly: 0.2,
		CategoryDay:   0.4,
		CategoryLate:  0.2,
		CategoryNight: 0.1,
		CategoryOff:   0.1,
	}
	weights := make(map[string]float64)
	for cat, w := range byCat {
		if t, ok := catalog.ByCategory(cat); ok {
			weights[t.Code] = w
		}
	}
	return weights
}

// RandomFill 按权重随机选择班次（参考实现的占位策略）
type RandomFill struct {
	mu         sync.Mutex
	rng        *rand.Rand
	codes      []string
	cumulative []float64
	total      float64
}

var _ Strategy = (*RandomFill)(nil)

// NewRandomFill seed 为 0 时以当前时间为种子
func NewRandomFill(catalog *Catalog, weights map[string]float64, seed int64) (*RandomFill, error) {
	if len(weights) == 0 {
		weights = DefaultWeights(catalog)
	}
	for code, w := range weights {
		if err := catalog.Validate(code); err != nil {
			return nil, err
		}
		if w < 0 {
			return nil, fmt.Errorf("班次 %s 的权重不能为负数", code)
		}
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &RandomFill{rng: rand.New(rand.NewSource(seed))}
	// 按注册表顺序累加，保证同种子结果稳定
	for _, code := range catalog.Codes() {
		w := weights[code]
		if w == 0 {
			continue
		}
		s.total += w
		s.codes = append(s.codes, code)
		s.cumulative = append(s.cumulative, s.total)
	}
	if s.total == 0 {
		return nil, fmt.Errorf("随机策略的权重总和必须大于 0")
	}
	return s, nil
}

func (s *RandomFill) Kind() StrategyKind { return StrategyRandomFill }

func (s *RandomFill) Decide(_ context.Context, d Decision) (string, error) {
	if d.HasRequest {
		return d.RequestedCode, nil
	}
	s.mu.Lock()
	x := s.rng.Float64() * s.total
	s.mu.Unlock()

	for i, c := range s.cumulative {
		if x < c {
			return s.codes[i], nil
		}
	}
	return s.codes[len(s.codes)-1], nil
}

// ── RequestOnly ──

// RequestOnly 只落实希望，其余单元格填固定班次（默认日勤）
type RequestOnly struct {
	defaultCode string
}

var _ Strategy = (*RequestOnly)(nil)

// NewRequestOnly defaultCode 为空时取日勤
func NewRequestOnly(catalog *Catalog, defaultCode string) (*RequestOnly, error) {
	if defaultCode == "" {
		t, ok := catalog.ByCategory(CategoryDay)
		if !ok {
			return nil, fmt.Errorf("注册表中没有日勤班次，需显式指定默认班次")
		}
		defaultCode = t.Code
	}
	if err := catalog.Validate(defaultCode); err != nil {
		return nil, err
	}
	return &RequestOnly{defaultCode: defaultCode}, nil
}

func (s *RequestOnly) Kind() StrategyKind { return StrategyRequestOnly }

func (s *RequestOnly) Decide(_ context.Context, d Decision) (string, error) {
	if d.HasRequest {
		return d.RequestedCode, nil
	}
	return s.defaultCode, nil
}

// ── ConstraintOptimizing ──

// ConstraintOptimizing 贪心约束策略。
//
// 硬约束（按顺序）：
//  1. 夜勤次日休息（RestAfterNight）
//  2. 连续出勤不超过 MaxConsecutiveDays
//  3. 剩余天数不足以凑满 MinDaysOff 时必须休息
//  4. 夜勤只排给有资格且非パート的职员（NightRequiresQualified）
//
// 软目标：先补当日下限缺口最大的班次；无缺口时按 MinDaysOff 均摊休息，
// 再在非夜勤出勤班次中选当日人数最少者（同数优先日勤）。
type ConstraintOptimizing struct {
	catalog                *Catalog
	rules                  Rules
	maxConsecutive         int
	minDaysOff             int
	restAfterNight         bool
	nightRequiresQualified bool

	off, day, night string
	working         []string
}

var _ Strategy = (*ConstraintOptimizing)(nil)

// NewConstraintOptimizing 创建约束策略
func NewConstraintOptimizing(catalog *Catalog, opts StrategyOptions) (*ConstraintOptimizing, error) {
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules(catalog)
	}
	if err := rules.Validate(catalog); err != nil {
		return nil, err
	}
	maxConsecutive := opts.MaxConsecutiveDays
	if maxConsecutive <= 0 {
		maxConsecutive = defaultMaxConsecutive
	}

	s := &ConstraintOptimizing{
		catalog:                catalog,
		rules:                  rules.Clone(),
		maxConsecutive:         maxConsecutive,
		minDaysOff:             opts.MinDaysOff,
		restAfterNight:         opts.RestAfterNight,
		nightRequiresQualified: opts.NightRequiresQualified,
		off:                    catalog.DefaultOff().Code,
	}
	if t, ok := catalog.ByCategory(CategoryDay); ok {
		s.day = t.Code
	}
	if t, ok := catalog.ByCategory(CategoryNight); ok {
		s.night = t.Code
	}
	for _, t := range catalog.Working() {
		s.working = append(s.working, t.Code)
	}
	return s, nil
}

func (s *ConstraintOptimizing) Kind() StrategyKind { return StrategyConstraint }

func (s *ConstraintOptimizing) Decide(ctx context.Context, d Decision) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if d.HasRequest {
		return d.RequestedCode, nil
	}

	prev, hasPrev := d.Grid.Assigned(d.Staff.ID, d.Date.AddDays(-1))
	if s.restAfterNight && hasPrev && prev == s.night && s.night != "" {
		return s.off, nil
	}
	if s.workStreak(d) >= s.maxConsecutive {
		return s.off, nil
	}

	offs := s.offsSoFar(d)
	remaining := d.Month.Days() - d.Date.Day + 1
	if s.minDaysOff-offs >= remaining {
		return s.off, nil
	}

	candidates := make([]string, 0, len(s.working))
	for _, code := range s.working {
		if code == s.night && !s.nightEligible(d.Staff) {
			continue
		}
		// 夜勤后不可接早出
		if hasPrev && prev == s.night && s.catalog.isCategory(code, CategoryEarly) {
			continue
		}
		candidates = append(candidates, code)
	}
	if len(candidates) == 0 {
		return s.off, nil
	}

	// 补缺口
	best, bestDeficit := "", 0
	for _, code := range candidates {
		min, ok := s.rules[code]
		if !ok {
			continue
		}
		if deficit := min - d.Grid.Count(d.Date, code); deficit > bestDeficit {
			best, bestDeficit = code, deficit
		}
	}
	if best != "" {
		return best, nil
	}

	// 均摊休息
	if s.minDaysOff > 0 && offs < s.minDaysOff*d.Date.Day/d.Month.Days() {
		return s.off, nil
	}

	// 均衡出勤
	choice, least := "", -1
	for _, code := range candidates {
		if code == s.night {
			continue
		}
		n := d.Grid.Count(d.Date, code)
		if least < 0 || n < least || (n == least && code == s.day) {
			choice, least = code, n
		}
	}
	if choice == "" {
		return s.off, nil
	}
	return choice, nil
}

func (s *ConstraintOptimizing) nightEligible(m StaffMember) bool {
	if !s.nightRequiresQualified {
		return true
	}
	return m.Qualified && m.Employment != EmploymentPartTime
}

// workStreak 截至前一日的连续出勤天数（仅统计当月已决定部分）
func (s *ConstraintOptimizing) workStreak(d Decision) int {
	n := 0
	for day := d.Date.AddDays(-1); d.Month.Contains(day); day = day.AddDays(-1) {
		code, ok := d.Grid.Assigned(d.Staff.ID, day)
		if !ok || !s.catalog.IsWorking(code) {
			break
		}
		n++
	}
	return n
}

func (s *ConstraintOptimizing) offsSoFar(d Decision) int {
	n := 0
	for day := 1; day < d.Date.Day; day++ {
		code, ok := d.Grid.Assigned(d.Staff.ID, d.Month.Date(day))
		if ok && !s.catalog.IsWorking(code) {
			n++
		}
	}
	return n
}

package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Assignment 某职员某日的班次
type Assignment struct {
	ID        string `json:"id"`
	Date      Date   `json:"date"`
	StaffID   string `json:"staff_id"`
	ShiftCode string `json:"shift_code"`
}

func assignmentID(staffID string, d Date) string {
	return staffID + "-" + d.String()
}

type cellKey struct {
	staffID string
	date    Date
}

// Grid 一个月的完整排班（职员 × 日期）
type Grid struct {
	Month       Month
	StaffIDs    []string // 名单顺序
	Assignments []Assignment
	index       map[cellKey]int
	counts      map[Date]map[string]int
}

func newGrid(month Month, staffCap int) *Grid {
	return &Grid{
		Month:       month,
		StaffIDs:    make([]string, 0, staffCap),
		Assignments: make([]Assignment, 0, staffCap*month.Days()),
		index:       make(map[cellKey]int, staffCap*month.Days()),
		counts:      make(map[Date]map[string]int, month.Days()),
	}
}

// NewGrid 由外部数据（如已发布的排班）构造网格；同一单元格后者覆盖前者
func NewGrid(month Month, assignments []Assignment) *Grid {
	g := newGrid(month, 0)
	seen := make(map[string]bool)
	for _, a := range assignments {
		if !seen[a.StaffID] {
			seen[a.StaffID] = true
			g.StaffIDs = append(g.StaffIDs, a.StaffID)
		}
		g.put(a.StaffID, a.Date, a.ShiftCode)
	}
	return g
}

func (g *Grid) put(staffID string, d Date, code string) {
	k := cellKey{staffID: staffID, date: d}
	if i, ok := g.index[k]; ok {
		g.counts[d][g.Assignments[i].ShiftCode]--
		g.Assignments[i].ShiftCode = code
	} else {
		g.index[k] = len(g.Assignments)
		g.Assignments = append(g.Assignments, Assignment{
			ID:        assignmentID(staffID, d),
			Date:      d,
			StaffID:   staffID,
			ShiftCode: code,
		})
	}
	if g.counts[d] == nil {
		g.counts[d] = make(map[string]int)
	}
	g.counts[d][code]++
}

// Len 单元格数量
func (g *Grid) Len() int { return len(g.Assignments) }

// Lookup 查询单元格
func (g *Grid) Lookup(staffID string, d Date) (Assignment, bool) {
	i, ok := g.index[cellKey{staffID: staffID, date: d}]
	if !ok {
		return Assignment{}, false
	}
	return g.Assignments[i], true
}

// Assigned 实现 GridView
func (g *Grid) Assigned(staffID string, d Date) (string, bool) {
	a, ok := g.Lookup(staffID, d)
	return a.ShiftCode, ok
}

// Count 实现 GridView
func (g *Grid) Count(d Date, code string) int { return g.counts[d][code] }

// CountsOn 实现 CountSource
func (g *Grid) CountsOn(d Date) map[string]int {
	out := make(map[string]int, len(g.counts[d]))
	for code, n := range g.counts[d] {
		if n > 0 {
			out[code] = n
		}
	}
	return out
}

// Result 一次生成的结果
type Result struct {
	Grid      *Grid
	Strategy  StrategyKind
	Conflicts []DuplicateRequestConflict
	Ignored   int
	Elapsed   time.Duration
}

// ── Generator ──

const (
	defaultMinYear = 2000
	defaultMaxYear = 2100
)

// Option 配置 Generator
type Option func(*Generator)

// WithLogger 设置日志器（默认 Nop）
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithYearRange 设置允许的年份范围（闭区间）
func WithYearRange(min, max int) Option {
	return func(g *Generator) {
		g.minYear, g.maxYear = min, max
	}
}

// Generator 整月排班生成器：每次都是整月重算，不做增量合并
type Generator struct {
	catalog    *Catalog
	reconciler *Reconciler
	strategy   Strategy
	minYear    int
	maxYear    int
	logger     *zap.Logger
}

// NewGenerator 创建生成器
func NewGenerator(catalog *Catalog, strategy Strategy, opts ...Option) *Generator {
	g := &Generator{
		catalog:    catalog,
		reconciler: NewReconciler(catalog),
		strategy:   strategy,
		minYear:    defaultMinYear,
		maxYear:    defaultMaxYear,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Strategy 当前注入的策略
func (g *Generator) Strategy() Strategy { return g.strategy }

// ValidateMonth 年月越界返回 ErrInvalidMonth
func (g *Generator) ValidateMonth(m Month) error {
	if !m.Valid() || m.Year < g.minYear || m.Year > g.maxYear {
		return fmt.Errorf("%w: %d-%d (允许 %d~%d 年)", ErrInvalidMonth, m.Year, int(m.Month), g.minYear, g.maxYear)
	}
	return nil
}

// Generate 为名单中每个职员生成当月每日的班次。
//
// 名单为空时返回空网格与 ErrEmptyRoster；ctx 被取消时返回 nil 网格，
// 调用方据此保证不会提交半成品。
func (g *Generator) Generate(ctx context.Context, roster []StaffMember, requests []ShiftRequest, month Month) (*Result, error) {
	start := time.Now()

	if err := g.ValidateMonth(month); err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return &Result{Grid: newGrid(month, 0), Strategy: g.strategy.Kind()}, ErrEmptyRoster
	}
	seen := make(map[string]bool, len(roster))
	for _, m := range roster {
		if seen[m.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStaff, m.ID)
		}
		seen[m.ID] = true
	}

	// 1. 合并希望
	recs, err := g.reconciler.ReconcileAll(requests, roster, month)
	if err != nil {
		return nil, err
	}
	result := &Result{Strategy: g.strategy.Kind()}
	for _, m := range roster {
		rec := recs[m.ID]
		result.Ignored += rec.Ignored
		for _, c := range rec.Conflicts {
			g.logger.Warn("希望重复，按最近提交保留",
				zap.String("staff_id", c.StaffID),
				zap.String("date", c.Date.String()),
				zap.String("kept", c.Kept.ID),
				zap.String("dropped", c.Dropped.ID),
			)
		}
		result.Conflicts = append(result.Conflicts, rec.Conflicts...)
	}

	// 2. 职员 × 日期逐格决定
	grid := newGrid(month, len(roster))
	dates := month.Dates()
	for i, m := range roster {
		grid.StaffIDs = append(grid.StaffIDs, m.ID)
		for _, d := range dates {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("排班生成已中止: %w", err)
			}

			requested, has := recs[m.ID].Lookup(d)
			code, err := g.strategy.Decide(ctx, Decision{
				Staff:         m,
				StaffIndex:    i,
				RosterSize:    len(roster),
				Date:          d,
				Month:         month,
				HasRequest:    has,
				RequestedCode: requested,
				Grid:          grid,
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, fmt.Errorf("排班生成已中止: %w", ctxErr)
				}
				return nil, fmt.Errorf("策略 %s 决策失败 (%s %s): %w", g.strategy.Kind(), m.ID, d, err)
			}
			if has && code != requested {
				g.logger.Debug("策略结果与希望不一致，采用希望",
					zap.String("staff_id", m.ID),
					zap.String("date", d.String()),
					zap.String("strategy_code", code),
					zap.String("requested", requested),
				)
				code = requested
			}
			if err := g.catalog.Validate(code); err != nil {
				return nil, fmt.Errorf("策略 %s 返回了无效班次: %w", g.strategy.Kind(), err)
			}
			grid.put(m.ID, d, code)
		}
	}

	result.Grid = grid
	result.Elapsed = time.Since(start)
	return result, nil
}

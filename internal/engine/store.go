package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Store 单月可变排班网格。
//
// Get / Set 可并发调用；Seed 在写锁下整体替换，读者不会看到半替换状态。
type Store struct {
	catalog *Catalog
	month   Month

	mu      sync.RWMutex
	cells   map[cellKey]Assignment
	staff   []string
	seeded  bool
	version uint64
}

// NewStore 创建空网格
func NewStore(catalog *Catalog, month Month) *Store {
	return &Store{
		catalog: catalog,
		month:   month,
		cells:   make(map[cellKey]Assignment),
	}
}

// Month 网格所属月份
func (s *Store) Month() Month { return s.month }

// Seed 用生成结果整体替换网格，这是唯一的批量写入
func (s *Store) Seed(grid *Grid) error {
	if grid == nil {
		return fmt.Errorf("排班网格为空")
	}
	if grid.Month != s.month {
		return fmt.Errorf("%w: 网格月份 %s 与存储月份 %s 不一致", ErrDateOutOfMonth, grid.Month, s.month)
	}

	// 锁外构建新表
	cells := make(map[cellKey]Assignment, len(grid.Assignments))
	for _, a := range grid.Assignments {
		if !s.month.Contains(a.Date) {
			return fmt.Errorf("%w: %s", ErrDateOutOfMonth, a.Date)
		}
		if err := s.catalog.Validate(a.ShiftCode); err != nil {
			return err
		}
		cells[cellKey{staffID: a.StaffID, date: a.Date}] = a
	}
	staff := make([]string, len(grid.StaffIDs))
	copy(staff, grid.StaffIDs)

	s.mu.Lock()
	s.cells = cells
	s.staff = staff
	s.seeded = true
	s.version++
	s.mu.Unlock()
	return nil
}

// Get 查询单元格
func (s *Store) Get(staffID string, d Date) (Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.cells[cellKey{staffID: staffID, date: d}]
	return a, ok
}

// Set 人工调整单元格（不存在则新增）；校验失败时网格保持不变
func (s *Store) Set(staffID string, d Date, code string) (Assignment, error) {
	if err := s.catalog.Validate(code); err != nil {
		return Assignment{}, err
	}
	if !s.month.Contains(d) {
		return Assignment{}, fmt.Errorf("%w: %s 不在 %s", ErrDateOutOfMonth, d, s.month)
	}
	if staffID == "" {
		return Assignment{}, fmt.Errorf("职员 ID 不能为空")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	k := cellKey{staffID: staffID, date: d}
	a, ok := s.cells[k]
	if !ok {
		a = Assignment{ID: assignmentID(staffID, d), Date: d, StaffID: staffID}
		if !s.hasStaff(staffID) {
			s.staff = append(s.staff, staffID)
		}
	}
	a.ShiftCode = code
	s.cells[k] = a
	s.version++
	return a, nil
}

func (s *Store) hasStaff(staffID string) bool {
	for _, id := range s.staff {
		if id == staffID {
			return true
		}
	}
	return false
}

// Snapshot 当前网格副本，按职员（名单顺序）、日期排序
func (s *Store) Snapshot() *Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// SnapshotWithVersion 在同一把读锁下取网格副本与其版本号
func (s *Store) SnapshotWithVersion() (*Grid, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), s.version
}

func (s *Store) snapshotLocked() *Grid {
	order := make(map[string]int, len(s.staff))
	for i, id := range s.staff {
		order[id] = i
	}
	list := make([]Assignment, 0, len(s.cells))
	for _, a := range s.cells {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		oi, oj := order[list[i].StaffID], order[list[j].StaffID]
		if oi != oj {
			return oi < oj
		}
		return list[i].Date.Before(list[j].Date)
	})
	g := NewGrid(s.month, list)
	g.StaffIDs = append(g.StaffIDs[:0], s.staff...)
	return g
}

// CountsOn 实现 CountSource；每次调用都重新统计
func (s *Store) CountsOn(d Date) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for k, a := range s.cells {
		if k.date == d {
			counts[a.ShiftCode]++
		}
	}
	return counts
}

// Count 某日某班次人数
func (s *Store) Count(d Date, code string) int {
	return s.CountsOn(d)[code]
}

// Staff 网格中的职员 ID（名单顺序）
func (s *Store) Staff() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.staff))
	copy(out, s.staff)
	return out
}

// Len 单元格数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cells)
}

// Version 每次写入递增
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Seeded 是否已生成过
func (s *Store) Seeded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seeded
}

// ── Board ──

// Board 按月份持有 Store
type Board struct {
	catalog *Catalog
	mu      sync.Mutex
	stores  map[Month]*Store
}

// NewBoard 创建空看板
func NewBoard(catalog *Catalog) *Board {
	return &Board{catalog: catalog, stores: make(map[Month]*Store)}
}

// Get 查询某月的 Store
func (b *Board) Get(m Month) (*Store, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.stores[m]
	return s, ok
}

// Ensure 不存在则创建
func (b *Board) Ensure(m Month) *Store {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.stores[m]
	if !ok {
		s = NewStore(b.catalog, m)
		b.stores[m] = s
	}
	return s
}

// Drop 丢弃某月网格
func (b *Board) Drop(m Month) {
	b.mu.Lock()
	delete(b.stores, m)
	b.mu.Unlock()
}

// Months 已有网格的月份（升序）
func (b *Board) Months() []Month {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Month, 0, len(b.stores))
	for m := range b.stores {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

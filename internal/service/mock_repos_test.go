package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"shiftcare/backend/internal/model"
	"shiftcare/backend/internal/repository"
	pkgerrors "shiftcare/backend/pkg/errors"
)

// ── Mock Repositories ──

type mockStaffRepo struct {
	mu    sync.Mutex
	staff map[string]*model.Staff
	err   error         // 非 nil 时所有写操作返回该错误
	gate  chan struct{} // 非 nil 时 List 阻塞到 gate 关闭或 ctx 取消
}

func newMockStaffRepo() *mockStaffRepo {
	return &mockStaffRepo{staff: make(map[string]*model.Staff)}
}

func (m *mockStaffRepo) Create(_ context.Context, staff *model.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.staff[staff.StaffID]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *staff
	m.staff[staff.StaffID] = &cp
	return nil
}

func (m *mockStaffRepo) GetByID(_ context.Context, id string) (*model.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.staff[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStaffRepo) List(ctx context.Context, filters *repository.StaffListFilters) ([]model.Staff, error) {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Staff
	for _, s := range m.staff {
		if filters != nil && filters.Group != "" {
			found := false
			for _, g := range s.Groups {
				if g == filters.Group {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		if filters != nil && filters.Keyword != "" &&
			!strings.Contains(s.Name, filters.Keyword) && !strings.Contains(s.StaffID, filters.Keyword) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].StaffID < out[j].StaffID
	})
	return out, nil
}

func (m *mockStaffRepo) Update(_ context.Context, staff *model.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *staff
	m.staff[staff.StaffID] = &cp
	return nil
}

func (m *mockStaffRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.staff, id)
	return nil
}

func (m *mockStaffRepo) add(staff ...model.Staff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range staff {
		cp := staff[i]
		m.staff[cp.StaffID] = &cp
	}
}

// ──

type mockShiftRequestRepo struct {
	mu       sync.Mutex
	requests []model.ShiftRequest
	seq      int
}

func newMockShiftRequestRepo() *mockShiftRequestRepo {
	return &mockShiftRequestRepo{}
}

func inMonth(date string, year, month int) bool {
	t, err := time.Parse("2006-01-02", date)
	return err == nil && t.Year() == year && int(t.Month()) == month
}

func (m *mockShiftRequestRepo) ListByMonth(_ context.Context, year, month int) ([]model.ShiftRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ShiftRequest
	for _, r := range m.requests {
		if inMonth(r.Date, year, month) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockShiftRequestRepo) ListByStaffAndMonth(_ context.Context, staffID string, year, month int) ([]model.ShiftRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ShiftRequest
	for _, r := range m.requests {
		if r.StaffID == staffID && inMonth(r.Date, year, month) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockShiftRequestRepo) ReplaceForStaffMonth(_ context.Context, staffID string, year, month int, requests []model.ShiftRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.requests[:0]
	for _, r := range m.requests {
		if r.StaffID == staffID && inMonth(r.Date, year, month) {
			continue
		}
		kept = append(kept, r)
	}
	m.requests = kept
	for _, r := range requests {
		m.seq++
		if r.RequestID == "" {
			r.RequestID = fmt.Sprintf("req-%03d", m.seq)
		}
		m.requests = append(m.requests, r)
	}
	return nil
}

func (m *mockShiftRequestRepo) add(requests ...model.ShiftRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, requests...)
}

// ──

type mockEventRepo struct {
	mu     sync.Mutex
	events map[string]*model.FacilityEvent
	seq    int
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: make(map[string]*model.FacilityEvent)}
}

func (m *mockEventRepo) Create(_ context.Context, event *model.FacilityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.EventID == "" {
		m.seq++
		event.EventID = fmt.Sprintf("evt-%03d", m.seq)
	}
	cp := *event
	m.events[event.EventID] = &cp
	return nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id string) (*model.FacilityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.events[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventRepo) GetByExternalUID(_ context.Context, uid string) (*model.FacilityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ExternalUID == uid {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventRepo) ListByMonth(_ context.Context, year, month int, group string) ([]model.FacilityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.FacilityEvent
	for _, e := range m.events {
		if !inMonth(e.Date, year, month) {
			continue
		}
		if group != "" && len(e.Groups) > 0 && !strings.Contains(","+e.Groups.String()+",", ","+group+",") {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *mockEventRepo) Update(_ context.Context, event *model.FacilityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *event
	m.events[event.EventID] = &cp
	return nil
}

func (m *mockEventRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, id)
	return nil
}

// ──

type mockCoverageRuleRepo struct {
	mu    sync.Mutex
	rules map[string]*model.CoverageRule
}

func newMockCoverageRuleRepo() *mockCoverageRuleRepo {
	return &mockCoverageRuleRepo{rules: make(map[string]*model.CoverageRule)}
}

func (m *mockCoverageRuleRepo) List(_ context.Context) ([]model.CoverageRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CoverageRule
	for _, r := range m.rules {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShiftCode < out[j].ShiftCode })
	return out, nil
}

func (m *mockCoverageRuleRepo) GetByCode(_ context.Context, code string) (*model.CoverageRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rules[code]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCoverageRuleRepo) Upsert(_ context.Context, rule *model.CoverageRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rule
	m.rules[rule.ShiftCode] = &cp
	return nil
}

func (m *mockCoverageRuleRepo) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rules, code)
	return nil
}

func (m *mockCoverageRuleRepo) SeedDefaults(_ context.Context, rules []model.CoverageRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rules {
		if _, ok := m.rules[r.ShiftCode]; !ok {
			cp := r
			m.rules[r.ShiftCode] = &cp
		}
	}
	return nil
}

// ──

type mockShiftPlanRepo struct {
	mu          sync.Mutex
	plans       map[string]*model.ShiftPlan // key: plan_id
	assignments map[string][]model.ShiftAssignment
	seq         int
}

func newMockShiftPlanRepo() *mockShiftPlanRepo {
	return &mockShiftPlanRepo{
		plans:       make(map[string]*model.ShiftPlan),
		assignments: make(map[string][]model.ShiftAssignment),
	}
}

func (m *mockShiftPlanRepo) Create(_ context.Context, plan *model.ShiftPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plans {
		if p.Year == plan.Year && p.Month == plan.Month {
			return gorm.ErrDuplicatedKey
		}
	}
	if plan.PlanID == "" {
		m.seq++
		plan.PlanID = fmt.Sprintf("plan-%d", m.seq)
	}
	cp := *plan
	m.plans[plan.PlanID] = &cp
	return nil
}

func (m *mockShiftPlanRepo) GetByMonth(_ context.Context, year, month int) (*model.ShiftPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plans {
		if p.Year == year && p.Month == month {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftPlanRepo) Update(_ context.Context, plan *model.ShiftPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.plans[plan.PlanID]
	if !ok || cur.Version != plan.Version {
		return pkgerrors.ErrOptimisticLock
	}
	plan.Version++
	cp := *plan
	m.plans[plan.PlanID] = &cp
	return nil
}

func (m *mockShiftPlanRepo) ListAssignments(_ context.Context, planID string) ([]model.ShiftAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ShiftAssignment(nil), m.assignments[planID]...), nil
}

func (m *mockShiftPlanRepo) ReplaceAssignments(_ context.Context, planID string, assignments []model.ShiftAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[planID] = append([]model.ShiftAssignment(nil), assignments...)
	return nil
}

// ── 聚合 ──

type mockRepos struct {
	staff    *mockStaffRepo
	requests *mockShiftRequestRepo
	events   *mockEventRepo
	rules    *mockCoverageRuleRepo
	plans    *mockShiftPlanRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		staff:    newMockStaffRepo(),
		requests: newMockShiftRequestRepo(),
		events:   newMockEventRepo(),
		rules:    newMockCoverageRuleRepo(),
		plans:    newMockShiftPlanRepo(),
	}
	repo := &repository.Repository{
		Staff:        m.staff,
		ShiftRequest: m.requests,
		Event:        m.events,
		CoverageRule: m.rules,
		ShiftPlan:    m.plans,
	}
	return repo, m
}

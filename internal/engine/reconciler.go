package engine

import (
	"fmt"
	"sort"
	"time"
)

// ShiftRequest 职员提交的排班希望（通常为休み）
type ShiftRequest struct {
	ID          string
	StaffID     string
	Date        Date
	ShiftCode   string // 为空时视为默认休息班次
	Note        string
	SubmittedAt time.Time
}

// newerThan 最近提交者优先；提交时间相同时 ID 较大者优先
func (r ShiftRequest) newerThan(o ShiftRequest) bool {
	if !r.SubmittedAt.Equal(o.SubmittedAt) {
		return r.SubmittedAt.After(o.SubmittedAt)
	}
	return r.ID > o.ID
}

// DuplicateRequestConflict 同一职员同一日期存在多条希望
type DuplicateRequestConflict struct {
	StaffID string
	Date    Date
	Kept    ShiftRequest
	Dropped ShiftRequest
}

func (c DuplicateRequestConflict) String() string {
	return fmt.Sprintf("职员 %s 在 %s 有重复希望: 保留 %s(%s)，丢弃 %s(%s)",
		c.StaffID, c.Date, c.Kept.ID, c.Kept.ShiftCode, c.Dropped.ID, c.Dropped.ShiftCode)
}

// Reconciliation 单个职员在目标月份的希望合并结果
type Reconciliation struct {
	StaffID   string
	Month     Month
	Granted   map[Date]string
	Conflicts []DuplicateRequestConflict
	Ignored   int // 月份外被忽略的希望数
}

// Lookup 查询某日的批准班次
func (r *Reconciliation) Lookup(d Date) (string, bool) {
	if r == nil {
		return "", false
	}
	code, ok := r.Granted[d]
	return code, ok
}

// Reconciler 希望合并器
//
// 同一 (职员, 日期) 的多条希望按 latest-wins 处理：SubmittedAt 最大者保留，
// 时间相同时取 ID 字典序最大者。目标月份以外的希望忽略，不报错。
type Reconciler struct {
	catalog *Catalog
}

// NewReconciler 创建合并器
func NewReconciler(catalog *Catalog) *Reconciler {
	return &Reconciler{catalog: catalog}
}

// Reconcile 合并单个职员的希望
func (r *Reconciler) Reconcile(requests []ShiftRequest, staffID string, month Month) (*Reconciliation, error) {
	chosen := make(map[Date]ShiftRequest)
	result := &Reconciliation{StaffID: staffID, Month: month}

	for _, req := range requests {
		if req.StaffID != staffID {
			continue
		}
		if !month.Contains(req.Date) {
			result.Ignored++
			continue
		}
		if req.ShiftCode == "" {
			req.ShiftCode = r.catalog.DefaultOff().Code
		}
		if err := r.catalog.Validate(req.ShiftCode); err != nil {
			return nil, fmt.Errorf("希望 %s: %w", req.ID, err)
		}

		prev, exists := chosen[req.Date]
		if !exists {
			chosen[req.Date] = req
			continue
		}
		kept, dropped := prev, req
		if req.newerThan(prev) {
			kept, dropped = req, prev
		}
		chosen[req.Date] = kept
		result.Conflicts = append(result.Conflicts, DuplicateRequestConflict{
			StaffID: staffID,
			Date:    req.Date,
			Kept:    kept,
			Dropped: dropped,
		})
	}

	result.Granted = make(map[Date]string, len(chosen))
	for d, req := range chosen {
		result.Granted[d] = req.ShiftCode
	}
	sort.Slice(result.Conflicts, func(i, j int) bool {
		ci, cj := result.Conflicts[i], result.Conflicts[j]
		if ci.Date != cj.Date {
			return ci.Date.Before(cj.Date)
		}
		return ci.Dropped.ID < cj.Dropped.ID
	})
	return result, nil
}

// ReconcileAll 对名单中每个职员执行合并，返回 staffID → 结果
func (r *Reconciler) ReconcileAll(requests []ShiftRequest, roster []StaffMember, month Month) (map[string]*Reconciliation, error) {
	byStaff := make(map[string][]ShiftRequest, len(roster))
	for _, req := range requests {
		byStaff[req.StaffID] = append(byStaff[req.StaffID], req)
	}

	out := make(map[string]*Reconciliation, len(roster))
	for _, m := range roster {
		rec, err := r.Reconcile(byStaff[m.ID], m.ID, month)
		if err != nil {
			return nil, err
		}
		out[m.ID] = rec
	}
	return out, nil
}

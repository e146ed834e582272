package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftcare/backend/config"
	"shiftcare/backend/internal/dto"
	"shiftcare/backend/internal/engine"
	"shiftcare/backend/internal/model"
	"shiftcare/backend/internal/repository"
)

// ── 希望模块业务错误 ──

var (
	ErrForbiddenRequestOwner = errors.New("只能查看或提交本人的希望")
	ErrRequestDateOutOfMonth = errors.New("希望日期不在所选月份内")
	ErrRequestDuplicateDate  = errors.New("同一日期只能提交一条希望")
)

// RequestService 排班希望业务接口
type RequestService interface {
	List(ctx context.Context, q *dto.RequestListQuery, callerID string, callerAdmin bool) ([]dto.ShiftRequestResponse, error)
	// Save 整体替换职员当月的希望，返回保存后的列表
	Save(ctx context.Context, req *dto.SaveRequestsRequest, callerID string, callerAdmin bool) ([]dto.ShiftRequestResponse, error)
}

type requestService struct {
	cfg     *config.EngineConfig
	repo    *repository.Repository
	catalog *engine.Catalog
	logger  *zap.Logger
	now     func() time.Time
}

// NewRequestService 创建 RequestService 实例
func NewRequestService(cfg *config.EngineConfig, repo *repository.Repository, catalog *engine.Catalog, logger *zap.Logger) RequestService {
	return &requestService{cfg: cfg, repo: repo, catalog: catalog, logger: logger, now: time.Now}
}

func (s *requestService) List(ctx context.Context, q *dto.RequestListQuery, callerID string, callerAdmin bool) ([]dto.ShiftRequestResponse, error) {
	staffID := q.StaffID
	if !callerAdmin {
		if staffID != "" && staffID != callerID {
			return nil, ErrForbiddenRequestOwner
		}
		staffID = callerID
	}

	var (
		list []model.ShiftRequest
		err  error
	)
	if staffID == "" {
		list, err = s.repo.ShiftRequest.ListByMonth(ctx, q.Year, q.Month)
	} else {
		list, err = s.repo.ShiftRequest.ListByStaffAndMonth(ctx, staffID, q.Year, q.Month)
	}
	if err != nil {
		s.logger.Error("查询希望失败", zap.Error(err))
		return nil, err
	}

	out := make([]dto.ShiftRequestResponse, 0, len(list))
	for i := range list {
		out = append(out, toRequestResponse(&list[i]))
	}
	return out, nil
}

func (s *requestService) Save(ctx context.Context, req *dto.SaveRequestsRequest, callerID string, callerAdmin bool) ([]dto.ShiftRequestResponse, error) {
	staffID := req.StaffID
	if staffID == "" {
		staffID = callerID
	}
	if staffID != callerID && !callerAdmin {
		return nil, ErrForbiddenRequestOwner
	}

	month := engine.NewMonth(req.Year, req.Month)
	if err := validateMonthRange(s.cfg, month); err != nil {
		return nil, err
	}

	if _, err := s.repo.Staff.GetByID(ctx, staffID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}

	// 1. 校验：日期在月内、同日只有一条、班次有效（空代码为休み）
	submittedAt := s.now()
	seen := make(map[engine.Date]bool, len(req.Requests))
	records := make([]model.ShiftRequest, 0, len(req.Requests))
	for _, item := range req.Requests {
		d, err := engine.ParseDate(item.Date)
		if err != nil {
			return nil, err
		}
		if !month.Contains(d) {
			return nil, fmt.Errorf("%w: %s", ErrRequestDateOutOfMonth, d)
		}
		if seen[d] {
			return nil, fmt.Errorf("%w: %s", ErrRequestDuplicateDate, d)
		}
		seen[d] = true

		code := item.ShiftCode
		if code == "" {
			code = s.catalog.DefaultOff().Code
		}
		if err := s.catalog.Validate(code); err != nil {
			return nil, err
		}
		records = append(records, model.ShiftRequest{
			StaffID:     staffID,
			Date:        d.String(),
			ShiftCode:   code,
			Note:        item.Note,
			SubmittedAt: submittedAt,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date < records[j].Date })

	// 2. 替换
	if err := s.repo.ShiftRequest.ReplaceForStaffMonth(ctx, staffID, req.Year, req.Month, records); err != nil {
		s.logger.Error("保存希望失败", zap.String("staff_id", staffID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("希望已保存",
		zap.String("staff_id", staffID),
		zap.String("month", month.String()),
		zap.Int("count", len(records)),
		zap.String("by", callerID))

	out := make([]dto.ShiftRequestResponse, 0, len(records))
	for i := range records {
		out = append(out, toRequestResponse(&records[i]))
	}
	return out, nil
}

package service

import (
	"context"

	"go.uber.org/zap"

	"shiftcare/backend/config"
	"shiftcare/backend/internal/repository"
	"shiftcare/backend/pkg/jwt"
	"shiftcare/backend/pkg/metrics"
	"shiftcare/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth     AuthService
	Staff    StaffService
	Request  RequestService
	Event    EventService
	Coverage CoverageRuleService
	Shift    ShiftService
}

// NewService 创建 Service 聚合，并从数据库加载人数下限规则
//
// rdb 为 nil 时不启用 Token 黑名单与跨实例生成锁。
func NewService(
	ctx context.Context,
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	recorder metrics.Recorder,
	logger *zap.Logger,
) (*Service, error) {
	catalog, err := NewCatalogFromConfig(&cfg.Engine)
	if err != nil {
		return nil, err
	}
	defaults, err := RulesFromConfig(catalog, cfg.Engine.CoverageMinimums)
	if err != nil {
		return nil, err
	}
	// 启动时校验权重与默认班次
	if _, err := strategyOptions(&cfg.Engine, catalog, defaults); err != nil {
		return nil, err
	}
	book, err := NewRuleBook(catalog, defaults)
	if err != nil {
		return nil, err
	}

	var (
		blacklist TokenBlacklist
		locker    Locker
	)
	if rdb != nil {
		blacklist = rdb
		locker = rdb
	}

	svc := &Service{
		Auth:     NewAuthService(repo, jwtMgr, blacklist, logger),
		Staff:    NewStaffService(repo, logger),
		Request:  NewRequestService(&cfg.Engine, repo, catalog, logger),
		Event:    NewEventService(repo, logger),
		Coverage: NewCoverageRuleService(repo, catalog, book, logger),
		Shift:    NewShiftService(&cfg.Engine, repo, catalog, book, locker, recorder, logger),
	}
	if err := svc.Coverage.Load(ctx, defaults); err != nil {
		return nil, err
	}

	logger.Info("排班引擎已就绪",
		zap.Strings("shift_types", catalog.Codes()),
		zap.String("strategy", cfg.Engine.Strategy),
		zap.Int("min_year", cfg.Engine.MinYear),
		zap.Int("max_year", cfg.Engine.MaxYear),
	)
	return svc, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftcare/backend/config"
	"shiftcare/backend/internal/dto"
	"shiftcare/backend/internal/engine"
	"shiftcare/backend/internal/model"
	"shiftcare/backend/internal/repository"
	"shiftcare/backend/pkg/metrics"
)

// ── 排班模块业务错误 ──

var (
	ErrGenerationInProgress = errors.New("该月份正在生成排班，请稍后再试")
	ErrJobNotFound          = errors.New("生成任务不存在")
	ErrGridNotGenerated     = errors.New("该月份尚未生成排班")
	ErrAssignmentNotFound   = errors.New("该单元格没有排班")
	ErrCoverageUnmet        = errors.New("存在未满足人数下限的日期，不能发布")
)

// Locker 跨实例的生成锁（Redis 实现）
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// ShiftService 排班生成、调整、人数判定与发布
type ShiftService interface {
	ShiftTypes() []dto.ShiftTypeResponse
	// GenerateMonth 同步生成整月排班并替换当月网格
	GenerateMonth(ctx context.Context, req *dto.GenerateRequest) (*dto.GenerateResponse, error)
	// StartGeneration 异步生成，立即返回任务
	StartGeneration(ctx context.Context, req *dto.GenerateRequest) (*dto.GenerationJobResponse, error)
	GetJob(id string) (*dto.GenerationJobResponse, error)
	// CancelGeneration 取消任务；已结束的任务原样返回
	CancelGeneration(id string) (*dto.GenerationJobResponse, error)
	GetAssignment(ctx context.Context, staffID, date string) (*dto.AssignmentResponse, error)
	SetAssignment(ctx context.Context, req *dto.SetAssignmentRequest, callerID string) (*dto.SetAssignmentResponse, error)
	GetCoverage(ctx context.Context, date string) (*dto.DayCoverageResponse, error)
	GetGrid(ctx context.Context, year, month int) (*dto.GridResponse, error)
	Publish(ctx context.Context, year, month int, callerID string) (*dto.PublishResponse, error)
	// Shutdown 取消全部运行中的任务并等待退出
	Shutdown(ctx context.Context) error
}

// monthState 网格的附加信息
type monthState struct {
	strategy         engine.StrategyKind
	published        bool
	publishedVersion uint64
}

type shiftService struct {
	cfg     *config.EngineConfig
	repo    *repository.Repository
	catalog *engine.Catalog
	book    *RuleBook
	board   *engine.Board
	locker  Locker
	metrics metrics.Recorder
	logger  *zap.Logger
	now     func() time.Time

	inflight *xsync.Map[engine.Month, string]
	jobs     *xsync.Map[string, *GenerationJob]
	states   *xsync.Map[engine.Month, monthState]

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewShiftService 创建 ShiftService 实例；locker 为 nil 时只做进程内互斥
func NewShiftService(
	cfg *config.EngineConfig,
	repo *repository.Repository,
	catalog *engine.Catalog,
	book *RuleBook,
	locker Locker,
	recorder metrics.Recorder,
	logger *zap.Logger,
) ShiftService {
	if recorder == nil {
		recorder = metrics.NewNop()
	}
	baseCtx, stop := context.WithCancel(context.Background())
	return &shiftService{
		cfg:      cfg,
		repo:     repo,
		catalog:  catalog,
		book:     book,
		board:    engine.NewBoard(catalog),
		locker:   locker,
		metrics:  recorder,
		logger:   logger,
		now:      time.Now,
		inflight: xsync.NewMap[engine.Month, string](),
		jobs:     xsync.NewMap[string, *GenerationJob](),
		states:   xsync.NewMap[engine.Month, monthState](),
		baseCtx:  baseCtx,
		stop:     stop,
	}
}

func (s *shiftService) ShiftTypes() []dto.ShiftTypeResponse {
	all := s.catalog.All()
	out := make([]dto.ShiftTypeResponse, 0, len(all))
	for _, t := range all {
		out = append(out, toShiftTypeResponse(t))
	}
	return out
}

// ────────────────────── 生成 ──────────────────────

func (s *shiftService) GenerateMonth(ctx context.Context, req *dto.GenerateRequest) (*dto.GenerateResponse, error) {
	month, kind, err := s.parseGenerateRequest(req)
	if err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx, month, "sync-"+uuid.NewString())
	if err != nil {
		return nil, err
	}
	defer release()

	return s.generate(ctx, month, kind, req.Seed)
}

func (s *shiftService) StartGeneration(ctx context.Context, req *dto.GenerateRequest) (*dto.GenerationJobResponse, error) {
	month, kind, err := s.parseGenerateRequest(req)
	if err != nil {
		return nil, err
	}
	s.pruneJobs()

	jobID := uuid.NewString()
	release, err := s.acquire(ctx, month, jobID)
	if err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(s.baseCtx)
	job := newGenerationJob(jobID, month, kind, cancel, s.now())
	s.jobs.Store(job.ID, job)
	s.metrics.JobsInFlight(s.inflight.Size())

	var seed *int64
	if req.Seed != nil {
		v := *req.Seed
		seed = &v
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		job.start()
		res, err := s.generate(jobCtx, month, kind, seed)
		release()
		job.finish(res, err, s.now())
		s.metrics.JobsInFlight(s.inflight.Size())

		if err != nil {
			s.logger.Warn("异步排班生成未完成",
				zap.String("job_id", job.ID), zap.String("month", month.String()), zap.Error(err))
		}
	}()

	s.logger.Info("异步排班生成已开始",
		zap.String("job_id", job.ID), zap.String("month", month.String()), zap.String("strategy", string(kind)))
	return job.snapshot(), nil
}

func (s *shiftService) GetJob(id string) (*dto.GenerationJobResponse, error) {
	job, ok := s.jobs.Load(id)
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.snapshot(), nil
}

func (s *shiftService) CancelGeneration(id string) (*dto.GenerationJobResponse, error) {
	job, ok := s.jobs.Load(id)
	if !ok {
		return nil, ErrJobNotFound
	}
	if !job.Status().Finished() {
		job.cancel()
		s.logger.Info("排班生成任务已请求取消", zap.String("job_id", id))
	}
	return job.snapshot(), nil
}

func (s *shiftService) Shutdown(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *shiftService) parseGenerateRequest(req *dto.GenerateRequest) (engine.Month, engine.StrategyKind, error) {
	month := engine.NewMonth(req.Year, req.Month)
	if err := s.validateMonth(month); err != nil {
		return engine.Month{}, "", err
	}
	kind := engine.StrategyKind(req.Strategy)
	if kind == "" {
		kind = engine.StrategyKind(s.cfg.Strategy)
	}
	switch kind {
	case engine.StrategyRandomFill, engine.StrategyRequestOnly, engine.StrategyConstraint:
	default:
		return engine.Month{}, "", fmt.Errorf("%w: %q", engine.ErrUnknownStrategy, kind)
	}
	return month, kind, nil
}

func (s *shiftService) validateMonth(m engine.Month) error {
	return validateMonthRange(s.cfg, m)
}

// validateMonthRange 月份须有效且年份在配置的范围内
func validateMonthRange(cfg *config.EngineConfig, m engine.Month) error {
	if !m.Valid() || m.Year < cfg.MinYear || m.Year > cfg.MaxYear {
		return fmt.Errorf("%w: %d-%d (允许 %d~%d 年)", engine.ErrInvalidMonth, m.Year, int(m.Month), cfg.MinYear, cfg.MaxYear)
	}
	return nil
}

// acquire 同一月份同时只允许一次生成；配置了 Redis 时跨实例互斥
func (s *shiftService) acquire(ctx context.Context, month engine.Month, owner string) (func(), error) {
	if _, loaded := s.inflight.LoadOrStore(month, owner); loaded {
		return nil, ErrGenerationInProgress
	}

	var token string
	if s.locker != nil {
		tok, ok, err := s.locker.AcquireLock(ctx, lockName(month), s.cfg.LockTTL)
		if err != nil {
			s.inflight.Delete(month)
			s.logger.Error("获取生成锁失败", zap.String("month", month.String()), zap.Error(err))
			return nil, err
		}
		if !ok {
			s.inflight.Delete(month)
			return nil, ErrGenerationInProgress
		}
		token = tok
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if s.locker != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.locker.ReleaseLock(ctx, lockName(month), token); err != nil {
					s.logger.Warn("释放生成锁失败", zap.String("month", month.String()), zap.Error(err))
				}
			}
			s.inflight.Delete(month)
		})
	}, nil
}

func lockName(m engine.Month) string { return "generate:" + m.String() }

// generate 读取名单与希望、运行生成器，ctx 仍有效时才替换当月网格
func (s *shiftService) generate(ctx context.Context, month engine.Month, kind engine.StrategyKind, seed *int64) (*dto.GenerateResponse, error) {
	start := s.now()
	res, err := s.run(ctx, month, kind, seed)
	elapsed := s.now().Sub(start)
	if err != nil {
		s.metrics.GenerationFinished(string(kind), outcome(err), elapsed)
		return nil, err
	}

	// 提交点：取消请求若在此之前到达，保留原网格
	if err := ctx.Err(); err != nil {
		s.metrics.GenerationFinished(string(kind), outcome(err), elapsed)
		return nil, fmt.Errorf("排班生成已中止: %w", err)
	}
	store := s.board.Ensure(month)
	if err := store.Seed(res.Grid); err != nil {
		s.metrics.GenerationFinished(string(kind), outcome(err), elapsed)
		return nil, err
	}
	s.states.Store(month, monthState{strategy: kind})

	shortfalls := len(engine.Shortfalls(s.book.Validator().EvaluateMonth(store, month)))
	s.metrics.GenerationFinished(string(kind), outcome(nil), elapsed)
	s.metrics.RequestConflicts(len(res.Conflicts))
	s.metrics.CoverageShortfalls(month.String(), shortfalls)

	s.logger.Info("排班已生成",
		zap.String("month", month.String()),
		zap.String("strategy", string(kind)),
		zap.Int("staff", len(res.Grid.StaffIDs)),
		zap.Int("assignments", res.Grid.Len()),
		zap.Int("conflicts", len(res.Conflicts)),
		zap.Int("ignored_requests", res.Ignored),
		zap.Int("shortfall_days", shortfalls),
		zap.Duration("elapsed", elapsed),
	)

	conflicts := make([]dto.RequestConflictResponse, 0, len(res.Conflicts))
	for _, c := range res.Conflicts {
		conflicts = append(conflicts, dto.RequestConflictResponse{
			StaffID:   c.StaffID,
			Date:      c.Date.String(),
			KeptID:    c.Kept.ID,
			DroppedID: c.Dropped.ID,
		})
	}
	return &dto.GenerateResponse{
		Year:        month.Year,
		Month:       int(month.Month),
		Strategy:    string(kind),
		Assignments: res.Grid.Len(),
		Ignored:     res.Ignored,
		Conflicts:   conflicts,
		ElapsedMS:   elapsed.Milliseconds(),
		Shortfalls:  shortfalls,
	}, nil
}

func (s *shiftService) run(ctx context.Context, month engine.Month, kind engine.StrategyKind, seed *int64) (*engine.Result, error) {
	staffList, err := s.repo.Staff.List(ctx, nil)
	if err != nil {
		s.logger.Error("读取职员名单失败", zap.Error(err))
		return nil, err
	}
	roster := make([]engine.StaffMember, 0, len(staffList))
	for i := range staffList {
		roster = append(roster, toStaffMember(&staffList[i], s.logger))
	}

	requests, err := s.repo.ShiftRequest.ListByMonth(ctx, month.Year, int(month.Month))
	if err != nil {
		s.logger.Error("读取希望失败", zap.Error(err))
		return nil, err
	}

	opts, err := strategyOptions(s.cfg, s.catalog, s.book.Rules())
	if err != nil {
		return nil, err
	}
	if seed != nil {
		opts.Seed = *seed
	}
	strategy, err := engine.NewStrategy(kind, s.catalog, opts)
	if err != nil {
		return nil, err
	}

	gen := engine.NewGenerator(s.catalog, strategy,
		engine.WithLogger(s.logger),
		engine.WithYearRange(s.cfg.MinYear, s.cfg.MaxYear),
	)
	return gen.Generate(ctx, roster, toEngineRequests(requests, s.logger), month)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return string(JobSucceeded)
	case errors.Is(err, context.Canceled):
		return string(JobCancelled)
	default:
		return string(JobFailed)
	}
}

// pruneJobs 清理超过保留时间的已结束任务
func (s *shiftService) pruneJobs() {
	now := s.now()
	s.jobs.Range(func(id string, job *GenerationJob) bool {
		if job.expired(now, s.cfg.JobTTL) {
			s.jobs.Delete(id)
		}
		return true
	})
}

// ────────────────────── 单元格 / 人数判定 ──────────────────────

// storeFor 返回当月网格；内存中没有时尝试加载已发布的排班
func (s *shiftService) storeFor(ctx context.Context, month engine.Month) (*engine.Store, error) {
	if store, ok := s.board.Get(month); ok && store.Seeded() {
		return store, nil
	}

	plan, err := s.repo.ShiftPlan.GetByMonth(ctx, month.Year, int(month.Month))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGridNotGenerated
		}
		s.logger.Error("查询排班计划失败", zap.Error(err))
		return nil, err
	}
	rows, err := s.repo.ShiftPlan.ListAssignments(ctx, plan.PlanID)
	if err != nil {
		s.logger.Error("读取排班明细失败", zap.Error(err))
		return nil, err
	}

	assignments := make([]engine.Assignment, 0, len(rows))
	for _, r := range rows {
		d, err := engine.ParseDate(r.Date)
		if err != nil || !month.Contains(d) {
			s.logger.Warn("排班明细日期无效，已跳过", zap.String("assignment_id", r.AssignmentID))
			continue
		}
		assignments = append(assignments, engine.Assignment{StaffID: r.StaffID, Date: d, ShiftCode: r.ShiftCode})
	}

	store := s.board.Ensure(month)
	if !store.Seeded() {
		if err := store.Seed(engine.NewGrid(month, assignments)); err != nil {
			return nil, err
		}
		s.states.Store(month, monthState{
			strategy:         engine.StrategyKind(plan.Strategy),
			published:        plan.Status == model.PlanStatusPublished,
			publishedVersion: store.Version(),
		})
		s.logger.Info("已从发布记录加载排班", zap.String("month", month.String()), zap.Int("assignments", len(assignments)))
	}
	return store, nil
}

func (s *shiftService) GetAssignment(ctx context.Context, staffID, date string) (*dto.AssignmentResponse, error) {
	d, err := engine.ParseDate(date)
	if err != nil {
		return nil, err
	}
	store, err := s.storeFor(ctx, d.MonthOf())
	if err != nil {
		return nil, err
	}
	a, ok := store.Get(staffID, d)
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	resp := toAssignmentResponse(a)
	return &resp, nil
}

func (s *shiftService) SetAssignment(ctx context.Context, req *dto.SetAssignmentRequest, callerID string) (*dto.SetAssignmentResponse, error) {
	d, err := engine.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Validate(req.ShiftCode); err != nil {
		return nil, err
	}
	store, err := s.storeFor(ctx, d.MonthOf())
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Staff.GetByID(ctx, req.StaffID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}

	before, _ := store.Get(req.StaffID, d)
	a, err := store.Set(req.StaffID, d, req.ShiftCode)
	if err != nil {
		return nil, err
	}
	s.metrics.AssignmentOverridden(a.ShiftCode)
	s.logger.Info("排班已调整",
		zap.String("staff_id", a.StaffID),
		zap.String("date", a.Date.String()),
		zap.String("from", before.ShiftCode),
		zap.String("to", a.ShiftCode),
		zap.String("by", callerID),
	)

	return &dto.SetAssignmentResponse{
		Assignment: toAssignmentResponse(a),
		Coverage:   toDayCoverageResponse(s.book.Validator().EvaluateDay(store, d)),
	}, nil
}

func (s *shiftService) GetCoverage(ctx context.Context, date string) (*dto.DayCoverageResponse, error) {
	d, err := engine.ParseDate(date)
	if err != nil {
		return nil, err
	}
	store, err := s.storeFor(ctx, d.MonthOf())
	if err != nil {
		return nil, err
	}
	resp := toDayCoverageResponse(s.book.Validator().EvaluateDay(store, d))
	return &resp, nil
}

func (s *shiftService) GetGrid(ctx context.Context, year, month int) (*dto.GridResponse, error) {
	m := engine.NewMonth(year, month)
	if err := s.validateMonth(m); err != nil {
		return nil, err
	}
	store, err := s.storeFor(ctx, m)
	if err != nil {
		return nil, err
	}
	snap, version := store.SnapshotWithVersion()

	staffList, err := s.repo.Staff.List(ctx, nil)
	if err != nil {
		s.logger.Error("读取职员名单失败", zap.Error(err))
		return nil, err
	}
	names := make(map[string]string, len(staffList))
	for _, st := range staffList {
		names[st.StaffID] = st.Name
	}

	rowIndex := make(map[string]int, len(snap.StaffIDs))
	rows := make([]dto.GridRow, 0, len(snap.StaffIDs))
	for _, id := range snap.StaffIDs {
		rowIndex[id] = len(rows)
		rows = append(rows, dto.GridRow{StaffID: id, Name: names[id], Shifts: make(map[string]string, m.Days())})
	}
	for _, a := range snap.Assignments {
		if i, ok := rowIndex[a.StaffID]; ok {
			rows[i].Shifts[a.Date.String()] = a.ShiftCode
		}
	}

	days := s.book.Validator().EvaluateMonth(snap, m)
	coverage := make([]dto.DayCoverageResponse, 0, len(days))
	for _, day := range days {
		coverage = append(coverage, toDayCoverageResponse(day))
	}

	status := model.PlanStatusDraft
	if st, ok := s.states.Load(m); ok && st.published && st.publishedVersion == version {
		status = model.PlanStatusPublished
	}

	return &dto.GridResponse{
		Year:       m.Year,
		Month:      int(m.Month),
		Days:       m.Days(),
		Status:     status,
		Version:    version,
		Rows:       rows,
		Coverage:   coverage,
		Shortfalls: len(engine.Shortfalls(days)),
	}, nil
}

// ────────────────────── 发布 ──────────────────────

func (s *shiftService) Publish(ctx context.Context, year, month int, callerID string) (*dto.PublishResponse, error) {
	m := engine.NewMonth(year, month)
	if err := s.validateMonth(m); err != nil {
		return nil, err
	}
	store, err := s.storeFor(ctx, m)
	if err != nil {
		return nil, err
	}
	snap, version := store.SnapshotWithVersion()

	shortfalls := engine.Shortfalls(s.book.Validator().EvaluateMonth(snap, m))
	s.metrics.CoverageShortfalls(m.String(), len(shortfalls))
	if len(shortfalls) > 0 {
		return nil, fmt.Errorf("%w: %d 天（首个 %s）", ErrCoverageUnmet, len(shortfalls), shortfalls[0].Date)
	}

	state, _ := s.states.Load(m)
	now := s.now()
	by := callerID
	var plan *model.ShiftPlan

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		existing, err := tx.ShiftPlan.GetByMonth(ctx, year, month)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			plan = &model.ShiftPlan{
				Year:           year,
				Month:          month,
				Status:         model.PlanStatusPublished,
				Strategy:       string(state.strategy),
				PublishedAt:    &now,
				PublishedBy:    &by,
				VersionedModel: model.VersionedModel{Version: 1},
			}
			if err := tx.ShiftPlan.Create(ctx, plan); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			plan = existing
			plan.Status = model.PlanStatusPublished
			if state.strategy != "" {
				plan.Strategy = string(state.strategy)
			}
			plan.PublishedAt = &now
			plan.PublishedBy = &by
			if err := tx.ShiftPlan.Update(ctx, plan); err != nil {
				return err
			}
		}

		rows := make([]model.ShiftAssignment, 0, snap.Len())
		for _, a := range snap.Assignments {
			rows = append(rows, model.ShiftAssignment{
				AssignmentID: a.ID,
				PlanID:       plan.PlanID,
				StaffID:      a.StaffID,
				Date:         a.Date.String(),
				ShiftCode:    a.ShiftCode,
			})
		}
		return tx.ShiftPlan.ReplaceAssignments(ctx, plan.PlanID, rows)
	})
	if err != nil {
		s.logger.Error("发布排班失败", zap.String("month", m.String()), zap.Error(err))
		return nil, err
	}

	state.published = true
	state.publishedVersion = version
	s.states.Store(m, state)

	s.logger.Info("排班已发布",
		zap.String("month", m.String()),
		zap.String("plan_id", plan.PlanID),
		zap.Int("assignments", snap.Len()),
		zap.String("by", callerID),
	)
	return &dto.PublishResponse{
		PlanID:      plan.PlanID,
		Year:        year,
		Month:       month,
		Assignments: snap.Len(),
		Version:     plan.Version,
		PublishedAt: now,
	}, nil
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shiftcare/backend/internal/dto"
	"shiftcare/backend/internal/engine"
	"shiftcare/backend/internal/service"
	pkgerrors "shiftcare/backend/pkg/errors"
	"shiftcare/backend/pkg/response"
)

// ShiftHandler 排班 HTTP 处理器
type ShiftHandler struct {
	shiftSvc service.ShiftService
}

// NewShiftHandler 创建 ShiftHandler
func NewShiftHandler(shiftSvc service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftSvc: shiftSvc}
}

// ListShiftTypes 班次类型与显示颜色
// GET /api/v1/shift-types
func (h *ShiftHandler) ListShiftTypes(c *gin.Context) {
	response.OK(c, gin.H{"list": h.shiftSvc.ShiftTypes()})
}

// Generate 同步生成整月排班
// POST /api/v1/shifts/generate
func (h *ShiftHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.shiftSvc.GenerateMonth(c.Request.Context(), &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}
	response.OK(c, result)
}

// StartJob 异步生成，返回任务
// POST /api/v1/shifts/jobs
func (h *ShiftHandler) StartJob(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	job, err := h.shiftSvc.StartGeneration(c.Request.Context(), &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}
	response.Accepted(c, job)
}

// GetJob 查询任务状态
// GET /api/v1/shifts/jobs/:id
func (h *ShiftHandler) GetJob(c *gin.Context) {
	job, err := h.shiftSvc.GetJob(c.Param("id"))
	if err != nil {
		h.handleShiftError(c, err)
		return
	}
	response.OK(c, job)
}

// CancelJob 取消任务
// DELETE /api/v1/shifts/jobs/:id
func (h *ShiftHandler) CancelJob(c *gin.Context) {
	job, err := h.shiftSvc.CancelGeneration(c.Param("id"))
	if err != nil {
		h.handleShiftError(c, err)
		return
	}
	response.OK(c, job)
}

// GetGrid 整月排班表
// GET /api/v1/shifts/grid?year=&month=
func (h *ShiftHandler) GetGrid(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	grid, err := h.shiftSvc.GetGrid(c.Request.Context(), q.Year, q.Month)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}
	response.OK(c, grid)
}

// GetAssignment 单元格
// GET /api/v1/shifts/assignment?staff_id=&date=
func (h *ShiftHandler) GetAssignment(c *gin.Context) {
	var q dto.AssignmentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	a, err := h.shiftSvc.GetAssignment(c.Request.Context(), q.StaffID, q.Date)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}
	response.OK(c, a)
}

// SetAssignment 人工调整单元格
// PUT /api/v1/shifts/assignment
func (h *ShiftHandler) SetAssignment(c *gin.Context) {
	callerID, ok := MustGetStaffID(c)
	if !ok {
		return
	}

	var req dto.SetAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.shiftSvc.SetAssignment(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}
	response.OK(c, result)
}

// GetCoverage 某日人数判定
// GET /api/v1/shifts/coverage?date=
func (h *ShiftHandler) GetCoverage(c *gin.Context) {
	var q dto.CoverageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	day, err := h.shiftSvc.GetCoverage(c.Request.Context(), q.Date)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}
	response.OK(c, day)
}

// Publish 发布当月排班
// POST /api/v1/shifts/publish
func (h *ShiftHandler) Publish(c *gin.Context) {
	callerID, ok := MustGetStaffID(c)
	if !ok {
		return
	}

	var req dto.MonthQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.shiftSvc.Publish(c.Request.Context(), req.Year, req.Month, callerID)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}
	response.OK(c, result)
}

// handleShiftError 统一处理排班模块业务错误
func (h *ShiftHandler) handleShiftError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidMonth):
		response.ErrorWithDetails(c, http.StatusBadRequest, 16001, "年月超出允许范围", err.Error())
	case errors.Is(err, engine.ErrUnknownStrategy):
		response.BadRequest(c, 16002, "未知的排班策略")
	case errors.Is(err, engine.ErrEmptyRoster):
		response.BadRequest(c, 16003, "没有可排班的在职职员")
	case errors.Is(err, service.ErrGenerationInProgress):
		response.Conflict(c, 16004, "该月份正在生成排班，请稍后再试")
	case errors.Is(err, service.ErrJobNotFound):
		response.NotFound(c, 16005, "生成任务不存在")
	case errors.Is(err, service.ErrGridNotGenerated):
		response.NotFound(c, 16006, "该月份尚未生成排班")
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 16007, "该单元格没有排班")
	case errors.Is(err, engine.ErrUnknownShiftType):
		response.BadRequest(c, 16008, "班次类型不存在")
	case errors.Is(err, engine.ErrInvalidDate):
		response.BadRequest(c, 16009, "日期格式无效")
	case errors.Is(err, engine.ErrDateOutOfMonth):
		response.BadRequest(c, 16010, "日期不在排班月份内")
	case errors.Is(err, service.ErrStaffNotFound):
		response.NotFound(c, 16011, "职员不存在")
	case errors.Is(err, service.ErrCoverageUnmet):
		response.ErrorWithDetails(c, http.StatusConflict, 16012, "存在未满足人数下限的日期，不能发布", err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 16013, "排班已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}

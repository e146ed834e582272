package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"shiftcare/backend/internal/dto"
	"shiftcare/backend/internal/service"
	"shiftcare/backend/pkg/response"
)

// maxImportFileSize 名单导入文件上限
const maxImportFileSize = 5 << 20

// StaffHandler 职员名单 HTTP 处理器
type StaffHandler struct {
	staffSvc service.StaffService
}

// NewStaffHandler 创建 StaffHandler
func NewStaffHandler(staffSvc service.StaffService) *StaffHandler {
	return &StaffHandler{staffSvc: staffSvc}
}

// ListStaff 职员列表（排班表行顺序）
// GET /api/v1/staff
func (h *StaffHandler) ListStaff(c *gin.Context) {
	var req dto.StaffListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.staffSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetStaff 职员详情
// GET /api/v1/staff/:id
func (h *StaffHandler) GetStaff(c *gin.Context) {
	staff, err := h.staffSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleStaffError(c, err)
		return
	}
	response.OK(c, staff)
}

// CreateStaff 新增职员
// POST /api/v1/staff
func (h *StaffHandler) CreateStaff(c *gin.Context) {
	var req dto.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	staff, err := h.staffSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleStaffError(c, err)
		return
	}
	response.Created(c, staff)
}

// UpdateStaff 更新职员
// PUT /api/v1/staff/:id
func (h *StaffHandler) UpdateStaff(c *gin.Context) {
	callerID, ok := MustGetStaffID(c)
	if !ok {
		return
	}

	var req dto.UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	staff, err := h.staffSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleStaffError(c, err)
		return
	}
	response.OK(c, staff)
}

// DeleteStaff 删除职员
// DELETE /api/v1/staff/:id
func (h *StaffHandler) DeleteStaff(c *gin.Context) {
	callerID, ok := MustGetStaffID(c)
	if !ok {
		return
	}

	if err := h.staffSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleStaffError(c, err)
		return
	}
	response.OK(c, nil)
}

// ImportStaff 通过 Excel 批量导入名单
// POST /api/v1/staff/import  (multipart/form-data, field="file")
func (h *StaffHandler) ImportStaff(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 12010, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		response.BadRequest(c, 12010, "仅支持 .xlsx 文件")
		return
	}
	if header.Size > maxImportFileSize {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "文件过大")
		return
	}

	rows, err := h.staffSvc.ParseImportFile(file)
	if err != nil {
		h.handleStaffError(c, err)
		return
	}

	result, err := h.staffSvc.ImportStaff(c.Request.Context(), rows)
	if err != nil {
		h.handleStaffError(c, err)
		return
	}
	response.OK(c, result)
}

// handleStaffError 统一处理职员模块业务错误
func (h *StaffHandler) handleStaffError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStaffNotFound):
		response.NotFound(c, 12001, "职员不存在")
	case errors.Is(err, service.ErrStaffExists):
		response.Conflict(c, 12002, "职员编号已存在")
	case errors.Is(err, service.ErrStaffSelfDelete):
		response.BadRequest(c, 12003, "不能删除自己")
	case errors.Is(err, service.ErrStaffSelfDemote):
		response.BadRequest(c, 12004, "不能取消自己的管理员权限")
	case errors.Is(err, service.ErrInvalidEmployment):
		response.BadRequest(c, 12005, err.Error())
	case errors.Is(err, service.ErrInvalidStaffID):
		response.BadRequest(c, 12006, err.Error())
	case errors.Is(err, service.ErrImportNoData),
		errors.Is(err, service.ErrImportBadHeader),
		errors.Is(err, service.ErrImportTooManyRows):
		response.BadRequest(c, 12011, err.Error())
	default:
		response.InternalError(c)
	}
}

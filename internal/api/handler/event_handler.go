package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shiftcare/backend/internal/dto"
	"shiftcare/backend/internal/engine"
	"shiftcare/backend/internal/service"
	"shiftcare/backend/pkg/response"
)

// EventHandler 设施行事 HTTP 处理器
type EventHandler struct {
	eventSvc service.EventService
}

// NewEventHandler 创建 EventHandler
func NewEventHandler(eventSvc service.EventService) *EventHandler {
	return &EventHandler{eventSvc: eventSvc}
}

// ListEvents 当月行事
// GET /api/v1/events?year=&month=&group=
func (h *EventHandler) ListEvents(c *gin.Context) {
	var q dto.EventListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.eventSvc.List(c.Request.Context(), &q)
	if err != nil {
		h.handleEventError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// CreateEvent 新增行事
// POST /api/v1/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	event, err := h.eventSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleEventError(c, err)
		return
	}
	response.Created(c, event)
}

// UpdateEvent 更新行事
// PUT /api/v1/events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	event, err := h.eventSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleEventError(c, err)
		return
	}
	response.OK(c, event)
}

// DeleteEvent 删除行事
// DELETE /api/v1/events/:id
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	if err := h.eventSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleEventError(c, err)
		return
	}
	response.OK(c, nil)
}

// ImportEvents 导入 ICS 行事
// POST /api/v1/events/import
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"，可选 groups="1,2"
//   - URL 导入: application/json, body={"url": "...", "groups": ["1"]}
func (h *EventHandler) ImportEvents(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		result, err := h.eventSvc.ImportICS(c.Request.Context(), file, splitGroups(c.PostForm("groups")))
		if err != nil {
			h.handleEventError(c, err)
			return
		}
		response.Created(c, result)
		return
	}

	var req dto.ImportEventsURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14005, "请上传 ICS 文件或提供 ICS URL")
		return
	}

	result, err := h.eventSvc.ImportICSFromURL(c.Request.Context(), &req)
	if err != nil {
		h.handleEventError(c, err)
		return
	}
	response.Created(c, result)
}

// splitGroups 解析表单中的逗号分隔小组
func splitGroups(s string) []string {
	var out []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// handleEventError 统一处理行事模块业务错误
func (h *EventHandler) handleEventError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 14001, "行事不存在")
	case errors.Is(err, service.ErrICSNoEvents):
		response.BadRequest(c, 14002, "ICS 中没有可导入的行事")
	case errors.Is(err, service.ErrICSInvalid):
		response.ErrorWithDetails(c, http.StatusBadRequest, 14003, "ICS 格式解析失败", err.Error())
	case errors.Is(err, service.ErrICSFetch):
		response.ErrorWithDetails(c, http.StatusBadGateway, 14003, "ICS URL 获取失败", err.Error())
	case errors.Is(err, engine.ErrInvalidDate):
		response.BadRequest(c, 14004, "日期格式无效")
	case errors.Is(err, engine.ErrInvalidMonth):
		response.BadRequest(c, 10001, "年月超出允许范围")
	default:
		response.InternalError(c)
	}
}

package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shiftcare/backend/internal/dto"
	"shiftcare/backend/internal/engine"
	"shiftcare/backend/internal/service"
	"shiftcare/backend/pkg/response"
)

// RequestHandler 排班希望 HTTP 处理器
type RequestHandler struct {
	requestSvc service.RequestService
}

// NewRequestHandler 创建 RequestHandler
func NewRequestHandler(requestSvc service.RequestService) *RequestHandler {
	return &RequestHandler{requestSvc: requestSvc}
}

// ListRequests 希望列表；非管理员只能查看本人
// GET /api/v1/requests?year=&month=&staff_id=
func (h *RequestHandler) ListRequests(c *gin.Context) {
	callerID, ok := MustGetStaffID(c)
	if !ok {
		return
	}

	var q dto.RequestListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.requestSvc.List(c.Request.Context(), &q, callerID, IsAdmin(c))
	if err != nil {
		h.handleRequestError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// SaveRequests 整体替换某职员当月的希望
// PUT /api/v1/requests
func (h *RequestHandler) SaveRequests(c *gin.Context) {
	callerID, ok := MustGetStaffID(c)
	if !ok {
		return
	}

	var req dto.SaveRequestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.requestSvc.Save(c.Request.Context(), &req, callerID, IsAdmin(c))
	if err != nil {
		h.handleRequestError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// handleRequestError 统一处理希望模块业务错误
func (h *RequestHandler) handleRequestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbiddenRequestOwner):
		response.Forbidden(c, 13001, "只能查看或提交本人的希望")
	case errors.Is(err, service.ErrRequestDateOutOfMonth):
		response.BadRequest(c, 13002, err.Error())
	case errors.Is(err, service.ErrRequestDuplicateDate):
		response.BadRequest(c, 13003, err.Error())
	case errors.Is(err, engine.ErrUnknownShiftType):
		response.BadRequest(c, 13004, err.Error())
	case errors.Is(err, engine.ErrInvalidDate):
		response.BadRequest(c, 13005, err.Error())
	case errors.Is(err, engine.ErrInvalidMonth):
		response.BadRequest(c, 13006, "年月无效")
	case errors.Is(err, service.ErrStaffNotFound):
		response.NotFound(c, 13007, "职员不存在")
	default:
		response.InternalError(c)
	}
}

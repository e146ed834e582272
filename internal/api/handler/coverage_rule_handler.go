package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shiftcare/backend/internal/dto"
	"shiftcare/backend/internal/engine"
	"shiftcare/backend/internal/service"
	"shiftcare/backend/pkg/response"
)

// CoverageRuleHandler 人数下限规则 HTTP 处理器
type CoverageRuleHandler struct {
	ruleSvc service.CoverageRuleService
}

// NewCoverageRuleHandler 创建 CoverageRuleHandler
func NewCoverageRuleHandler(ruleSvc service.CoverageRuleService) *CoverageRuleHandler {
	return &CoverageRuleHandler{ruleSvc: ruleSvc}
}

// ListRules 当前生效的下限规则
// GET /api/v1/coverage-rules
func (h *CoverageRuleHandler) ListRules(c *gin.Context) {
	list, err := h.ruleSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// UpdateRule 设置某班次的每日最低人数；minimum=0 取消
// PUT /api/v1/coverage-rules/:code
func (h *CoverageRuleHandler) UpdateRule(c *gin.Context) {
	callerID, ok := MustGetStaffID(c)
	if !ok {
		return
	}

	var req dto.UpdateCoverageRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	rule, err := h.ruleSvc.Update(c.Request.Context(), c.Param("code"), *req.Minimum, callerID)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrUnknownShiftType):
			response.NotFound(c, 15001, "班次类型不存在")
		case errors.Is(err, engine.ErrInvalidRule):
			response.BadRequest(c, 15002, err.Error())
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, rule)
}

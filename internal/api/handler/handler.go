package handler

import "shiftcare/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	Staff    *StaffHandler
	Request  *RequestHandler
	Event    *EventHandler
	Coverage *CoverageRuleHandler
	Shift    *ShiftHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth),
		Staff:    NewStaffHandler(svc.Staff),
		Request:  NewRequestHandler(svc.Request),
		Event:    NewEventHandler(svc.Event),
		Coverage: NewCoverageRuleHandler(svc.Coverage),
		Shift:    NewShiftHandler(svc.Shift),
	}
}

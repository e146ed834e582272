package service

import (
	"time"

	"go.uber.org/zap"

	"shiftcare/backend/internal/dto"
	"shiftcare/backend/internal/engine"
	"shiftcare/backend/internal/model"
)

// ── model ↔ engine / dto 转换 ──

// toStaffMember 将职员记录转换为引擎名单成员；雇佣类别无效时按常勤处理
func toStaffMember(s *model.Staff, logger *zap.Logger) engine.StaffMember {
	emp, err := engine.ParseEmploymentType(s.Employment)
	if err != nil {
		logger.Warn("职员雇佣类别无效，按常勤处理",
			zap.String("staff_id", s.StaffID), zap.String("employment", s.Employment))
		emp = engine.EmploymentFullTime
	}
	return engine.StaffMember{
		ID:         s.StaffID,
		Name:       s.Name,
		Groups:     s.Groups.Set(),
		Unit:       s.Unit,
		Role:       s.Role,
		Qualified:  s.Qualified,
		Employment: emp,
		IsAdmin:    s.IsAdmin,
	}
}

// toEngineRequests 转换希望记录；日期无法解析的记录跳过
func toEngineRequests(list []model.ShiftRequest, logger *zap.Logger) []engine.ShiftRequest {
	out := make([]engine.ShiftRequest, 0, len(list))
	for _, r := range list {
		d, err := engine.ParseDate(r.Date)
		if err != nil {
			logger.Warn("希望日期无效，已跳过", zap.String("request_id", r.RequestID), zap.String("date", r.Date))
			continue
		}
		out = append(out, engine.ShiftRequest{
			ID:          r.RequestID,
			StaffID:     r.StaffID,
			Date:        d,
			ShiftCode:   r.ShiftCode,
			Note:        r.Note,
			SubmittedAt: r.SubmittedAt,
		})
	}
	return out
}

func toStaffResponse(s *model.Staff) dto.StaffResponse {
	groups := []string(s.Groups.Normalize())
	return dto.StaffResponse{
		StaffID:     s.StaffID,
		Name:        s.Name,
		Groups:      groups,
		Unit:        s.Unit,
		Role:        s.Role,
		Qualified:   s.Qualified,
		Employment:  s.Employment,
		IsAdmin:     s.IsAdmin,
		HasPassword: s.PasswordHash != "",
		SortOrder:   s.SortOrder,
	}
}

func toRequestResponse(r *model.ShiftRequest) dto.ShiftRequestResponse {
	return dto.ShiftRequestResponse{
		ID:          r.RequestID,
		StaffID:     r.StaffID,
		Date:        r.Date,
		ShiftCode:   r.ShiftCode,
		Note:        r.Note,
		SubmittedAt: r.SubmittedAt.Format(time.RFC3339),
	}
}

func toEventResponse(e *model.FacilityEvent) dto.EventResponse {
	return dto.EventResponse{
		ID:          e.EventID,
		Date:        e.Date,
		Title:       e.Title,
		Description: e.Description,
		Groups:      []string(e.Groups.Normalize()),
		ExternalUID: e.ExternalUID,
	}
}

func toAssignmentResponse(a engine.Assignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		ID:        a.ID,
		StaffID:   a.StaffID,
		Date:      a.Date.String(),
		ShiftCode: a.ShiftCode,
	}
}

func toDayCoverageResponse(day engine.DayCoverage) dto.DayCoverageResponse {
	verdicts := make([]dto.VerdictResponse, 0, len(day.Verdicts))
	for _, v := range day.Verdicts {
		verdicts = append(verdicts, dto.VerdictResponse{
			ShiftCode:    v.ShiftCode,
			Count:        v.Count,
			Minimum:      v.Minimum,
			HasMinimum:   v.HasMinimum,
			MeetsMinimum: v.MeetsMinimum,
		})
	}
	return dto.DayCoverageResponse{
		Date:     day.Date.String(),
		OK:       day.OK,
		Verdicts: verdicts,
	}
}

func toShiftTypeResponse(t engine.ShiftType) dto.ShiftTypeResponse {
	return dto.ShiftTypeResponse{
		Code:      t.Code,
		Name:      t.Name,
		Category:  string(t.Category),
		StartTime: t.StartTime,
		EndTime:   t.EndTime,
		Working:   t.Working(),
		Color:     t.Color,
		TextColor: t.TextColor,
	}
}

package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftcare/backend/internal/dto"
	"shiftcare/backend/internal/engine"
	"shiftcare/backend/internal/model"
	"shiftcare/backend/internal/repository"
)

// ── 行事模块业务错误 ──

var (
	ErrEventNotFound = errors.New("行事不存在")
	ErrICSNoEvents   = errors.New("ICS 中没有可导入的行事")
)

// EventService 设施行事业务接口（仅作排班参考，不参与生成）
type EventService interface {
	List(ctx context.Context, q *dto.EventListQuery) ([]dto.EventResponse, error)
	Create(ctx context.Context, req *dto.CreateEventRequest) (*dto.EventResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateEventRequest) (*dto.EventResponse, error)
	Delete(ctx context.Context, id string) error
	// ImportICS 导入 ICS；按 ExternalUID 去重，已存在的行事被更新
	ImportICS(ctx context.Context, reader io.Reader, groups []string) (*dto.ImportEventsResponse, error)
	ImportICSFromURL(ctx context.Context, req *dto.ImportEventsURLRequest) (*dto.ImportEventsResponse, error)
}

type eventService struct {
	repo   *repository.Repository
	logger *zap.Logger
	fetch  func(string) (io.ReadCloser, error)
}

// NewEventService 创建 EventService 实例
func NewEventService(repo *repository.Repository, logger *zap.Logger) EventService {
	return &eventService{repo: repo, logger: logger, fetch: FetchICSContent}
}

func (s *eventService) List(ctx context.Context, q *dto.EventListQuery) ([]dto.EventResponse, error) {
	if !engine.NewMonth(q.Year, q.Month).Valid() {
		return nil, engine.ErrInvalidMonth
	}
	list, err := s.repo.Event.ListByMonth(ctx, q.Year, q.Month, q.Group)
	if err != nil {
		s.logger.Error("查询行事失败", zap.Error(err))
		return nil, err
	}
	out := make([]dto.EventResponse, 0, len(list))
	for i := range list {
		out = append(out, toEventResponse(&list[i]))
	}
	return out, nil
}

func (s *eventService) Create(ctx context.Context, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	d, err := engine.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	event := &model.FacilityEvent{
		Date:        d.String(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Groups:      model.GroupList(req.Groups).Normalize(),
	}
	if err := s.repo.Event.Create(ctx, event); err != nil {
		s.logger.Error("创建行事失败", zap.Error(err))
		return nil, err
	}
	resp := toEventResponse(event)
	return &resp, nil
}

func (s *eventService) Update(ctx context.Context, id string, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	event, err := s.repo.Event.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	if req.Date != nil {
		d, err := engine.ParseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		event.Date = d.String()
	}
	if req.Title != nil {
		event.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Groups != nil {
		event.Groups = model.GroupList(*req.Groups).Normalize()
	}

	if err := s.repo.Event.Update(ctx, event); err != nil {
		s.logger.Error("更新行事失败", zap.String("event_id", id), zap.Error(err))
		return nil, err
	}
	resp := toEventResponse(event)
	return &resp, nil
}

func (s *eventService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Event.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	return s.repo.Event.Delete(ctx, id)
}

func (s *eventService) ImportICS(ctx context.Context, reader io.Reader, groups []string) (*dto.ImportEventsResponse, error) {
	events, warnings, err := ParseEventsICS(reader, groups)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrICSNoEvents
	}

	resp := &dto.ImportEventsResponse{Total: len(events), Errors: warnings}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		for i := range events {
			evt := &events[i]
			if evt.ExternalUID == "" {
				if err := tx.Event.Create(ctx, evt); err != nil {
					return err
				}
				resp.Created++
				continue
			}

			existing, err := tx.Event.GetByExternalUID(ctx, evt.ExternalUID)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Event.Create(ctx, evt); err != nil {
					return err
				}
				resp.Created++
			case err != nil:
				return err
			case existing.Title == evt.Title && existing.Description == evt.Description &&
				existing.Groups.String() == evt.Groups.String():
				resp.Skipped++
			default:
				existing.Title = evt.Title
				existing.Description = evt.Description
				existing.Groups = evt.Groups
				if err := tx.Event.Update(ctx, existing); err != nil {
					return err
				}
				resp.Updated++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("ICS 导入失败，事务回滚", zap.Error(err))
		return nil, err
	}

	s.logger.Info("ICS 导入完成",
		zap.Int("total", resp.Total), zap.Int("created", resp.Created),
		zap.Int("updated", resp.Updated), zap.Int("skipped", resp.Skipped))
	return resp, nil
}

func (s *eventService) ImportICSFromURL(ctx context.Context, req *dto.ImportEventsURLRequest) (*dto.ImportEventsResponse, error) {
	body, err := s.fetch(req.URL)
	if err != nil {
		s.logger.Warn("获取 ICS 失败", zap.String("url", req.URL), zap.Error(err))
		return nil, err
	}
	defer body.Close()
	return s.ImportICS(ctx, body, req.Groups)
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"shiftcare/backend/internal/dto"
	"shiftcare/backend/internal/engine"
)

// JobStatus 生成任务状态：pending → running → succeeded | failed | cancelled
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Finished 是否为终态
func (s JobStatus) Finished() bool {
	return s == JobSucceeded || s == JobFailed || s == JobCancelled
}

// GenerationJob 一次异步生成
type GenerationJob struct {
	ID       string
	Month    engine.Month
	Strategy engine.StrategyKind

	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	status     JobStatus
	err        string
	createdAt  time.Time
	finishedAt time.Time
	result     *dto.GenerateResponse
}

func newGenerationJob(id string, month engine.Month, kind engine.StrategyKind, cancel context.CancelFunc, now time.Time) *GenerationJob {
	return &GenerationJob{
		ID:        id,
		Month:     month,
		Strategy:  kind,
		cancel:    cancel,
		done:      make(chan struct{}),
		status:    JobPending,
		createdAt: now,
	}
}

// Done 任务结束时关闭
func (j *GenerationJob) Done() <-chan struct{} { return j.done }

// Status 当前状态
func (j *GenerationJob) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *GenerationJob) start() {
	j.mu.Lock()
	if j.status == JobPending {
		j.status = JobRunning
	}
	j.mu.Unlock()
}

// finish 记录结果并关闭 done；只生效一次
func (j *GenerationJob) finish(res *dto.GenerateResponse, err error, now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Finished() {
		return
	}
	switch {
	case err == nil:
		j.status = JobSucceeded
		j.result = res
	case errors.Is(err, context.Canceled):
		j.status = JobCancelled
		j.err = err.Error()
	default:
		j.status = JobFailed
		j.err = err.Error()
	}
	j.finishedAt = now
	close(j.done)
}

// expired 终态且超过保留时间
func (j *GenerationJob) expired(now time.Time, ttl time.Duration) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status.Finished() && ttl > 0 && now.Sub(j.finishedAt) > ttl
}

func (j *GenerationJob) snapshot() *dto.GenerationJobResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	resp := &dto.GenerationJobResponse{
		ID:        j.ID,
		Year:      j.Month.Year,
		Month:     int(j.Month.Month),
		Strategy:  string(j.Strategy),
		Status:    string(j.status),
		Error:     j.err,
		CreatedAt: j.createdAt,
		Result:    j.result,
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		resp.FinishedAt = &t
	}
	return resp
}

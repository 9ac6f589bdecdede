package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/aiverse-platform/publish-engine/internal/port"
	"github.com/google/uuid"
)

// JobTracker 读写与提交一一对应的 ProcessingJob，是流水线是否仍在执行、
// 成功或需要人工介入的唯一依据。
type JobTracker struct {
	repo port.ProcessingJobRepository
	now  func() time.Time
}

func NewJobTracker(repo port.ProcessingJobRepository) *JobTracker {
	return &JobTracker{repo: repo, now: time.Now}
}

// EnsureJob 返回提交对应的 job；若存储侧（如触发器）尚未创建，则在此创建。
func (t *JobTracker) EnsureJob(ctx context.Context, submissionID string) (*domain.ProcessingJob, error) {
	job, err := t.repo.FindBySubmission(ctx, submissionID)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewProcessingError("failed to load processing job", err)
	}

	now := t.now().UTC()
	job = &domain.ProcessingJob{
		ID:              uuid.New().String(),
		AppSubmissionID: submissionID,
		Status:          domain.JobStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := t.repo.Save(ctx, job); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// 与存储侧创建并发，读回已有记录
			return t.GetJobFor(ctx, submissionID)
		}
		return nil, domain.NewProcessingError("failed to create processing job", err)
	}
	return job, nil
}

// GetJobFor 读取提交对应的 job，不存在时返回 ProcessingError。
func (t *JobTracker) GetJobFor(ctx context.Context, submissionID string) (*domain.ProcessingJob, error) {
	job, err := t.repo.FindBySubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewProcessingError(
				fmt.Sprintf("no processing job found for submission %s", submissionID), err)
		}
		return nil, domain.NewProcessingError("failed to load processing job", err)
	}
	return job, nil
}

// SetStatus 更新 job 状态与进度。
// 首次以进度 0 进入 processing 时记录 started_at；进入 completed 时记录 completed_at；
// 进入 failed 时记录 errMsg。状态不可回退，进度不可倒退。
func (t *JobTracker) SetStatus(ctx context.Context, jobID string, status domain.JobStatus, progress int, errMsg string) error {
	job, err := t.repo.FindByID(ctx, jobID)
	if err != nil {
		return domain.NewProcessingError("failed to load processing job", err)
	}
	if !job.Status.CanTransitionTo(status) {
		return domain.NewProcessingError(
			fmt.Sprintf("invalid job status transition %s -> %s", job.Status, status), nil)
	}
	progress = clampProgress(progress)
	if progress < job.Progress {
		if status != domain.JobStatusFailed {
			return domain.NewProcessingError(
				fmt.Sprintf("job progress cannot go backwards (%d -> %d)", job.Progress, progress), nil)
		}
		progress = job.Progress
	}

	now := t.now().UTC()
	if status == domain.JobStatusProcessing && progress == 0 && job.StartedAt == nil {
		job.StartedAt = &now
	}
	switch status {
	case domain.JobStatusCompleted:
		job.CompletedAt = &now
	case domain.JobStatusFailed:
		job.ErrorMessage = errMsg
	}
	job.Status = status
	job.Progress = progress
	job.UpdatedAt = now
	if err := t.repo.Update(ctx, job); err != nil {
		return domain.NewProcessingError("failed to update processing job", err)
	}
	return nil
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

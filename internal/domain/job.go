package domain

import "time"

// JobStatus 是 ProcessingJob 的状态机枚举。
// 状态流转：Pending → Processing → (Completed | Failed)，不可回退。
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

func (s JobStatus) rank() int {
	switch s {
	case JobStatusPending:
		return 0
	case JobStatusProcessing:
		return 1
	case JobStatusCompleted, JobStatusFailed:
		return 2
	}
	return -1
}

// CanTransitionTo 判断状态迁移是否合法。Processing → Processing 用于进度更新。
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.IsTerminal() || next.rank() < 0 {
		return false
	}
	if s == next {
		return s == JobStatusProcessing
	}
	return next.rank() > s.rank()
}

// ProcessingJob 跟踪一次提交的构建流水线，与 AppSubmission 一一对应。
type ProcessingJob struct {
	ID              string     `json:"id"`
	AppSubmissionID string     `json:"app_submission_id"`
	Status          JobStatus  `json:"status"`
	Progress        int        `json:"progress"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// InFlight 表示流水线仍在执行中。
func (j *ProcessingJob) InFlight() bool {
	return !j.Status.IsTerminal()
}

package port

import (
	"context"
	"time"
)

type StepEvent struct {
	SubmissionID string         `json:"submission_id,omitempty"`
	Step         string         `json:"step"`
	Timestamp    time.Time      `json:"timestamp"`
	Details      map[string]any `json:"details,omitempty"`
}

type ProgressEvent struct {
	SubmissionID string `json:"submission_id,omitempty"`
	Step         string `json:"step"`
	Progress     int    `json:"progress"`
}

// EventSink 接收流水线的步骤与进度事件。尽力而为，实现方不应长时间阻塞。
type EventSink interface {
	Step(ctx context.Context, e StepEvent)
	Progress(ctx context.Context, e ProgressEvent)
}

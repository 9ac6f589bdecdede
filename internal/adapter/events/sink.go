package events

import (
	"context"
	"log/slog"

	"github.com/aiverse-platform/publish-engine/internal/port"
)

var (
	_ port.EventSink = (*LogSink)(nil)
	_ port.EventSink = Multi(nil)
)

// LogSink 把流水线步骤与进度写入结构化日志。
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("module", "publish-events")}
}

func (s *LogSink) Step(ctx context.Context, e port.StepEvent) {
	attrs := []any{
		"event", "publish_step",
		"submission_id", e.SubmissionID,
		"step", e.Step,
		"timestamp", e.Timestamp,
	}
	if len(e.Details) > 0 {
		attrs = append(attrs, "details", e.Details)
	}
	s.logger.InfoContext(ctx, "publish step", attrs...)
}

func (s *LogSink) Progress(ctx context.Context, e port.ProgressEvent) {
	s.logger.DebugContext(ctx, "publish progress",
		"event", "publish_progress",
		"submission_id", e.SubmissionID,
		"step", e.Step,
		"progress", e.Progress,
	)
}

// Multi 依次转发给每个 sink，单个 sink panic 不影响其余 sink。
type Multi []port.EventSink

func (m Multi) Step(ctx context.Context, e port.StepEvent) {
	for _, s := range m {
		deliver(ctx, e.SubmissionID, e.Step, func() { s.Step(ctx, e) })
	}
}

func (m Multi) Progress(ctx context.Context, e port.ProgressEvent) {
	for _, s := range m {
		deliver(ctx, e.SubmissionID, e.Step, func() { s.Progress(ctx, e) })
	}
}

func deliver(ctx context.Context, submissionID, step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "event sink panicked",
				"submission_id", submissionID, "step", step, "panic", r)
		}
	}()
	fn()
}

package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aiverse-platform/publish-engine/internal/port"
	"github.com/redis/go-redis/v9"
)

var _ port.EventSink = (*RedisSink)(nil)

const channelPrefix = "publish:"

// publisher 是 RedisSink 需要的最小 redis 能力，*redis.Client 满足。
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink 把事件发布到 publish:<submission_id> 频道，供前端订阅实时进度。
// 发布失败只记录日志。
type RedisSink struct {
	client publisher
	logger *slog.Logger
}

func NewRedisSink(client publisher, logger *slog.Logger) *RedisSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSink{client: client, logger: logger.With("module", "redis-sink")}
}

// NewRedisClient 解析 redis://… 形式的 URL。
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

type message struct {
	Type         string         `json:"type"`
	SubmissionID string         `json:"submission_id"`
	Step         string         `json:"step"`
	Progress     *int           `json:"progress,omitempty"`
	Timestamp    string         `json:"timestamp,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

func (s *RedisSink) Step(ctx context.Context, e port.StepEvent) {
	s.publish(ctx, e.SubmissionID, message{
		Type:         "step",
		SubmissionID: e.SubmissionID,
		Step:         e.Step,
		Timestamp:    e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Details:      e.Details,
	})
}

func (s *RedisSink) Progress(ctx context.Context, e port.ProgressEvent) {
	p := e.Progress
	s.publish(ctx, e.SubmissionID, message{
		Type:         "progress",
		SubmissionID: e.SubmissionID,
		Step:         e.Step,
		Progress:     &p,
	})
}

func (s *RedisSink) publish(ctx context.Context, submissionID string, msg message) {
	// 建档前的事件没有订阅方
	if submissionID == "" {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to serialize publish event", "submission_id", submissionID, "error", err)
		return
	}
	if err := s.client.Publish(ctx, channelPrefix+submissionID, string(payload)).Err(); err != nil {
		s.logger.Warn("failed to publish event", "submission_id", submissionID, "type", msg.Type, "error", err)
	}
}

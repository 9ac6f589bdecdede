package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aiverse-platform/publish-engine/internal/port"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	args := m.Called(ctx, channel, message)
	return args.Get(0).(*redis.IntCmd)
}

func TestRedisSink_PublishesToSubmissionChannel(t *testing.T) {
	pub := &mockPublisher{}
	var payloads []string
	pub.On("Publish", mock.Anything, "publish:sub-1", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { payloads = append(payloads, args.String(2)) }).
		Return(redis.NewIntResult(1, nil))

	sink := NewRedisSink(pub, nil)
	sink.Step(context.Background(), port.StepEvent{
		SubmissionID: "sub-1", Step: "building", Timestamp: time.Unix(0, 0),
		Details: map[string]any{"repository_url": "https://github.com/a/b"},
	})
	sink.Progress(context.Background(), port.ProgressEvent{SubmissionID: "sub-1", Step: "building", Progress: 45})

	pub.AssertNumberOfCalls(t, "Publish", 2)
	require.Len(t, payloads, 2)

	var step, progress map[string]any
	require.NoError(t, json.Unmarshal([]byte(payloads[0]), &step))
	require.NoError(t, json.Unmarshal([]byte(payloads[1]), &progress))
	assert.Equal(t, "step", step["type"])
	assert.Equal(t, "building", step["step"])
	assert.Equal(t, "progress", progress["type"])
	assert.Equal(t, float64(45), progress["progress"])
}

func TestRedisSink_SkipsEventsWithoutSubmission(t *testing.T) {
	pub := &mockPublisher{}
	sink := NewRedisSink(pub, nil)

	sink.Step(context.Background(), port.StepEvent{Step: "validating"})
	sink.Progress(context.Background(), port.ProgressEvent{Progress: 0})

	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestRedisSink_PublishErrorIsSwallowed(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(redis.NewIntResult(0, errors.New("connection refused")))

	var buf bytes.Buffer
	sink := NewRedisSink(pub, slog.New(slog.NewTextHandler(&buf, nil)))
	sink.Progress(context.Background(), port.ProgressEvent{SubmissionID: "sub-1", Progress: 10})

	assert.Contains(t, buf.String(), "failed to publish event")
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewLogSink(logger)

	sink.Step(context.Background(), port.StepEvent{SubmissionID: "sub-1", Step: "failed", Details: map[string]any{"code": "DUPLICATE_APP_NAME"}})
	sink.Progress(context.Background(), port.ProgressEvent{SubmissionID: "sub-1", Step: "building", Progress: 55})

	out := buf.String()
	assert.Contains(t, out, `"step":"failed"`)
	assert.Contains(t, out, "DUPLICATE_APP_NAME")
	assert.Contains(t, out, `"progress":55`)
}

type countingSink struct{ steps, progress int }

func (c *countingSink) Step(context.Context, port.StepEvent)         { c.steps++ }
func (c *countingSink) Progress(context.Context, port.ProgressEvent) { c.progress++ }

func TestMulti(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	m := Multi{a, b}
	m.Step(context.Background(), port.StepEvent{})
	m.Progress(context.Background(), port.ProgressEvent{})
	m.Progress(context.Background(), port.ProgressEvent{})

	assert.Equal(t, 1, a.steps)
	assert.Equal(t, 2, b.progress)
}

type panickingSink struct{}

func (panickingSink) Step(context.Context, port.StepEvent)         { panic("step sink down") }
func (panickingSink) Progress(context.Context, port.ProgressEvent) { panic("progress sink down") }

func TestMulti_PanickingSinkDoesNotStarveOthers(t *testing.T) {
	counter := &countingSink{}
	m := Multi{panickingSink{}, counter}

	assert.NotPanics(t, func() {
		m.Step(context.Background(), port.StepEvent{SubmissionID: "sub-1", Step: "building"})
		m.Progress(context.Background(), port.ProgressEvent{SubmissionID: "sub-1", Step: "building", Progress: 30})
	})
	assert.Equal(t, 1, counter.steps)
	assert.Equal(t, 1, counter.progress)
}

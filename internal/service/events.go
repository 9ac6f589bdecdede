package service

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultEventBufferSize = 64
	defaultFlushTimeout    = 2 * time.Second
)

// eventQueue 是单次流水线运行的有界事件队列。
// 普通事件在队列满时直接丢弃；观察者的 panic 被恢复并记录。
// 单个消费 goroutine 保证同一次运行内事件顺序确定。
type eventQueue struct {
	ch           chan func()
	done         chan struct{}
	flushTimeout time.Duration
	logger       *slog.Logger

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func newEventQueue(size int, flushTimeout time.Duration, logger *slog.Logger) *eventQueue {
	if size <= 0 {
		size = defaultEventBufferSize
	}
	if flushTimeout <= 0 {
		flushTimeout = defaultFlushTimeout
	}
	q := &eventQueue{
		ch:           make(chan func(), size),
		done:         make(chan struct{}),
		flushTimeout: flushTimeout,
		logger:       logger,
	}
	go q.run()
	return q
}

func (q *eventQueue) run() {
	defer close(q.done)
	for fn := range q.ch {
		q.invoke(fn)
	}
}

func (q *eventQueue) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Warn("event observer panicked", "panic", r)
		}
	}()
	fn()
}

// push 非阻塞入队，队列满或已关闭时丢弃。
func (q *eventQueue) push(fn func()) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- fn:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// pushWait 最多等待 flushTimeout 入队，用于终态事件。
func (q *eventQueue) pushWait(fn func()) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	timer := time.NewTimer(q.flushTimeout)
	defer timer.Stop()
	select {
	case q.ch <- fn:
		return true
	case <-timer.C:
		q.dropped.Add(1)
		return false
	}
}

// close 停止接收并最多等待 flushTimeout 让已入队事件投递完毕。
func (q *eventQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	timer := time.NewTimer(q.flushTimeout)
	defer timer.Stop()
	select {
	case <-q.done:
	case <-timer.C:
		q.logger.Warn("event observer is slow, leaving remaining events to drain in background")
	}
	if n := q.dropped.Load(); n > 0 {
		q.logger.Debug("dropped pipeline events", "count", n)
	}
}

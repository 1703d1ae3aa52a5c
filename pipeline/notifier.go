package pipeline

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 📣 进度通知
// =============================================================================

// 事件阶段
const (
	PhaseAttempting = "attempting"
	PhaseSucceeded  = "succeeded"
	PhaseFailed     = "failed"
	PhaseTimeout    = "timeout"
	PhaseSkipped    = "skipped"
)

// ProgressEvent 策略尝试进度事件
type ProgressEvent struct {
	RequestID string        `json:"request_id,omitempty"`
	Prompt    string        `json:"prompt"`
	Strategy  string        `json:"strategy"`
	Phase     string        `json:"phase"`
	Detail    string        `json:"detail,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Notifier 进度事件发布方
type Notifier interface {
	Publish(event ProgressEvent)
}

// NopNotifier 丢弃所有事件
type NopNotifier struct{}

// Publish 空实现
func (NopNotifier) Publish(ProgressEvent) {}

// Hub 进度事件广播中枢。订阅方持有带缓冲通道；
// 跟不上节奏的订阅方丢事件而不是阻塞编排器。
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan ProgressEvent]struct{}
	buffer int
	logger *zap.Logger
}

// NewHub 创建广播中枢
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[chan ProgressEvent]struct{}),
		buffer: buffer,
		logger: logger.With(zap.String("component", "progress_hub")),
	}
}

// Subscribe 注册订阅方，返回事件通道与退订函数
func (h *Hub) Subscribe() (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, h.buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish 广播事件，满通道丢弃
func (h *Hub) Publish(event ProgressEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.logger.Debug("slow subscriber, event dropped",
				zap.String("strategy", event.Strategy),
				zap.String("phase", event.Phase),
			)
		}
	}
}

// Close 关闭所有订阅通道，用于服务停机
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// SubscriberCount 当前订阅方数量
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

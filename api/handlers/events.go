package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/pipeline"
)

// =============================================================================
// 📡 生成进度 WebSocket Handler
// =============================================================================

const (
	// eventWriteTimeout 单条事件写入超时
	eventWriteTimeout = 5 * time.Second
	// eventPingInterval 保活间隔
	eventPingInterval = 30 * time.Second
)

// EventsHandler 通过 WebSocket 推送生成进度事件
type EventsHandler struct {
	hub    *pipeline.Hub
	logger *zap.Logger
}

// NewEventsHandler 创建进度事件处理器
func NewEventsHandler(hub *pipeline.Hub, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		hub:    hub,
		logger: logger.With(zap.String("component", "events_handler")),
	}
}

// HandleEvents 升级连接并持续推送进度事件
// @Summary 订阅生成进度
// @Description 升级为 WebSocket 连接, 实时推送各策略的尝试进度
// @Tags 生成
// @Produce json
// @Success 101 "协议切换"
// @Failure 400 {object} Response "升级失败"
// @Router /api/v1/generate/events [get]
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// 浏览器前端与 API 可能不同源
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		// Accept 失败时已写入 HTTP 错误响应
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	events, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	ctx := r.Context()
	h.logger.Info("progress subscriber connected",
		zap.String("remote", r.RemoteAddr),
		zap.Int("subscribers", h.hub.SubscriberCount()),
	)

	// 读取泵只用于感知客户端断开
	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()
	go func() {
		defer cancelRead()
		for {
			if _, _, err := conn.Read(readCtx); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-readCtx.Done():
			conn.Close(websocket.StatusNormalClosure, "client disconnected")
			return

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(readCtx, eventWriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.logger.Debug("ping failed, closing subscriber", zap.Error(err))
				return
			}

		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "hub closed")
				return
			}
			writeCtx, cancel := context.WithTimeout(readCtx, eventWriteTimeout)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				h.logger.Debug("event write failed, closing subscriber", zap.Error(err))
				return
			}
		}
	}
}

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/pipeline"
)

func TestEventsHandler_StreamsProgressEvents(t *testing.T) {
	hub := pipeline.NewHub(16, zap.NewNop())
	handler := NewEventsHandler(hub, zap.NewNop())

	srv := httptest.NewServer(http.HandlerFunc(handler.HandleEvents))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[4:], nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	// 等待订阅注册完成
	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	sent := pipeline.ProgressEvent{
		Prompt:    "a red cube",
		Strategy:  "inference",
		Phase:     pipeline.PhaseAttempting,
		Timestamp: time.Now(),
	}
	hub.Publish(sent)

	var got pipeline.ProgressEvent
	require.NoError(t, wsjson.Read(ctx, conn, &got))

	assert.Equal(t, sent.Prompt, got.Prompt)
	assert.Equal(t, sent.Strategy, got.Strategy)
	assert.Equal(t, sent.Phase, got.Phase)
}

func TestEventsHandler_UnsubscribesOnDisconnect(t *testing.T) {
	hub := pipeline.NewHub(16, zap.NewNop())
	handler := NewEventsHandler(hub, zap.NewNop())

	srv := httptest.NewServer(http.HandlerFunc(handler.HandleEvents))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[4:], nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))

	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventsHandler_MultipleSubscribers(t *testing.T) {
	hub := pipeline.NewHub(16, zap.NewNop())
	handler := NewEventsHandler(hub, zap.NewNop())

	srv := httptest.NewServer(http.HandlerFunc(handler.HandleEvents))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[4:], nil)
		require.NoError(t, err)
		defer conn.Close(websocket.StatusNormalClosure, "test done")
		conns[i] = conn
	}

	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 3
	}, 2*time.Second, 10*time.Millisecond)

	hub.Publish(pipeline.ProgressEvent{
		Prompt:    "a blue sphere",
		Strategy:  "procedural",
		Phase:     pipeline.PhaseSucceeded,
		Timestamp: time.Now(),
	})

	for _, conn := range conns {
		var got pipeline.ProgressEvent
		require.NoError(t, wsjson.Read(ctx, conn, &got))
		assert.Equal(t, "a blue sphere", got.Prompt)
		assert.Equal(t, pipeline.PhaseSucceeded, got.Phase)
	}
}

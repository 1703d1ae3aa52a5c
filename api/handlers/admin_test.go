package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockCacheClearer 模拟缓存清理
type mockCacheClearer struct {
	cleared bool
}

func (m *mockCacheClearer) ClearCache(ctx context.Context) {
	m.cleared = true
}

func TestAdminHandler_HandleCacheClear(t *testing.T) {
	cache := &mockCacheClearer{}
	handler := NewAdminHandler(cache, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/admin/cache/clear", nil)

	handler.HandleCacheClear(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, cache.cleared)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cache cleared", data["message"])
}

func TestAdminHandler_HandleCacheClear_MethodNotAllowed(t *testing.T) {
	cache := &mockCacheClearer{}
	handler := NewAdminHandler(cache, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/admin/cache/clear", nil)

	handler.HandleCacheClear(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.False(t, cache.cleared)
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/api"
	"github.com/shapeflow/shapeflow/geometry"
	"github.com/shapeflow/shapeflow/types"
	"github.com/shapeflow/shapeflow/usage"
)

// =============================================================================
// 🧪 测试辅助类型
// =============================================================================

// mockOrchestrator 模拟生成编排器
type mockOrchestrator struct {
	result *types.GenerationResult
	err    error

	gotPrompt string
	gotPerm   usage.Permission
}

func (m *mockOrchestrator) Generate(ctx context.Context, raw string, perm usage.Permission) (*types.GenerationResult, error) {
	m.gotPrompt = raw
	m.gotPerm = perm
	return m.result, m.err
}

// mockGate 模拟用量门控
type mockGate struct {
	perm     usage.Permission
	checkErr error

	recordErr        error
	recordCalls      int
	recordedID       string
	recordedStrategy string
}

func (m *mockGate) CheckPermission(ctx context.Context, p usage.Principal) (usage.Permission, error) {
	return m.perm, m.checkErr
}

func (m *mockGate) RecordConsumption(ctx context.Context, p usage.Principal, strategy string) error {
	m.recordCalls++
	m.recordedID = p.ID
	m.recordedStrategy = strategy
	return m.recordErr
}

func sampleResult() *types.GenerationResult {
	return &types.GenerationResult{
		ID:       "gen-1",
		Prompt:   "a red cube",
		Strategy: types.StrategyProcedural,
		Object: &geometry.Node{
			Name: "red cube",
		},
		Animation: types.ScaleIn(600 * time.Millisecond),
		CreatedAt: time.Now(),
	}
}

func newGenerateRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/v1/generate", bytes.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// =============================================================================
// 🧪 GenerateHandler 测试
// =============================================================================

func TestGenerateHandler_Success(t *testing.T) {
	orch := &mockOrchestrator{result: sampleResult()}
	gate := &mockGate{perm: usage.Permission{Tier: usage.TierProcedural, DailyRemaining: 5}}
	handler := NewGenerateHandler(orch, gate, zap.NewNop())

	w := httptest.NewRecorder()
	r := newGenerateRequest(t, api.GenerateRequest{Prompt: "a red cube"})

	handler.HandleGenerate(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a red cube", orch.gotPrompt)
	assert.Equal(t, usage.TierProcedural, orch.gotPerm.Tier)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var data api.GenerateData
	require.NoError(t, json.Unmarshal(raw, &data))

	assert.Equal(t, "gen-1", data.ID)
	assert.Equal(t, types.StrategyProcedural, data.Strategy)
	assert.NotNil(t, data.Object)
	assert.NotEmpty(t, data.Elapsed)
}

func TestGenerateHandler_RecordsConsumption(t *testing.T) {
	orch := &mockOrchestrator{result: sampleResult()}
	gate := &mockGate{perm: usage.Permission{Tier: usage.TierShared, RemoteInference: true, DailyRemaining: 10}}
	handler := NewGenerateHandler(orch, gate, zap.NewNop())

	principal := usage.Principal{ID: "user-1", Kind: usage.KindAccount}
	w := httptest.NewRecorder()
	r := newGenerateRequest(t, api.GenerateRequest{Prompt: "a red cube"})
	r = r.WithContext(usage.WithPrincipal(r.Context(), principal))

	handler.HandleGenerate(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", gate.recordedID)
	assert.Equal(t, types.StrategyProcedural, gate.recordedStrategy)
}

// 缓存命中的结果不消耗配额
func TestGenerateHandler_CacheHitSkipsConsumption(t *testing.T) {
	cached := sampleResult()
	cached.Hits = 2
	orch := &mockOrchestrator{result: cached}
	gate := &mockGate{perm: usage.Permission{Tier: usage.TierShared, RemoteInference: true, DailyRemaining: 10}}
	handler := NewGenerateHandler(orch, gate, zap.NewNop())

	principal := usage.Principal{ID: "user-1", Kind: usage.KindAccount}
	w := httptest.NewRecorder()
	r := newGenerateRequest(t, api.GenerateRequest{Prompt: "a red cube"})
	r = r.WithContext(usage.WithPrincipal(r.Context(), principal))

	handler.HandleGenerate(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, gate.recordCalls)
}

func TestGenerateHandler_RecordFailureDoesNotFailRequest(t *testing.T) {
	orch := &mockOrchestrator{result: sampleResult()}
	gate := &mockGate{
		perm:      usage.Permission{Tier: usage.TierProcedural, DailyRemaining: 5},
		recordErr: errors.New("redis down"),
	}
	handler := NewGenerateHandler(orch, gate, zap.NewNop())

	w := httptest.NewRecorder()
	r := newGenerateRequest(t, api.GenerateRequest{Prompt: "a red cube"})

	handler.HandleGenerate(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerateHandler_QuotaExceeded(t *testing.T) {
	orch := &mockOrchestrator{result: sampleResult()}
	gate := &mockGate{
		checkErr: types.NewError(types.ErrQuotaExceeded, "daily quota of 20 generations exhausted").
			WithHTTPStatus(http.StatusTooManyRequests),
	}
	handler := NewGenerateHandler(orch, gate, zap.NewNop())

	w := httptest.NewRecorder()
	r := newGenerateRequest(t, api.GenerateRequest{Prompt: "a red cube"})

	handler.HandleGenerate(w, r)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(types.ErrQuotaExceeded), resp.Error.Code)

	// 配额耗尽时不应触达编排器
	assert.Empty(t, orch.gotPrompt)
}

func TestGenerateHandler_GenerationError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid prompt",
			err:        types.NewError(types.ErrInvalidRequest, "prompt is empty"),
			wantStatus: http.StatusBadRequest,
			wantCode:   string(types.ErrInvalidRequest),
		},
		{
			name:       "all strategies failed",
			err:        types.NewError(types.ErrGenerationFailed, "all strategies failed"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   string(types.ErrGenerationFailed),
		},
		{
			name:       "untyped error wrapped as internal",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   string(types.ErrInternalError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := &mockOrchestrator{err: tt.err}
			gate := &mockGate{perm: usage.Permission{Tier: usage.TierProcedural, DailyRemaining: 5}}
			handler := NewGenerateHandler(orch, gate, zap.NewNop())

			w := httptest.NewRecorder()
			r := newGenerateRequest(t, api.GenerateRequest{Prompt: "a red cube"})

			handler.HandleGenerate(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp Response
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)

			// 生成失败不应计量
			assert.Empty(t, gate.recordedID)
		})
	}
}

func TestGenerateHandler_MethodNotAllowed(t *testing.T) {
	handler := NewGenerateHandler(&mockOrchestrator{}, &mockGate{}, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/generate", nil)

	handler.HandleGenerate(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestGenerateHandler_InvalidContentType(t *testing.T) {
	handler := NewGenerateHandler(&mockOrchestrator{}, &mockGate{}, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/generate", bytes.NewBufferString("prompt=cube"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	handler.HandleGenerate(w, r)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestGenerateHandler_MalformedBody(t *testing.T) {
	handler := NewGenerateHandler(&mockOrchestrator{}, &mockGate{}, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/generate", bytes.NewBufferString(`{"prompt":`))
	r.Header.Set("Content-Type", "application/json")

	handler.HandleGenerate(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/api"
	"github.com/shapeflow/shapeflow/types"
	"github.com/shapeflow/shapeflow/usage"
)

// =============================================================================
// 🏗️ 生成接口 Handler
// =============================================================================

// Generator 生成编排入口
type Generator interface {
	Generate(ctx context.Context, raw string, perm usage.Permission) (*types.GenerationResult, error)
}

// GenerateHandler 生成接口处理器
type GenerateHandler struct {
	orchestrator Generator
	gate         usage.Gate
	logger       *zap.Logger
}

// NewGenerateHandler 创建生成处理器
func NewGenerateHandler(orchestrator Generator, gate usage.Gate, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{
		orchestrator: orchestrator,
		gate:         gate,
		logger:       logger.With(zap.String("component", "generate_handler")),
	}
}

// HandleGenerate 处理生成请求
// @Summary 文本生成 3D 对象
// @Description 按推理、资产、程序化顺序生成 3D 对象
// @Tags 生成
// @Accept json
// @Produce json
// @Param request body api.GenerateRequest true "生成请求"
// @Success 200 {object} Response{data=api.GenerateData} "生成结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 429 {object} Response "配额耗尽"
// @Failure 500 {object} Response "生成失败"
// @Security BearerAuth
// @Router /api/v1/generate [post]
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest,
			"method not allowed", h.logger)
		return
	}

	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.GenerateRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	ctx := r.Context()

	// 认证中间件写入主体；缺失时按匿名处理
	principal, ok := usage.PrincipalFromContext(ctx)
	if !ok {
		principal = usage.AnonymousPrincipal()
	}

	// 配额与权限检查
	perm, err := h.gate.CheckPermission(ctx, principal)
	if err != nil {
		h.writeGenError(w, err)
		return
	}

	start := time.Now()
	result, err := h.orchestrator.Generate(ctx, req.Prompt, perm)
	elapsed := time.Since(start)

	if err != nil {
		h.writeGenError(w, err)
		return
	}

	// 成功后计量；缓存命中（命中计数大于 1）不消耗配额，计量失败不影响响应
	if result.Hits <= 1 {
		if err := h.gate.RecordConsumption(ctx, principal, result.Strategy); err != nil {
			h.logger.Warn("consumption recording failed",
				zap.String("principal", principal.ID),
				zap.Error(err),
			)
		}
	}

	h.logger.Info("generation completed",
		zap.String("prompt", result.Prompt),
		zap.String("strategy", result.Strategy),
		zap.Int("hits", result.Hits),
		zap.Duration("elapsed", elapsed),
	)

	WriteSuccess(w, api.NewGenerateData(result, elapsed))
}

// writeGenError 将生成错误转换为 HTTP 响应
func (h *GenerateHandler) writeGenError(w http.ResponseWriter, err error) {
	var genErr *types.Error
	if errors.As(err, &genErr) {
		WriteError(w, genErr, h.logger)
		return
	}
	WriteError(w, types.NewError(types.ErrInternalError, "generation failed").WithCause(err), h.logger)
}

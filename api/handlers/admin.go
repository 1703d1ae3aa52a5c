package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/api"
	"github.com/shapeflow/shapeflow/types"
)

// =============================================================================
// 🛠️ 管理接口 Handler
// =============================================================================

// CacheClearer 结果缓存清理入口
type CacheClearer interface {
	ClearCache(ctx context.Context)
}

// AdminHandler 管理接口处理器
type AdminHandler struct {
	cache  CacheClearer
	logger *zap.Logger
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(cache CacheClearer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		cache:  cache,
		logger: logger.With(zap.String("component", "admin_handler")),
	}
}

// HandleCacheClear 清空生成结果缓存
// @Summary 清空结果缓存
// @Description 清除本地与 Redis 中的全部生成结果缓存
// @Tags 管理
// @Produce json
// @Success 200 {object} Response{data=api.CacheClearData} "清理完成"
// @Failure 405 {object} Response "方法不允许"
// @Security BearerAuth
// @Router /api/v1/admin/cache/clear [post]
func (h *AdminHandler) HandleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest,
			"method not allowed", h.logger)
		return
	}

	h.cache.ClearCache(r.Context())
	h.logger.Info("result cache cleared")

	WriteSuccess(w, api.CacheClearData{Message: "cache cleared"})
}

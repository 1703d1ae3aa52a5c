package api

import (
	"time"

	"github.com/shapeflow/shapeflow/geometry"
	"github.com/shapeflow/shapeflow/types"
)

// =============================================================================
// 通用响应信封
// =============================================================================

// Response 统一 API 响应结构
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ErrorInfo 错误信息结构
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
	HTTPStatus int    `json:"-"` // 不序列化到 JSON
}

// =============================================================================
// 生成类型
// =============================================================================

// GenerateRequest 代表一次文本生成 3D 对象的请求。
// @Description 生成请求结构
type GenerateRequest struct {
	// 用户输入的自然语言描述
	Prompt string `json:"prompt" example:"a golden pyramid" binding:"required"`
}

// GenerateData 是生成成功时响应 Data 字段的内容。
// @Description 生成结果结构
type GenerateData struct {
	// 结果 ID
	ID string `json:"id" example:"b7f9c2d4-..."`
	// 归一化后的提示词
	Prompt string `json:"prompt" example:"a golden pyramid"`
	// 产出该结果的策略（inference、asset、procedural）
	Strategy string `json:"strategy" example:"procedural"`
	// 对象场景图
	Object *geometry.Node `json:"object"`
	// 入场动画
	Animation *types.Animation `json:"animation,omitempty"`
	// 该提示词被请求的次数（含本次）
	Hits int `json:"hits" example:"1"`
	// 结果创建时间
	CreatedAt time.Time `json:"created_at"`
	// 本次请求耗时
	Elapsed string `json:"elapsed,omitempty" example:"120ms"`
}

// NewGenerateData 从生成结果构造响应 DTO。
func NewGenerateData(result *types.GenerationResult, elapsed time.Duration) GenerateData {
	return GenerateData{
		ID:        result.ID,
		Prompt:    result.Prompt,
		Strategy:  result.Strategy,
		Object:    result.Object,
		Animation: result.Animation,
		Hits:      result.Hits,
		CreatedAt: result.CreatedAt,
		Elapsed:   elapsed.Round(time.Millisecond).String(),
	}
}

// =============================================================================
// 缓存管理类型
// =============================================================================

// CacheClearData 是缓存清空操作响应 Data 字段的内容。
// @Description 缓存清空结果
type CacheClearData struct {
	// 提示消息
	Message string `json:"message" example:"result cache cleared"`
}

// =============================================================================
// 健康检查类型
// =============================================================================

// HealthStatus 整体健康状态。
// @Description 健康检查响应
type HealthStatus struct {
	// 状态（healthy、degraded、unhealthy）
	Status string `json:"status" example:"healthy"`
	// 服务版本
	Version string `json:"version,omitempty" example:"1.0.0"`
	// 各依赖组件的探活结果
	Components map[string]ComponentHealth `json:"components,omitempty"`
	// 检查时间
	CheckedAt time.Time `json:"checked_at"`
}

// ComponentHealth 单个依赖组件的健康状态。
// @Description 组件健康结构
type ComponentHealth struct {
	// 是否健康
	Healthy bool `json:"healthy" example:"true"`
	// 探活耗时
	Latency string `json:"latency,omitempty" example:"2ms"`
	// 失败原因
	Error string `json:"error,omitempty"`
}

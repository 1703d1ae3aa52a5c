package types

import (
	"time"

	"github.com/shapeflow/shapeflow/geometry"
)

// 策略名称常量。Orchestrator 按此固定优先级顺序尝试。
const (
	StrategyInference  = "inference"
	StrategyAsset      = "asset"
	StrategyProcedural = "procedural"
)

// EaseOutCubic 入场动画使用的缓动曲线标识
const EaseOutCubic = "ease-out-cubic"

// Animation 入场动画元数据。纯装饰性：由渲染端在渲染循环中调度，
// 不参与生成调用本身的完成判定。
type Animation struct {
	Kind      string        `json:"kind"`
	FromScale float64       `json:"from_scale"`
	ToScale   float64       `json:"to_scale"`
	Duration  time.Duration `json:"duration"`
	Easing    string        `json:"easing"`
}

// ScaleIn 返回标准入场动画：10% → 100% 单调 ease-out
func ScaleIn(duration time.Duration) *Animation {
	return &Animation{
		Kind:      "scale-in",
		FromScale: 0.1,
		ToScale:   1.0,
		Duration:  duration,
		Easing:    EaseOutCubic,
	}
}

// GenerationResult 任一策略产出的可渲染对象。
// 缓存持有原件；对外只交付 Clone 出的独立副本，
// 展示副本的任何修改都不会污染缓存原件。
type GenerationResult struct {
	ID        string         `json:"id"`
	Prompt    string         `json:"prompt"`
	Strategy  string         `json:"strategy"`
	Object    *geometry.Node `json:"object"`
	Animation *Animation     `json:"animation,omitempty"`
	CreatedAt time.Time      `json:"created_at"`

	// Hits 缓存命中计数，仅用于淘汰排序；由缓存持有方维护。
	Hits int `json:"hits"`
}

// Clone 深拷贝结果。副本由调用方独立持有。
func (r *GenerationResult) Clone() *GenerationResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Object = r.Object.Clone()
	if r.Animation != nil {
		anim := *r.Animation
		out.Animation = &anim
	}
	return &out
}

// Dispose 确定性释放几何资源。展示副本被新一次生成取代时由调用方调用。
func (r *GenerationResult) Dispose() {
	if r == nil {
		return
	}
	r.Object.Release()
}

// OutcomeStatus 策略尝试状态
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
	OutcomeTimeout OutcomeStatus = "timeout"
)

// StrategyOutcome 单次策略尝试的带标签结果。瞬态，从不持久化。
type StrategyOutcome struct {
	Status   OutcomeStatus     `json:"status"`
	Strategy string            `json:"strategy"`
	Result   *GenerationResult `json:"-"`
	Err      error             `json:"-"`
	Elapsed  time.Duration     `json:"elapsed"`
}

// Succeeded 是否成功
func (o *StrategyOutcome) Succeeded() bool {
	return o != nil && o.Status == OutcomeSuccess && o.Result != nil
}

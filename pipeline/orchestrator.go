package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/shapeflow/shapeflow/internal/ctxkeys"
	"github.com/shapeflow/shapeflow/internal/metrics"
	"github.com/shapeflow/shapeflow/types"
	"github.com/shapeflow/shapeflow/usage"
)

// =============================================================================
// 🎼 编排器
// =============================================================================

// Config 编排器配置
type Config struct {
	// 推理策略截止时间
	InferenceDeadline time.Duration `yaml:"inference_deadline" json:"inference_deadline"`

	// 资产策略截止时间
	AssetDeadline time.Duration `yaml:"asset_deadline" json:"asset_deadline"`

	// 程序化策略截止时间
	ProceduralDeadline time.Duration `yaml:"procedural_deadline" json:"procedural_deadline"`

	// 入场动画时长
	AnimationDuration time.Duration `yaml:"animation_duration" json:"animation_duration"`

	// 结果缓存配置
	Cache CacheConfig `yaml:"cache" json:"cache"`
}

// DefaultConfig 返回默认编排器配置
func DefaultConfig() Config {
	return Config{
		InferenceDeadline:  45 * time.Second,
		AssetDeadline:      10 * time.Second,
		ProceduralDeadline: 2 * time.Second,
		AnimationDuration:  600 * time.Millisecond,
		Cache:              DefaultCacheConfig(),
	}
}

// Orchestrator 多策略生成编排器。策略按切片顺序为固定优先级；
// 编排器是结果缓存唯一的写入方。
type Orchestrator struct {
	strategies []GenerationStrategy
	cache      *ResultCache
	notifier   Notifier
	collector  *metrics.Collector
	flight     singleflight.Group
	cfg        Config
	logger     *zap.Logger
}

// NewOrchestrator 创建编排器。notifier 与 collector 可为 nil。
func NewOrchestrator(cfg Config, strategies []GenerationStrategy, cache *ResultCache, notifier Notifier, collector *metrics.Collector, logger *zap.Logger) *Orchestrator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		strategies: strategies,
		cache:      cache,
		notifier:   notifier,
		collector:  collector,
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "orchestrator")),
	}
}

// Generate 处理一次生成提交。返回值是调用方独立持有的深拷贝。
func (o *Orchestrator) Generate(ctx context.Context, raw string, perm usage.Permission) (*types.GenerationResult, error) {
	start := time.Now()

	prompt, ok := types.NormalizePrompt(raw)
	if !ok {
		o.recordGeneration("none", "failure", time.Since(start))
		return nil, types.NewError(types.ErrGenerationFailed, "prompt is empty")
	}
	key := prompt.Normalized

	// 缓存命中：不消耗任何策略与配额
	if clone, hit := o.cache.Get(ctx, key); hit {
		o.recordCache(true)
		o.recordGeneration(clone.Strategy, "cache_hit", time.Since(start))
		return clone, nil
	}
	o.recordCache(false)

	// 合并键带许可位：不同层级的重叠提交不互相借用网络产出
	flightKey := key
	if perm.RemoteInference {
		flightKey += "|remote"
	}
	if perm.AssetFetch {
		flightKey += "|assets"
	}

	ch := o.flight.DoChan(flightKey, func() (interface{}, error) {
		// 共享执行不随首个提交方的断开而取消，上限是各策略截止时间之和
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.totalDeadline())
		defer cancel()

		// 合并窗口内可能已有他人完成写入
		if clone, hit := o.cache.Get(fctx, key); hit {
			return clone, nil
		}

		result, err := o.runStrategies(fctx, prompt, perm)
		if err != nil {
			return nil, err
		}

		result.Hits = 1

		// 先做共享副本再入缓存：缓存接管原件后，并发命中会在锁内
		// 递增计数、淘汰会 Dispose，原件不允许再被这里触碰
		shared := result.Clone()
		o.cache.Set(fctx, key, result)

		// 共享给全部等待方的只读副本，各自再深拷贝
		return shared, nil
	})

	var shared *types.GenerationResult
	select {
	case res := <-ch:
		if res.Err != nil {
			o.recordGeneration("none", "failure", time.Since(start))
			return nil, res.Err
		}
		shared = res.Val.(*types.GenerationResult)
	case <-ctx.Done():
		o.recordGeneration("none", "failure", time.Since(start))
		return nil, types.NewError(types.ErrGenerationFailed, "generation abandoned").WithCause(ctx.Err())
	}

	clone := shared.Clone()
	o.recordGeneration(clone.Strategy, "success", time.Since(start))
	return clone, nil
}

// ClearCache 清空结果缓存
func (o *Orchestrator) ClearCache(ctx context.Context) {
	o.cache.Clear(ctx)
}

// runStrategies 按固定优先级依次尝试，吸收失败与超时
func (o *Orchestrator) runStrategies(ctx context.Context, prompt *types.Prompt, perm usage.Permission) (*types.GenerationResult, error) {
	requestID, _ := ctxkeys.RequestID(ctx)

	var lastErr error
	for _, strategy := range o.strategies {
		name := strategy.Name()

		// 网络型策略按层级许可跳过，程序化层级只走本地合成
		if name == types.StrategyInference && !perm.RemoteInference {
			o.publish(requestID, prompt, name, PhaseSkipped, "tier does not permit remote inference", 0)
			o.recordStrategy(name, "skipped", 0)
			continue
		}
		if name == types.StrategyAsset && !perm.AssetFetch {
			o.publish(requestID, prompt, name, PhaseSkipped, "tier does not permit asset fetch", 0)
			o.recordStrategy(name, "skipped", 0)
			continue
		}

		o.publish(requestID, prompt, name, PhaseAttempting, "", 0)

		outcome := o.attempt(ctx, strategy, prompt)
		o.recordStrategy(name, string(outcome.Status), outcome.Elapsed)

		switch {
		case outcome.Succeeded():
			o.publish(requestID, prompt, name, PhaseSucceeded, "", outcome.Elapsed)
			return o.finalize(prompt, outcome.Result), nil
		case outcome.Status == types.OutcomeTimeout:
			o.publish(requestID, prompt, name, PhaseTimeout, "deadline exceeded", outcome.Elapsed)
			o.logger.Warn("strategy timed out",
				zap.String("strategy", name),
				zap.Duration("elapsed", outcome.Elapsed),
			)
		default:
			detail := ""
			if outcome.Err != nil {
				detail = outcome.Err.Error()
			}
			o.publish(requestID, prompt, name, PhaseFailed, detail, outcome.Elapsed)
			o.logger.Warn("strategy failed",
				zap.String("strategy", name),
				zap.Error(outcome.Err),
			)
		}
		lastErr = outcome.Err
	}

	return nil, types.NewError(types.ErrGenerationFailed, "all generation strategies exhausted").WithCause(lastErr)
}

// attempt 在策略自己的截止时间内运行一次尝试。
// 截止后立即推进；迟到的结果由守护 goroutine 回收释放。
func (o *Orchestrator) attempt(ctx context.Context, strategy GenerationStrategy, prompt *types.Prompt) *types.StrategyOutcome {
	deadline := o.deadlineFor(strategy.Name())
	actx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	start := time.Now()
	ch := make(chan *types.StrategyOutcome, 1)

	go func() {
		result, err := strategy.Attempt(actx, prompt)
		status := types.OutcomeSuccess
		if err != nil {
			status = types.OutcomeFailure
		}
		ch <- &types.StrategyOutcome{
			Status:   status,
			Strategy: strategy.Name(),
			Result:   result,
			Err:      err,
			Elapsed:  time.Since(start),
		}
	}()

	select {
	case outcome := <-ch:
		if outcome.Err != nil && errors.Is(outcome.Err, context.DeadlineExceeded) {
			outcome.Status = types.OutcomeTimeout
		}
		return outcome
	case <-actx.Done():
		// 迟到结果丢弃并释放，永不入缓存
		go func() {
			if late := <-ch; late.Result != nil {
				late.Result.Dispose()
			}
		}()
		status := types.OutcomeTimeout
		if ctx.Err() != nil {
			status = types.OutcomeFailure
		}
		return &types.StrategyOutcome{
			Status:   status,
			Strategy: strategy.Name(),
			Err:      actx.Err(),
			Elapsed:  time.Since(start),
		}
	}
}

// finalize 补全产出元数据
func (o *Orchestrator) finalize(prompt *types.Prompt, result *types.GenerationResult) *types.GenerationResult {
	if result.Prompt == "" {
		result.Prompt = prompt.Normalized
	}
	if result.Animation == nil {
		result.Animation = types.ScaleIn(o.cfg.AnimationDuration)
	}
	return result
}

// totalDeadline 各策略截止时间之和，共享执行的时间上限
func (o *Orchestrator) totalDeadline() time.Duration {
	return o.cfg.InferenceDeadline + o.cfg.AssetDeadline + o.cfg.ProceduralDeadline
}

func (o *Orchestrator) deadlineFor(name string) time.Duration {
	switch name {
	case types.StrategyInference:
		return o.cfg.InferenceDeadline
	case types.StrategyAsset:
		return o.cfg.AssetDeadline
	default:
		return o.cfg.ProceduralDeadline
	}
}

func (o *Orchestrator) publish(requestID string, prompt *types.Prompt, strategy, phase, detail string, elapsed time.Duration) {
	o.notifier.Publish(ProgressEvent{
		RequestID: requestID,
		Prompt:    prompt.Normalized,
		Strategy:  strategy,
		Phase:     phase,
		Detail:    detail,
		Elapsed:   elapsed,
		Timestamp: time.Now(),
	})
}

func (o *Orchestrator) recordGeneration(strategy, status string, elapsed time.Duration) {
	if o.collector != nil {
		o.collector.RecordGeneration(strategy, status, elapsed)
	}
}

func (o *Orchestrator) recordStrategy(strategy, status string, elapsed time.Duration) {
	if o.collector != nil {
		o.collector.RecordStrategyAttempt(strategy, status, elapsed)
	}
}

func (o *Orchestrator) recordCache(hit bool) {
	if o.collector == nil {
		return
	}
	if hit {
		o.collector.RecordCacheHit("result_local")
	} else {
		o.collector.RecordCacheMiss("result_local")
	}
}

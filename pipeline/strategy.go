package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/assets"
	"github.com/shapeflow/shapeflow/geometry"
	"github.com/shapeflow/shapeflow/inference"
	"github.com/shapeflow/shapeflow/internal/ctxkeys"
	"github.com/shapeflow/shapeflow/types"
	"github.com/shapeflow/shapeflow/vision"
)

// =============================================================================
// 🧩 生成策略
// =============================================================================

// GenerationStrategy 生成策略。Attempt 在编排器给定的截止时间内
// 产出一个可渲染结果，或返回带分类的错误。
type GenerationStrategy interface {
	Name() string
	Attempt(ctx context.Context, prompt *types.Prompt) (*types.GenerationResult, error)
}

// InferenceCaller 远端推理调用方
type InferenceCaller interface {
	Infer(ctx context.Context, prompt string, credential string) (*inference.Payload, error)
}

// InferenceStrategy 远端 AI 推理策略。网格负载直接解码；
// 图像负载经 vision 转换为程序化参数，产出仍标记为推理策略。
type InferenceStrategy struct {
	client    InferenceCaller
	converter *vision.Converter
	logger    *zap.Logger
}

// NewInferenceStrategy 创建推理策略
func NewInferenceStrategy(client InferenceCaller, converter *vision.Converter, logger *zap.Logger) *InferenceStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InferenceStrategy{
		client:    client,
		converter: converter,
		logger:    logger.With(zap.String("strategy", types.StrategyInference)),
	}
}

// Name 策略名称
func (s *InferenceStrategy) Name() string { return types.StrategyInference }

// Attempt 调用远端推理并解码负载
func (s *InferenceStrategy) Attempt(ctx context.Context, prompt *types.Prompt) (*types.GenerationResult, error) {
	credential, _ := ctxkeys.InferenceCredential(ctx)

	payload, err := s.client.Infer(ctx, prompt.Normalized, credential)
	if err != nil {
		return nil, err
	}

	switch payload.Kind {
	case inference.PayloadMesh:
		return s.decodeMesh(prompt, payload.Data)
	case inference.PayloadImage:
		return s.convertImage(ctx, prompt, payload.Data)
	default:
		return nil, types.NewError(types.ErrParseError, "unsupported inference payload kind").
			WithStrategy(types.StrategyInference)
	}
}

func (s *InferenceStrategy) decodeMesh(prompt *types.Prompt, data []byte) (*types.GenerationResult, error) {
	mesh, err := assets.DecodeOBJ(data)
	if err != nil {
		return nil, err
	}

	node := geometry.NewMeshNode(prompt.Normalized, mesh)
	node.NormalizeMaxDimension(assets.DefaultConfig().TargetDimension)
	node.RestOnGround()

	return &types.GenerationResult{
		ID:        uuid.NewString(),
		Prompt:    prompt.Normalized,
		Strategy:  types.StrategyInference,
		Object:    node,
		CreatedAt: time.Now(),
	}, nil
}

func (s *InferenceStrategy) convertImage(ctx context.Context, prompt *types.Prompt, data []byte) (*types.GenerationResult, error) {
	img, err := vision.DecodeImage(data)
	if err != nil {
		return nil, err
	}

	analysis := vision.Analyze(img)
	s.logger.Debug("image payload analyzed",
		zap.Float64("mean_brightness", analysis.MeanBrightness),
		zap.Int("width", analysis.Width),
		zap.Int("height", analysis.Height),
	)

	result, err := s.converter.Synthesize(ctx, prompt, analysis)
	if err != nil {
		return nil, err
	}

	// 产出源自远端推理，按推理策略标记
	result.Strategy = types.StrategyInference
	return result, nil
}

// =============================================================================

// AssetStrategy 预置资产目录策略
type AssetStrategy struct {
	resolver *assets.Resolver
	loader   *assets.Loader
}

// NewAssetStrategy 创建资产策略
func NewAssetStrategy(resolver *assets.Resolver, loader *assets.Loader) *AssetStrategy {
	return &AssetStrategy{resolver: resolver, loader: loader}
}

// Name 策略名称
func (s *AssetStrategy) Name() string { return types.StrategyAsset }

// Attempt 解析关键词到资产并加载
func (s *AssetStrategy) Attempt(ctx context.Context, prompt *types.Prompt) (*types.GenerationResult, error) {
	id := s.resolver.Resolve(prompt.Tokens)
	return s.loader.Load(ctx, id)
}

// =============================================================================

// ProceduralStrategy 本地程序化合成策略，链条的全函数收尾
type ProceduralStrategy struct {
	synth Synthesizer
}

// Synthesizer 程序化合成器
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt *types.Prompt) (*types.GenerationResult, error)
}

// NewProceduralStrategy 创建程序化策略
func NewProceduralStrategy(synth Synthesizer) *ProceduralStrategy {
	return &ProceduralStrategy{synth: synth}
}

// Name 策略名称
func (s *ProceduralStrategy) Name() string { return types.StrategyProcedural }

// Attempt 本地合成
func (s *ProceduralStrategy) Attempt(ctx context.Context, prompt *types.Prompt) (*types.GenerationResult, error) {
	return s.synth.Synthesize(ctx, prompt)
}

// Package procedural 实现关键词驱动的程序化三维合成。
//
// 合成对任意非空提示词都是全函数：零关键词命中时退化为单个默认立方体，
// 因此它是生成管线中保证终止的最后兜底策略。
package procedural

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/geometry"
	"github.com/shapeflow/shapeflow/lexicon"
	"github.com/shapeflow/shapeflow/types"
)

// ComplexityTier 几何复杂度档位，由图像启发式转换器按亮度选择
type ComplexityTier string

const (
	TierAngular ComplexityTier = "angular" // 低多边形、硬边
	TierRounded ComplexityTier = "rounded" // 高细分、圆润
	TierComplex ComplexityTier = "complex" // 复合装饰件
)

// Style 外部（图像启发式）注入的合成参数
type Style struct {
	// Color 覆盖所有未被颜色关键词命中的部件颜色
	Color *geometry.Color
	// Tier 几何复杂度档位；空值使用默认档
	Tier ComplexityTier
}

// Config 合成器配置
type Config struct {
	// 相邻部件在 X 轴上的间距
	Spacing float64 `yaml:"spacing" json:"spacing"`

	// 基准部件尺寸
	BaseSize float64 `yaml:"base_size" json:"base_size"`

	// 未指定属性的随机种子；与提示词哈希异或后使用，
	// 保证相同提示词 + 相同种子产出完全一致
	Seed int64 `yaml:"seed" json:"seed"`

	// 入场动画时长（纯装饰）
	AnimationDuration time.Duration `yaml:"animation_duration" json:"animation_duration"`
}

// DefaultConfig 返回默认合成配置
func DefaultConfig() Config {
	return Config{
		Spacing:           2.5,
		BaseSize:          1.0,
		Seed:              1,
		AnimationDuration: 600 * time.Millisecond,
	}
}

// Synthesizer 程序化合成器
type Synthesizer struct {
	lex    *lexicon.Lexicon
	cfg    Config
	logger *zap.Logger
}

// NewSynthesizer 创建合成器。零值配置字段回落到默认值。
func NewSynthesizer(lex *lexicon.Lexicon, cfg Config, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Spacing <= 0 {
		cfg.Spacing = def.Spacing
	}
	if cfg.BaseSize <= 0 {
		cfg.BaseSize = def.BaseSize
	}
	if cfg.AnimationDuration <= 0 {
		cfg.AnimationDuration = def.AnimationDuration
	}
	return &Synthesizer{
		lex:    lex,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "procedural")),
	}
}

// Synthesize 以默认风格合成。对非空提示词永不失败。
func (s *Synthesizer) Synthesize(ctx context.Context, prompt *types.Prompt) (*types.GenerationResult, error) {
	return s.SynthesizeStyled(ctx, prompt, Style{})
}

// SynthesizeStyled 按注入风格合成，供图像启发式转换器参数化使用
func (s *Synthesizer) SynthesizeStyled(_ context.Context, prompt *types.Prompt, style Style) (*types.GenerationResult, error) {
	if prompt.IsEmpty() {
		return nil, types.NewError(types.ErrInvalidRequest, "empty prompt")
	}

	rng := rand.New(rand.NewSource(s.cfg.Seed ^ promptSeed(prompt.Normalized)))
	pieces := s.collectPieces(prompt.Tokens, style, rng)

	// 零命中兜底：单个默认立方体
	if len(pieces) == 0 {
		box := geometry.NewMeshNode("default-box", geometry.Box(s.cfg.BaseSize, s.cfg.BaseSize, s.cfg.BaseSize))
		box.Tint(s.pieceColor(nil, style, rng))
		pieces = append(pieces, box)
	}

	root := geometry.NewNode(prompt.Normalized)
	offset := -s.cfg.Spacing * float64(len(pieces)-1) / 2
	for i, piece := range pieces {
		piece.RestOnGround()
		piece.Position.X += offset + s.cfg.Spacing*float64(i)
		root.Add(piece)
	}

	s.logger.Debug("procedural synthesis complete",
		zap.String("prompt", prompt.Normalized),
		zap.Int("pieces", len(pieces)),
		zap.String("tier", string(style.Tier)),
	)

	return &types.GenerationResult{
		ID:        uuid.NewString(),
		Prompt:    prompt.Normalized,
		Strategy:  types.StrategyProcedural,
		Object:    root,
		Animation: types.ScaleIn(s.cfg.AnimationDuration),
		CreatedAt: time.Now(),
	}, nil
}

// collectPieces 扫描词序列：类别关键词产出手工模板，形状关键词产出图元；
// 颜色采用“就近前置”规则——形状或模板吸收其前方最近一个未消费的颜色词。
func (s *Synthesizer) collectPieces(tokens []string, style Style, rng *rand.Rand) []*geometry.Node {
	var pieces []*geometry.Node
	var pending *geometry.Color

	for _, tok := range tokens {
		if c, ok := s.lex.Color(tok); ok {
			cc := c
			pending = &cc
			continue
		}
		if cat, ok := s.lex.Category(tok); ok {
			tpl := s.buildTemplate(cat, s.pieceColor(pending, style, rng), style.Tier, rng)
			tpl.Name = tok
			pieces = append(pieces, tpl)
			pending = nil
			continue
		}
		if kind, ok := s.lex.Shape(tok); ok {
			node := s.buildShape(kind, style.Tier)
			node.Name = tok
			node.Tint(s.pieceColor(pending, style, rng))
			pieces = append(pieces, node)
			pending = nil
		}
	}
	return pieces
}

// pieceColor 颜色优先级：关键词命中 → 风格注入 → 种子伪随机
func (s *Synthesizer) pieceColor(matched *geometry.Color, style Style, rng *rand.Rand) geometry.Color {
	if matched != nil {
		return *matched
	}
	if style.Color != nil {
		return *style.Color
	}
	return geometry.NewColorHSL(rng.Float64()*360, 0.65, 0.55)
}

// buildShape 构造单个图元，细分度随复杂度档位变化
func (s *Synthesizer) buildShape(kind lexicon.ShapeKind, tier ComplexityTier) *geometry.Node {
	size := s.cfg.BaseSize
	segs := segmentsFor(tier)
	var mesh *geometry.Mesh
	switch kind {
	case lexicon.ShapeSphere:
		mesh = geometry.Sphere(size*0.6, segs)
	case lexicon.ShapeCylinder:
		mesh = geometry.Cylinder(size*0.45, size*1.2, segs)
	case lexicon.ShapeCone:
		mesh = geometry.Cone(size*0.55, size*1.2, segs)
	case lexicon.ShapePyramid:
		mesh = geometry.Pyramid(size*1.1, size*1.1)
	case lexicon.ShapeTorus:
		mesh = geometry.Torus(size*0.5, size*0.18, segs, segs)
	default:
		mesh = geometry.Box(size, size, size)
	}
	return geometry.NewMeshNode(string(kind), mesh)
}

// segmentsFor 档位到细分段数
func segmentsFor(tier ComplexityTier) int {
	switch tier {
	case TierAngular:
		return 6
	case TierRounded:
		return 24
	case TierComplex:
		return 16
	default:
		return 12
	}
}

// promptSeed 提示词的稳定 64 位哈希
func promptSeed(normalized string) int64 {
	h := fnv.New64a()
	h.Write([]byte(normalized))
	return int64(h.Sum64())
}

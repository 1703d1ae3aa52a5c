package vision

import (
	"context"

	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/procedural"
	"github.com/shapeflow/shapeflow/types"
)

// Converter 把图像分析结果转译为程序化合成参数：
// 平均 RGB 作为材质颜色，平均亮度三分选择复杂度档位，
// 关键词类别照常决定模板。
type Converter struct {
	synth  *procedural.Synthesizer
	logger *zap.Logger
}

// NewConverter 创建转换器
func NewConverter(synth *procedural.Synthesizer, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		synth:  synth,
		logger: logger.With(zap.String("component", "vision")),
	}
}

// TierFor 亮度到复杂度档位的映射
func TierFor(brightness float64) procedural.ComplexityTier {
	switch {
	case brightness < 1.0/3:
		return procedural.TierAngular
	case brightness < 2.0/3:
		return procedural.TierRounded
	default:
		return procedural.TierComplex
	}
}

// Synthesize 按分析结果参数化程序化合成。与分析一样总是终止。
func (c *Converter) Synthesize(ctx context.Context, prompt *types.Prompt, analysis Analysis) (*types.GenerationResult, error) {
	color := analysis.DominantColor
	tier := TierFor(analysis.MeanBrightness)

	c.logger.Debug("image heuristic conversion",
		zap.String("prompt", prompt.Normalized),
		zap.String("dominant_color", color.Hex()),
		zap.Float64("brightness", analysis.MeanBrightness),
		zap.String("tier", string(tier)),
	)

	return c.synth.SynthesizeStyled(ctx, prompt, procedural.Style{
		Color: &color,
		Tier:  tier,
	})
}

package vision

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/geometry"
	"github.com/shapeflow/shapeflow/lexicon"
	"github.com/shapeflow/shapeflow/procedural"
	"github.com/shapeflow/shapeflow/types"
)

// solidImage 生成纯色测试图
func solidImage(c color.RGBA, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestAnalyze_SolidColor(t *testing.T) {
	img := solidImage(color.RGBA{R: 255, A: 255}, 32, 32)
	a := Analyze(img)

	if math.Abs(a.DominantColor.R-1.0) > 0.01 || a.DominantColor.G > 0.01 || a.DominantColor.B > 0.01 {
		t.Errorf("dominant color = %+v, want pure red", a.DominantColor)
	}
	if a.Width != 32 || a.Height != 32 {
		t.Errorf("dims = %dx%d", a.Width, a.Height)
	}

	// 纯红的感知亮度约 0.2126
	if math.Abs(a.MeanBrightness-0.2126) > 0.01 {
		t.Errorf("brightness = %g", a.MeanBrightness)
	}

	// 直方图全部集中在一个桶
	nonEmpty := 0
	for _, n := range a.Histogram {
		if n > 0 {
			nonEmpty++
		}
	}
	if nonEmpty != 1 {
		t.Errorf("expected single histogram bucket, got %d", nonEmpty)
	}
}

func TestAnalyze_BrightnessExtremes(t *testing.T) {
	dark := Analyze(solidImage(color.RGBA{A: 255}, 8, 8))
	if dark.MeanBrightness > 0.01 {
		t.Errorf("black brightness = %g", dark.MeanBrightness)
	}
	bright := Analyze(solidImage(color.RGBA{R: 255, G: 255, B: 255, A: 255}, 8, 8))
	if bright.MeanBrightness < 0.99 {
		t.Errorf("white brightness = %g", bright.MeanBrightness)
	}
}

func TestDecodeImage_PNGRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(color.RGBA{G: 255, A: 255}, 4, 4)); err != nil {
		t.Fatal(err)
	}

	img, err := DecodeImage(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	a := Analyze(img)
	if a.DominantColor.G < 0.99 {
		t.Errorf("expected green image, got %+v", a.DominantColor)
	}

	_, err = DecodeImage([]byte("not an image"))
	if err == nil {
		t.Fatal("expected decode error")
	}
	if types.GetErrorCode(err) != types.ErrParseError {
		t.Errorf("expected PARSE_ERROR, got %v", types.GetErrorCode(err))
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		brightness float64
		want       procedural.ComplexityTier
	}{
		{0.0, procedural.TierAngular},
		{0.2, procedural.TierAngular},
		{0.5, procedural.TierRounded},
		{0.7, procedural.TierComplex},
		{1.0, procedural.TierComplex},
	}
	for _, tt := range tests {
		if got := TierFor(tt.brightness); got != tt.want {
			t.Errorf("TierFor(%g) = %s, want %s", tt.brightness, got, tt.want)
		}
	}
}

func TestConverter_Synthesize(t *testing.T) {
	synth := procedural.NewSynthesizer(lexicon.NewDefault(), procedural.DefaultConfig(), zap.NewNop())
	conv := NewConverter(synth, zap.NewNop())

	prompt, _ := types.NormalizePrompt("a cat")
	analysis := Analyze(solidImage(color.RGBA{B: 255, A: 255}, 16, 16))

	result, err := conv.Synthesize(context.Background(), prompt, analysis)
	if err != nil {
		t.Fatal(err)
	}
	if result.Object.MeshCount() < 3 {
		t.Errorf("expected animal template, got %d meshes", result.Object.MeshCount())
	}

	// 主导色（蓝）作用于模板材质
	var sawBlue bool
	result.Object.Walk(func(n *geometry.Node) bool {
		if n.Mesh != nil && n.Mesh.Material.Color.B > 0.9 {
			sawBlue = true
		}
		return true
	})
	if !sawBlue {
		t.Error("dominant color not applied to template")
	}
}

// Package vision 实现由二维图像到合成参数的粗粒度启发式转换。
//
// 真实的图像转网格重建不在范围内：本包以平均颜色与亮度直方图代替，
// 将推理服务返回的图像转译为程序化合成器的参数。分析总是终止、从不失败。
package vision

import (
	"bytes"
	"image"

	// 推理端点常见的两种图像编码
	_ "image/jpeg"
	_ "image/png"

	"github.com/shapeflow/shapeflow/geometry"
	"github.com/shapeflow/shapeflow/types"
)

// HistogramBuckets 亮度直方图桶数
const HistogramBuckets = 16

// Analysis 图像分析结果
type Analysis struct {
	DominantColor  geometry.Color         `json:"dominant_color"`
	MeanBrightness float64                `json:"mean_brightness"` // [0, 1]
	Histogram      [HistogramBuckets]int  `json:"histogram"`
	Width          int                    `json:"width"`
	Height         int                    `json:"height"`
}

// DecodeImage 解码 PNG/JPEG 字节流。无法识别的数据返回 PARSE_ERROR。
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, types.NewError(types.ErrParseError, "failed to decode image").WithCause(err)
	}
	return img, nil
}

// Analyze 对图像做粗粒度像素分析：平均 RGB 与亮度直方图。
// 大图按步长抽样，避免逐像素扫描高分辨率图。
func Analyze(img image.Image) Analysis {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	a := Analysis{Width: w, Height: h}
	if w == 0 || h == 0 {
		return a
	}

	// 目标抽样 ~16k 像素
	step := 1
	if total := w * h; total > 16384 {
		for step*step < total/16384 {
			step++
		}
	}

	var sumR, sumG, sumB, sumLum float64
	samples := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, _ := img.At(x, y).RGBA()
			fr := float64(r) / 0xffff
			fg := float64(g) / 0xffff
			fb := float64(b) / 0xffff
			sumR += fr
			sumG += fg
			sumB += fb

			lum := geometry.Color{R: fr, G: fg, B: fb}.Luminance()
			sumLum += lum
			bucket := int(lum * HistogramBuckets)
			if bucket >= HistogramBuckets {
				bucket = HistogramBuckets - 1
			}
			a.Histogram[bucket]++
			samples++
		}
	}

	n := float64(samples)
	a.DominantColor = geometry.Color{R: sumR / n, G: sumG / n, B: sumB / n}
	a.MeanBrightness = sumLum / n
	return a
}

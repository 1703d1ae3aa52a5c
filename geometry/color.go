package geometry

import (
	"fmt"
	"math"
	"strings"
)

// Color RGB 颜色，分量取值 [0, 1]
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// NewColorHex 从 #RRGGBB 形式解析颜色
func NewColorHex(hex string) (Color, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("invalid hex color: %q", hex)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return Color{float64(r) / 255, float64(g) / 255, float64(b) / 255}, nil
}

// MustColorHex 解析失败时 panic，仅用于静态表初始化
func MustColorHex(hex string) Color {
	c, err := NewColorHex(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// NewColorHSL 从 HSL 构造颜色（h 取值 [0,360)，s、l 取值 [0,1]）
func NewColorHSL(h, s, l float64) Color {
	c := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(h, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return Color{r + m, g + m, b + m}
}

// Luminance 感知亮度（Rec. 709 加权）
func (c Color) Luminance() float64 {
	return 0.2126*c.R + 0.7152*c.G + 0.0722*c.B
}

// Hex 返回 #rrggbb 形式
func (c Color) Hex() string {
	clamp := func(v float64) uint8 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 255
		}
		return uint8(math.Round(v * 255))
	}
	return fmt.Sprintf("#%02x%02x%02x", clamp(c.R), clamp(c.G), clamp(c.B))
}

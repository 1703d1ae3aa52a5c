package geometry

import "math"

// Vec3 三维向量
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add 向量加法
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub 向量减法
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale 按标量缩放
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Mul 按分量缩放
func (v Vec3) Mul(o Vec3) Vec3 {
	return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z}
}

// Length 向量模长
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Min 分量最小值
func (v Vec3) Min(o Vec3) Vec3 {
	return Vec3{math.Min(v.X, o.X), math.Min(v.Y, o.Y), math.Min(v.Z, o.Z)}
}

// Max 分量最大值
func (v Vec3) Max(o Vec3) Vec3 {
	return Vec3{math.Max(v.X, o.X), math.Max(v.Y, o.Y), math.Max(v.Z, o.Z)}
}

// RotateEuler 依次绕 X、Y、Z 轴旋转（弧度）
func (v Vec3) RotateEuler(rot Vec3) Vec3 {
	// 绕 X 轴
	sinX, cosX := math.Sincos(rot.X)
	y := v.Y*cosX - v.Z*sinX
	z := v.Y*sinX + v.Z*cosX
	x := v.X

	// 绕 Y 轴
	sinY, cosY := math.Sincos(rot.Y)
	x, z = x*cosY+z*sinY, -x*sinY+z*cosY

	// 绕 Z 轴
	sinZ, cosZ := math.Sincos(rot.Z)
	x, y = x*cosZ-y*sinZ, x*sinZ+y*cosZ

	return Vec3{x, y, z}
}

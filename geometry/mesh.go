package geometry

// Material 渲染材质
type Material struct {
	Color     Color   `json:"color"`
	Opacity   float64 `json:"opacity"`
	Metalness float64 `json:"metalness,omitempty"`
	Roughness float64 `json:"roughness,omitempty"`
}

// DefaultMaterial 返回中性灰默认材质
func DefaultMaterial() Material {
	return Material{
		Color:     Color{0.6, 0.6, 0.6},
		Opacity:   1.0,
		Roughness: 0.8,
	}
}

// Mesh 三角网格
type Mesh struct {
	Vertices []Vec3   `json:"vertices"`
	Faces    [][3]int `json:"faces"`
	Material Material `json:"material"`
}

// Clone 深拷贝网格
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	out := &Mesh{
		Vertices: make([]Vec3, len(m.Vertices)),
		Faces:    make([][3]int, len(m.Faces)),
		Material: m.Material,
	}
	copy(out.Vertices, m.Vertices)
	copy(out.Faces, m.Faces)
	return out
}

// Release 释放几何缓冲区，供确定性资源回收使用。
// 释放后的 Mesh 不可再用于渲染。
func (m *Mesh) Release() {
	if m == nil {
		return
	}
	m.Vertices = nil
	m.Faces = nil
}

// VertexCount 顶点数
func (m *Mesh) VertexCount() int {
	if m == nil {
		return 0
	}
	return len(m.Vertices)
}

// FaceCount 面数
func (m *Mesh) FaceCount() int {
	if m == nil {
		return 0
	}
	return len(m.Faces)
}

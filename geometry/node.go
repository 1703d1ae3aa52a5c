package geometry

import "math"

// Node 场景对象树节点。Mesh 与 Children 可同时存在；
// 变换按 缩放 → 旋转 → 平移 的顺序作用于本节点及整棵子树。
type Node struct {
	Name     string  `json:"name,omitempty"`
	Mesh     *Mesh   `json:"mesh,omitempty"`
	Children []*Node `json:"children,omitempty"`
	Position Vec3    `json:"position"`
	Rotation Vec3    `json:"rotation"` // 欧拉角，弧度
	Scale    Vec3    `json:"scale"`
}

// NewNode 创建单位缩放的空节点
func NewNode(name string) *Node {
	return &Node{Name: name, Scale: Vec3{1, 1, 1}}
}

// NewMeshNode 创建挂载网格的节点
func NewMeshNode(name string, mesh *Mesh) *Node {
	n := NewNode(name)
	n.Mesh = mesh
	return n
}

// Add 追加子节点并返回自身，便于链式组装
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// At 设置位置并返回自身
func (n *Node) At(x, y, z float64) *Node {
	n.Position = Vec3{x, y, z}
	return n
}

// Rotated 设置欧拉旋转并返回自身
func (n *Node) Rotated(x, y, z float64) *Node {
	n.Rotation = Vec3{x, y, z}
	return n
}

// Scaled 设置缩放并返回自身
func (n *Node) Scaled(x, y, z float64) *Node {
	n.Scale = Vec3{x, y, z}
	return n
}

// Tint 递归设置整棵子树的材质颜色
func (n *Node) Tint(c Color) *Node {
	if n.Mesh != nil {
		n.Mesh.Material.Color = c
	}
	for _, child := range n.Children {
		child.Tint(c)
	}
	return n
}

// Clone 深拷贝整棵节点树
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Name:     n.Name,
		Mesh:     n.Mesh.Clone(),
		Position: n.Position,
		Rotation: n.Rotation,
		Scale:    n.Scale,
	}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			out.Children[i] = child.Clone()
		}
	}
	return out
}

// Release 递归释放整棵子树的几何缓冲区
func (n *Node) Release() {
	if n == nil {
		return
	}
	n.Mesh.Release()
	for _, child := range n.Children {
		child.Release()
	}
}

// MeshCount 子树中挂载网格的节点数
func (n *Node) MeshCount() int {
	if n == nil {
		return 0
	}
	count := 0
	if n.Mesh != nil {
		count++
	}
	for _, child := range n.Children {
		count += child.MeshCount()
	}
	return count
}

// Walk 先序遍历子树，fn 返回 false 时停止下钻
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// BoundingBox 轴对齐包围盒
type BoundingBox struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Size 各轴尺寸
func (b BoundingBox) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// MaxDimension 最大轴尺寸
func (b BoundingBox) MaxDimension() float64 {
	s := b.Size()
	return math.Max(s.X, math.Max(s.Y, s.Z))
}

// Center 包围盒中心
func (b BoundingBox) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Bounds 计算应用全部变换后的子树轴对齐包围盒。
// 空树（无任何顶点）返回 ok=false。
func (n *Node) Bounds() (BoundingBox, bool) {
	box := BoundingBox{
		Min: Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	found := false
	n.accumulateBounds(Vec3{}, Vec3{}, Vec3{1, 1, 1}, &box, &found)
	return box, found
}

func (n *Node) accumulateBounds(parentPos, parentRot, parentScale Vec3, box *BoundingBox, found *bool) {
	if n == nil {
		return
	}
	pos := parentPos.Add(n.Position.Mul(parentScale).RotateEuler(parentRot))
	rot := parentRot.Add(n.Rotation)
	scale := parentScale.Mul(n.Scale)

	if n.Mesh != nil {
		for _, v := range n.Mesh.Vertices {
			world := v.Mul(scale).RotateEuler(rot).Add(pos)
			box.Min = box.Min.Min(world)
			box.Max = box.Max.Max(world)
			*found = true
		}
	}
	for _, child := range n.Children {
		child.accumulateBounds(pos, rot, scale, box, found)
	}
}

// NormalizeMaxDimension 等比缩放整棵树，使包围盒最大尺寸等于 target。
// 退化树（无顶点或零尺寸）保持原样。
func (n *Node) NormalizeMaxDimension(target float64) {
	box, ok := n.Bounds()
	if !ok {
		return
	}
	dim := box.MaxDimension()
	if dim <= 0 {
		return
	}
	f := target / dim
	n.Scale = n.Scale.Scale(f)
	n.Position = n.Position.Scale(f)
}

// RestOnGround 垂直平移整棵树，使包围盒底面落在 y=0 平面上
func (n *Node) RestOnGround() {
	box, ok := n.Bounds()
	if !ok {
		return
	}
	n.Position.Y -= box.Min.Y
}

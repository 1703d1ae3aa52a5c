package geometry

import (
	"math"
	"testing"
)

func TestNode_CloneIndependence(t *testing.T) {
	original := NewMeshNode("root", Box(1, 1, 1)).At(1, 2, 3)
	original.Add(NewMeshNode("child", Sphere(0.5, 8)).At(0, 1, 0))

	clone := original.Clone()

	// 修改克隆不得影响原件
	clone.Position = Vec3{9, 9, 9}
	clone.Mesh.Material.Color = Color{1, 0, 0}
	clone.Children[0].Mesh.Vertices[0] = Vec3{100, 100, 100}

	if original.Position.X != 1 {
		t.Error("clone position mutation leaked into original")
	}
	if original.Mesh.Material.Color.R == 1 {
		t.Error("clone material mutation leaked into original")
	}
	if original.Children[0].Mesh.Vertices[0].X == 100 {
		t.Error("clone vertex mutation leaked into original")
	}
}

func TestNode_NormalizeMaxDimension(t *testing.T) {
	// 细长物体：最大尺寸在 X 轴
	node := NewMeshNode("bar", Box(10, 1, 2))
	node.NormalizeMaxDimension(3.0)

	box, ok := node.Bounds()
	if !ok {
		t.Fatal("expected bounds")
	}
	if d := math.Abs(box.MaxDimension() - 3.0); d > 1e-9 {
		t.Errorf("max dimension %g, want 3.0", box.MaxDimension())
	}
	// 等比缩放：比例保持 10:1:2
	size := box.Size()
	if math.Abs(size.Y-0.3) > 1e-9 || math.Abs(size.Z-0.6) > 1e-9 {
		t.Errorf("non-uniform scaling: %+v", size)
	}
}

func TestNode_RestOnGround(t *testing.T) {
	node := NewMeshNode("ball", Sphere(1, 8)).At(0, -5, 0)
	node.RestOnGround()

	box, _ := node.Bounds()
	if math.Abs(box.Min.Y) > 1e-9 {
		t.Errorf("expected min.Y = 0, got %g", box.Min.Y)
	}
}

func TestNode_BoundsWithTransforms(t *testing.T) {
	// 父节点缩放 2 倍，子节点单位立方体在 (1,0,0)
	root := NewNode("root").Scaled(2, 2, 2)
	root.Add(NewMeshNode("cube", Box(1, 1, 1)).At(1, 0, 0))

	box, ok := root.Bounds()
	if !ok {
		t.Fatal("expected bounds")
	}
	if math.Abs(box.Min.X-1) > 1e-9 || math.Abs(box.Max.X-3) > 1e-9 {
		t.Errorf("unexpected X extent: [%g, %g]", box.Min.X, box.Max.X)
	}
	if math.Abs(box.Size().Y-2) > 1e-9 {
		t.Errorf("unexpected height: %g", box.Size().Y)
	}
}

func TestNode_MeshCountAndWalk(t *testing.T) {
	root := NewNode("root")
	root.Add(
		NewMeshNode("a", Box(1, 1, 1)),
		NewNode("group").Add(NewMeshNode("b", Sphere(1, 6))),
	)

	if got := root.MeshCount(); got != 2 {
		t.Errorf("MeshCount = %d, want 2", got)
	}

	var names []string
	root.Walk(func(n *Node) bool {
		names = append(names, n.Name)
		return true
	})
	if len(names) != 4 {
		t.Errorf("walked %d nodes, want 4", len(names))
	}
}

func TestNode_Release(t *testing.T) {
	node := NewMeshNode("x", Box(1, 1, 1))
	node.Add(NewMeshNode("y", Sphere(1, 6)))
	node.Release()

	node.Walk(func(n *Node) bool {
		if n.Mesh != nil && n.Mesh.Vertices != nil {
			t.Errorf("node %s not released", n.Name)
		}
		return true
	})
}

func TestColorHelpers(t *testing.T) {
	c, err := NewColorHex("#ff8000")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(c.R-1.0) > 0.01 || math.Abs(c.G-0.5) > 0.01 || c.B != 0 {
		t.Errorf("unexpected color: %+v", c)
	}
	if c.Hex() != "#ff8000" {
		t.Errorf("round trip: %s", c.Hex())
	}

	if _, err := NewColorHex("bogus"); err == nil {
		t.Error("expected error for invalid hex")
	}

	// HSL 红色
	red := NewColorHSL(0, 1, 0.5)
	if math.Abs(red.R-1) > 1e-9 || red.G != 0 || red.B != 0 {
		t.Errorf("unexpected HSL red: %+v", red)
	}
}

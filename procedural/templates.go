package procedural

import (
	"math"
	"math/rand"

	"github.com/shapeflow/shapeflow/geometry"
	"github.com/shapeflow/shapeflow/lexicon"
)

// 类别模板：手工编排的图元组合。每个模板以局部原点附近构建，
// 由调用方统一落地与排布。

func (s *Synthesizer) buildTemplate(cat lexicon.Category, color geometry.Color, tier ComplexityTier, rng *rand.Rand) *geometry.Node {
	switch cat {
	case lexicon.CategoryVehicle:
		return buildVehicle(color, tier)
	case lexicon.CategoryAnimal:
		return buildAnimal(color, tier)
	case lexicon.CategoryBuilding:
		return buildBuilding(color, tier)
	case lexicon.CategoryFurniture:
		return buildFurniture(color, tier)
	default:
		return buildAbstract(color, tier, rng)
	}
}

// buildVehicle 车身 + 座舱 + 四轮
func buildVehicle(color geometry.Color, tier ComplexityTier) *geometry.Node {
	segs := segmentsFor(tier)
	wheelColor := geometry.MustColorHex("#2d3436")

	root := geometry.NewNode("vehicle")

	body := geometry.NewMeshNode("body", geometry.Box(2.0, 0.55, 1.0)).At(0, 0.6, 0)
	body.Tint(color)
	cabin := geometry.NewMeshNode("cabin", geometry.Box(1.0, 0.45, 0.9)).At(-0.1, 1.1, 0)
	cabin.Tint(color)
	root.Add(body, cabin)

	// 车轮轴向沿 Z：圆柱默认轴向为 Y，绕 X 旋转 90 度
	for _, pos := range []geometry.Vec3{
		{X: 0.65, Y: 0.28, Z: 0.55}, {X: 0.65, Y: 0.28, Z: -0.55},
		{X: -0.65, Y: 0.28, Z: 0.55}, {X: -0.65, Y: 0.28, Z: -0.55},
	} {
		wheel := geometry.NewMeshNode("wheel", geometry.Cylinder(0.28, 0.2, segs)).
			At(pos.X, pos.Y, pos.Z).
			Rotated(math.Pi/2, 0, 0)
		wheel.Tint(wheelColor)
		root.Add(wheel)
	}

	if tier == TierComplex {
		for _, z := range []float64{0.3, -0.3} {
			light := geometry.NewMeshNode("headlight", geometry.Sphere(0.08, segs)).At(1.0, 0.62, z)
			light.Tint(geometry.MustColorHex("#f9ca24"))
			root.Add(light)
		}
	}
	return root
}

// buildAnimal 躯干 + 头 + 四肢 + 尾
func buildAnimal(color geometry.Color, tier ComplexityTier) *geometry.Node {
	segs := segmentsFor(tier)
	root := geometry.NewNode("animal")

	body := geometry.NewMeshNode("body", geometry.Box(1.3, 0.6, 0.55)).At(0, 0.85, 0)
	head := geometry.NewMeshNode("head", geometry.Sphere(0.35, segs)).At(0.85, 1.25, 0)
	root.Add(body, head)

	for _, pos := range []geometry.Vec3{
		{X: 0.5, Y: 0.28, Z: 0.2}, {X: 0.5, Y: 0.28, Z: -0.2},
		{X: -0.5, Y: 0.28, Z: 0.2}, {X: -0.5, Y: 0.28, Z: -0.2},
	} {
		leg := geometry.NewMeshNode("leg", geometry.Cylinder(0.09, 0.6, segs)).At(pos.X, pos.Y, pos.Z)
		root.Add(leg)
	}

	tail := geometry.NewMeshNode("tail", geometry.Cone(0.08, 0.5, segs)).
		At(-0.75, 1.0, 0).
		Rotated(0, 0, math.Pi/3)
	root.Add(tail)

	if tier == TierComplex {
		for _, z := range []float64{0.18, -0.18} {
			ear := geometry.NewMeshNode("ear", geometry.Cone(0.1, 0.25, segs)).At(0.85, 1.62, z)
			root.Add(ear)
		}
	}
	return root.Tint(color)
}

// buildBuilding 主体 + 屋顶；rounded 档使用圆塔
func buildBuilding(color geometry.Color, tier ComplexityTier) *geometry.Node {
	segs := segmentsFor(tier)
	roofColor := geometry.MustColorHex("#c0392b")
	root := geometry.NewNode("building")

	if tier == TierRounded {
		tower := geometry.NewMeshNode("tower", geometry.Cylinder(0.8, 2.2, segs)).At(0, 1.1, 0)
		tower.Tint(color)
		roof := geometry.NewMeshNode("roof", geometry.Cone(0.95, 0.9, segs)).At(0, 2.65, 0)
		roof.Tint(roofColor)
		root.Add(tower, roof)
		return root
	}

	base := geometry.NewMeshNode("base", geometry.Box(1.6, 2.0, 1.6)).At(0, 1.0, 0)
	base.Tint(color)
	roof := geometry.NewMeshNode("roof", geometry.Pyramid(1.8, 0.9)).At(0, 2.45, 0)
	roof.Tint(roofColor)
	root.Add(base, roof)

	if tier == TierComplex {
		annex := geometry.NewMeshNode("annex", geometry.Box(0.9, 1.2, 0.9)).At(1.25, 0.6, 0)
		annex.Tint(color)
		annexRoof := geometry.NewMeshNode("annex-roof", geometry.Pyramid(1.0, 0.5)).At(1.25, 1.45, 0)
		annexRoof.Tint(roofColor)
		root.Add(annex, annexRoof)
	}
	return root
}

// buildFurniture 桌面 + 四腿
func buildFurniture(color geometry.Color, tier ComplexityTier) *geometry.Node {
	segs := segmentsFor(tier)
	root := geometry.NewNode("furniture")

	top := geometry.NewMeshNode("top", geometry.Box(1.4, 0.1, 0.9)).At(0, 0.75, 0)
	root.Add(top)

	for _, pos := range []geometry.Vec3{
		{X: 0.6, Y: 0.35, Z: 0.35}, {X: 0.6, Y: 0.35, Z: -0.35},
		{X: -0.6, Y: 0.35, Z: 0.35}, {X: -0.6, Y: 0.35, Z: -0.35},
	} {
		leg := geometry.NewMeshNode("leg", geometry.Cylinder(0.06, 0.7, segs)).At(pos.X, pos.Y, pos.Z)
		root.Add(leg)
	}

	if tier == TierComplex {
		back := geometry.NewMeshNode("back", geometry.Box(1.4, 0.8, 0.08)).At(0, 1.2, -0.41)
		root.Add(back)
	}
	return root.Tint(color)
}

// buildAbstract 3-5 个随机图元的堆叠雕塑
func buildAbstract(color geometry.Color, tier ComplexityTier, rng *rand.Rand) *geometry.Node {
	segs := segmentsFor(tier)
	root := geometry.NewNode("abstract")

	count := 3 + rng.Intn(3)
	y := 0.0
	for i := 0; i < count; i++ {
		size := 0.5 + rng.Float64()*0.7
		var mesh *geometry.Mesh
		switch rng.Intn(4) {
		case 0:
			mesh = geometry.Box(size, size, size)
		case 1:
			mesh = geometry.Sphere(size/2, segs)
		case 2:
			mesh = geometry.Cylinder(size/2, size, segs)
		default:
			mesh = geometry.Torus(size/2, size/6, segs, segs)
		}
		node := geometry.NewMeshNode("piece", mesh).
			At((rng.Float64()-0.5)*0.4, y+size/2, (rng.Float64()-0.5)*0.4).
			Rotated(0, rng.Float64()*math.Pi, 0)
		root.Add(node)
		y += size
	}
	return root.Tint(color)
}

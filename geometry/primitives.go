package geometry

import "math"

// 基本图元构造函数。所有图元都以自身几何中心（Plane 除外）为原点，
// 由上层负责摆放到地面参考平面之上。

// Box 构造长方体
func Box(width, height, depth float64) *Mesh {
	w, h, d := width/2, height/2, depth/2
	return &Mesh{
		Vertices: []Vec3{
			{-w, -h, -d}, {w, -h, -d}, {w, h, -d}, {-w, h, -d},
			{-w, -h, d}, {w, -h, d}, {w, h, d}, {-w, h, d},
		},
		Faces: [][3]int{
			{0, 2, 1}, {0, 3, 2}, // back
			{4, 5, 6}, {4, 6, 7}, // front
			{0, 4, 7}, {0, 7, 3}, // left
			{1, 2, 6}, {1, 6, 5}, // right
			{3, 7, 6}, {3, 6, 2}, // top
			{0, 1, 5}, {0, 5, 4}, // bottom
		},
		Material: DefaultMaterial(),
	}
}

// Sphere 构造经纬球
func Sphere(radius float64, segments int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	rings := segments
	mesh := &Mesh{Material: DefaultMaterial()}

	for i := 0; i <= rings; i++ {
		phi := math.Pi * float64(i) / float64(rings)
		for j := 0; j <= segments; j++ {
			theta := 2 * math.Pi * float64(j) / float64(segments)
			mesh.Vertices = append(mesh.Vertices, Vec3{
				X: radius * math.Sin(phi) * math.Cos(theta),
				Y: radius * math.Cos(phi),
				Z: radius * math.Sin(phi) * math.Sin(theta),
			})
		}
	}

	stride := segments + 1
	for i := 0; i < rings; i++ {
		for j := 0; j < segments; j++ {
			a := i*stride + j
			b := a + stride
			// 极圈处的四边形退化为三角形
			if i != 0 {
				mesh.Faces = append(mesh.Faces, [3]int{a, b, a + 1})
			}
			if i != rings-1 {
				mesh.Faces = append(mesh.Faces, [3]int{a + 1, b, b + 1})
			}
		}
	}
	return mesh
}

// Cylinder 构造圆柱（含上下底盖）
func Cylinder(radius, height float64, radialSegments int) *Mesh {
	return frustum(radius, radius, height, radialSegments)
}

// Cone 构造圆锥
func Cone(radius, height float64, radialSegments int) *Mesh {
	return frustum(0, radius, height, radialSegments)
}

// Pyramid 构造方底金字塔
func Pyramid(baseWidth, height float64) *Mesh {
	w, h := baseWidth/2, height/2
	return &Mesh{
		Vertices: []Vec3{
			{0, h, 0},                                        // apex
			{-w, -h, -w}, {w, -h, -w}, {w, -h, w}, {-w, -h, w}, // base corners
		},
		Faces: [][3]int{
			{0, 2, 1}, {0, 3, 2}, {0, 4, 3}, {0, 1, 4}, // sides
			{1, 2, 3}, {1, 3, 4}, // base
		},
		Material: DefaultMaterial(),
	}
}

// Torus 构造圆环
func Torus(radius, tube float64, radialSegments, tubularSegments int) *Mesh {
	if radialSegments < 3 {
		radialSegments = 3
	}
	if tubularSegments < 3 {
		tubularSegments = 3
	}
	mesh := &Mesh{Material: DefaultMaterial()}

	for i := 0; i <= radialSegments; i++ {
		u := 2 * math.Pi * float64(i) / float64(radialSegments)
		for j := 0; j <= tubularSegments; j++ {
			v := 2 * math.Pi * float64(j) / float64(tubularSegments)
			mesh.Vertices = append(mesh.Vertices, Vec3{
				X: (radius + tube*math.Cos(v)) * math.Cos(u),
				Y: tube * math.Sin(v),
				Z: (radius + tube*math.Cos(v)) * math.Sin(u),
			})
		}
	}

	stride := tubularSegments + 1
	for i := 0; i < radialSegments; i++ {
		for j := 0; j < tubularSegments; j++ {
			a := i*stride + j
			b := a + stride
			mesh.Faces = append(mesh.Faces, [3]int{a, b, a + 1}, [3]int{a + 1, b, b + 1})
		}
	}
	return mesh
}

// Plane 构造 y=0 平面矩形
func Plane(width, depth float64) *Mesh {
	w, d := width/2, depth/2
	return &Mesh{
		Vertices: []Vec3{{-w, 0, -d}, {w, 0, -d}, {w, 0, d}, {-w, 0, d}},
		Faces:    [][3]int{{0, 2, 1}, {0, 3, 2}},
		Material: DefaultMaterial(),
	}
}

// frustum 构造圆台：rTop 为 0 时退化为圆锥
func frustum(rTop, rBottom, height float64, radialSegments int) *Mesh {
	if radialSegments < 3 {
		radialSegments = 3
	}
	h := height / 2
	mesh := &Mesh{Material: DefaultMaterial()}

	for j := 0; j <= radialSegments; j++ {
		theta := 2 * math.Pi * float64(j) / float64(radialSegments)
		sin, cos := math.Sin(theta), math.Cos(theta)
		mesh.Vertices = append(mesh.Vertices,
			Vec3{rTop * cos, h, rTop * sin},
			Vec3{rBottom * cos, -h, rBottom * sin},
		)
	}

	// 侧面
	for j := 0; j < radialSegments; j++ {
		a := j * 2       // top j
		b := a + 1       // bottom j
		c := (j + 1) * 2 // top j+1
		d := c + 1       // bottom j+1
		if rTop > 0 {
			mesh.Faces = append(mesh.Faces, [3]int{a, c, b})
		}
		mesh.Faces = append(mesh.Faces, [3]int{b, c, d})
	}

	// 底盖与顶盖（圆心扇形）
	bottomCenter := len(mesh.Vertices)
	mesh.Vertices = append(mesh.Vertices, Vec3{0, -h, 0})
	topCenter := len(mesh.Vertices)
	mesh.Vertices = append(mesh.Vertices, Vec3{0, h, 0})
	for j := 0; j < radialSegments; j++ {
		mesh.Faces = append(mesh.Faces, [3]int{bottomCenter, j*2 + 1, (j+1)*2 + 1})
		if rTop > 0 {
			mesh.Faces = append(mesh.Faces, [3]int{topCenter, (j + 1) * 2, j * 2})
		}
	}
	return mesh
}

package assets

import (
	"testing"

	"github.com/shapeflow/shapeflow/types"
)

const sampleOBJ = `# simple quad pyramid
v 0 1 0
v -1 0 -1
v 1 0 -1
v 1 0 1
v -1 0 1
f 1 3 2
f 1 4 3
f 1 5 4
f 1 2 5
f 2 3 4 5
`

func TestDecodeOBJ_Basic(t *testing.T) {
	mesh, err := DecodeOBJ([]byte(sampleOBJ))
	if err != nil {
		t.Fatal(err)
	}
	if mesh.VertexCount() != 5 {
		t.Errorf("vertices = %d, want 5", mesh.VertexCount())
	}
	// 4 个三角面 + 底部四边形扇形三角化为 2 个
	if mesh.FaceCount() != 6 {
		t.Errorf("faces = %d, want 6", mesh.FaceCount())
	}
}

func TestDecodeOBJ_SlashFormatsAndNegativeIndices(t *testing.T) {
	src := `
v 0 0 0
v 1 0 0
v 0 1 0
f 1/1 2/2/2 3//3
f -3 -2 -1
`
	mesh, err := DecodeOBJ([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if mesh.FaceCount() != 2 {
		t.Errorf("faces = %d, want 2", mesh.FaceCount())
	}
	for _, f := range mesh.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= 3 {
				t.Errorf("index %d out of range", idx)
			}
		}
	}
}

func TestDecodeOBJ_IgnoresUnknownDirectives(t *testing.T) {
	src := `
mtllib scene.mtl
o Cube
vn 0 1 0
vt 0.5 0.5
v 0 0 0
v 1 0 0
v 0 1 0
usemtl body
s off
f 1 2 3
`
	mesh, err := DecodeOBJ([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if mesh.VertexCount() != 3 || mesh.FaceCount() != 1 {
		t.Errorf("got %d vertices, %d faces", mesh.VertexCount(), mesh.FaceCount())
	}
}

func TestDecodeOBJ_Malformed(t *testing.T) {
	cases := map[string]string{
		"空内容":    "",
		"只有注释":   "# nothing here\n",
		"坏坐标":    "v one two three\nf 1 2 3\n",
		"顶点不足":   "v 0 0 0\nf 1 1\nv 1 1 1\nv 2 2 2\n",
		"索引越界":   "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 9\n",
		"零索引":    "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n",
		"无面只有顶点": "v 0 0 0\nv 1 1 1\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeOBJ([]byte(src))
			if err == nil {
				t.Fatal("expected parse error")
			}
			if types.GetErrorCode(err) != types.ErrParseError {
				t.Errorf("code = %s, want PARSE_ERROR", types.GetErrorCode(err))
			}
		})
	}
}

package assets

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/shapeflow/shapeflow/geometry"
	"github.com/shapeflow/shapeflow/types"
)

// DecodeOBJ 解析 Wavefront OBJ 字节流为单个网格。
// 只消费 v 与 f 指令；f 支持 v、v/vt、v//vn、v/vt/vn 与负索引，
// 多于三个顶点的面做扇形三角化。其余指令（法线、材质、分组）忽略。
func DecodeOBJ(data []byte) (*geometry.Mesh, error) {
	mesh := &geometry.Mesh{Material: geometry.DefaultMaterial()}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, parseErr(lineNo, "vertex needs 3 coordinates")
			}
			var coords [3]float64
			for i := 0; i < 3; i++ {
				v, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, parseErr(lineNo, fmt.Sprintf("bad coordinate %q", fields[i+1]))
				}
				coords[i] = v
			}
			mesh.Vertices = append(mesh.Vertices, geometry.Vec3{X: coords[0], Y: coords[1], Z: coords[2]})

		case "f":
			if len(fields) < 4 {
				return nil, parseErr(lineNo, "face needs at least 3 vertices")
			}
			idx := make([]int, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				i, err := parseFaceIndex(ref, len(mesh.Vertices))
				if err != nil {
					return nil, parseErr(lineNo, err.Error())
				}
				idx = append(idx, i)
			}
			// 扇形三角化
			for i := 1; i < len(idx)-1; i++ {
				mesh.Faces = append(mesh.Faces, [3]int{idx[0], idx[i], idx[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, types.NewError(types.ErrParseError, "failed to scan obj data").WithCause(err)
	}

	if len(mesh.Vertices) == 0 || len(mesh.Faces) == 0 {
		return nil, types.NewError(types.ErrParseError, "obj contains no renderable geometry")
	}
	return mesh, nil
}

// parseFaceIndex 解析 f 指令中的一个顶点引用（v、v/vt、v//vn、v/vt/vn）
func parseFaceIndex(ref string, vertexCount int) (int, error) {
	if slash := strings.IndexByte(ref, '/'); slash >= 0 {
		ref = ref[:slash]
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return 0, fmt.Errorf("bad face index %q", ref)
	}
	// OBJ 索引从 1 开始；负索引从末尾回数
	switch {
	case n > 0:
		n--
	case n < 0:
		n = vertexCount + n
	default:
		return 0, fmt.Errorf("face index 0 is invalid")
	}
	if n < 0 || n >= vertexCount {
		return 0, fmt.Errorf("face index %q out of range", ref)
	}
	return n, nil
}

func parseErr(line int, msg string) error {
	return types.NewError(types.ErrParseError, fmt.Sprintf("obj line %d: %s", line, msg))
}

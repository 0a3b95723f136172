// Package cesiumaux provides auxiliary helpers to get up and running with
// cesium quickly: offscreen compile checking of composed shader programs
// and single-frame PNG previews of primitives. Ideally users implement
// their own rendering loop since applications vary widely; the preview
// exists so a custom shader can be seen without writing one.
package cesiumaux

import (
	"fmt"
	"sort"
	"strings"

	"github.com/HapDragon/cesium"
	"github.com/HapDragon/cesium/glshader"
	"github.com/soypat/geometry/ms3"
)

// PreviewConfig configures offscreen rendering of a primitive. The zero
// value renders a 512x512 frame with identity transforms, which suits
// geometry modeled directly in clip space.
type PreviewConfig struct {
	Width, Height int
	// Supersample renders at an integer multiple of the output size and
	// downsamples with a Catmull-Rom kernel. 0 and 1 disable it.
	Supersample int
	// Model, View and Projection feed the pipeline's matrix uniforms.
	// A zero matrix is replaced by identity.
	Model, View, Projection ms3.Mat4
	ClearColor              [4]float32
	// DrawPoints renders the primitive as a point cloud instead of
	// consecutive triangles.
	DrawPoints bool
	Diag       *cesium.Diagnostics
	Silent     bool
}

func (cfg PreviewConfig) withDefaults() PreviewConfig {
	if cfg.Width <= 0 {
		cfg.Width = 512
	}
	if cfg.Height <= 0 {
		cfg.Height = 512
	}
	if cfg.Supersample < 1 {
		cfg.Supersample = 1
	}
	return cfg
}

// BuildProgram runs the standard pipeline over prim and returns the
// composed program source together with the per-pass render state holding
// the uniform map and pass decisions. It needs no GPU and is the
// inspection entry point for callers that bring their own renderer.
func BuildProgram(prim *cesium.Primitive, shader *cesium.CustomShader, diag *cesium.Diagnostics) (glshader.Source, *cesium.RenderResources, error) {
	rr := cesium.NewRenderResources(diag)
	src, err := cesium.NewPipeline(shader).BuildSource(rr, prim)
	if err != nil {
		return glshader.Source{}, nil, err
	}
	return src, rr, nil
}

func orIdentity(m ms3.Mat4) ms3.Mat4 {
	if m == (ms3.Mat4{}) {
		return ms3.ScalingMat4(ms3.Vec{X: 1, Y: 1, Z: 1})
	}
	return m
}

// normalMatrix extracts the upper-left 3x3 of the model matrix, row major.
// Normals assume the model transform is rigid plus uniform scale; skew is
// not corrected.
func normalMatrix(model ms3.Mat4) [9]float32 {
	arr := model.Array()
	return [9]float32{
		arr[0], arr[1], arr[2],
		arr[4], arr[5], arr[6],
		arr[8], arr[9], arr[10],
	}
}

// numberedSource prefixes every line with its 1-based line number so GLSL
// compiler messages, which reference line numbers, can be followed in the
// generated program.
func numberedSource(src string) string {
	lines := strings.Split(strings.TrimRight(src, "\n"), "\n")
	var sb strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&sb, "%4d| %s\n", i+1, line)
	}
	return sb.String()
}

func sortedUniformNames(uniforms map[string]cesium.UniformFunc) []string {
	names := make([]string, 0, len(uniforms))
	for name := range uniforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

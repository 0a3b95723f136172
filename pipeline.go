package cesium

import (
	_ "embed"
	"fmt"
	"log"
	"strings"

	"github.com/HapDragon/cesium/glshader"
)

// Skeleton program text appended after every stage has contributed its
// declarations. The skeletons reference stage-generated functions and
// guard custom shader hooks behind #ifdef so a program without a custom
// shader compiles to plain model rendering.
//
//go:embed model.vert.glsl
var vertexSkeleton string

//go:embed model.frag.glsl
var fragmentSkeleton string

// UniformFunc returns the current value for a shader uniform. Values are
// read at upload time so callers can animate uniforms without touching
// generated shader source.
type UniformFunc func() any

// Pass selects the render pass a primitive's draw command belongs to.
type Pass uint8

const (
	// PassDefault defers to the renderer's standard opaque pass.
	PassDefault Pass = iota
	// PassTranslucent orders the primitive with blended geometry.
	PassTranslucent
)

func (p Pass) String() string {
	if p == PassTranslucent {
		return "translucent"
	}
	return "default"
}

// LightingOptions accumulates the lighting decision across stages. The
// material stage seeds it and the custom shader stage may override it.
type LightingOptions struct {
	Model LightingModel
}

// AlphaOptions accumulates pass and alpha-test state across stages.
type AlphaOptions struct {
	Pass   Pass
	Mode   AlphaMode
	Cutoff float32
}

// Diagnostics collects pipeline warnings, reporting each distinct key
// once. The zero value is not usable; construct with NewDiagnostics.
type Diagnostics struct {
	logger *log.Logger
	warned map[string]struct{}
}

// NewDiagnostics returns a sink writing to logger, or the process default
// logger when nil.
func NewDiagnostics(logger *log.Logger) *Diagnostics {
	if logger == nil {
		logger = log.Default()
	}
	return &Diagnostics{logger: logger, warned: make(map[string]struct{})}
}

// WarnOnce logs the formatted message the first time key is seen and
// reports whether this call was the first.
func (d *Diagnostics) WarnOnce(key, format string, args ...any) bool {
	if _, seen := d.warned[key]; seen {
		return false
	}
	d.warned[key] = struct{}{}
	d.logger.Printf("warning: "+format, args...)
	return true
}

// Warned reports whether key has been warned about.
func (d *Diagnostics) Warned(key string) bool {
	_, seen := d.warned[key]
	return seen
}

// WarningCount returns the number of distinct warnings issued.
func (d *Diagnostics) WarningCount() int { return len(d.warned) }

// RenderResources is the mutable state threaded through one pipeline pass
// over one primitive. Stages append shader declarations to ShaderBuilder,
// register uniform value sources in UniformMap, and refine the lighting
// and alpha decisions.
type RenderResources struct {
	ShaderBuilder   *glshader.Builder
	UniformMap      map[string]UniformFunc
	LightingOptions LightingOptions
	AlphaOptions    AlphaOptions
	Diag            *Diagnostics
}

// NewRenderResources returns fresh per-pass state. A nil diag gets a sink
// on the default logger.
func NewRenderResources(diag *Diagnostics) *RenderResources {
	if diag == nil {
		diag = NewDiagnostics(nil)
	}
	return &RenderResources{
		ShaderBuilder: glshader.NewBuilder(),
		UniformMap:    make(map[string]UniformFunc),
		Diag:          diag,
	}
}

// PipelineStage is one step of shader generation for a primitive. Stages
// run in a fixed order and communicate only through RenderResources.
type PipelineStage interface {
	Name() string
	Process(rr *RenderResources, prim *Primitive) error
}

// Pipeline is an ordered list of stages producing a complete shader
// program for a primitive. Construct with NewPipeline for the standard
// stage order.
type Pipeline struct {
	Stages []PipelineStage
}

// NewPipeline assembles the standard stage order around an optional
// custom shader. A nil shader yields plain model rendering.
func NewPipeline(shader *CustomShader) *Pipeline {
	return &Pipeline{Stages: []PipelineStage{
		&GeometryStage{},
		&MaterialStage{},
		&FeatureIDStage{},
		&MetadataStage{},
		&CustomShaderStage{Shader: shader},
		&LightingStage{},
		&AlphaStage{},
	}}
}

// Run processes every stage against the primitive, stopping at the first
// stage error.
func (p *Pipeline) Run(rr *RenderResources, prim *Primitive) error {
	for _, stage := range p.Stages {
		if err := stage.Process(rr, prim); err != nil {
			return fmt.Errorf("%s: %w", stage.Name(), err)
		}
	}
	return nil
}

// BuildSource runs the pipeline and assembles the final vertex and
// fragment programs, skeleton main functions included. rr keeps the
// uniform map and pass decisions for the renderer.
func (p *Pipeline) BuildSource(rr *RenderResources, prim *Primitive) (glshader.Source, error) {
	if err := p.Run(rr, prim); err != nil {
		return glshader.Source{}, err
	}
	rr.ShaderBuilder.AddVertexLines(splitGLSLLines(vertexSkeleton))
	rr.ShaderBuilder.AddFragmentLines(splitGLSLLines(fragmentSkeleton))
	return rr.ShaderBuilder.Build(), nil
}

func splitGLSLLines(src string) []string {
	return strings.Split(strings.TrimRight(src, "\n"), "\n")
}

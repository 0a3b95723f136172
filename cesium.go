// Package cesium composes user-authored GLSL snippets with generated
// model shaders. A CustomShader carries vertex and fragment callback
// bodies plus their uniforms and varyings; the pipeline stages in this
// package translate a Primitive's vertex layout into generated GLSL
// structs and wire the callbacks into the final shader program.
package cesium

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// CustomShaderMode selects how the fragment callback interacts with the
// material stage's output.
type CustomShaderMode uint8

const (
	// ModeModifyMaterial feeds the material stage's result into
	// fragmentMain for adjustment. This is the default mode.
	ModeModifyMaterial CustomShaderMode = iota
	// ModeReplaceMaterial skips material evaluation entirely and lets
	// fragmentMain build the material from scratch.
	ModeReplaceMaterial
)

func (m CustomShaderMode) defineName() string {
	if m == ModeReplaceMaterial {
		return "CUSTOM_SHADER_REPLACE_MATERIAL"
	}
	return "CUSTOM_SHADER_MODIFY_MATERIAL"
}

// TranslucencyMode controls which render pass a primitive with a custom
// shader is drawn in.
type TranslucencyMode uint8

const (
	// TranslucencyNoChange keeps whatever pass the material stage chose.
	TranslucencyNoChange TranslucencyMode = iota
	// TranslucencyOpaque forces the default opaque pass.
	TranslucencyOpaque
	// TranslucencyTranslucent forces the translucent pass.
	TranslucencyTranslucent
)

// LightingModel selects the shading applied after material evaluation.
type LightingModel uint8

const (
	// LightingDefault expresses no preference; the material decides.
	LightingDefault LightingModel = iota
	LightingUnlit
	LightingPBR
)

func (m LightingModel) defineName() string {
	if m == LightingUnlit {
		return "LIGHTING_UNLIT"
	}
	return "LIGHTING_PBR"
}

// UniformType is the GLSL-side type of a custom shader uniform.
type UniformType uint8

const (
	UniformFloat UniformType = iota
	UniformInt
	UniformBool
	UniformVec2
	UniformVec3
	UniformVec4
	UniformMat2
	UniformMat3
	UniformMat4
	UniformSampler2D
)

// GLSLName returns the type's spelling in shader source.
func (u UniformType) GLSLName() string {
	switch u {
	case UniformFloat:
		return "float"
	case UniformInt:
		return "int"
	case UniformBool:
		return "bool"
	case UniformVec2:
		return "vec2"
	case UniformVec3:
		return "vec3"
	case UniformVec4:
		return "vec4"
	case UniformMat2:
		return "mat2"
	case UniformMat3:
		return "mat3"
	case UniformMat4:
		return "mat4"
	case UniformSampler2D:
		return "sampler2D"
	}
	return "invalid"
}

// Uniform pairs a GLSL uniform type with its current Go-side value.
// Accepted value types per uniform type:
//
//	UniformFloat      float32
//	UniformInt        int32
//	UniformBool       bool
//	UniformVec2       ms2.Vec
//	UniformVec3       ms3.Vec
//	UniformVec4       [4]float32
//	UniformMat2       ms2.Mat2
//	UniformMat3       ms3.Mat3
//	UniformMat4       ms3.Mat4
//	UniformSampler2D  image.Image (may be nil until bound)
type Uniform struct {
	Type  UniformType
	Value any
}

// uniformTypeForValue mirrors the GLSL typing rules for Go values handed
// to uniforms. Unsupported kinds return an error naming the offending type.
func uniformTypeForValue(value any) (UniformType, error) {
	switch value.(type) {
	case float32:
		return UniformFloat, nil
	case int32:
		return UniformInt, nil
	case bool:
		return UniformBool, nil
	case ms2.Vec:
		return UniformVec2, nil
	case ms3.Vec:
		return UniformVec3, nil
	case [4]float32:
		return UniformVec4, nil
	case ms2.Mat2:
		return UniformMat2, nil
	case ms3.Mat3:
		return UniformMat3, nil
	case ms3.Mat4:
		return UniformMat4, nil
	case image.Image:
		return UniformSampler2D, nil
	}
	return 0, fmt.Errorf("unsupported uniform value type %T", value)
}

// VaryingType is the GLSL-side type of a user-declared varying.
type VaryingType uint8

const (
	VaryingFloat VaryingType = iota
	VaryingVec2
	VaryingVec3
	VaryingVec4
	VaryingMat2
	VaryingMat3
	VaryingMat4
)

// GLSLName returns the type's spelling in shader source.
func (v VaryingType) GLSLName() string {
	switch v {
	case VaryingFloat:
		return "float"
	case VaryingVec2:
		return "vec2"
	case VaryingVec3:
		return "vec3"
	case VaryingVec4:
		return "vec4"
	case VaryingMat2:
		return "mat2"
	case VaryingMat3:
		return "mat3"
	case VaryingMat4:
		return "mat4"
	}
	return "invalid"
}

// CustomShaderDesc is the user-facing description of a custom shader.
// Either shader text may be empty, in which case that stage contributes
// nothing to the final program.
type CustomShaderDesc struct {
	Mode             CustomShaderMode
	LightingModel    LightingModel
	TranslucencyMode TranslucencyMode
	// VertexShaderText holds the body around a vertexMain callback:
	//
	//	void vertexMain(VertexInput vsInput, inout VertexOutput vsOutput) { ... }
	VertexShaderText string
	// FragmentShaderText holds the body around a fragmentMain callback:
	//
	//	void fragmentMain(FragmentInput fsInput, inout Material material) { ... }
	FragmentShaderText string
	Uniforms           map[string]Uniform
	Varyings           map[string]VaryingType
}

// CustomShader is a validated custom shader ready to be attached to a
// Pipeline. It is immutable apart from SetUniform, and may be shared by
// any number of primitives.
type CustomShader struct {
	mode             CustomShaderMode
	lightingModel    LightingModel
	translucencyMode TranslucencyMode
	vertexText       string
	fragmentText     string
	uniforms         map[string]Uniform
	varyings         map[string]VaryingType
	// Attribute names referenced through vsInput.attributes and
	// fsInput.attributes, scanned once at construction.
	usedVertexAttributes   map[string]struct{}
	usedFragmentAttributes map[string]struct{}
}

// Uniform names emitted by the pipeline stages themselves. User uniforms
// may not shadow them.
var reservedUniformNames = map[string]struct{}{
	"u_model":           {},
	"u_view":            {},
	"u_projection":      {},
	"u_normalMatrix":    {},
	"u_baseColorFactor": {},
	"u_alphaCutoff":     {},
}

// NewCustomShader validates a description and derives the sets of
// attribute variables each shader text references. All declaration
// problems are reported together rather than one at a time.
func NewCustomShader(desc CustomShaderDesc) (*CustomShader, error) {
	cs := &CustomShader{
		mode:                   desc.Mode,
		lightingModel:          desc.LightingModel,
		translucencyMode:       desc.TranslucencyMode,
		vertexText:             desc.VertexShaderText,
		fragmentText:           desc.FragmentShaderText,
		uniforms:               make(map[string]Uniform, len(desc.Uniforms)),
		varyings:               make(map[string]VaryingType, len(desc.Varyings)),
		usedVertexAttributes:   scanInputAttributes(desc.VertexShaderText, "vsInput.attributes."),
		usedFragmentAttributes: scanInputAttributes(desc.FragmentShaderText, "fsInput.attributes."),
	}
	var errs []error
	for _, name := range sortedKeys(desc.Uniforms) {
		u := desc.Uniforms[name]
		if err := checkUniformDecl(name, u); err != nil {
			errs = append(errs, err)
			continue
		}
		cs.uniforms[name] = u
	}
	for _, name := range sortedKeys(desc.Varyings) {
		vt := desc.Varyings[name]
		if err := checkShaderIdent(name); err != nil {
			errs = append(errs, fmt.Errorf("varying %q: %w", name, err))
			continue
		}
		if vt.GLSLName() == "invalid" {
			errs = append(errs, fmt.Errorf("varying %q: invalid varying type %d", name, vt))
			continue
		}
		cs.varyings[name] = vt
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cs, nil
}

func checkUniformDecl(name string, u Uniform) error {
	if err := checkShaderIdent(name); err != nil {
		return fmt.Errorf("uniform %q: %w", name, err)
	}
	if _, reserved := reservedUniformNames[name]; reserved {
		return fmt.Errorf("uniform %q shadows a generated pipeline uniform", name)
	}
	if u.Type.GLSLName() == "invalid" {
		return fmt.Errorf("uniform %q: invalid uniform type %d", name, u.Type)
	}
	if u.Value == nil {
		if u.Type != UniformSampler2D {
			return fmt.Errorf("uniform %q: nil value for %s uniform", name, u.Type.GLSLName())
		}
		return nil
	}
	got, err := uniformTypeForValue(u.Value)
	if err != nil {
		return fmt.Errorf("uniform %q: %w", name, err)
	}
	if got != u.Type {
		return fmt.Errorf("uniform %q: declared %s but value %T is %s",
			name, u.Type.GLSLName(), u.Value, got.GLSLName())
	}
	return nil
}

// Mode returns the material interaction mode.
func (cs *CustomShader) Mode() CustomShaderMode { return cs.mode }

// LightingModel returns the lighting override, LightingDefault if none.
func (cs *CustomShader) LightingModel() LightingModel { return cs.lightingModel }

// TranslucencyMode returns the pass override.
func (cs *CustomShader) TranslucencyMode() TranslucencyMode { return cs.translucencyMode }

// HasVertexText reports whether a vertex callback was supplied.
func (cs *CustomShader) HasVertexText() bool { return strings.TrimSpace(cs.vertexText) != "" }

// HasFragmentText reports whether a fragment callback was supplied.
func (cs *CustomShader) HasFragmentText() bool { return strings.TrimSpace(cs.fragmentText) != "" }

// Uniform returns the current value of a declared uniform.
func (cs *CustomShader) Uniform(name string) (Uniform, bool) {
	u, exists := cs.uniforms[name]
	return u, exists
}

// SetUniform replaces the value of a uniform declared at construction.
// The new value must match the declared GLSL type. Uniform map entries
// handed to render resources read values live, so updates between frames
// take effect without regenerating shaders.
func (cs *CustomShader) SetUniform(name string, value any) error {
	u, exists := cs.uniforms[name]
	if !exists {
		return fmt.Errorf("uniform %q not declared", name)
	}
	if value == nil {
		return errors.New("nil uniform value")
	}
	got, err := uniformTypeForValue(value)
	if err != nil {
		return fmt.Errorf("uniform %q: %w", name, err)
	}
	if got != u.Type {
		return fmt.Errorf("uniform %q: declared %s but value %T is %s",
			name, u.Type.GLSLName(), value, got.GLSLName())
	}
	u.Value = value
	cs.uniforms[name] = u
	return nil
}

// scanInputAttributes collects identifiers referenced through the given
// input struct prefix, e.g. "fsInput.attributes." in
//
//	material.diffuse = vec3(fsInput.attributes.temperature);
//
// yields {"temperature"}. The scan is purely lexical; occurrences inside
// comments or strings count, which errs on the side of declaring more.
func scanInputAttributes(shaderText, prefix string) map[string]struct{} {
	used := make(map[string]struct{})
	for {
		i := strings.Index(shaderText, prefix)
		if i < 0 {
			return used
		}
		shaderText = shaderText[i+len(prefix):]
		end := 0
		for end < len(shaderText) && isShaderIdentByte(shaderText[end], end > 0) {
			end++
		}
		if end > 0 {
			used[shaderText[:end]] = struct{}{}
		}
	}
}

func isShaderIdentByte(c byte, allowDigit bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		return true
	case c >= '0' && c <= '9':
		return allowDigit
	}
	return false
}

func checkShaderIdent(name string) error {
	if name == "" {
		return errors.New("empty identifier")
	}
	for i := 0; i < len(name); i++ {
		if !isShaderIdentByte(name[i], i > 0) {
			return fmt.Errorf("invalid GLSL identifier %q", name)
		}
	}
	if strings.HasPrefix(name, "gl_") {
		return fmt.Errorf("identifier %q uses reserved gl_ prefix", name)
	}
	return nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package cesium

import (
	"strconv"

	"github.com/HapDragon/cesium/glshader"
)

// AlphaMode mirrors glTF's material alphaMode.
type AlphaMode uint8

const (
	AlphaModeOpaque AlphaMode = iota
	// AlphaModeMask discards fragments under the cutoff.
	AlphaModeMask
	// AlphaModeBlend renders in the translucent pass.
	AlphaModeBlend
)

func (m AlphaMode) defineName() string {
	switch m {
	case AlphaModeMask:
		return "ALPHA_MODE_MASK"
	case AlphaModeBlend:
		return "ALPHA_MODE_BLEND"
	}
	return "ALPHA_MODE_OPAQUE"
}

// DefaultBaseColorFactor is the base color applied when a material leaves
// it unset: opaque white.
var DefaultBaseColorFactor = [4]float32{1, 1, 1, 1}

// DefaultAlphaCutoff is the glTF default for masked materials.
const DefaultAlphaCutoff = 0.5

// Material is the primitive's surface description. The zero value renders
// as lit opaque white.
type Material struct {
	// BaseColorFactor multiplies the vertex color, if any. The all-zero
	// value means unset and falls back to DefaultBaseColorFactor.
	BaseColorFactor [4]float32
	// Unlit skips the lighting stage's shading.
	Unlit       bool
	AlphaMode   AlphaMode
	AlphaCutoff float32 // used with AlphaModeMask; zero means DefaultAlphaCutoff
	DoubleSided bool
}

func (m Material) baseColorFactor() [4]float32 {
	if m.BaseColorFactor == ([4]float32{}) {
		return DefaultBaseColorFactor
	}
	return m.BaseColorFactor
}

// MaterialStage evaluates the primitive's material into a base color
// function, seeds the lighting decision, and records the material's alpha
// behavior for the alpha stage. It also owns the Material struct that a
// custom fragment shader modifies or replaces.
type MaterialStage struct{}

func (MaterialStage) Name() string { return "MaterialStage" }

func (MaterialStage) Process(rr *RenderResources, prim *Primitive) error {
	b := rr.ShaderBuilder
	m := prim.Material

	b.AddStruct(structIDMaterial, StructNameMaterial, glshader.DestinationFragment)
	b.AddStructField(structIDMaterial, "vec3", "diffuse")
	b.AddStructField(structIDMaterial, "vec3", "specular")
	b.AddStructField(structIDMaterial, "vec3", "emissive")
	b.AddStructField(structIDMaterial, "float", "alpha")

	b.AddUniform("vec4", "u_baseColorFactor", glshader.DestinationFragment)
	factor := m.baseColorFactor()
	rr.UniformMap["u_baseColorFactor"] = func() any { return factor }

	b.AddFunction(funcIDMaterialColorFS,
		"vec4 materialColor("+StructNameProcessedAttributes+" attributes)",
		glshader.DestinationFragment)
	b.AddFunctionLines(funcIDMaterialColorFS, []string{
		"    vec4 color = u_baseColorFactor;",
	})
	if colorName, componentCount, exists := firstColorAttribute(prim); exists {
		line := "    color *= attributes." + colorName + ";"
		if componentCount == 3 {
			line = "    color *= vec4(attributes." + colorName + ", 1.0);"
		}
		b.AddFunctionLines(funcIDMaterialColorFS, []string{line})
	}
	b.AddFunctionLines(funcIDMaterialColorFS, []string{"    return color;"})

	if m.Unlit {
		rr.LightingOptions.Model = LightingUnlit
	} else {
		rr.LightingOptions.Model = LightingPBR
	}

	rr.AlphaOptions.Mode = m.AlphaMode
	switch m.AlphaMode {
	case AlphaModeMask:
		rr.AlphaOptions.Cutoff = m.AlphaCutoff
		if rr.AlphaOptions.Cutoff == 0 {
			rr.AlphaOptions.Cutoff = DefaultAlphaCutoff
		}
	case AlphaModeBlend:
		rr.AlphaOptions.Pass = PassTranslucent
	}
	return nil
}

// firstColorAttribute returns the variable name and width of the lowest
// numbered vertex color set. glTF allows both vec3 and vec4 colors.
func firstColorAttribute(prim *Primitive) (name string, componentCount int, exists bool) {
	best := -1
	for _, a := range prim.Attributes {
		if a.Semantic != SemanticColor {
			continue
		}
		if best < 0 || a.SetIndex < best {
			best = a.SetIndex
			componentCount = a.ComponentCount
		}
	}
	if best < 0 {
		return "", 0, false
	}
	return "color_" + strconv.Itoa(best), componentCount, true
}

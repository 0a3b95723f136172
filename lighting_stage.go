package cesium

import "github.com/HapDragon/cesium/glshader"

// LightingStage resolves the final lighting model and emits its define
// plus the applyLighting function. It runs after the custom shader stage
// so a shader's lighting override lands in the emitted define.
type LightingStage struct{}

func (LightingStage) Name() string { return "LightingStage" }

func (LightingStage) Process(rr *RenderResources, prim *Primitive) error {
	if rr.LightingOptions.Model == LightingDefault {
		rr.LightingOptions.Model = LightingPBR
	}
	b := rr.ShaderBuilder
	b.AddDefine(rr.LightingOptions.Model.defineName(), "", glshader.DestinationFragment)

	b.AddFunction(funcIDApplyLightingFS,
		"vec4 applyLighting(vec4 color, "+StructNameProcessedAttributes+" attributes)",
		glshader.DestinationFragment)
	if prim.hasAttribute(SemanticNormal) {
		b.AddFunctionLines(funcIDApplyLightingFS, []string{
			"    vec3 normal = normalize(attributes.normalEC);",
			"    vec3 lightDirection = normalize(vec3(0.5, 0.5, 1.0));",
			"    float shade = 0.3 + 0.7 * max(dot(normal, lightDirection), 0.0);",
			"    return vec4(color.rgb * shade, color.a);",
		})
	} else {
		// No normals to shade with; pass the color through so flat
		// geometry still renders.
		b.AddFunctionLines(funcIDApplyLightingFS, []string{
			"    return color;",
		})
	}
	return nil
}

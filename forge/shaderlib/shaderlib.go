// Package shaderlib provides ready-made custom shaders for common model
// inspection and styling tasks. Each preset is a plain CustomShader built
// through the public API, so they double as usage reference.
package shaderlib

import (
	"errors"
	"image"
	"image/color"

	math "github.com/chewxy/math32"

	"github.com/HapDragon/cesium"
)

// UnlitColor paints the whole primitive in a single color, ignoring
// lighting. Colors with alpha below 1 move the primitive to the
// translucent pass.
func UnlitColor(c color.Color) (*cesium.CustomShader, error) {
	rgba := Vec4FromColor(c)
	translucency := cesium.TranslucencyNoChange
	if rgba[3] < 1 {
		translucency = cesium.TranslucencyTranslucent
	}
	return cesium.NewCustomShader(cesium.CustomShaderDesc{
		LightingModel:    cesium.LightingUnlit,
		TranslucencyMode: translucency,
		FragmentShaderText: `void fragmentMain(FragmentInput fsInput, inout Material material)
{
    material.diffuse = u_unlitColor.rgb;
    material.alpha = u_unlitColor.a;
}`,
		Uniforms: map[string]cesium.Uniform{
			"u_unlitColor": {Type: cesium.UniformVec4, Value: rgba},
		},
	})
}

// NormalVisualizer maps eye-space normals onto the color cube, the usual
// way to eyeball whether normals and their transforms are sane. Primitives
// without a normal attribute render in the uniform +Z color.
func NormalVisualizer() (*cesium.CustomShader, error) {
	return cesium.NewCustomShader(cesium.CustomShaderDesc{
		LightingModel: cesium.LightingUnlit,
		FragmentShaderText: `void fragmentMain(FragmentInput fsInput, inout Material material)
{
    material.diffuse = fsInput.attributes.normalEC * 0.5 + vec3(0.5);
    material.alpha = 1.0;
}`,
	})
}

// HeatmapTemperature colors points by their _TEMPERATURE attribute on a
// blue-to-red ramp spanning minTemp..maxTemp. The vertex stage sets the
// point size, so draw the primitive as a point cloud. A primitive without
// the _TEMPERATURE attribute disables the shader with a warning, since
// application-specific attributes have no inferable default.
func HeatmapTemperature(minTemp, maxTemp float32) (*cesium.CustomShader, error) {
	if math.Abs(maxTemp-minTemp) < 1e-6 {
		return nil, errors.New("degenerate temperature range")
	}
	return cesium.NewCustomShader(cesium.CustomShaderDesc{
		LightingModel: cesium.LightingUnlit,
		VertexShaderText: `void vertexMain(VertexInput vsInput, inout VertexOutput vsOutput)
{
    vsOutput.pointSize = u_pointSize;
}`,
		FragmentShaderText: `void fragmentMain(FragmentInput fsInput, inout Material material)
{
    float t = (fsInput.attributes.temperature - u_minTemperature) / (u_maxTemperature - u_minTemperature);
    t = clamp(t, 0.0, 1.0);
    material.diffuse = mix(vec3(0.0, 0.2, 1.0), vec3(1.0, 0.1, 0.0), t);
    material.alpha = 1.0;
}`,
		Uniforms: map[string]cesium.Uniform{
			"u_minTemperature": {Type: cesium.UniformFloat, Value: minTemp},
			"u_maxTemperature": {Type: cesium.UniformFloat, Value: maxTemp},
			"u_pointSize":      {Type: cesium.UniformFloat, Value: float32(6)},
		},
	})
}

// TextDecal blends a label image over the material using the first
// texture coordinate set. Rasterize labels with [RasterizeLabel] or bring
// any image; a nil decal can be bound later through SetUniform.
func TextDecal(decal image.Image) (*cesium.CustomShader, error) {
	return cesium.NewCustomShader(cesium.CustomShaderDesc{
		FragmentShaderText: `void fragmentMain(FragmentInput fsInput, inout Material material)
{
    vec4 decal = texture(u_decal, fsInput.attributes.texCoord_0);
    material.diffuse = mix(material.diffuse, decal.rgb, decal.a);
}`,
		Uniforms: map[string]cesium.Uniform{
			"u_decal": {Type: cesium.UniformSampler2D, Value: decal},
		},
	})
}

// Vec4FromColor converts a color to the RGBA vector layout shader
// uniforms use, components on the range 0 to 1.
func Vec4FromColor(c color.Color) [4]float32 {
	r, g, b, a := c.RGBA()
	return [4]float32{
		float32(r>>8) / math.MaxUint8,
		float32(g>>8) / math.MaxUint8,
		float32(b>>8) / math.MaxUint8,
		float32(a>>8) / math.MaxUint8,
	}
}

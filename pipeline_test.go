package cesium_test

import (
	"strings"
	"testing"

	"github.com/HapDragon/cesium"
	"github.com/soypat/geometry/ms3"
)

func TestPipelineWithoutCustomShader(t *testing.T) {
	prim := &cesium.Primitive{Attributes: []cesium.VertexAttribute{positionAttr(), normalAttr()}}
	rr := cesium.NewRenderResources(quietDiag())
	src, err := cesium.NewPipeline(nil).BuildSource(rr, prim)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"#version 330 core",
		"in vec3 a_positionMC;",
		"in vec3 a_normalMC;",
		"uniform mat4 u_model;",
		"uniform mat4 u_view;",
		"uniform mat4 u_projection;",
		"uniform mat3 u_normalMatrix;",
		"out vec3 v_normalEC;",
		"v_normalEC = normalize(u_normalMatrix * attributes.normalMC);",
		"void main()",
	} {
		wantContains(t, src.Vertex, want, "plain vertex program")
	}
	for _, want := range []string{
		"out vec4 out_FragColor;",
		"#define LIGHTING_PBR",
		"#define ALPHA_MODE_OPAQUE",
		"uniform vec4 u_baseColorFactor;",
		"attributes.normalEC = normalize(v_normalEC);",
		"vec4 materialColor(ProcessedAttributes attributes)",
	} {
		wantContains(t, src.Fragment, want, "plain fragment program")
	}
	wantAbsent(t, src.Vertex, "HAS_CUSTOM", "no custom stage artifacts")
	wantAbsent(t, src.Fragment, "HAS_CUSTOM", "no custom stage artifacts")

	base, exists := rr.UniformMap["u_baseColorFactor"]
	if !exists {
		t.Fatal("base color uniform not registered")
	}
	if got := base(); got != any(cesium.DefaultBaseColorFactor) {
		t.Errorf("base color = %v, want default white", got)
	}
}

func TestPipelineRequiresPosition(t *testing.T) {
	prim := &cesium.Primitive{Attributes: []cesium.VertexAttribute{normalAttr()}}
	rr := cesium.NewRenderResources(quietDiag())
	_, err := cesium.NewPipeline(nil).BuildSource(rr, prim)
	if err == nil {
		t.Fatal("want error for primitive without position")
	}
	if !strings.Contains(err.Error(), "GeometryStage") || !strings.Contains(err.Error(), "position") {
		t.Errorf("error %q does not name the failing stage and cause", err)
	}
}

func TestIntegerAttributesUseFlatVaryings(t *testing.T) {
	prim := &cesium.Primitive{Attributes: []cesium.VertexAttribute{
		positionAttr(),
		{Semantic: cesium.SemanticJoints, ComponentType: cesium.ComponentUint16, ComponentCount: 4},
	}}
	rr := cesium.NewRenderResources(quietDiag())
	src, err := cesium.NewPipeline(nil).BuildSource(rr, prim)
	if err != nil {
		t.Fatal(err)
	}
	wantContains(t, src.Vertex, "flat out ivec4 v_joints_0;", "integer varying out")
	wantContains(t, src.Fragment, "flat in ivec4 v_joints_0;", "integer varying in")
	wantContains(t, src.Vertex, "in ivec4 a_joints_0;", "integer vertex input")
}

func TestMaterialVertexColor(t *testing.T) {
	vec4Color := &cesium.Primitive{Attributes: []cesium.VertexAttribute{
		positionAttr(),
		{Semantic: cesium.SemanticColor, ComponentCount: 4},
	}}
	rr := cesium.NewRenderResources(quietDiag())
	src, err := cesium.NewPipeline(nil).BuildSource(rr, vec4Color)
	if err != nil {
		t.Fatal(err)
	}
	wantContains(t, src.Fragment, "color *= attributes.color_0;", "vec4 vertex color")

	vec3Color := &cesium.Primitive{Attributes: []cesium.VertexAttribute{
		positionAttr(),
		{Semantic: cesium.SemanticColor, ComponentCount: 3},
	}}
	rr = cesium.NewRenderResources(quietDiag())
	src, err = cesium.NewPipeline(nil).BuildSource(rr, vec3Color)
	if err != nil {
		t.Fatal(err)
	}
	wantContains(t, src.Fragment, "color *= vec4(attributes.color_0, 1.0);", "vec3 vertex color widened")
}

func TestMaterialAlphaMask(t *testing.T) {
	prim := &cesium.Primitive{
		Attributes: []cesium.VertexAttribute{positionAttr()},
		Material:   cesium.Material{AlphaMode: cesium.AlphaModeMask, AlphaCutoff: 0.25},
	}
	rr := cesium.NewRenderResources(quietDiag())
	src, err := cesium.NewPipeline(nil).BuildSource(rr, prim)
	if err != nil {
		t.Fatal(err)
	}
	wantContains(t, src.Fragment, "#define ALPHA_MODE_MASK", "mask define")
	wantContains(t, src.Fragment, "uniform float u_alphaCutoff;", "cutoff uniform")
	cutoff, exists := rr.UniformMap["u_alphaCutoff"]
	if !exists {
		t.Fatal("cutoff uniform not registered")
	}
	if got := cutoff(); got != float32(0.25) {
		t.Errorf("cutoff = %v, want 0.25", got)
	}

	// An unset cutoff falls back to the glTF default.
	prim.Material.AlphaCutoff = 0
	rr = cesium.NewRenderResources(quietDiag())
	if _, err := cesium.NewPipeline(nil).BuildSource(rr, prim); err != nil {
		t.Fatal(err)
	}
	if got := rr.UniformMap["u_alphaCutoff"](); got != float32(cesium.DefaultAlphaCutoff) {
		t.Errorf("default cutoff = %v, want %v", got, cesium.DefaultAlphaCutoff)
	}
}

func TestMaterialBlendSelectsTranslucentPass(t *testing.T) {
	prim := &cesium.Primitive{
		Attributes: []cesium.VertexAttribute{positionAttr()},
		Material:   cesium.Material{AlphaMode: cesium.AlphaModeBlend},
	}
	rr := cesium.NewRenderResources(quietDiag())
	src, err := cesium.NewPipeline(nil).BuildSource(rr, prim)
	if err != nil {
		t.Fatal(err)
	}
	wantContains(t, src.Fragment, "#define ALPHA_MODE_BLEND", "blend define")
	if rr.AlphaOptions.Pass != cesium.PassTranslucent {
		t.Errorf("pass = %v, want translucent", rr.AlphaOptions.Pass)
	}
}

func TestUnlitMaterial(t *testing.T) {
	prim := &cesium.Primitive{
		Attributes: []cesium.VertexAttribute{positionAttr()},
		Material:   cesium.Material{Unlit: true},
	}
	rr := cesium.NewRenderResources(quietDiag())
	src, err := cesium.NewPipeline(nil).BuildSource(rr, prim)
	if err != nil {
		t.Fatal(err)
	}
	wantContains(t, src.Fragment, "#define LIGHTING_UNLIT", "unlit define")
	wantAbsent(t, src.Fragment, "#define LIGHTING_PBR", "no shading define")
}

func TestLightingShadesOnlyWithNormals(t *testing.T) {
	flat := &cesium.Primitive{Attributes: []cesium.VertexAttribute{positionAttr()}}
	rr := cesium.NewRenderResources(quietDiag())
	src, err := cesium.NewPipeline(nil).BuildSource(rr, flat)
	if err != nil {
		t.Fatal(err)
	}
	wantAbsent(t, src.Fragment, "lightDirection", "no shading without normals")

	shaded := &cesium.Primitive{Attributes: []cesium.VertexAttribute{positionAttr(), normalAttr()}}
	rr = cesium.NewRenderResources(quietDiag())
	src, err = cesium.NewPipeline(nil).BuildSource(rr, shaded)
	if err != nil {
		t.Fatal(err)
	}
	wantContains(t, src.Fragment, "float shade = 0.3 + 0.7 * max(dot(normal, lightDirection), 0.0);", "diffuse shading")
}

func TestFeatureIDStruct(t *testing.T) {
	prim := &cesium.Primitive{Attributes: []cesium.VertexAttribute{
		positionAttr(),
		{Semantic: cesium.SemanticFeatureID, SetIndex: 0, ComponentCount: 1},
		{Semantic: cesium.SemanticFeatureID, SetIndex: 1, ComponentCount: 1},
	}}
	rr := cesium.NewRenderResources(quietDiag())
	src, err := cesium.NewPipeline(nil).BuildSource(rr, prim)
	if err != nil {
		t.Fatal(err)
	}
	for _, stage := range []string{src.Vertex, src.Fragment} {
		wantContains(t, stage, "struct FeatureIds", "feature id struct")
		wantContains(t, stage, "int featureId_0;", "first set field")
		wantContains(t, stage, "int featureId_1;", "second set field")
		wantContains(t, stage, "featureIds.featureId_0 = int(attributes.featureId_0);", "first set init")
	}

	bare := &cesium.Primitive{Attributes: []cesium.VertexAttribute{positionAttr()}}
	rr = cesium.NewRenderResources(quietDiag())
	src, err = cesium.NewPipeline(nil).BuildSource(rr, bare)
	if err != nil {
		t.Fatal(err)
	}
	wantContains(t, src.Fragment, "featureIds._empty = 0;", "placeholder init without feature ids")
}

func TestMetadataStructs(t *testing.T) {
	prim := &cesium.Primitive{
		Attributes: []cesium.VertexAttribute{positionAttr()},
		MetadataProperties: []cesium.MetadataProperty{
			{Name: "temperature", Value: float32(28.5), Min: float32(10), Max: float32(35)},
			{Name: "windDirection", Value: ms3.Vec{X: 1}},
			{Name: "occupied", Value: true},
			{Name: "floorCount", Value: int32(7)},
		},
	}
	rr := cesium.NewRenderResources(quietDiag())
	src, err := cesium.NewPipeline(nil).BuildSource(rr, prim)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"struct Metadata",
		"struct MetadataClass",
		"float temperature;",
		"metadata.temperature = 28.5;",
		"metadataClass.temperature_min = 10.0;",
		"metadataClass.temperature_max = 35.0;",
		"vec3 windDirection;",
		"metadata.windDirection = vec3(1.0, 0.0, 0.0);",
		"bool occupied;",
		"metadata.occupied = true;",
		"int floorCount;",
		"metadata.floorCount = 7;",
	} {
		wantContains(t, src.Fragment, want, "metadata declarations")
		wantContains(t, src.Vertex, want, "metadata declarations (vertex)")
	}

	bare := &cesium.Primitive{Attributes: []cesium.VertexAttribute{positionAttr()}}
	rr = cesium.NewRenderResources(quietDiag())
	src, err = cesium.NewPipeline(nil).BuildSource(rr, bare)
	if err != nil {
		t.Fatal(err)
	}
	wantContains(t, src.Fragment, "metadata._empty = 0.0;", "metadata placeholder")
	wantContains(t, src.Fragment, "metadataClass._empty = 0.0;", "class placeholder")
}

func TestMetadataErrors(t *testing.T) {
	cases := []struct {
		name    string
		props   []cesium.MetadataProperty
		wantErr string
	}{
		{
			"duplicate name",
			[]cesium.MetadataProperty{
				{Name: "height", Value: float32(1)},
				{Name: "height", Value: float32(2)},
			},
			"duplicate metadata property",
		},
		{
			"unsupported type",
			[]cesium.MetadataProperty{{Name: "label", Value: "tower"}},
			"unsupported value type",
		},
		{
			"bound type mismatch",
			[]cesium.MetadataProperty{{Name: "height", Value: float32(1), Min: int32(0)}},
			"int bound on float property",
		},
		{
			"invalid identifier",
			[]cesium.MetadataProperty{{Name: "1st", Value: float32(1)}},
			"invalid GLSL identifier",
		},
	}
	for _, tc := range cases {
		prim := &cesium.Primitive{
			Attributes:         []cesium.VertexAttribute{positionAttr()},
			MetadataProperties: tc.props,
		}
		rr := cesium.NewRenderResources(quietDiag())
		_, err := cesium.NewPipeline(nil).BuildSource(rr, prim)
		if err == nil {
			t.Errorf("%s: want error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.wantErr)
		}
		if !strings.Contains(err.Error(), "MetadataStage") {
			t.Errorf("%s: error %q does not name the stage", tc.name, err)
		}
	}
}

func TestDiagnosticsWarnOnce(t *testing.T) {
	diag := quietDiag()
	if !diag.WarnOnce("k1", "first %s", "warning") {
		t.Error("first warning not reported as new")
	}
	if diag.WarnOnce("k1", "repeat") {
		t.Error("repeat warning reported as new")
	}
	if !diag.WarnOnce("k2", "second") {
		t.Error("distinct key not reported as new")
	}
	if !diag.Warned("k1") || diag.Warned("k3") {
		t.Error("Warned bookkeeping wrong")
	}
	if got := diag.WarningCount(); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
	if d := cesium.NewDiagnostics(nil); d == nil {
		t.Error("nil logger must yield a usable sink")
	}
}

func TestNewCustomShaderValidation(t *testing.T) {
	// Several violations surface in one joined error.
	_, err := cesium.NewCustomShader(cesium.CustomShaderDesc{
		Uniforms: map[string]cesium.Uniform{
			"u_model": {Type: cesium.UniformFloat, Value: float32(1)},
			"1bad":    {Type: cesium.UniformFloat, Value: float32(1)},
		},
	})
	if err == nil {
		t.Fatal("want validation error")
	}
	for _, want := range []string{"u_model", "1bad"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error %q does not mention %q", err, want)
		}
	}

	cases := []struct {
		name string
		desc cesium.CustomShaderDesc
	}{
		{"nil value", cesium.CustomShaderDesc{Uniforms: map[string]cesium.Uniform{
			"u_speed": {Type: cesium.UniformFloat},
		}}},
		{"type mismatch", cesium.CustomShaderDesc{Uniforms: map[string]cesium.Uniform{
			"u_count": {Type: cesium.UniformInt, Value: float32(1)},
		}}},
		{"reserved gl_ prefix", cesium.CustomShaderDesc{Uniforms: map[string]cesium.Uniform{
			"gl_thing": {Type: cesium.UniformFloat, Value: float32(1)},
		}}},
		{"bad varying name", cesium.CustomShaderDesc{Varyings: map[string]cesium.VaryingType{
			"2fast": cesium.VaryingFloat,
		}}},
	}
	for _, tc := range cases {
		if _, err := cesium.NewCustomShader(tc.desc); err == nil {
			t.Errorf("%s: want error", tc.name)
		}
	}

	// Samplers may start out unbound.
	cs, err := cesium.NewCustomShader(cesium.CustomShaderDesc{
		Uniforms: map[string]cesium.Uniform{
			"u_decal": {Type: cesium.UniformSampler2D},
		},
	})
	if err != nil {
		t.Fatalf("nil sampler rejected: %v", err)
	}
	if cs == nil {
		t.Fatal("nil shader for valid desc")
	}
}

func TestSetUniformErrors(t *testing.T) {
	cs := mustShader(t, cesium.CustomShaderDesc{
		Uniforms: map[string]cesium.Uniform{
			"u_speed": {Type: cesium.UniformFloat, Value: float32(1)},
		},
	})
	if err := cs.SetUniform("u_missing", float32(1)); err == nil {
		t.Error("undeclared uniform accepted")
	}
	if err := cs.SetUniform("u_speed", int32(1)); err == nil {
		t.Error("mismatched value type accepted")
	}
	if err := cs.SetUniform("u_speed", float32(2)); err != nil {
		t.Errorf("valid update rejected: %v", err)
	}
	u, exists := cs.Uniform("u_speed")
	if !exists || u.Value != float32(2) {
		t.Errorf("uniform readback = %+v (exists %v), want 2", u, exists)
	}
}

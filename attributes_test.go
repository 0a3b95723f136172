package cesium_test

import (
	"testing"

	"github.com/HapDragon/cesium"
)

func TestAttributeInfo(t *testing.T) {
	cases := []struct {
		attr     cesium.VertexAttribute
		wantName string
		wantType string
	}{
		{cesium.VertexAttribute{Semantic: cesium.SemanticPosition, ComponentCount: 3}, "positionMC", "vec3"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticNormal, ComponentCount: 3}, "normalMC", "vec3"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticTangent, ComponentCount: 3}, "tangentMC", "vec3"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticBitangent, ComponentCount: 3}, "bitangentMC", "vec3"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticTexCoord, SetIndex: 2, ComponentCount: 2}, "texCoord_2", "vec2"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticColor, ComponentCount: 3}, "color_0", "vec3"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticColor, SetIndex: 1, ComponentCount: 4}, "color_1", "vec4"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticJoints, ComponentType: cesium.ComponentUint16, ComponentCount: 4}, "joints_0", "ivec4"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticJoints, ComponentCount: 4}, "joints_0", "vec4"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticWeights, ComponentCount: 4}, "weights_0", "vec4"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticFeatureID, ComponentCount: 1}, "featureId_0", "float"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticCustom, Name: "_TEMPERATURE", ComponentCount: 1}, "temperature", "float"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticCustom, Name: "Wind Speed!", ComponentCount: 3}, "wind_speed_", "vec3"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticCustom, Name: "", ComponentCount: 1}, "custom", "float"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticCustom, Name: "_0DAY", ComponentCount: 1}, "_0day", "float"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticCustom, Name: "_RAW", ComponentCount: 0}, "raw", "float"},
		{cesium.VertexAttribute{Semantic: cesium.SemanticCustom, Name: "_WIDE", ComponentCount: 7}, "wide", "vec4"},
	}
	for _, tc := range cases {
		got := tc.attr.Info()
		if got.VariableName != tc.wantName {
			t.Errorf("%s set %d (%q): name = %q, want %q",
				tc.attr.Semantic, tc.attr.SetIndex, tc.attr.Name, got.VariableName, tc.wantName)
		}
		if got.GLSLType != tc.wantType {
			t.Errorf("%s set %d (%q): type = %q, want %q",
				tc.attr.Semantic, tc.attr.SetIndex, tc.attr.Name, got.GLSLType, tc.wantType)
		}
	}
}

func TestAttributeDefault(t *testing.T) {
	cases := []struct {
		name      string
		wantType  string
		wantValue string
		wantOK    bool
	}{
		{"positionMC", "vec3", "vec3(0.0)", true},
		{"normalEC", "vec3", "vec3(0.0, 0.0, 1.0)", true},
		{"normalMC", "vec3", "vec3(0.0, 0.0, 1.0)", true},
		{"tangentMC", "vec3", "vec3(1.0, 0.0, 0.0)", true},
		{"bitangentEC", "vec3", "vec3(0.0, 1.0, 0.0)", true},
		{"texCoord_0", "vec2", "vec2(0.0)", true},
		{"texCoord_11", "vec2", "vec2(0.0)", true},
		{"color_3", "vec4", "vec4(1.0)", true},
		{"joints_0", "ivec4", "ivec4(0)", true},
		{"weights_1", "vec4", "vec4(0.0)", true},
		{"temperature", "", "", false},
		// Digits without the underscore separator are part of the name.
		{"weights7", "", "", false},
		// World position is computed per frame, never defaulted.
		{"positionWC", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		glslType, value, ok := cesium.AttributeDefault(tc.name)
		if ok != tc.wantOK || glslType != tc.wantType || value != tc.wantValue {
			t.Errorf("AttributeDefault(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.name, glslType, value, ok, tc.wantType, tc.wantValue, tc.wantOK)
		}
	}
}

func TestDrawCount(t *testing.T) {
	explicit := &cesium.Primitive{
		Attributes:  []cesium.VertexAttribute{positionAttr()},
		VertexCount: 12,
	}
	if got := explicit.DrawCount(); got != 12 {
		t.Errorf("explicit count = %d, want 12", got)
	}

	derived := &cesium.Primitive{Attributes: []cesium.VertexAttribute{{
		Semantic:       cesium.SemanticPosition,
		ComponentCount: 3,
		Data:           make([]float32, 9),
	}}}
	if got := derived.DrawCount(); got != 3 {
		t.Errorf("derived count = %d, want 3", got)
	}

	empty := &cesium.Primitive{}
	if got := empty.DrawCount(); got != 0 {
		t.Errorf("empty count = %d, want 0", got)
	}
}

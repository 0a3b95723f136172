package glshader_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/HapDragon/cesium/glshader"
)

func TestBuilderSectionOrder(t *testing.T) {
	b := glshader.NewBuilder()
	b.AddVertexLines([]string{"void main() { gl_Position = vec4(a_position, 1.0); }"})
	b.AddFunction("helper", "float helper(float x)", glshader.DestinationVertex)
	b.AddFunctionLines("helper", []string{"    return x * 2.0;"})
	b.AddStruct("Payload", "Payload", glshader.DestinationVertex)
	b.AddStructField("Payload", "vec3", "value")
	b.AddVarying("vec3", "v_value")
	b.AddUniform("mat4", "u_mvp", glshader.DestinationVertex)
	b.AddAttribute("vec3", "a_position")
	b.AddDefine("HAS_THING", "", glshader.DestinationVertex)

	src := b.Build().Vertex
	if !strings.HasPrefix(src, glshader.DefaultVersionHeader) {
		t.Errorf("vertex source does not start with version header:\n%s", src)
	}
	markers := []string{
		"#define HAS_THING",
		"in vec3 a_position;",
		"uniform mat4 u_mvp;",
		"out vec3 v_value;",
		"struct Payload",
		"float helper(float x)",
		"void main()",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(src, m)
		if idx < 0 {
			t.Fatalf("missing %q in:\n%s", m, src)
		}
		if idx < last {
			t.Errorf("%q emitted out of order in:\n%s", m, src)
		}
		last = idx
	}
}

func TestBuilderDestinationFiltering(t *testing.T) {
	b := glshader.NewBuilder()
	b.AddDefine("VERTEX_ONLY", "", glshader.DestinationVertex)
	b.AddDefine("FRAGMENT_ONLY", "1", glshader.DestinationFragment)
	b.AddDefine("EVERYWHERE", "2", glshader.DestinationBoth)
	b.AddUniform("float", "u_fragOnly", glshader.DestinationFragment)
	b.AddAttribute("vec3", "a_position")

	src := b.Build()
	if strings.Contains(src.Fragment, "VERTEX_ONLY") {
		t.Error("vertex define leaked into fragment stage")
	}
	if strings.Contains(src.Vertex, "FRAGMENT_ONLY") {
		t.Error("fragment define leaked into vertex stage")
	}
	if !strings.Contains(src.Vertex, "#define EVERYWHERE 2") || !strings.Contains(src.Fragment, "#define EVERYWHERE 2") {
		t.Error("BOTH define missing from a stage")
	}
	if strings.Contains(src.Vertex, "u_fragOnly") {
		t.Error("fragment uniform leaked into vertex stage")
	}
	if strings.Contains(src.Fragment, "a_position") {
		t.Error("vertex attribute leaked into fragment stage")
	}
}

func TestVaryingQualifiers(t *testing.T) {
	b := glshader.NewBuilder()
	b.AddVarying("vec2", "v_texCoord")
	b.AddVarying("ivec4", "v_joints")
	src := b.Build()
	if !strings.Contains(src.Vertex, "out vec2 v_texCoord;") {
		t.Errorf("missing vertex out varying:\n%s", src.Vertex)
	}
	if !strings.Contains(src.Fragment, "in vec2 v_texCoord;") {
		t.Errorf("missing fragment in varying:\n%s", src.Fragment)
	}
	if !strings.Contains(src.Vertex, "flat out ivec4 v_joints;") {
		t.Errorf("integer varying lacks flat qualifier in vertex stage:\n%s", src.Vertex)
	}
	if !strings.Contains(src.Fragment, "flat in ivec4 v_joints;") {
		t.Errorf("integer varying lacks flat qualifier in fragment stage:\n%s", src.Fragment)
	}
}

func TestDefineOverwriteAndDedup(t *testing.T) {
	b := glshader.NewBuilder()
	b.AddDefine("MODE", "1", glshader.DestinationBoth)
	b.AddDefine("MODE", "2", glshader.DestinationBoth)
	b.AddUniform("float", "u_x", glshader.DestinationVertex)
	b.AddUniform("float", "u_x", glshader.DestinationVertex)
	b.AddVarying("vec3", "v_x")
	b.AddVarying("vec3", "v_x")

	src := b.Build().Vertex
	if got := strings.Count(src, "#define MODE"); got != 1 {
		t.Errorf("want one MODE define, got %d:\n%s", got, src)
	}
	if !strings.Contains(src, "#define MODE 2") {
		t.Errorf("define not overwritten:\n%s", src)
	}
	if got := strings.Count(src, "uniform float u_x;"); got != 1 {
		t.Errorf("want one u_x declaration, got %d", got)
	}
	if got := strings.Count(src, "out vec3 v_x;"); got != 1 {
		t.Errorf("want one v_x declaration, got %d", got)
	}
	if !b.HasDefine("MODE", glshader.DestinationFragment) {
		t.Error("HasDefine missed MODE in fragment stage")
	}
	if b.HasDefine("OTHER", glshader.DestinationBoth) {
		t.Error("HasDefine invented a define")
	}
}

func TestUniformTypeConflictPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on uniform type conflict")
		}
	}()
	b := glshader.NewBuilder()
	b.AddUniform("float", "u_x", glshader.DestinationVertex)
	b.AddUniform("vec3", "u_x", glshader.DestinationVertex)
}

func TestDuplicateStructIDPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate struct id")
		}
	}()
	b := glshader.NewBuilder()
	b.AddStruct("S", "Thing", glshader.DestinationVertex)
	b.AddStruct("S", "Thing", glshader.DestinationVertex)
}

func TestStructSharedNameDistinctStages(t *testing.T) {
	b := glshader.NewBuilder()
	b.AddStruct("AttrVS", "Attributes", glshader.DestinationVertex)
	b.AddStructField("AttrVS", "vec3", "positionMC")
	b.AddStruct("AttrFS", "Attributes", glshader.DestinationFragment)
	b.AddStructField("AttrFS", "vec3", "normalEC")

	src := b.Build()
	if !strings.Contains(src.Vertex, "vec3 positionMC;") || strings.Contains(src.Vertex, "normalEC") {
		t.Errorf("vertex struct has wrong fields:\n%s", src.Vertex)
	}
	if !strings.Contains(src.Fragment, "vec3 normalEC;") || strings.Contains(src.Fragment, "positionMC") {
		t.Errorf("fragment struct has wrong fields:\n%s", src.Fragment)
	}
	if got := strings.Count(src.Vertex, "struct Attributes"); got != 1 {
		t.Errorf("want one Attributes struct in vertex stage, got %d", got)
	}
}

func TestCloneIndependence(t *testing.T) {
	b := glshader.NewBuilder()
	b.AddStruct("S", "Thing", glshader.DestinationBoth)
	b.AddStructField("S", "float", "x")
	b.AddVertexLines([]string{"// original"})
	c := b.Clone()
	b.AddStructField("S", "float", "y")
	b.AddVertexLines([]string{"// mutated"})
	b.AddDefine("AFTER_CLONE", "", glshader.DestinationBoth)

	src := c.Build().Vertex
	if strings.Contains(src, "float y;") || strings.Contains(src, "mutated") || strings.Contains(src, "AFTER_CLONE") {
		t.Errorf("clone observed later mutation of original:\n%s", src)
	}
	// The clone must also accept its own additions under the same ids.
	c.AddStructField("S", "float", "z")
	if !strings.Contains(c.Build().Fragment, "float z;") {
		t.Error("clone lost struct index")
	}
}

func TestWriteLengths(t *testing.T) {
	b := glshader.NewBuilder()
	b.AddUniform("vec4", "u_color", glshader.DestinationBoth)
	b.AddFragmentLines([]string{"void main() {}"})
	var buf bytes.Buffer
	n, err := b.WriteFragment(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != buf.Len() {
		t.Errorf("written length mismatch: n=%d buffer=%d", n, buf.Len())
	}
	if buf.String() != b.Build().Fragment {
		t.Error("WriteFragment and Build disagree")
	}
}

func TestAppendHelpers(t *testing.T) {
	got := string(glshader.AppendDefineDecl(nil, "HAS_X", ""))
	if got != "#define HAS_X\n" {
		t.Errorf("bare define: %q", got)
	}
	got = string(glshader.AppendDefineDecl(nil, "COUNT", "3"))
	if got != "#define COUNT 3\n" {
		t.Errorf("valued define: %q", got)
	}
	got = string(glshader.AppendLineDirective(nil, 0))
	if got != "#line 0\n" {
		t.Errorf("line directive: %q", got)
	}
}

func TestEmptyBuilderStillVersioned(t *testing.T) {
	b := glshader.NewBuilder()
	b.VersionHeader = "#version 300 es\n"
	src := b.Build()
	if src.Vertex != "#version 300 es\n" || src.Fragment != "#version 300 es\n" {
		t.Errorf("unexpected empty-builder output: %q / %q", src.Vertex, src.Fragment)
	}
}

package glshader

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

// DefaultVersionHeader targets desktop core profiles supported by glgl.
const DefaultVersionHeader = "#version 330 core\n"

// Destination selects which shader stage a declaration is emitted to.
// It is a bit set; DestinationBoth emits to vertex and fragment stages.
type Destination uint8

const (
	DestinationVertex Destination = 1 << iota
	DestinationFragment

	DestinationBoth = DestinationVertex | DestinationFragment
)

func (d Destination) hasVertex() bool   { return d&DestinationVertex != 0 }
func (d Destination) hasFragment() bool { return d&DestinationFragment != 0 }

func (d Destination) String() string {
	switch d {
	case DestinationVertex:
		return "vertex"
	case DestinationFragment:
		return "fragment"
	case DestinationBoth:
		return "both"
	}
	return "undefined"
}

// Source is a complete generated shader program pair ready for compilation.
type Source struct {
	Vertex   string
	Fragment string
}

type define struct {
	name  string
	value string
	dest  Destination
}

type decl struct {
	glslType string
	name     string
	dest     Destination
}

type structDecl struct {
	id     string
	name   string
	dest   Destination
	fields []decl
}

type funcDecl struct {
	id        string
	signature string
	dest      Destination
	lines     []string
}

// Builder collects shader declarations from pipeline stages and assembles
// them into a vertex/fragment GLSL program pair. Declarations are emitted
// in a fixed section order (defines, attributes, uniforms, varyings,
// structs, functions, raw stage lines); within a section insertion order
// is preserved so that stages appending dependent declarations later see
// their dependencies emitted earlier.
//
// Builder methods panic on identifier misuse (duplicate or unknown
// struct/function ids) since those are programming errors in pipeline
// stages, never runtime conditions.
type Builder struct {
	// VersionHeader is emitted verbatim at the top of both stages.
	VersionHeader string

	defines       []define
	attributes    []decl // vertex stage only.
	uniforms      []decl
	varyings      []decl
	structs       []structDecl
	structIdx     map[string]int
	functions     []funcDecl
	funcIdx       map[string]int
	vertexLines   []string
	fragmentLines []string
}

// NewBuilder returns a Builder with the default version header.
func NewBuilder() *Builder {
	return &Builder{
		VersionHeader: DefaultVersionHeader,
		structIdx:     make(map[string]int),
		funcIdx:       make(map[string]int),
	}
}

// AddDefine adds a preprocessor define to the destination stage(s).
// An empty value emits a bare flag define. Re-adding a name overwrites
// the previous value and destination.
func (b *Builder) AddDefine(name, value string, dest Destination) {
	b.checkIdent(name)
	for i := range b.defines {
		if b.defines[i].name == name {
			b.defines[i].value = value
			b.defines[i].dest = dest
			return
		}
	}
	b.defines = append(b.defines, define{name: name, value: value, dest: dest})
}

// AddAttribute declares a vertex input. Exact duplicates are dropped.
func (b *Builder) AddAttribute(glslType, name string) {
	b.checkIdent(name)
	b.attributes = appendDecl(b.attributes, decl{glslType: glslType, name: name, dest: DestinationVertex})
}

// AddUniform declares a uniform in the destination stage(s).
// Exact duplicates are dropped; a redeclaration under a different type panics.
func (b *Builder) AddUniform(glslType, name string, dest Destination) {
	b.checkIdent(name)
	for i := range b.uniforms {
		if b.uniforms[i].name != name {
			continue
		}
		if b.uniforms[i].glslType != glslType {
			panic("glshader: uniform " + name + " redeclared as " + glslType + ", was " + b.uniforms[i].glslType)
		}
		b.uniforms[i].dest |= dest
		return
	}
	b.uniforms = append(b.uniforms, decl{glslType: glslType, name: name, dest: dest})
}

// AddVarying declares a value threaded from the vertex to the fragment
// stage. It is emitted as an `out` in the vertex stage and an `in` in the
// fragment stage. Integer-typed varyings get flat qualification, which
// GLSL requires since they cannot be interpolated.
func (b *Builder) AddVarying(glslType, name string) {
	b.checkIdent(name)
	b.varyings = appendDecl(b.varyings, decl{glslType: glslType, name: name, dest: DestinationBoth})
}

// AddStruct starts an empty struct declaration identified by id. Fields
// are appended with [Builder.AddStructField]. The id is builder-internal;
// name is the GLSL struct name, which may be shared by distinct ids
// targeting different stages.
func (b *Builder) AddStruct(id, name string, dest Destination) {
	b.checkIdent(name)
	if _, exists := b.structIdx[id]; exists {
		panic("glshader: duplicate struct id " + id)
	}
	b.structIdx[id] = len(b.structs)
	b.structs = append(b.structs, structDecl{id: id, name: name, dest: dest})
}

// AddStructField appends a field to the struct identified by id.
func (b *Builder) AddStructField(id, glslType, name string) {
	i, exists := b.structIdx[id]
	if !exists {
		panic("glshader: AddStructField on unknown struct id " + id)
	}
	b.structs[i].fields = append(b.structs[i].fields, decl{glslType: glslType, name: name})
}

// AddFunction starts an empty function with the given GLSL signature,
// e.g. "void initializeAttributes(out ProcessedAttributes attributes)".
// Body lines are appended with [Builder.AddFunctionLines].
func (b *Builder) AddFunction(id, signature string, dest Destination) {
	if _, exists := b.funcIdx[id]; exists {
		panic("glshader: duplicate function id " + id)
	}
	b.funcIdx[id] = len(b.functions)
	b.functions = append(b.functions, funcDecl{id: id, signature: signature, dest: dest})
}

// AddFunctionLines appends body lines to the function identified by id.
// Lines are emitted verbatim; callers indent their own statements.
func (b *Builder) AddFunctionLines(id string, lines []string) {
	i, exists := b.funcIdx[id]
	if !exists {
		panic("glshader: AddFunctionLines on unknown function id " + id)
	}
	b.functions[i].lines = append(b.functions[i].lines, lines...)
}

// AddVertexLines appends raw top-level GLSL lines to the vertex stage.
// Raw lines are emitted after all declarations, in insertion order.
func (b *Builder) AddVertexLines(lines []string) {
	b.vertexLines = append(b.vertexLines, lines...)
}

// AddFragmentLines appends raw top-level GLSL lines to the fragment stage.
func (b *Builder) AddFragmentLines(lines []string) {
	b.fragmentLines = append(b.fragmentLines, lines...)
}

// HasDefine reports whether a define with the given name has been added
// to a stage reached by dest.
func (b *Builder) HasDefine(name string, dest Destination) bool {
	for i := range b.defines {
		if b.defines[i].name == name && b.defines[i].dest&dest != 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the builder. Pipelines use it to branch a
// partially populated builder, e.g. for shadow or pick passes.
func (b *Builder) Clone() *Builder {
	c := &Builder{
		VersionHeader: b.VersionHeader,
		defines:       append([]define{}, b.defines...),
		attributes:    append([]decl{}, b.attributes...),
		uniforms:      append([]decl{}, b.uniforms...),
		varyings:      append([]decl{}, b.varyings...),
		structs:       append([]structDecl{}, b.structs...),
		structIdx:     make(map[string]int, len(b.structIdx)),
		functions:     append([]funcDecl{}, b.functions...),
		funcIdx:       make(map[string]int, len(b.funcIdx)),
		vertexLines:   append([]string{}, b.vertexLines...),
		fragmentLines: append([]string{}, b.fragmentLines...),
	}
	for i := range c.structs {
		c.structs[i].fields = append([]decl{}, b.structs[i].fields...)
		c.structIdx[c.structs[i].id] = i
	}
	for i := range c.functions {
		c.functions[i].lines = append([]string{}, b.functions[i].lines...)
		c.funcIdx[c.functions[i].id] = i
	}
	return c
}

// Build assembles both stages into final GLSL source.
func (b *Builder) Build() Source {
	var buf bytes.Buffer
	b.WriteVertex(&buf)
	vertex := buf.String()
	buf.Reset()
	b.WriteFragment(&buf)
	return Source{Vertex: vertex, Fragment: buf.String()}
}

// WriteVertex writes the assembled vertex stage source to w.
func (b *Builder) WriteVertex(w io.Writer) (int, error) {
	return w.Write(b.appendStage(nil, DestinationVertex))
}

// WriteFragment writes the assembled fragment stage source to w.
func (b *Builder) WriteFragment(w io.Writer) (int, error) {
	return w.Write(b.appendStage(nil, DestinationFragment))
}

func (b *Builder) appendStage(dst []byte, stage Destination) []byte {
	dst = append(dst, b.VersionHeader...)
	for _, d := range b.defines {
		if d.dest&stage == 0 {
			continue
		}
		dst = AppendDefineDecl(dst, d.name, d.value)
	}
	if stage.hasVertex() {
		for _, a := range b.attributes {
			dst = appendVarDecl(dst, "in ", a.glslType, a.name)
		}
	}
	for _, u := range b.uniforms {
		if u.dest&stage == 0 {
			continue
		}
		dst = appendVarDecl(dst, "uniform ", u.glslType, u.name)
	}
	varyingQualifier := "out "
	if stage.hasFragment() {
		varyingQualifier = "in "
	}
	for _, v := range b.varyings {
		qualifier := varyingQualifier
		if integerGLSLType(v.glslType) {
			qualifier = "flat " + qualifier
		}
		dst = appendVarDecl(dst, qualifier, v.glslType, v.name)
	}
	for _, s := range b.structs {
		if s.dest&stage == 0 {
			continue
		}
		dst = appendStructDecl(dst, s)
	}
	for _, f := range b.functions {
		if f.dest&stage == 0 {
			continue
		}
		dst = appendFunctionDecl(dst, f)
	}
	lines := b.vertexLines
	if stage.hasFragment() {
		lines = b.fragmentLines
	}
	for _, line := range lines {
		dst = append(dst, line...)
		dst = append(dst, '\n')
	}
	return dst
}

// AppendDefineDecl appends a #define directive. An empty value yields a
// bare flag define.
func AppendDefineDecl(dst []byte, name, value string) []byte {
	dst = append(dst, "#define "...)
	dst = append(dst, name...)
	if value != "" {
		dst = append(dst, ' ')
		dst = append(dst, value...)
	}
	dst = append(dst, '\n')
	return dst
}

// AppendLineDirective appends a #line directive resetting reported source
// line numbers, used ahead of spliced user shader text so driver compile
// diagnostics point into the user's own code.
func AppendLineDirective(dst []byte, line int) []byte {
	dst = append(dst, "#line "...)
	dst = strconv.AppendInt(dst, int64(line), 10)
	dst = append(dst, '\n')
	return dst
}

func appendVarDecl(dst []byte, qualifier, glslType, name string) []byte {
	dst = append(dst, qualifier...)
	dst = append(dst, glslType...)
	dst = append(dst, ' ')
	dst = append(dst, name...)
	dst = append(dst, ';', '\n')
	return dst
}

func appendStructDecl(dst []byte, s structDecl) []byte {
	dst = append(dst, "struct "...)
	dst = append(dst, s.name...)
	dst = append(dst, "\n{\n"...)
	for _, f := range s.fields {
		dst = append(dst, "    "...)
		dst = append(dst, f.glslType...)
		dst = append(dst, ' ')
		dst = append(dst, f.name...)
		dst = append(dst, ';', '\n')
	}
	dst = append(dst, "};\n"...)
	return dst
}

func appendFunctionDecl(dst []byte, f funcDecl) []byte {
	dst = append(dst, f.signature...)
	dst = append(dst, "\n{\n"...)
	for _, line := range f.lines {
		dst = append(dst, line...)
		dst = append(dst, '\n')
	}
	dst = append(dst, "}\n"...)
	return dst
}

// integerGLSLType reports whether a type cannot be interpolated across a
// primitive and therefore needs flat qualification as a varying.
func integerGLSLType(glslType string) bool {
	switch glslType {
	case "int", "uint":
		return true
	}
	return strings.HasPrefix(glslType, "ivec") || strings.HasPrefix(glslType, "uvec")
}

func appendDecl(decls []decl, d decl) []decl {
	for _, got := range decls {
		if got.name == d.name && got.glslType == d.glslType {
			return decls
		}
	}
	return append(decls, d)
}

func (b *Builder) checkIdent(name string) {
	if name == "" {
		panic("glshader: empty identifier")
	}
	if strings.ContainsAny(name, " \t\n;{}") {
		panic("glshader: malformed identifier " + name)
	}
}

package cesium

import (
	"errors"

	"github.com/HapDragon/cesium/glshader"
)

// CustomShaderStage splices a user's vertex and fragment callbacks into
// the generated program. For each stage with shader text it reconciles the
// attributes the text references against the attributes the primitive
// provides: present attributes are copied (with coordinate-space renaming
// for fragment code), known-but-absent attributes get table defaults, and
// an unknown absent attribute disables that stage with a one-time warning.
// A stage with nothing usable emits nothing at all; the primitive then
// renders through the plain pipeline path.
type CustomShaderStage struct {
	// Shader may be nil, in which case the stage only has to leave the
	// render resources untouched.
	Shader *CustomShader
}

func (CustomShaderStage) Name() string { return "CustomShaderStage" }

// attributePartition classifies one stage's referenced attributes.
// addToShader keys, missingAttributes entries and the skipped position
// builtins are disjoint and together cover the referenced set exactly.
type attributePartition struct {
	addToShader       map[string]AttributeInfo
	missingAttributes []string
}

// partitionAttributes reconciles the primitive's attribute index with the
// set of names one stage's shader text references. Fragment code consumes
// normals and tangents in eye space, so the rename applies forward when
// matching primitive attributes and in reverse when checking whether a
// referenced name is backed by the primitive.
func partitionAttributes(index map[string]AttributeInfo, referenced map[string]struct{}, fragment bool) attributePartition {
	partition := attributePartition{addToShader: make(map[string]AttributeInfo)}
	for name, info := range index {
		facing := name
		if fragment {
			facing = fragmentVariableName(name)
		}
		if _, used := referenced[facing]; used {
			partition.addToShader[facing] = AttributeInfo{VariableName: facing, GLSLType: info.GLSLType}
		}
	}
	for _, name := range sortedKeys(referenced) {
		if name == "positionWC" || name == "positionEC" {
			// Derived builtins, handled by the fragment generator.
			continue
		}
		provided := name
		if fragment {
			provided = modelVariableName(name)
		}
		if _, exists := index[provided]; !exists {
			partition.missingAttributes = append(partition.missingAttributes, name)
		}
	}
	return partition
}

// stageLines is the generated body of one stage: the fields of its
// Attributes struct and the statements of its input-struct initializer.
// A stage is either generated whole or not at all.
type stageLines struct {
	attributeFields     []attributeField
	initializationLines []string
}

type attributeField struct {
	glslType string
	name     string
}

// missingAttributeError disables a stage: the shader references an
// attribute the primitive does not provide and no default is inferable.
type missingAttributeError struct {
	stage     string
	attribute string
}

func (e *missingAttributeError) Error() string {
	return "custom " + e.stage + " shader references attribute " + e.attribute +
		" which the primitive does not provide and has no default"
}

// generateVertexLines produces the vertex stage's struct fields and
// initializer statements from the partition result.
func generateVertexLines(cs *CustomShader, index map[string]AttributeInfo) (stageLines, error) {
	return generateStageLines(cs.usedVertexAttributes, index, false, "vsInput", "vertex")
}

// generateFragmentLines is the fragment analog of generateVertexLines,
// with the position builtins prepended: positionWC and positionEC are
// derived from positionMC by the surrounding pipeline rather than stored
// on the primitive, so they bypass the partition.
func generateFragmentLines(cs *CustomShader, index map[string]AttributeInfo) (stageLines, error) {
	var lines stageLines
	for _, builtin := range []string{"positionWC", "positionEC"} {
		if _, used := cs.usedFragmentAttributes[builtin]; !used {
			continue
		}
		lines.attributeFields = append(lines.attributeFields, attributeField{"vec3", builtin})
		lines.initializationLines = append(lines.initializationLines,
			"    fsInput.attributes."+builtin+" = attributes."+builtin+";")
	}
	rest, err := generateStageLines(cs.usedFragmentAttributes, index, true, "fsInput", "fragment")
	if err != nil {
		return stageLines{}, err
	}
	lines.attributeFields = append(lines.attributeFields, rest.attributeFields...)
	lines.initializationLines = append(lines.initializationLines, rest.initializationLines...)
	return lines, nil
}

func generateStageLines(referenced map[string]struct{}, index map[string]AttributeInfo, fragment bool, inputVar, stageName string) (stageLines, error) {
	partition := partitionAttributes(index, referenced, fragment)
	var lines stageLines
	for _, name := range sortedKeys(partition.addToShader) {
		info := partition.addToShader[name]
		lines.attributeFields = append(lines.attributeFields, attributeField{info.GLSLType, name})
		lines.initializationLines = append(lines.initializationLines,
			"    "+inputVar+".attributes."+name+" = attributes."+name+";")
	}
	for _, name := range partition.missingAttributes {
		glslType, defaultValue, inferable := AttributeDefault(name)
		if !inferable {
			return stageLines{}, &missingAttributeError{stage: stageName, attribute: name}
		}
		lines.attributeFields = append(lines.attributeFields, attributeField{glslType, name})
		lines.initializationLines = append(lines.initializationLines,
			"    "+inputVar+".attributes."+name+" = "+defaultValue+";")
	}
	return lines, nil
}

// generatedCode aggregates both stages' generation results and the
// cross-stage decisions gating every side effect on the shader builder.
type generatedCode struct {
	vertex          stageLines
	fragment        stageLines
	vertexEnabled   bool
	fragmentEnabled bool
	// shouldComputePositionWC is set when enabled fragment code reads the
	// world position, which the vertex stage must then compute and thread
	// through a varying.
	shouldComputePositionWC bool
}

func (g generatedCode) customShaderEnabled() bool { return g.vertexEnabled || g.fragmentEnabled }

// generateShaderCode attempts each stage that has shader text. A stage
// failure only disables that stage; the warning is deduplicated per
// stage and attribute so repeated pipeline passes stay quiet.
func generateShaderCode(cs *CustomShader, index map[string]AttributeInfo, diag *Diagnostics) generatedCode {
	var code generatedCode
	if cs.HasVertexText() {
		lines, err := generateVertexLines(cs, index)
		if err != nil {
			warnDisabled(diag, err)
		} else {
			code.vertex = lines
			code.vertexEnabled = true
		}
	}
	if cs.HasFragmentText() {
		lines, err := generateFragmentLines(cs, index)
		if err != nil {
			warnDisabled(diag, err)
		} else {
			code.fragment = lines
			code.fragmentEnabled = true
		}
	}
	if code.fragmentEnabled {
		_, wantsWC := cs.usedFragmentAttributes["positionWC"]
		code.shouldComputePositionWC = wantsWC
	}
	return code
}

func warnDisabled(diag *Diagnostics, err error) {
	var missing *missingAttributeError
	if errors.As(err, &missing) {
		diag.WarnOnce("CustomShaderStage."+missing.stage+":"+missing.attribute,
			"%s; the custom %s shader is disabled for this primitive", missing, missing.stage)
	}
}

func (s CustomShaderStage) Process(rr *RenderResources, prim *Primitive) error {
	cs := s.Shader
	if cs == nil {
		return nil
	}
	// Lighting and translucency overrides apply even when no shader text
	// survives generation; a custom shader may exist purely to force a
	// primitive opaque or unlit.
	if cs.lightingModel != LightingDefault {
		rr.LightingOptions.Model = cs.lightingModel
	}
	switch cs.translucencyMode {
	case TranslucencyTranslucent:
		rr.AlphaOptions.Pass = PassTranslucent
	case TranslucencyOpaque:
		rr.AlphaOptions.Pass = PassDefault
	}

	code := generateShaderCode(cs, indexAttributes(prim), rr.Diag)
	if !code.customShaderEnabled() {
		return nil
	}
	b := rr.ShaderBuilder
	if code.vertexEnabled {
		emitVertexStage(b, cs, code.vertex)
	}
	if code.fragmentEnabled {
		emitFragmentStage(b, cs, code.fragment)
	}
	if code.shouldComputePositionWC {
		b.AddDefine("COMPUTE_POSITION_WC_CUSTOM_SHADER", "", glshader.DestinationBoth)
	}
	if code.vertexEnabled {
		b.AddDefine("HAS_CUSTOM_VERTEX_SHADER", "", glshader.DestinationVertex)
	}
	if code.fragmentEnabled {
		b.AddDefine("HAS_CUSTOM_FRAGMENT_SHADER", "", glshader.DestinationFragment)
		b.AddDefine(cs.mode.defineName(), "", glshader.DestinationFragment)
	}
	for _, name := range sortedKeys(cs.uniforms) {
		b.AddUniform(cs.uniforms[name].Type.GLSLName(), name, glshader.DestinationBoth)
	}
	for _, name := range sortedKeys(cs.varyings) {
		b.AddVarying(cs.varyings[name].GLSLName(), name)
	}
	// User uniform values win over anything a prior stage registered
	// under the same name.
	for name := range cs.uniforms {
		name := name
		rr.UniformMap[name] = func() any {
			u, _ := cs.Uniform(name)
			return u.Value
		}
	}
	return nil
}

// emitVertexStage adds the vertex half of the custom shader: the
// Attributes struct built from the partition, the VertexInput struct that
// wraps it together with the sibling stages' structs, the VertexOutput
// struct the callback mutates, the input initializer, and finally the raw
// user text behind a line-reset directive so compiler diagnostics point
// into the user's own source.
func emitVertexStage(b *glshader.Builder, cs *CustomShader, lines stageLines) {
	b.AddStruct(structIDAttributesVS, StructNameAttributes, glshader.DestinationVertex)
	addAttributeFields(b, structIDAttributesVS, lines.attributeFields)

	b.AddStruct(structIDVertexInput, StructNameVertexInput, glshader.DestinationVertex)
	b.AddStructField(structIDVertexInput, StructNameAttributes, "attributes")
	b.AddStructField(structIDVertexInput, StructNameFeatureIDs, "featureIds")
	b.AddStructField(structIDVertexInput, StructNameMetadata, "metadata")
	b.AddStructField(structIDVertexInput, StructNameMetadataClass, "metadataClass")

	b.AddStruct(structIDVertexOutput, StructNameVertexOutput, glshader.DestinationVertex)
	b.AddStructField(structIDVertexOutput, "vec3", "positionMC")
	b.AddStructField(structIDVertexOutput, "float", "pointSize")

	b.AddFunction(funcIDInitializeInputStructVS,
		"void initializeInputStruct(out "+StructNameVertexInput+" vsInput, "+
			StructNameProcessedAttributes+" attributes)",
		glshader.DestinationVertex)
	b.AddFunctionLines(funcIDInitializeInputStructVS, lines.initializationLines)

	b.AddVertexLines(userTextLines(cs.vertexText))
}

// emitFragmentStage mirrors emitVertexStage for fragment code. The
// Material struct the callback mutates is owned by the material stage.
func emitFragmentStage(b *glshader.Builder, cs *CustomShader, lines stageLines) {
	b.AddStruct(structIDAttributesFS, StructNameAttributes, glshader.DestinationFragment)
	addAttributeFields(b, structIDAttributesFS, lines.attributeFields)

	b.AddStruct(structIDFragmentInput, StructNameFragmentInput, glshader.DestinationFragment)
	b.AddStructField(structIDFragmentInput, StructNameAttributes, "attributes")
	b.AddStructField(structIDFragmentInput, StructNameFeatureIDs, "featureIds")
	b.AddStructField(structIDFragmentInput, StructNameMetadata, "metadata")
	b.AddStructField(structIDFragmentInput, StructNameMetadataClass, "metadataClass")

	b.AddFunction(funcIDInitializeInputStructFS,
		"void initializeInputStruct(out "+StructNameFragmentInput+" fsInput, "+
			StructNameProcessedAttributes+" attributes)",
		glshader.DestinationFragment)
	b.AddFunctionLines(funcIDInitializeInputStructFS, lines.initializationLines)

	b.AddFragmentLines(userTextLines(cs.fragmentText))
}

func addAttributeFields(b *glshader.Builder, structID string, fields []attributeField) {
	if len(fields) == 0 {
		// GLSL forbids empty structs; a shader that references no
		// attributes still gets a well-formed input struct.
		b.AddStructField(structID, "float", emptyStructField)
		return
	}
	for _, f := range fields {
		b.AddStructField(structID, f.glslType, f.name)
	}
}

func userTextLines(text string) []string {
	var chunk []byte
	chunk = glshader.AppendLineDirective(chunk, 0)
	chunk = append(chunk, text...)
	return splitGLSLLines(string(chunk))
}

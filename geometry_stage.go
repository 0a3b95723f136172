package cesium

import (
	"errors"

	"github.com/HapDragon/cesium/glshader"
)

// GeometryStage declares the primitive's vertex inputs and threads every
// attribute to the fragment stage through a varying. It owns the
// ProcessedAttributes struct of each stage: vertex code sees attributes in
// model space, fragment code sees normals and tangents transformed to eye
// space plus the derived position builtins (positionEC always, positionWC
// when a later stage requests the compute define).
type GeometryStage struct{}

func (GeometryStage) Name() string { return "GeometryStage" }

func (GeometryStage) Process(rr *RenderResources, prim *Primitive) error {
	if _, exists := prim.positionAttribute(); !exists {
		return errors.New("primitive provides no position attribute")
	}
	b := rr.ShaderBuilder

	b.AddUniform("mat4", "u_model", glshader.DestinationVertex)
	b.AddUniform("mat4", "u_view", glshader.DestinationVertex)
	b.AddUniform("mat4", "u_projection", glshader.DestinationVertex)
	b.AddUniform("mat3", "u_normalMatrix", glshader.DestinationVertex)

	b.AddStruct(structIDProcessedAttributesVS, StructNameProcessedAttributes, glshader.DestinationVertex)
	b.AddStruct(structIDProcessedAttributesFS, StructNameProcessedAttributes, glshader.DestinationFragment)
	b.AddFunction(funcIDInitializeAttributesVS,
		"void initializeAttributes(out "+StructNameProcessedAttributes+" attributes)",
		glshader.DestinationVertex)
	b.AddFunction(funcIDInitializeAttributesFS,
		"void initializeAttributes(out "+StructNameProcessedAttributes+" attributes)",
		glshader.DestinationFragment)
	b.AddFunction(funcIDSetDynamicVaryingsVS,
		"void setDynamicVaryings(inout "+StructNameProcessedAttributes+" attributes)",
		glshader.DestinationVertex)

	index := indexAttributes(prim)
	for _, name := range sortedAttributeNames(index) {
		info := index[name]
		b.AddAttribute(info.GLSLType, "a_"+name)
		b.AddStructField(structIDProcessedAttributesVS, info.GLSLType, name)
		b.AddFunctionLines(funcIDInitializeAttributesVS, []string{
			"    attributes." + name + " = a_" + name + ";",
		})

		fragName := fragmentVariableName(name)
		varying := "v_" + fragName
		b.AddVarying(info.GLSLType, varying)
		b.AddStructField(structIDProcessedAttributesFS, info.GLSLType, fragName)
		switch fragName {
		case "normalEC", "tangentEC":
			b.AddFunctionLines(funcIDSetDynamicVaryingsVS, []string{
				"    " + varying + " = normalize(u_normalMatrix * attributes." + name + ");",
			})
			b.AddFunctionLines(funcIDInitializeAttributesFS, []string{
				"    attributes." + fragName + " = normalize(" + varying + ");",
			})
		default:
			b.AddFunctionLines(funcIDSetDynamicVaryingsVS, []string{
				"    " + varying + " = attributes." + name + ";",
			})
			b.AddFunctionLines(funcIDInitializeAttributesFS, []string{
				"    attributes." + fragName + " = " + varying + ";",
			})
		}
	}

	// Eye and world space positions are derived from positionMC by the
	// vertex main function rather than stored on the primitive. The world
	// position copy stays behind its define so the varying read is free
	// for programs that never ask for it.
	b.AddVarying("vec3", "v_positionEC")
	b.AddVarying("vec3", "v_positionWC")
	b.AddStructField(structIDProcessedAttributesFS, "vec3", "positionEC")
	b.AddStructField(structIDProcessedAttributesFS, "vec3", "positionWC")
	b.AddFunctionLines(funcIDInitializeAttributesFS, []string{
		"    attributes.positionEC = v_positionEC;",
		"#ifdef COMPUTE_POSITION_WC_CUSTOM_SHADER",
		"    attributes.positionWC = v_positionWC;",
		"#endif",
	})
	return nil
}

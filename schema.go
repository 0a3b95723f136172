package cesium

// GLSL struct names shared between pipeline stages. Generated structs may
// reference structs contributed by earlier stages, so these names form a
// contract: a stage that declares one owns its layout, and every other
// stage refers to it through these constants. User shader text is written
// against the same names.
const (
	StructNameProcessedAttributes = "ProcessedAttributes"
	StructNameAttributes          = "Attributes"
	StructNameVertexInput         = "VertexInput"
	StructNameFragmentInput       = "FragmentInput"
	StructNameVertexOutput        = "VertexOutput"
	StructNameFeatureIDs          = "FeatureIds"
	StructNameMetadata            = "Metadata"
	StructNameMetadataClass       = "MetadataClass"
	StructNameMaterial            = "Material"
)

// Builder-internal identifiers. Struct ids are distinct per stage because
// the vertex and fragment variants of a struct can carry different fields
// under the same GLSL name.
const (
	structIDProcessedAttributesVS = "ProcessedAttributesVS"
	structIDProcessedAttributesFS = "ProcessedAttributesFS"
	structIDAttributesVS          = "AttributesVS"
	structIDAttributesFS          = "AttributesFS"
	structIDVertexInput           = "VertexInput"
	structIDFragmentInput         = "FragmentInput"
	structIDVertexOutput          = "VertexOutput"
	structIDFeatureIDs            = "FeatureIds"
	structIDMetadata              = "Metadata"
	structIDMetadataClass         = "MetadataClass"
	structIDMaterial              = "MaterialFS"

	funcIDInitializeAttributesVS  = "initializeAttributesVS"
	funcIDInitializeAttributesFS  = "initializeAttributesFS"
	funcIDSetDynamicVaryingsVS    = "setDynamicVaryingsVS"
	funcIDInitializeFeatureIDs    = "initializeFeatureIds"
	funcIDInitializeMetadata      = "initializeMetadata"
	funcIDMaterialColorFS         = "materialColorFS"
	funcIDInitializeInputStructVS = "initializeInputStructVS"
	funcIDInitializeInputStructFS = "initializeInputStructFS"
	funcIDApplyLightingFS         = "applyLightingFS"
)

// Placeholder field emitted into structs that would otherwise be empty,
// which GLSL forbids.
const emptyStructField = "_empty"

// fragmentVariableName maps an attribute's model-space variable name to
// the name fragment code sees. Normals and tangents reach the fragment
// stage in eye coordinates; the vertex stage performs the transform while
// threading them through varyings. Everything else keeps its name.
func fragmentVariableName(name string) string {
	switch name {
	case "normalMC":
		return "normalEC"
	case "tangentMC":
		return "tangentEC"
	}
	return name
}

// modelVariableName is the reverse of fragmentVariableName: given the
// name fragment code references, return the name under which a primitive
// would provide the attribute.
func modelVariableName(name string) string {
	switch name {
	case "normalEC":
		return "normalMC"
	case "tangentEC":
		return "tangentMC"
	}
	return name
}

package cesium

import (
	"sort"
	"strconv"
	"strings"
)

// AttributeSemantic identifies the meaning of a vertex attribute channel,
// following glTF semantics. Set-indexed semantics (texture coordinates,
// colors, joints, weights, feature IDs) carry their set in
// [VertexAttribute.SetIndex].
type AttributeSemantic uint8

const (
	// SemanticCustom is an application-specific attribute named by
	// VertexAttribute.Name, e.g. "_TEMPERATURE".
	SemanticCustom AttributeSemantic = iota
	SemanticPosition
	SemanticNormal
	SemanticTangent
	SemanticBitangent
	SemanticTexCoord
	SemanticColor
	SemanticJoints
	SemanticWeights
	SemanticFeatureID
)

func (s AttributeSemantic) String() string {
	switch s {
	case SemanticCustom:
		return "CUSTOM"
	case SemanticPosition:
		return "POSITION"
	case SemanticNormal:
		return "NORMAL"
	case SemanticTangent:
		return "TANGENT"
	case SemanticBitangent:
		return "BITANGENT"
	case SemanticTexCoord:
		return "TEXCOORD"
	case SemanticColor:
		return "COLOR"
	case SemanticJoints:
		return "JOINTS"
	case SemanticWeights:
		return "WEIGHTS"
	case SemanticFeatureID:
		return "FEATURE_ID"
	}
	return "UNKNOWN"
}

// hasSetIndex reports whether the semantic's variable name carries a
// trailing _<set> suffix.
func (s AttributeSemantic) hasSetIndex() bool {
	switch s {
	case SemanticTexCoord, SemanticColor, SemanticJoints, SemanticWeights, SemanticFeatureID:
		return true
	}
	return false
}

// ComponentType is the storage type of one attribute component.
type ComponentType uint8

const (
	ComponentFloat32 ComponentType = iota
	ComponentInt32
	ComponentUint32
	ComponentUint16
	ComponentUint8
)

func (c ComponentType) isInteger() bool { return c != ComponentFloat32 }

// VertexAttribute describes one per-vertex data channel of a primitive.
// Data is the flattened component stream and is only consumed by preview
// and upload utilities, never by shader generation.
type VertexAttribute struct {
	Semantic       AttributeSemantic
	SetIndex       int
	Name           string // only for SemanticCustom, e.g. "_TEMPERATURE".
	ComponentType  ComponentType
	ComponentCount int
	Data           []float32
}

// Primitive is a drawable mesh unit with a fixed set of vertex attributes.
type Primitive struct {
	Attributes []VertexAttribute
	Material   Material
	// MetadataProperties are per-primitive constant metadata values made
	// available to custom shaders through the Metadata struct.
	MetadataProperties []MetadataProperty
	// VertexCount is the draw count for preview rendering. Zero means
	// derive it from the position attribute.
	VertexCount int
}

// AttributeInfo is the shader-facing identity of a primitive attribute:
// the GLSL variable name it is bound to and its GLSL type. Derived fresh
// on every pipeline pass and immutable afterwards.
type AttributeInfo struct {
	VariableName string
	GLSLType     string
}

// Info derives the shader variable name and GLSL type the attribute is
// exposed under. Attributes whose semantics cannot be deciphered are
// indexed under their sanitized raw name; whether they are usable is the
// partitioner's concern.
func (a VertexAttribute) Info() AttributeInfo {
	var name string
	switch a.Semantic {
	case SemanticPosition:
		name = "positionMC"
	case SemanticNormal:
		name = "normalMC"
	case SemanticTangent:
		name = "tangentMC"
	case SemanticBitangent:
		name = "bitangentMC"
	case SemanticTexCoord:
		name = "texCoord"
	case SemanticColor:
		name = "color"
	case SemanticJoints:
		name = "joints"
	case SemanticWeights:
		name = "weights"
	case SemanticFeatureID:
		name = "featureId"
	default:
		name = sanitizeVariableName(a.Name)
	}
	if a.Semantic.hasSetIndex() {
		name += "_" + strconv.Itoa(a.SetIndex)
	}
	return AttributeInfo{VariableName: name, GLSLType: attributeGLSLType(a)}
}

func attributeGLSLType(a VertexAttribute) string {
	n := a.ComponentCount
	if n < 1 {
		n = 1
	} else if n > 4 {
		n = 4
	}
	if a.ComponentType.isInteger() && a.Semantic == SemanticJoints {
		// Joint indices stay integral for texture-free skinning lookups.
		if n == 1 {
			return "int"
		}
		return "ivec" + strconv.Itoa(n)
	}
	if n == 1 {
		return "float"
	}
	return "vec" + strconv.Itoa(n)
}

// sanitizeVariableName lowercases a raw attribute name and strips it down
// to a valid GLSL identifier. Custom glTF attribute names are prefixed
// with an underscore by convention ("_TEMPERATURE" becomes "temperature").
func sanitizeVariableName(raw string) string {
	raw = strings.TrimLeft(raw, "_")
	if raw == "" {
		return "custom"
	}
	var sb strings.Builder
	for i, r := range strings.ToLower(raw) {
		isAlpha := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		switch {
		case i == 0 && isDigit:
			sb.WriteByte('_')
			sb.WriteRune(r)
		case isAlpha || isDigit || r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// indexAttributes builds the name-keyed lookup of a primitive's attributes.
func indexAttributes(prim *Primitive) map[string]AttributeInfo {
	index := make(map[string]AttributeInfo, len(prim.Attributes))
	for _, a := range prim.Attributes {
		info := a.Info()
		index[info.VariableName] = info
	}
	return index
}

// AttributeDefault infers a GLSL type and default value literal for an
// attribute name whose data a primitive does not provide. The trailing
// set index (underscore plus digits) and coordinate-space suffix (MC/EC)
// are stripped before lookup. ok is false for names with no inferable
// default, e.g. application-specific attributes; a custom shader
// referencing such an attribute on a primitive lacking it cannot run.
func AttributeDefault(name string) (glslType, defaultValue string, ok bool) {
	base := strings.TrimRight(name, "0123456789")
	if len(base) < len(name) && strings.HasSuffix(base, "_") {
		base = base[:len(base)-1]
	} else {
		base = name
	}
	if trimmed, found := strings.CutSuffix(base, "MC"); found {
		base = trimmed
	} else if trimmed, found := strings.CutSuffix(base, "EC"); found {
		base = trimmed
	}
	switch base {
	case "position":
		return "vec3", "vec3(0.0)", true
	case "normal":
		return "vec3", "vec3(0.0, 0.0, 1.0)", true
	case "tangent":
		return "vec3", "vec3(1.0, 0.0, 0.0)", true
	case "bitangent":
		return "vec3", "vec3(0.0, 1.0, 0.0)", true
	case "texCoord":
		return "vec2", "vec2(0.0)", true
	case "color":
		return "vec4", "vec4(1.0)", true
	case "joints":
		return "ivec4", "ivec4(0)", true
	case "weights":
		return "vec4", "vec4(0.0)", true
	}
	return "", "", false
}

// sortedAttributeNames returns the index keys in lexical order. Attribute
// enumeration order never affects emitted semantics, only the readability
// and reproducibility of the generated source.
func sortedAttributeNames(index map[string]AttributeInfo) []string {
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// positionAttribute returns the primitive's model-space position channel.
func (p *Primitive) positionAttribute() (VertexAttribute, bool) {
	for _, a := range p.Attributes {
		if a.Semantic == SemanticPosition {
			return a, true
		}
	}
	return VertexAttribute{}, false
}

func (p *Primitive) hasAttribute(semantic AttributeSemantic) bool {
	for _, a := range p.Attributes {
		if a.Semantic == semantic {
			return true
		}
	}
	return false
}

// DrawCount returns the number of vertices a renderer should draw.
func (p *Primitive) DrawCount() int {
	if p.VertexCount > 0 {
		return p.VertexCount
	}
	pos, exists := p.positionAttribute()
	if !exists || pos.ComponentCount == 0 {
		return 0
	}
	return len(pos.Data) / pos.ComponentCount
}

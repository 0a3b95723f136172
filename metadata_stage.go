package cesium

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/HapDragon/cesium/glshader"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// MetadataProperty is one per-primitive constant exposed to custom shader
// code through the Metadata struct. Accepted value types are float32,
// int32, bool, ms2.Vec, ms3.Vec and [4]float32. Min and Max optionally
// bound the property across the asset and surface as <name>_min and
// <name>_max fields of the MetadataClass struct; when set they must have
// the same type as Value.
type MetadataProperty struct {
	Name     string
	Value    any
	Min, Max any
}

// MetadataStage bakes the primitive's metadata properties into the
// Metadata and MetadataClass structs of both stages. Like the feature ID
// struct, both are declared even when empty.
type MetadataStage struct{}

func (MetadataStage) Name() string { return "MetadataStage" }

func (MetadataStage) Process(rr *RenderResources, prim *Primitive) error {
	b := rr.ShaderBuilder
	b.AddStruct(structIDMetadata, StructNameMetadata, glshader.DestinationBoth)
	b.AddStruct(structIDMetadataClass, StructNameMetadataClass, glshader.DestinationBoth)
	b.AddFunction(funcIDInitializeMetadata,
		"void initializeMetadata(out "+StructNameMetadata+" metadata, out "+
			StructNameMetadataClass+" metadataClass, "+
			StructNameProcessedAttributes+" attributes)",
		glshader.DestinationBoth)

	props := append([]MetadataProperty{}, prim.MetadataProperties...)
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })

	seen := make(map[string]struct{}, len(props))
	classFields := 0
	for _, prop := range props {
		if err := checkShaderIdent(prop.Name); err != nil {
			return fmt.Errorf("metadata property: %w", err)
		}
		if _, dup := seen[prop.Name]; dup {
			return fmt.Errorf("duplicate metadata property %q", prop.Name)
		}
		seen[prop.Name] = struct{}{}

		glslType, literal, err := glslLiteral(prop.Value)
		if err != nil {
			return fmt.Errorf("metadata property %q: %w", prop.Name, err)
		}
		b.AddStructField(structIDMetadata, glslType, prop.Name)
		b.AddFunctionLines(funcIDInitializeMetadata, []string{
			"    metadata." + prop.Name + " = " + literal + ";",
		})

		for _, bound := range []struct {
			suffix string
			value  any
		}{{"_min", prop.Min}, {"_max", prop.Max}} {
			if bound.value == nil {
				continue
			}
			boundType, boundLiteral, err := glslLiteral(bound.value)
			if err != nil {
				return fmt.Errorf("metadata property %q: %w", prop.Name+bound.suffix, err)
			}
			if boundType != glslType {
				return fmt.Errorf("metadata property %q: %s bound on %s property",
					prop.Name+bound.suffix, boundType, glslType)
			}
			b.AddStructField(structIDMetadataClass, boundType, prop.Name+bound.suffix)
			b.AddFunctionLines(funcIDInitializeMetadata, []string{
				"    metadataClass." + prop.Name + bound.suffix + " = " + boundLiteral + ";",
			})
			classFields++
		}
	}

	if len(props) == 0 {
		b.AddStructField(structIDMetadata, "float", emptyStructField)
		b.AddFunctionLines(funcIDInitializeMetadata, []string{
			"    metadata." + emptyStructField + " = 0.0;",
		})
	}
	if classFields == 0 {
		b.AddStructField(structIDMetadataClass, "float", emptyStructField)
		b.AddFunctionLines(funcIDInitializeMetadata, []string{
			"    metadataClass." + emptyStructField + " = 0.0;",
		})
	}
	return nil
}

// glslLiteral renders a Go value as a GLSL literal together with its GLSL
// type.
func glslLiteral(value any) (glslType, literal string, err error) {
	switch v := value.(type) {
	case float32:
		return "float", formatGLSLFloat(v), nil
	case int32:
		return "int", strconv.FormatInt(int64(v), 10), nil
	case bool:
		return "bool", strconv.FormatBool(v), nil
	case ms2.Vec:
		return "vec2", "vec2(" + formatGLSLFloat(v.X) + ", " + formatGLSLFloat(v.Y) + ")", nil
	case ms3.Vec:
		return "vec3", "vec3(" + formatGLSLFloat(v.X) + ", " + formatGLSLFloat(v.Y) + ", " +
			formatGLSLFloat(v.Z) + ")", nil
	case [4]float32:
		return "vec4", "vec4(" + formatGLSLFloat(v[0]) + ", " + formatGLSLFloat(v[1]) + ", " +
			formatGLSLFloat(v[2]) + ", " + formatGLSLFloat(v[3]) + ")", nil
	case nil:
		return "", "", fmt.Errorf("nil value")
	}
	return "", "", fmt.Errorf("unsupported value type %T", value)
}

// formatGLSLFloat renders a float with an explicit decimal point so the
// literal always parses as a GLSL float.
func formatGLSLFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

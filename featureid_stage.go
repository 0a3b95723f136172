package cesium

import (
	"sort"

	"github.com/HapDragon/cesium/glshader"
)

// FeatureIDStage declares the FeatureIds struct and its initializer in
// both stages. Feature ID attributes are stored as floats on the vertex
// stream and exposed to shader code as ints. The struct is declared even
// for primitives without feature IDs so input structs can always embed it.
type FeatureIDStage struct{}

func (FeatureIDStage) Name() string { return "FeatureIdStage" }

func (FeatureIDStage) Process(rr *RenderResources, prim *Primitive) error {
	b := rr.ShaderBuilder
	b.AddStruct(structIDFeatureIDs, StructNameFeatureIDs, glshader.DestinationBoth)
	b.AddFunction(funcIDInitializeFeatureIDs,
		"void initializeFeatureIds(out "+StructNameFeatureIDs+" featureIds, "+
			StructNameProcessedAttributes+" attributes)",
		glshader.DestinationBoth)

	names := featureIDNames(prim)
	if len(names) == 0 {
		b.AddStructField(structIDFeatureIDs, "int", emptyStructField)
		b.AddFunctionLines(funcIDInitializeFeatureIDs, []string{
			"    featureIds." + emptyStructField + " = 0;",
		})
		return nil
	}
	for _, name := range names {
		b.AddStructField(structIDFeatureIDs, "int", name)
		b.AddFunctionLines(funcIDInitializeFeatureIDs, []string{
			"    featureIds." + name + " = int(attributes." + name + ");",
		})
	}
	return nil
}

// featureIDNames lists the primitive's feature ID variable names in set
// order.
func featureIDNames(prim *Primitive) []string {
	var names []string
	for _, a := range prim.Attributes {
		if a.Semantic != SemanticFeatureID {
			continue
		}
		names = append(names, a.Info().VariableName)
	}
	sort.Strings(names)
	return names
}

package cesium

import "github.com/HapDragon/cesium/glshader"

// AlphaStage emits the defines and cutoff uniform for the alpha decision
// accumulated by earlier stages. The pass selection itself stays in
// AlphaOptions for the renderer; only masking affects shader code.
type AlphaStage struct{}

func (AlphaStage) Name() string { return "AlphaStage" }

func (AlphaStage) Process(rr *RenderResources, prim *Primitive) error {
	b := rr.ShaderBuilder
	opts := rr.AlphaOptions
	b.AddDefine(opts.Mode.defineName(), "", glshader.DestinationFragment)
	if opts.Mode == AlphaModeMask {
		cutoff := opts.Cutoff
		b.AddUniform("float", "u_alphaCutoff", glshader.DestinationFragment)
		rr.UniformMap["u_alphaCutoff"] = func() any { return cutoff }
	}
	return nil
}

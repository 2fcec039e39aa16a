package stage

import "github.com/kingrea/mtprep/internal/artifact"

// Base provides common plumbing for stages (identity + IO contracts).
type Base struct {
	info    Info
	inputs  []artifact.ManifestRef
	outputs []artifact.ManifestRef
}

// NewBase seeds the helper with stage info.
func NewBase(info Info) Base {
	return Base{info: info}
}

// SetInputs declares the required manifests.
func (b *Base) SetInputs(refs ...artifact.ManifestRef) {
	b.inputs = append([]artifact.ManifestRef{}, refs...)
}

// SetOutputs declares the produced manifests.
func (b *Base) SetOutputs(refs ...artifact.ManifestRef) {
	b.outputs = append([]artifact.ManifestRef{}, refs...)
}

// Info implements Stage.Info.
func (b *Base) Info() Info {
	return b.info
}

// Inputs implements Stage.Inputs.
func (b *Base) Inputs() []artifact.ManifestRef {
	return append([]artifact.ManifestRef{}, b.inputs...)
}

// Outputs implements Stage.Outputs.
func (b *Base) Outputs() []artifact.ManifestRef {
	return append([]artifact.ManifestRef{}, b.outputs...)
}

// IsComplete reports whether every declared output exists. Stages with
// cleanup obligations override it.
func (b *Base) IsComplete(sc *Context) (bool, error) {
	return sc.Store.AllExist(b.outputs...)
}

package model

// Action is the decision the rename resolver took for one raster
// candidate.
type Action string

// Available Action values.
const (
	// ActionKeep marks a candidate exempted by an opt-out marker.
	ActionKeep Action = "keep"
	// ActionPassthrough marks a candidate already in the target format
	// that was not re-encoded.
	ActionPassthrough Action = "passthrough"
	// ActionConvert marks a candidate transcoded to the target format.
	ActionConvert Action = "convert"
)

// Decision records what happened to one raster candidate during a pass.
type Decision struct {
	Action   Action `yaml:"action"`
	OldName  string `yaml:"old_name"`
	NewName  string `yaml:"new_name"`
	Replaced bool   `yaml:"replaced,omitempty"` // final name collided, bytes overwritten in place
}

// Manifest is the durable record of one pass: every rename applied,
// the intrinsic dimensions of every surviving raster, and the names
// exempted via the opt-out marker. The run command serializes it to
// YAML for downstream tooling.
type Manifest struct {
	Renames    map[string]string     `yaml:"renames"`
	Dimensions map[string]Dimensions `yaml:"dimensions"`
	Kept       []string              `yaml:"kept,omitempty"`
}

// Result summarizes a completed pass.
type Result struct {
	Decisions []Decision
	Manifest  Manifest

	// RewrittenArtifacts counts text-like artifacts and chunks whose
	// content changed during reference rewriting.
	RewrittenArtifacts int
	// ComposedMaps counts chunk source maps replaced with a composed map.
	ComposedMaps int
	// MarkupUpdated counts markup documents changed by the postprocessor.
	MarkupUpdated int
}

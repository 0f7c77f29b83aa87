package domain

// ManualStep is one named script fragment of an Action.
type ManualStep struct {
	Name   string `json:"name" yaml:"name"`
	Script string `json:"script" yaml:"script"`
}

// Action is the leaf execution unit: ordered steps run in one backend session.
type Action struct {
	ID         string          `json:"id" yaml:"id"`
	PipelineID string          `json:"pipeline_id,omitempty" yaml:"pipeline_id,omitempty"`
	Config     EffectiveConfig `json:"config" yaml:"config"`
	Steps      []ManualStep    `json:"steps" yaml:"steps"`
}

// QualifiedID returns "pipeline/action" for pipeline actions and the bare id otherwise.
func (a Action) QualifiedID() string {
	if a.PipelineID == "" {
		return a.ID
	}
	return a.PipelineID + "/" + a.ID
}

// Pipeline is a named, ordered group of Actions.
type Pipeline struct {
	ID      string          `json:"id" yaml:"id"`
	Config  EffectiveConfig `json:"config" yaml:"config"`
	Actions []Action        `json:"actions" yaml:"actions"`
}

// Plan is the resolved, executable view of a configuration document for one pass.
// Only declared-active Pipelines and Actions appear in it.
type Plan struct {
	Config    EffectiveConfig `json:"config" yaml:"config"`
	Pipelines []Pipeline      `json:"pipelines" yaml:"pipelines"`
	Actions   []Action        `json:"actions" yaml:"actions"`
}

// ActionCount returns the number of Actions the plan will execute.
func (p *Plan) ActionCount() int {
	n := len(p.Actions)
	for _, pl := range p.Pipelines {
		n += len(pl.Actions)
	}
	return n
}

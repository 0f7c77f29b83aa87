package domain

// Default values applied when neither a node nor any of its ancestors sets a field.
const (
	DefaultBackend         = "batch"
	DefaultSourceDirectory = "./"
	DefaultOutputDirectory = "./dist/cider"
)

// Shareable holds the fields that are inherited down the configuration hierarchy.
// An empty string means "not set on this node".
type Shareable struct {
	Language        string `json:"language,omitempty" yaml:"language,omitempty"`
	Image           string `json:"image,omitempty" yaml:"image,omitempty"`
	Backend         string `json:"backend,omitempty" yaml:"backend,omitempty"`
	OutputDirectory string `json:"output_directory,omitempty" yaml:"output_directory,omitempty"`
	SourceDirectory string `json:"source_directory,omitempty" yaml:"source_directory,omitempty"`
}

// Defaults returns the fixed fallback values of the shareable fields.
func Defaults() Shareable {
	return Shareable{
		Backend:         DefaultBackend,
		SourceDirectory: DefaultSourceDirectory,
		OutputDirectory: DefaultOutputDirectory,
	}
}

// Decoration holds descriptive fields. They are never interpreted at runtime.
type Decoration struct {
	Title    string            `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	Tags     map[string]string `json:"tags,omitempty" yaml:"tags,omitempty" mapstructure:"tags"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty" mapstructure:"metadata"`
}

// Condition is a named expression attached to a Pipeline or Action.
type Condition struct {
	Name       string `json:"name" yaml:"name"`
	Expression string `json:"expression" yaml:"expression"`
}

// Inert holds fields that are accepted and validated but have no execution effect yet.
// They are carried on the EffectiveConfig so a future scheduler can honour them.
type Inert struct {
	Conditions     []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty" mapstructure:"-"`
	Requires       []string    `json:"requires,omitempty" yaml:"requires,omitempty" mapstructure:"requires"`
	Retries        int         `json:"retries,omitempty" yaml:"retries,omitempty" mapstructure:"retries"`
	AllowedFailure bool        `json:"allowed_failure,omitempty" yaml:"allowed_failure,omitempty" mapstructure:"allowed_failure"`
}

// EffectiveConfig is the resolved configuration of one Pipeline or Action.
// It is computed once per pass and never mutated afterwards.
type EffectiveConfig struct {
	Shareable  `yaml:",inline"`
	Decoration `yaml:",inline"`
	Inert      `yaml:",inline"`
}

// BackendKind parses the resolved backend value.
func (c EffectiveConfig) BackendKind() (BackendKind, error) {
	return ParseBackend(c.Backend)
}

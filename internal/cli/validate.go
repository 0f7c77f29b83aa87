package cli

import (
	"fmt"
	"io"

	"github.com/aretw0/cider"
	"github.com/aretw0/cider/internal/presentation/graph"
	"github.com/aretw0/cider/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Output formats of PrintConfig.
const (
	FormatYAML    = "yaml"
	FormatMermaid = "mermaid"
)

// Validate parses and resolves the document without running anything.
func Validate(w io.Writer, configPath string) error {
	plan, err := loadPlan(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Configuration is valid! ✅ (%d pipeline(s), %d action(s) active)\n",
		len(plan.Pipelines), plan.ActionCount())
	return nil
}

// PrintConfig writes the resolved plan as YAML or as a Mermaid flowchart.
func PrintConfig(w io.Writer, configPath, format string) error {
	plan, err := loadPlan(configPath)
	if err != nil {
		return err
	}

	switch format {
	case "", FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return fmt.Errorf("encode plan: %w", err)
		}
		return enc.Close()
	case FormatMermaid:
		_, err := io.WriteString(w, graph.GenerateMermaid(plan, nil))
		return err
	default:
		return fmt.Errorf("unknown format %q (expected %s or %s)", format, FormatYAML, FormatMermaid)
	}
}

func loadPlan(configPath string) (*domain.Plan, error) {
	eng, err := cider.New(configPath, cider.WithLogger(createLogger(false)))
	if err != nil {
		return nil, err
	}
	return eng.Plan()
}

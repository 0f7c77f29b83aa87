package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/cider/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of a Plan.
// Pipelines become subgraphs with their actions chained in execution order,
// followed by the top-level actions:
// - Pipeline: subgraph labelled with its backend
// - Pipeline action: [Rectangle]
// - Top-level action: [[Subroutine]]
// If report is given, actions are styled by their outcome.
func GenerateMermaid(plan *domain.Plan, report *domain.Report) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	// Execution order between units: pipelines first, then top-level actions.
	var units []string
	for _, p := range plan.Pipelines {
		pid := pipelineID(p.ID)
		units = append(units, pid)
		fmt.Fprintf(&sb, "    subgraph %s[\"%s (%s)\"]\n", pid, label(p.ID), p.Config.Backend)
		prev := ""
		for _, a := range p.Actions {
			aid := actionID(a.QualifiedID())
			fmt.Fprintf(&sb, "        %s[\"%s\"]\n", aid, label(a.ID))
			if prev != "" {
				fmt.Fprintf(&sb, "        %s --> %s\n", prev, aid)
			}
			prev = aid
		}
		sb.WriteString("    end\n")
	}
	for _, a := range plan.Actions {
		aid := actionID(a.QualifiedID())
		units = append(units, aid)
		fmt.Fprintf(&sb, "    %s[[\"%s (%s)\"]]\n", aid, label(a.ID), a.Config.Backend)
	}
	for i := 1; i < len(units); i++ {
		fmt.Fprintf(&sb, "    %s ==> %s\n", units[i-1], units[i])
	}

	if report != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef success fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#c62828,stroke-width:4px,color:#000;\n")
		for _, res := range report.Results() {
			class := "success"
			if res.Status != domain.StatusSuccess {
				class = "failed"
			}
			fmt.Fprintf(&sb, "    class %s %s;\n", actionID(res.QualifiedID()), class)
		}
	}

	return sb.String()
}

func pipelineID(id string) string { return "p_" + sanitizeMermaidID(id) }

func actionID(qualified string) string { return "a_" + sanitizeMermaidID(qualified) }

func label(id string) string {
	return strings.ReplaceAll(id, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

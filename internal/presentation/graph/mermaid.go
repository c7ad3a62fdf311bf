package graph

import (
	"fmt"
	"strings"

	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// Overlay highlights the stages visited by one turn.
type Overlay struct {
	Visited []domain.Stage
	Current domain.Stage
}

// GenerateMermaid produces a Mermaid flowchart from the transition table.
// Stage shapes:
//   - start: ((circle))
//   - tool and specialist (external work): [[subroutine]]
//   - final stages: ([stadium])
//   - others: [rectangle]
//
// Failure edges are drawn dotted so the happy path stays readable.
func GenerateMermaid(transitions []domain.Transition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	declared := make(map[domain.Stage]bool)
	declare := func(s domain.Stage) {
		if declared[s] {
			return
		}
		declared[s] = true
		opener, closer := shape(s)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", s, opener, s, closer)
	}

	for _, t := range transitions {
		declare(t.From)
		declare(t.To)
	}

	for _, t := range transitions {
		arrow := fmt.Sprintf("-- %s -->", t.Signal)
		if t.Signal == domain.SignalFail {
			arrow = fmt.Sprintf("-. %s .->", t.Signal)
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", t.From, arrow, t.To)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.Stage]bool)
		for _, s := range overlay.Visited {
			if s == "" || seen[s] || !declared[s] {
				continue
			}
			seen[s] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", s)
		}
		if overlay.Current != "" && declared[overlay.Current] {
			fmt.Fprintf(&sb, "    class %s current;\n", overlay.Current)
		}
	}

	return sb.String()
}

func shape(s domain.Stage) (string, string) {
	switch {
	case s == domain.StageStart:
		return "((", "))"
	case s == domain.StageTool || s == domain.StageSpecialist:
		return "[[", "]]"
	case s.Final():
		return "([", "])"
	}
	return "[", "]"
}

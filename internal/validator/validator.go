package validator

import (
	"fmt"
	"strings"

	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// ValidateTransitions checks a transition relation for broken links and dead
// stages. Starting from start it crawls every edge and reports:
//   - edges pointing at a stage with no outgoing transitions that is not final
//   - stages declared with edges but never reached
//   - non-final stages without a fail edge
func ValidateTransitions(transitions []domain.Transition, start domain.Stage) error {
	out := make(map[domain.Stage][]domain.Transition)
	for _, t := range transitions {
		out[t.From] = append(out[t.From], t)
	}
	if _, ok := out[start]; !ok {
		return fmt.Errorf("start stage '%s' has no transitions", start)
	}

	visited := make(map[domain.Stage]bool)
	queue := []domain.Stage{start}
	var problems []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		edges, ok := out[current]
		if !ok {
			if !current.Final() {
				problems = append(problems, fmt.Sprintf("Dead end: '%s' is not final and has no transitions", current))
			}
			continue
		}

		hasFail := false
		for _, t := range edges {
			if t.Signal == domain.SignalFail {
				hasFail = true
			}
			if t.To == "" {
				problems = append(problems, fmt.Sprintf("Missing target: '%s' on '%s'", current, t.Signal))
				continue
			}
			if !visited[t.To] {
				queue = append(queue, t.To)
			}
		}
		if !hasFail {
			problems = append(problems, fmt.Sprintf("No failure edge from '%s'", current))
		}
	}

	for from := range out {
		if !visited[from] {
			problems = append(problems, fmt.Sprintf("Unreachable stage: '%s'", from))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(problems), strings.Join(problems, "\n- "))
	}
	return nil
}

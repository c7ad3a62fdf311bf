package workflow

import (
	"fmt"
	"sort"

	"github.com/jorge-rr00/newbackend/internal/validator"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// table is the complete transition relation. A (stage, signal) pair that is
// missing is a programming error and fails the turn as INTERNAL.
var table = map[domain.Stage]map[domain.Signal]domain.Stage{
	domain.StageStart: {
		domain.SignalNext: domain.StageGuardrail,
	},
	domain.StageGuardrail: {
		domain.SignalNext:    domain.StageTool,
		domain.SignalBypass:  domain.StageTool,
		domain.SignalDeclare: domain.StageTerminal,
		domain.SignalReject:  domain.StageRejected,
	},
	domain.StageTool: {
		domain.SignalNext: domain.StageOrchestrator,
	},
	domain.StageOrchestrator: {
		domain.SignalDirect:   domain.StageTerminal,
		domain.SignalDelegate: domain.StageSpecialist,
	},
	domain.StageSpecialist: {
		domain.SignalNext: domain.StageRedactor,
	},
	domain.StageRedactor: {
		domain.SignalNext: domain.StageTerminal,
	},
	domain.StageTerminal: {
		domain.SignalNext: domain.StageCommitted,
	},
}

func init() {
	for _, edges := range table {
		if _, ok := edges[domain.SignalFail]; !ok {
			edges[domain.SignalFail] = domain.StageFailed
		}
	}
	mustBeValid(Transitions())
}

// mustBeValid panics when the table has dead ends, unreachable stages or
// stages that cannot fail.
func mustBeValid(transitions []domain.Transition) {
	if err := validator.ValidateTransitions(transitions, domain.StageStart); err != nil {
		panic(fmt.Sprintf("workflow: invalid transition table: %v", err))
	}
}

// next resolves the stage following from on signal.
func next(from domain.Stage, signal domain.Signal) (domain.Stage, error) {
	edges, ok := table[from]
	if !ok {
		return domain.StageFailed, fmt.Errorf("stage %q has no outgoing transitions", from)
	}
	to, ok := edges[signal]
	if !ok {
		return domain.StageFailed, fmt.Errorf("no transition from %q on %q", from, signal)
	}
	return to, nil
}

var stageOrder = map[domain.Stage]int{
	domain.StageStart:        0,
	domain.StageGuardrail:    1,
	domain.StageTool:         2,
	domain.StageOrchestrator: 3,
	domain.StageSpecialist:   4,
	domain.StageRedactor:     5,
	domain.StageTerminal:     6,
	domain.StageCommitted:    7,
	domain.StageRejected:     8,
	domain.StageFailed:       9,
}

// Transitions lists every edge in a stable order, for rendering and tests.
func Transitions() []domain.Transition {
	var out []domain.Transition
	for from, edges := range table {
		for signal, to := range edges {
			out = append(out, domain.Transition{From: from, Signal: signal, To: to})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.From != b.From {
			return stageOrder[a.From] < stageOrder[b.From]
		}
		if a.To != b.To {
			return stageOrder[a.To] < stageOrder[b.To]
		}
		return a.Signal < b.Signal
	})
	return out
}

// Path returns the stages a committed turn visits for the given route.
func Path(route domain.Route) []domain.Stage {
	switch route {
	case domain.RouteDeclared:
		return []domain.Stage{domain.StageStart, domain.StageGuardrail, domain.StageTerminal, domain.StageCommitted}
	case domain.RouteDirect:
		return []domain.Stage{domain.StageStart, domain.StageGuardrail, domain.StageTool, domain.StageOrchestrator, domain.StageTerminal, domain.StageCommitted}
	case domain.RouteSpecialist:
		return []domain.Stage{domain.StageStart, domain.StageGuardrail, domain.StageTool, domain.StageOrchestrator, domain.StageSpecialist, domain.StageRedactor, domain.StageTerminal, domain.StageCommitted}
	}
	return nil
}

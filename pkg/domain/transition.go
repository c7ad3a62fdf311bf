package domain

// Stage is a state of the turn workflow.
type Stage string

const (
	StageStart        Stage = "start"
	StageGuardrail    Stage = "guardrail"
	StageTool         Stage = "tool"
	StageOrchestrator Stage = "orchestrator"
	StageSpecialist   Stage = "specialist"
	StageRedactor     Stage = "redactor"
	StageTerminal     Stage = "terminal"
	StageCommitted    Stage = "committed"
	StageRejected     Stage = "rejected"
	StageFailed       Stage = "failed"
)

// Final reports whether the stage ends the turn.
func (s Stage) Final() bool {
	return s == StageCommitted || s == StageRejected || s == StageFailed
}

// Signal is the outcome a stage hands back to the engine to select the next stage.
type Signal string

const (
	SignalNext     Signal = "next"
	SignalBypass   Signal = "bypass"
	SignalDeclare  Signal = "declare"
	SignalReject   Signal = "reject"
	SignalDirect   Signal = "direct"
	SignalDelegate Signal = "delegate"
	SignalFail     Signal = "fail"
)

// Transition is one edge of the workflow state machine.
type Transition struct {
	From   Stage  `json:"from" yaml:"from"`
	Signal Signal `json:"signal" yaml:"signal"`
	To     Stage  `json:"to" yaml:"to"`
}

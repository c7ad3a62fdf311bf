package domain

// Mode tells the generation service which workflow step is asking.
type Mode string

const (
	ModeClassify   Mode = "classify"
	ModeRoute      Mode = "route"
	ModeSpecialist Mode = "specialist"
	ModeRedact     Mode = "redact"
)

// PromptMessage is one conversational message of a prompt.
type PromptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is the structured input of a generation call.
type Prompt struct {
	Mode        Mode            `json:"mode"`
	System      string          `json:"system"`
	Messages    []PromptMessage `json:"messages"`
	Temperature float32         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

// Generation is the generation service output.
type Generation struct {
	Text string `json:"text"`
	// NoAnswer is the structured "no answer" signal.
	NoAnswer bool `json:"no_answer,omitempty"`
}

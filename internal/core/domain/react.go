package domain

import "time"

// StepType classifies an entry of a turn's reasoning log.
type StepType string

const (
	StepThought     StepType = "thought"
	StepAction      StepType = "action"
	StepObservation StepType = "observation"
)

// ReasoningStep is one append-only entry of a turn's reasoning log. Index
// starts at 1 and increases monotonically within a turn.
type ReasoningStep struct {
	Index      int                    `json:"index"`
	Type       StepType               `json:"type"`
	Content    string                 `json:"content"`
	Tool       string                 `json:"tool,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Result     interface{}            `json:"result,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// ToolAction is a request to invoke one capability. Reasoning is provenance
// only and never drives execution.
type ToolAction struct {
	Tool       string                 `json:"tool"`
	Parameters map[string]interface{} `json:"parameters"`
	Reasoning  string                 `json:"reasoning"`
}

// Observation is the outcome of a tool invocation. Exactly one of Result and
// Error is meaningful, selected by Success.
type Observation struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentInstallation    Intent = "installation"
	IntentCompatibility   Intent = "compatibility"
	IntentTroubleshooting Intent = "troubleshooting"
	IntentSearch          Intent = "search"
	IntentGreeting        Intent = "greeting"
	IntentGeneral         Intent = "general"
)

// DecisionSource tags how a turn's decision was produced.
type DecisionSource string

const (
	SourceDeterministic   DecisionSource = "deterministic"
	SourceGatewayAssisted DecisionSource = "gateway_assisted"
)

// Decision is the output of the Thinking state. Action is nil when no tool
// is needed; Missing lists parameters the user still has to provide.
type Decision struct {
	Source    DecisionSource `json:"source"`
	Intent    Intent         `json:"intent"`
	Action    *ToolAction    `json:"action,omitempty"`
	Missing   []string       `json:"missing,omitempty"`
	Reasoning string         `json:"reasoning"`
}

// TurnState is a state of the per-turn orchestration machine.
type TurnState string

const (
	TurnIdle         TurnState = "idle"
	TurnThinking     TurnState = "thinking"
	TurnActingOnTool TurnState = "acting_on_tool"
	TurnFinalizing   TurnState = "finalizing"
	TurnDone         TurnState = "done"
)

// SessionContext carries identifiers mentioned earlier in a conversation.
// PendingIntent is set when the previous turn stopped to ask for a missing
// parameter, so a bare answer ("PS11752778") resumes that intent.
type SessionContext struct {
	PartNumber    string   `json:"partNumber,omitempty"`
	ModelNumber   string   `json:"modelNumber,omitempty"`
	Category      Category `json:"category,omitempty"`
	PendingIntent Intent   `json:"pendingIntent,omitempty"`
}

// Empty reports whether no field is set.
func (c SessionContext) Empty() bool {
	return c.PartNumber == "" && c.ModelNumber == "" && c.Category == "" && c.PendingIntent == ""
}

// TurnInput is everything one turn needs.
type TurnInput struct {
	SessionID string         `json:"sessionId"`
	Message   string         `json:"message"`
	Context   SessionContext `json:"context"`
}

// TurnResult is the complete, well-formed output of a turn.
type TurnResult struct {
	TurnID    string          `json:"turnId"`
	SessionID string          `json:"sessionId"`
	Response  string          `json:"response"`
	Reasoning []ReasoningStep `json:"reasoning"`
	Products  []Product       `json:"products"`
	Intent    Intent          `json:"intent"`
	Source    DecisionSource  `json:"source"`
	Tool      string          `json:"tool,omitempty"`
	State     TurnState       `json:"state"`
	Error     string          `json:"error,omitempty"`
	Context   SessionContext  `json:"context"`
	Duration  time.Duration   `json:"duration"`
	Timestamp time.Time       `json:"timestamp"`
}

// IntentMatch is the output of rule-based classification: the intent, the
// tool it maps to (empty for greeting/general), extracted parameters and the
// required parameters the message did not provide.
type IntentMatch struct {
	Intent  Intent                 `json:"intent"`
	Tool    string                 `json:"tool,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Missing []string               `json:"missing,omitempty"`
}

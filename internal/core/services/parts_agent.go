package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

const synthesisPrompt = `You are a helpful appliance parts assistant for refrigerators and dishwashers.
Rewrite the draft answer below so it reads naturally and directly answers the user's question.
Keep every part number, price, availability, step and warning exactly as given. Do not add facts that are not in the tool result.`

var toolIntents = map[string]domain.Intent{
	ToolSearchProducts:       domain.IntentSearch,
	ToolCheckCompatibility:   domain.IntentCompatibility,
	ToolInstallationGuide:    domain.IntentInstallation,
	ToolTroubleshootingGuide: domain.IntentTroubleshooting,
}

// PartsAgent runs one Think, Act, Observe, Finalize pass per user message.
// It keeps no per-turn state on the struct: every call builds its own turn
// value, so one agent serves any number of sessions concurrently.
type PartsAgent struct {
	logger     *slog.Logger
	tools      *domain.ToolRegistry
	classifier *IntentClassifier
	gateway    *LLMGateway
	metrics    *Metrics
	synthesize bool
}

// AgentOption configures a PartsAgent.
type AgentOption func(*PartsAgent)

// WithGateway attaches an LLM gateway for tool selection and, with
// WithSynthesis, answer phrasing.
func WithGateway(g *LLMGateway) AgentOption {
	return func(a *PartsAgent) { a.gateway = g }
}

func WithMetrics(m *Metrics) AgentOption {
	return func(a *PartsAgent) { a.metrics = m }
}

// WithSynthesis lets the gateway rephrase successful tool answers.
func WithSynthesis(enabled bool) AgentOption {
	return func(a *PartsAgent) { a.synthesize = enabled }
}

func WithClassifier(c *IntentClassifier) AgentOption {
	return func(a *PartsAgent) { a.classifier = c }
}

func NewPartsAgent(logger *slog.Logger, tools *domain.ToolRegistry, opts ...AgentOption) *PartsAgent {
	a := &PartsAgent{
		logger:     logger,
		tools:      tools,
		classifier: NewDefaultIntentClassifier(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// turn is the state of a single orchestration pass. It is created fresh by
// Run and discarded afterwards.
type turn struct {
	id       string
	input    domain.TurnInput
	state    domain.TurnState
	start    time.Time
	steps    []domain.ReasoningStep
	decision domain.Decision
	params   map[string]interface{}
	obs      *domain.Observation
	toolErr  error
	products []domain.Product
	seen     map[string]bool
	response string
	errText  string
	context  domain.SessionContext
}

func newTurn(in domain.TurnInput) *turn {
	return &turn{
		id:      uuid.NewString(),
		input:   in,
		state:   domain.TurnIdle,
		start:   time.Now(),
		steps:   []domain.ReasoningStep{},
		seen:    make(map[string]bool),
		context: in.Context,
	}
}

func (t *turn) record(typ domain.StepType, content, tool string, params map[string]interface{}, result interface{}) {
	t.steps = append(t.steps, domain.ReasoningStep{
		Index:      len(t.steps) + 1,
		Type:       typ,
		Content:    content,
		Tool:       tool,
		Parameters: params,
		Result:     result,
		Timestamp:  time.Now(),
	})
}

func (t *turn) hasThought() bool {
	for _, s := range t.steps {
		if s.Type == domain.StepThought {
			return true
		}
	}
	return false
}

// addProducts appends products not yet seen; the first occurrence of a
// canonical part number wins.
func (t *turn) addProducts(ps ...domain.Product) {
	for _, p := range ps {
		key := domain.NormalizePartNumber(p.PartNumber)
		if key == "" || t.seen[key] {
			continue
		}
		t.seen[key] = true
		t.products = append(t.products, p)
	}
}

func (t *turn) result() *domain.TurnResult {
	products := t.products
	if products == nil {
		products = []domain.Product{}
	}
	tool := ""
	if t.decision.Action != nil {
		tool = t.decision.Action.Tool
	}
	return &domain.TurnResult{
		TurnID:    t.id,
		SessionID: t.input.SessionID,
		Response:  t.response,
		Reasoning: t.steps,
		Products:  products,
		Intent:    t.decision.Intent,
		Source:    t.decision.Source,
		Tool:      tool,
		State:     t.state,
		Error:     t.errText,
		Context:   t.context,
		Duration:  time.Since(t.start),
		Timestamp: t.start,
	}
}

// Run processes one message. It never panics and never returns nil: any
// unexpected failure is recorded as an observation and turned into an
// apology.
func (a *PartsAgent) Run(ctx context.Context, in domain.TurnInput) (res *domain.TurnResult) {
	t := newTurn(in)
	logger := a.logger.With("session_id", in.SessionID, "turn_id", t.id)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("turn panicked", "panic", r, "stack", string(debug.Stack()))
			if !t.hasThought() {
				t.record(domain.StepThought, "Started processing the message.", "", nil, nil)
			}
			t.record(domain.StepObservation, "Internal error while processing the turn.", "", nil, nil)
			t.obs = &domain.Observation{Success: false, Error: "internal error"}
			if t.decision.Intent == "" {
				t.decision.Intent = domain.IntentGeneral
			}
			if t.decision.Source == "" {
				t.decision.Source = domain.SourceDeterministic
			}
			t.response = genericApology
			t.errText = "internal error"
			t.state = domain.TurnDone
			res = t.result()
		}
		a.metrics.ObserveTurn(string(res.Intent), string(res.Source), res.Duration)
		logger.Info("turn completed",
			"intent", res.Intent,
			"source", res.Source,
			"tool", res.Tool,
			"error", res.Error,
			"duration", res.Duration,
		)
	}()

	a.think(ctx, t, logger)
	if t.decision.Action != nil {
		t.state = domain.TurnActingOnTool
		a.act(ctx, t, logger)
	}
	a.finalize(ctx, t, logger)
	t.state = domain.TurnDone
	return t.result()
}

// think produces the turn's decision, preferring the gateway when it is
// configured and answers with a valid decision.
func (a *PartsAgent) think(ctx context.Context, t *turn, logger *slog.Logger) {
	t.state = domain.TurnThinking
	msg := strings.TrimSpace(t.input.Message)
	sc := t.input.Context

	if msg == "" {
		t.decision = domain.Decision{
			Source:    domain.SourceDeterministic,
			Intent:    domain.IntentGeneral,
			Reasoning: "Empty message; nothing to classify.",
		}
		t.record(domain.StepThought, t.decision.Reasoning, "", nil, nil)
		return
	}

	if a.gateway.Configured() {
		decision, params, err := a.gatewayDecision(ctx, msg, sc)
		if err == nil {
			t.decision = decision
			t.params = params
			t.record(domain.StepThought, decision.Reasoning, "", nil, nil)
			return
		}
		reason := fallbackReason(err)
		a.metrics.GatewayFallback("decision", reason)
		logger.Warn("gateway decision unavailable, using rules", "reason", reason, "error", err)
		t.record(domain.StepThought, fmt.Sprintf("Gateway unavailable (%s); using rule-based classification.", reason), "", nil, nil)
	}

	m := a.classify(msg, sc)
	t.params = m.Params
	t.decision = domain.Decision{
		Source:  domain.SourceDeterministic,
		Intent:  m.Intent,
		Missing: m.Missing,
	}

	switch {
	case m.Tool == "":
		t.decision.Reasoning = fmt.Sprintf("Classified as %s; no tool needed.", m.Intent)
	case len(m.Missing) > 0:
		t.decision.Reasoning = fmt.Sprintf("Classified as %s but %s is missing; asking the user.", m.Intent, strings.Join(m.Missing, ", "))
	default:
		if _, ok := a.tools.GetTool(m.Tool); !ok {
			t.decision.Reasoning = fmt.Sprintf("Classified as %s but tool %s is not registered; no action.", m.Intent, m.Tool)
			break
		}
		t.decision.Action = &domain.ToolAction{
			Tool:       m.Tool,
			Parameters: m.Params,
			Reasoning:  fmt.Sprintf("Rule-based %s intent maps to %s.", m.Intent, m.Tool),
		}
		t.decision.Reasoning = fmt.Sprintf("Classified as %s; calling %s with %s.", m.Intent, m.Tool, formatParams(m.Params))
	}
	t.record(domain.StepThought, t.decision.Reasoning, "", nil, nil)
}

// classify applies the rules and resumes an intent the previous turn left
// waiting for a parameter when the reply carries an identifier.
func (a *PartsAgent) classify(msg string, sc domain.SessionContext) domain.IntentMatch {
	m := a.classifier.Classify(msg, sc)
	if sc.PendingIntent == "" || (m.Intent != domain.IntentSearch && m.Intent != domain.IntentGeneral) {
		return m
	}
	u := parseUtterance(msg)
	if len(u.PartNumbers) == 0 && len(u.Models) == 0 {
		return m
	}
	if resumed, ok := a.classifier.ClassifyAs(sc.PendingIntent, msg, sc); ok {
		return resumed
	}
	return m
}

// gatewayDecision asks the gateway for the turn's action. The returned
// parameters are the action's, completed from the session context; they are
// kept even when a required one is missing so the follow-up question can
// mention what is already known.
func (a *PartsAgent) gatewayDecision(ctx context.Context, msg string, sc domain.SessionContext) (domain.Decision, map[string]interface{}, error) {
	action, err := a.gateway.GenerateToolAction(ctx, msg, a.tools.ListTools())
	if err != nil {
		return domain.Decision{}, nil, err
	}

	d := domain.Decision{Source: domain.SourceGatewayAssisted}
	if action == nil {
		d.Intent = domain.IntentGeneral
		if rules := a.classifier.Classify(msg, sc); rules.Tool == "" {
			d.Intent = rules.Intent
		}
		d.Reasoning = "Gateway decided no tool is needed."
		return d, nil, nil
	}

	tool, ok := a.tools.GetTool(action.Tool)
	if !ok {
		d.Intent = domain.IntentGeneral
		d.Reasoning = fmt.Sprintf("Gateway chose unknown tool %q; no action.", action.Tool)
		return d, nil, nil
	}
	d.Intent = toolIntents[tool.Name]
	if d.Intent == "" {
		d.Intent = domain.IntentGeneral
	}

	d.Missing = fillFromContext(tool, action.Parameters, sc)
	if len(d.Missing) > 0 {
		d.Reasoning = fmt.Sprintf("Gateway chose %s but %s is missing; asking the user.", tool.Name, strings.Join(d.Missing, ", "))
		return d, action.Parameters, nil
	}

	if err := tool.CheckParams(action.Parameters); err != nil {
		return domain.Decision{}, nil, fmt.Errorf("%w: %w", domain.ErrMalformedDecision, err)
	}

	d.Action = action
	reasoning := strings.TrimSpace(action.Reasoning)
	if reasoning == "" {
		reasoning = fmt.Sprintf("Gateway selected %s.", tool.Name)
	}
	d.Reasoning = fmt.Sprintf("%s Calling %s with %s.", reasoning, tool.Name, formatParams(action.Parameters))
	return d, action.Parameters, nil
}

// fillFromContext fills parameters the tool declares but the action lacks
// from the session context, then reports required ones still missing.
func fillFromContext(tool *domain.Tool, params map[string]interface{}, sc domain.SessionContext) []string {
	fallback := map[string]string{
		"partNumber":  sc.PartNumber,
		"modelNumber": sc.ModelNumber,
		"category":    string(sc.Category),
	}
	for name := range tool.Parameters.Properties {
		if !isBlank(params[name]) {
			continue
		}
		if v := fallback[name]; v != "" {
			params[name] = v
		}
	}
	var missing []string
	for _, name := range tool.Parameters.Required {
		if isBlank(params[name]) {
			missing = append(missing, name)
		}
	}
	return missing
}

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedDecision):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// act performs the single tool invocation of the turn.
func (a *PartsAgent) act(ctx context.Context, t *turn, logger *slog.Logger) {
	action := t.decision.Action
	t.record(domain.StepAction, fmt.Sprintf("Calling %s.", action.Tool), action.Tool, action.Parameters, nil)

	start := time.Now()
	result, err := a.tools.Execute(ctx, action.Tool, action.Parameters)
	a.metrics.ObserveTool(action.Tool, err == nil, time.Since(start))

	if err != nil {
		logger.Info("tool failed", "tool", action.Tool, "error", err)
		t.toolErr = err
		t.errText = err.Error()
		t.obs = &domain.Observation{Success: false, Error: err.Error()}
		t.record(domain.StepObservation, fmt.Sprintf("%s failed: %v", action.Tool, err), action.Tool, nil, nil)
		return
	}

	t.obs = &domain.Observation{Success: true, Result: result}
	t.record(domain.StepObservation, observationSummary(result), action.Tool, nil, result)
	t.collect(result)
}

// collect pulls the products a result mentions and remembers identifiers
// for the next turn.
func (t *turn) collect(result interface{}) {
	switch r := result.(type) {
	case domain.ProductSearchResult:
		for _, sp := range r.Result.Products {
			t.addProducts(sp.Product)
		}
		if r.Result.ExactMatch {
			p := r.Result.Products[0].Product
			t.context.PartNumber = p.PartNumber
			t.context.Category = p.Category
		}
	case domain.CompatibilityReport:
		if r.Result.Part != nil {
			t.addProducts(*r.Result.Part)
			t.context.Category = r.Result.Part.Category
		}
		t.addProducts(r.Result.AlternativeParts...)
	case domain.InstallationGuide:
		t.addProducts(r.Part)
		t.context.Category = r.Part.Category
	case domain.TroubleshootingGuide:
		t.addProducts(r.RecommendedParts...)
		t.context.Category = r.Category
	}
}

func observationSummary(result interface{}) string {
	switch r := result.(type) {
	case domain.ProductSearchResult:
		return r.Summary
	case domain.CompatibilityReport:
		return fmt.Sprintf("Compatible: %t (confidence %.1f). %s", r.Result.IsCompatible, r.Result.Confidence, r.Result.Reason)
	case domain.InstallationGuide:
		return r.Summary
	case domain.TroubleshootingGuide:
		return fmt.Sprintf("Matched %q with %d diagnostic steps and %d recommended parts.", r.MatchedSymptom, len(r.DiagnosticSteps), len(r.RecommendedParts))
	}
	return "Tool returned a result."
}

// finalize composes the user-facing text and the context to carry forward.
func (a *PartsAgent) finalize(ctx context.Context, t *turn, logger *slog.Logger) {
	t.state = domain.TurnFinalizing
	if t.obs == nil || t.obs.Success {
		t.rememberParams()
	}

	switch {
	case t.obs == nil && len(t.decision.Missing) > 0:
		t.response = formatMissing(t.decision.Intent, t.decision.Missing, t.params)
		t.context.PendingIntent = t.decision.Intent
		return
	case t.obs == nil:
		t.response = capabilityOverview(t.decision.Intent)
	case !t.obs.Success:
		t.response = formatFailure(t.toolErr)
	default:
		t.response = formatToolResult(t.obs.Result)
		if a.synthesize && a.gateway.Configured() {
			t.response = a.synthesizeAnswer(ctx, t, logger)
		}
	}
	t.context.PendingIntent = ""
}

// rememberParams copies identifiers used this turn into the session context.
func (t *turn) rememberParams() {
	if pn, _ := t.params["partNumber"].(string); strings.TrimSpace(pn) != "" {
		t.context.PartNumber = domain.NormalizePartNumber(pn)
	}
	if model, _ := t.params["modelNumber"].(string); strings.TrimSpace(model) != "" {
		t.context.ModelNumber = strings.ToUpper(strings.TrimSpace(model))
	}
	if cat, _ := t.params["category"].(string); domain.Category(strings.ToLower(cat)).Valid() {
		t.context.Category = domain.Category(strings.ToLower(cat))
	}
}

func (a *PartsAgent) synthesizeAnswer(ctx context.Context, t *turn, logger *slog.Logger) string {
	draft := t.response
	payload, err := json.Marshal(t.obs.Result)
	if err != nil {
		return draft
	}
	messages := []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: synthesisPrompt},
		{Role: domain.ChatRoleUser, Content: fmt.Sprintf("Question: %s\n\nTool result (JSON): %s\n\nDraft answer:\n%s", t.input.Message, payload, draft)},
	}
	text, err := a.gateway.GenerateResponse(ctx, messages)
	if err != nil {
		reason := fallbackReason(err)
		a.metrics.GatewayFallback("synthesis", reason)
		logger.Warn("gateway synthesis unavailable, using template", "reason", reason, "error", err)
		t.record(domain.StepThought, "Gateway could not phrase the answer; using the templated response.", "", nil, nil)
		return draft
	}
	t.record(domain.StepThought, "Gateway phrased the final answer.", "", nil, nil)
	return text
}

func formatParams(params map[string]interface{}) string {
	if len(params) == 0 {
		return "no parameters"
	}
	b, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%v", params)
	}
	return string(b)
}

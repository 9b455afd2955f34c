package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Tool is a named, schema-validated, side-effect-free capability.
type Tool struct {
	Name        string
	Description string
	Parameters  ToolParameters
	Execute     ToolExecutor
	// Validate checks params without executing. Optional.
	Validate func(params map[string]interface{}) error
}

// CheckParams runs the tool's Validate hook; tools without one accept any
// params here and validate inside Execute.
func (t *Tool) CheckParams(params map[string]interface{}) error {
	if t.Validate == nil {
		return nil
	}
	return t.Validate(params)
}

// ToolParameters defines the JSON schema for tool inputs
type ToolParameters struct {
	Type       string                 `json:"type"`       // "object"
	Properties map[string]interface{} `json:"properties"` // param definitions
	Required   []string               `json:"required"`   // required param names
}

// ToolExecutor is the function signature for tool execution
type ToolExecutor func(ctx context.Context, params map[string]interface{}) (interface{}, error)

var (
	ErrToolNotFound      = errors.New("tool not found")
	ErrInvalidParameters = errors.New("invalid parameters")
)

// ToolRegistry is a name-keyed lookup of capabilities. Registering an existing
// name replaces the previous tool.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewToolRegistry creates a new empty registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool to the registry, overwriting any tool with the same name.
func (r *ToolRegistry) Register(tool *Tool) error {
	_, err := r.RegisterReplacing(tool)
	return err
}

// RegisterReplacing is Register that also reports whether an existing tool
// was overwritten, so callers can log it.
func (r *ToolRegistry) RegisterReplacing(tool *Tool) (bool, error) {
	if tool == nil || tool.Name == "" {
		return false, fmt.Errorf("tool name cannot be empty")
	}
	if tool.Execute == nil {
		return false, fmt.Errorf("tool %s has no executor", tool.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced := r.tools[tool.Name]
	r.tools[tool.Name] = tool
	return replaced, nil
}

// Execute runs a tool with given parameters. Unknown names fail with
// ErrToolNotFound; the error names the closest registered tool when there is one.
func (r *ToolRegistry) Execute(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	tool, ok := r.GetTool(name)
	if !ok {
		if match := r.Suggest(name); match != "" {
			return nil, fmt.Errorf("%w: %s (did you mean %s?)", ErrToolNotFound, name, match)
		}
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool.Execute(ctx, params)
}

// Suggest finds the registered name closest to input using word-overlap
// scoring with Levenshtein distance as tiebreaker. Returns "" when no
// registered name shares a word with input.
func (r *ToolRegistry) Suggest(input string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inputWords := splitToolWords(input)

	bestName := ""
	bestScore := 0

	for _, name := range r.sortedNamesLocked() {
		score := wordOverlapScore(inputWords, splitToolWords(name))
		if score > bestScore {
			bestScore = score
			bestName = name
		} else if score == bestScore && score > 0 {
			if levenshtein(input, name) < levenshtein(input, bestName) {
				bestName = name
			}
		}
	}

	if bestScore >= 1 {
		return bestName
	}
	return ""
}

func splitToolWords(name string) []string {
	parts := []string{}
	for _, p := range strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	}) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func wordOverlapScore(a, b []string) int {
	set := make(map[string]bool, len(b))
	for _, w := range b {
		set[w] = true
	}
	score := 0
	for _, w := range a {
		if set[w] {
			score++
		}
	}
	return score
}

func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, min(prev[j]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

// GetTool returns a tool by name
func (r *ToolRegistry) GetTool(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// ListTools returns all registered tools ordered by name
func (r *ToolRegistry) ListTools() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := r.sortedNamesLocked()
	tools := make([]*Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Names returns the registered tool names in sorted order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNamesLocked()
}

func (r *ToolRegistry) sortedNamesLocked() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatToolsForPrompt generates a concise description of available tools for LLM prompt.
func (r *ToolRegistry) FormatToolsForPrompt() string {
	return FormatTools(r.ListTools())
}

// FormatTools renders tools in the compact prompt format:
// name: description | params | required.
func FormatTools(tools []*Tool) string {
	var sb strings.Builder
	sb.WriteString("Available Tools:\n")
	for _, tool := range tools {
		reqParams := ""
		if len(tool.Parameters.Required) > 0 {
			reqParams = " | required: " + strings.Join(tool.Parameters.Required, ", ")
		}

		paramsList := ""
		if len(tool.Parameters.Properties) > 0 {
			names := make([]string, 0, len(tool.Parameters.Properties))
			for pName := range tool.Parameters.Properties {
				names = append(names, pName)
			}
			sort.Strings(names)
			parts := make([]string, 0, len(names))
			for _, pName := range names {
				pType := "any"
				if pm, ok := tool.Parameters.Properties[pName].(map[string]interface{}); ok {
					if t, ok := pm["type"].(string); ok {
						pType = t
					}
				}
				parts = append(parts, pName+":"+pType)
			}
			paramsList = " | params: {" + strings.Join(parts, ", ") + "}"
		}

		fmt.Fprintf(&sb, "- %s: %s%s%s\n", tool.Name, tool.Description, paramsList, reqParams)
	}
	return sb.String()
}

package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnparseable is returned when classifier output holds no plan that fits
// the expected schema.
var ErrUnparseable = errors.New("llm: unparseable classifier output")

// Actions the classifier may choose.
const (
	ActionCreateProject = "create_project"
	ActionAskKnowledge  = "ask_knowledge"
	ActionNoTool        = "NO_TOOL"
)

var knownActions = map[string]bool{
	ActionCreateProject: true,
	ActionAskKnowledge:  true,
	ActionNoTool:        true,
}

// Plan is the classifier's decision for one turn.
type Plan struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

// ExtractJSON returns the first well-formed JSON object embedded in text,
// skipping code fences and surrounding prose.
func ExtractJSON(text string) (json.RawMessage, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return raw, true
		}
	}
	return nil, false
}

// ParsePlan extracts and validates a Plan from model output. Anything other
// than an object with a known string action and an object (or absent)
// params field is rejected.
func ParsePlan(text string) (Plan, error) {
	raw, ok := ExtractJSON(text)
	if !ok {
		return Plan{}, fmt.Errorf("%w: no JSON object found", ErrUnparseable)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	var plan Plan
	if err := json.Unmarshal(fields["action"], &plan.Action); err != nil {
		return Plan{}, fmt.Errorf("%w: action must be a string", ErrUnparseable)
	}
	if !knownActions[plan.Action] {
		return Plan{}, fmt.Errorf("%w: unknown action %q", ErrUnparseable, plan.Action)
	}

	plan.Params = map[string]any{}
	if p, ok := fields["params"]; ok && !bytes.Equal(bytes.TrimSpace(p), []byte("null")) {
		if err := json.Unmarshal(p, &plan.Params); err != nil {
			return Plan{}, fmt.Errorf("%w: params must be an object", ErrUnparseable)
		}
	}
	return plan, nil
}

// LooksStructured reports whether generated text is data rather than prose.
func LooksStructured(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return true
	}
	if strings.HasPrefix(t, "```") {
		return true
	}
	if t[0] == '{' || t[0] == '[' {
		return json.Valid([]byte(t)) || strings.HasSuffix(t, "}") || strings.HasSuffix(t, "]")
	}
	return false
}

package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

const classifySystem = `You are the orchestrator of a project-management assistant.
Extract only NEW information from the user's message to fill the project form, or pick the tool to call.

Tools:
1. create_project: create a new project.
   params: company_id, workspace_id, name, code, start_date, end_date, priority, description
2. ask_knowledge: questions about processes, policies or documentation.
   params: query

Rules:
- Read the history. Keep facts that are already known; do not repeat them unless the user changes them.
- When the user names a company or workspace (e.g. "TechVision"), put the name in the matching *_id field; the system maps names to ids.
- A short answer to a question the assistant just asked ("ABC" after "Which workspace?") fills that field.
- Questions about knowledge or procedures route to ask_knowledge.
- Otherwise use NO_TOOL.

Answer with exactly one JSON object: {"action": "create_project" | "ask_knowledge" | "NO_TOOL", "params": {...}}`

func classifyPrompt(question string, snapshot map[string]any, history []Message) string {
	var b strings.Builder
	b.WriteString("Current form state: ")
	b.WriteString(mustJSON(snapshot))
	b.WriteString("\n")
	if len(history) > 0 {
		b.WriteString("Conversation history:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "[%s]: %s\n", m.Role, m.Content)
		}
	}
	fmt.Fprintf(&b, "User message: %q", question)
	return b.String()
}

const respondSystem = `You write the final reply of a project-management assistant.
Reply in the user's language, briefly and warmly, as plain prose.
Mention the key facts (project name, code, company, workspace, start and end dates, id) in natural sentences.
Never answer with JSON, markdown or code blocks.`

func respondPrompt(question string, result any) string {
	return fmt.Sprintf("User said: %q\nSystem result (JSON): %s", question, mustJSON(result))
}

const followupSystem = `You are collecting details to create a project.
Ask for the missing fields in one or two short, friendly, conversational sentences in the user's language.
Do not list the fields mechanically and do not give orders.`

func followupPrompt(missing []string, snapshot map[string]any) string {
	return fmt.Sprintf("Missing fields: %s.\nKnown so far: %s", strings.Join(missing, ", "), mustJSON(snapshot))
}

// FollowupFallback is asked when the model cannot phrase the question.
func FollowupFallback(missing []string) string {
	return fmt.Sprintf("I still need: %s. Could you fill those in?", strings.Join(missing, ", "))
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

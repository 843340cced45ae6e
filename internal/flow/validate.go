package flow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cortexhub/orchestrator-gateway/internal/backend"
	"github.com/cortexhub/orchestrator-gateway/internal/extract"
	"github.com/cortexhub/orchestrator-gateway/internal/session"
)

const minTextLen = 2

// Validate checks the collected fields and returns one message per broken
// rule, in a fixed order.
func Validate(s *session.Session) []string {
	var problems []string

	start, end := s.Get(session.StartDate), s.Get(session.EndDate)
	startOK := start == "" || extract.IsNormalized(start)
	endOK := end == "" || extract.IsNormalized(end)
	if !startOK {
		problems = append(problems, "The start date must be a real date in yyyy-MM-dd format.")
	}
	if !endOK {
		problems = append(problems, "The end date must be a real date in yyyy-MM-dd format.")
	}
	if start != "" && end != "" && startOK && endOK && start > end {
		problems = append(problems, "The start date must be on or before the end date.")
	}

	if name := s.Get(session.Name); name != "" && utf8.RuneCountInString(name) < minTextLen {
		problems = append(problems, fmt.Sprintf("The project name needs at least %d characters.", minTextLen))
	}
	if code := s.Get(session.Code); code != "" && utf8.RuneCountInString(code) < minTextLen {
		problems = append(problems, fmt.Sprintf("The project code needs at least %d characters.", minTextLen))
	}
	return problems
}

const placeholder = "(not set)"

// Summary renders every form field, unset ones included, in a fixed order.
func Summary(s *session.Session) string {
	row := func(label, v string) string {
		if v == "" {
			v = placeholder
		}
		return label + ": " + v
	}
	return strings.Join([]string{
		row("Name", s.Get(session.Name)),
		row("Code", s.Get(session.Code)),
		row("Company", label(s, session.CompanyName, session.CompanyID)),
		row("Workspace", label(s, session.WorkspaceName, session.WorkspaceID)),
		row("Start", s.Get(session.StartDate)),
		row("End", s.Get(session.EndDate)),
		row("Priority", s.Get(session.Priority)),
		row("Description", s.Get(session.Description)),
	}, " | ")
}

// ProjectCreated is the templated success reply.
func ProjectCreated(p backend.Project, s *session.Session) string {
	company := label(s, session.CompanyName, session.CompanyID)
	if company == "" {
		company = "(unknown company)"
	}
	workspace := label(s, session.WorkspaceName, session.WorkspaceID)
	if workspace == "" {
		workspace = "(unknown workspace)"
	}
	name := firstNonEmpty(p.Name, s.Get(session.Name))
	code := firstNonEmpty(p.ProjectCode, s.Get(session.Code))
	start := firstNonEmpty(p.StartDate, s.Get(session.StartDate))
	end := firstNonEmpty(p.DueDate, s.Get(session.EndDate), "none")
	return fmt.Sprintf("Project %q (ID: %d) was created with code %q. Company: %s; Workspace: %s; Start: %s; End: %s.",
		name, p.ID, code, company, workspace, start, end)
}

func label(s *session.Session, nameField, idField session.Field) string {
	return firstNonEmpty(s.Get(nameField), s.Get(idField))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Package resolver turns the company and workspace references a user typed
// into backend identifiers the caller is a member of.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/cortexhub/orchestrator-gateway/internal/backend"
	"github.com/cortexhub/orchestrator-gateway/internal/logging"
	"github.com/cortexhub/orchestrator-gateway/internal/session"
)

const (
	ReloginMessage         = "Your login has expired or is invalid. Please sign in again and retry."
	ConnectionErrorMessage = "I could not reach the backend to look up your companies and workspaces. Please try again in a moment."
	NoCompanyMessage       = "Your account does not belong to any company yet, so I cannot create a project for you."
)

// Identity looks up the memberships of a credential's owner.
type Identity interface {
	CurrentUser(ctx context.Context, token string) (*backend.User, error)
}

// Resolver maps free-text company and workspace references to ids.
type Resolver struct {
	identity Identity
	logger   *slog.Logger
}

// New creates a resolver backed by identity.
func New(identity Identity) *Resolver {
	return &Resolver{
		identity: identity,
		logger:   logging.WithComponent("resolver"),
	}
}

type option struct {
	id   int64
	name string
}

// Resolve fills company_id/company_name and workspace_id/workspace_name in s.
// A non-empty return is guidance for the user and ends the turn.
func (r *Resolver) Resolve(ctx context.Context, s *session.Session, token, text string) string {
	log := logging.FromContext(ctx, r.logger)

	user, err := r.identity.CurrentUser(ctx, token)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			log.Info("identity lookup rejected credential", "token_ref", logging.TokenRef(token))
			return ReloginMessage
		}
		log.Warn("identity lookup failed", "error", err)
		return ConnectionErrorMessage
	}

	companies := make([]option, 0, len(user.CompanyMemberships))
	for _, m := range user.CompanyMemberships {
		companies = append(companies, option{id: m.CompanyID, name: m.CompanyName})
	}
	if len(companies) == 0 {
		return NoCompanyMessage
	}

	company, ok := pick(companies, reference(s, session.CompanyID, session.CompanyName), text)
	if !ok {
		unset(s, session.CompanyID, session.CompanyName)
		return "Which company should the project belong to? You can choose: " + names(companies) + "."
	}
	assign(s, session.CompanyID, session.CompanyName, company)

	var workspaces []option
	for _, m := range user.WorkspaceMemberships {
		if m.CompanyID == company.id {
			workspaces = append(workspaces, option{id: m.WorkspaceID, name: m.WorkspaceName})
		}
	}
	if len(workspaces) == 0 {
		unset(s, session.WorkspaceID, session.WorkspaceName)
		return fmt.Sprintf("You do not have access to any workspace in %s. Please join or create one first.", company.name)
	}

	workspace, ok := pick(workspaces, reference(s, session.WorkspaceID, session.WorkspaceName), text)
	if !ok {
		unset(s, session.WorkspaceID, session.WorkspaceName)
		return fmt.Sprintf("Which workspace in %s should I use? You can choose: %s.", company.name, names(workspaces))
	}
	assign(s, session.WorkspaceID, session.WorkspaceName, workspace)

	log.Debug("context resolved", "company_id", company.id, "workspace_id", workspace.id)
	return ""
}

// reference is what the user said about a field: its id slot, or the
// display name when only that was captured.
func reference(s *session.Session, idField, nameField session.Field) string {
	if v := s.Get(idField); v != "" {
		return v
	}
	return s.Get(nameField)
}

// pick runs the three resolution steps: the stored reference, a scan of
// the raw text, and the single-option default.
func pick(options []option, ref, text string) (option, bool) {
	if ref != "" {
		if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
			for _, o := range options {
				if o.id == id {
					return o, true
				}
			}
		} else if o, ok := matchName(options, ref); ok {
			return o, true
		}
	}
	if o, ok := scanText(options, text); ok {
		return o, true
	}
	if len(options) == 1 {
		return options[0], true
	}
	return option{}, false
}

// matchName accepts a match when either normalized string contains the
// other. A unique exact match wins over several partial ones.
func matchName(options []option, ref string) (option, bool) {
	want := normalize(ref)
	if want == "" {
		return option{}, false
	}
	var matches []option
	for _, o := range options {
		name := normalize(o.name)
		if name == "" {
			continue
		}
		if name == want {
			return o, true
		}
		if strings.Contains(name, want) || strings.Contains(want, name) {
			matches = append(matches, o)
		}
	}
	if len(matches) == 1 {
		return matches[0], true
	}
	return option{}, false
}

// scanText looks for option names inside the turn text. The longest match
// wins; two different options of the same length are ambiguous.
func scanText(options []option, text string) (option, bool) {
	haystack := normalize(text)
	if haystack == "" {
		return option{}, false
	}
	var best option
	bestLen, ties := 0, 0
	for _, o := range options {
		name := normalize(o.name)
		if name == "" || !strings.Contains(haystack, name) {
			continue
		}
		switch {
		case len(name) > bestLen:
			best, bestLen, ties = o, len(name), 1
		case len(name) == bestLen:
			ties++
		}
	}
	if ties != 1 {
		return option{}, false
	}
	return best, true
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFC.String(s))), " ")
}

func assign(s *session.Session, idField, nameField session.Field, o option) {
	s.Set(idField, strconv.FormatInt(o.id, 10))
	s.Set(nameField, o.name)
}

func unset(s *session.Session, fields ...session.Field) {
	for _, f := range fields {
		s.Set(f, "")
	}
}

func names(options []option) string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.name
	}
	return strings.Join(out, ", ")
}

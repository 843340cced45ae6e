package session

import (
	"errors"
	"maps"
)

// ErrNoToken is returned when a write is attempted without a conversation token.
var ErrNoToken = errors.New("session: conversation token required")

// Field names a slot of the create-project form.
type Field string

const (
	Name          Field = "name"
	Code          Field = "code"
	CompanyID     Field = "company_id"
	CompanyName   Field = "company_name"
	WorkspaceID   Field = "workspace_id"
	WorkspaceName Field = "workspace_name"
	StartDate     Field = "start_date"
	EndDate       Field = "end_date"
	Priority      Field = "priority"
	Description   Field = "description"
)

// PendingConfirmationKey is the flat-snapshot key of the confirmation flag.
const PendingConfirmationKey = "pending_confirmation"

// Fields lists every form slot in display order.
var Fields = []Field{Name, Code, CompanyID, CompanyName, WorkspaceID, WorkspaceName, StartDate, EndDate, Priority, Description}

// Required are the slots that must be filled before confirmation.
var Required = []Field{CompanyID, WorkspaceID, Name, Code, StartDate, EndDate}

// Tracked are the slots compared when computing a turn's change set.
var Tracked = []Field{Name, Code, StartDate, EndDate, CompanyID, WorkspaceID, CompanyName, WorkspaceName}

// Known reports whether key names a form slot.
func Known(key string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == key {
			return f, true
		}
	}
	return "", false
}

// Session is the flat form state of one conversation.
type Session struct {
	values              map[Field]string
	PendingConfirmation bool
}

// New returns an empty session.
func New() *Session {
	return &Session{values: make(map[Field]string)}
}

// Get returns the value of f, or "" when unset.
func (s *Session) Get(f Field) string {
	if s == nil {
		return ""
	}
	return s.values[f]
}

// Set stores v under f. An empty v unsets the field.
func (s *Session) Set(f Field, v string) {
	if s.values == nil {
		s.values = make(map[Field]string)
	}
	if v == "" {
		delete(s.values, f)
		return
	}
	s.values[f] = v
}

// Has reports whether f holds a non-empty value.
func (s *Session) Has(f Field) bool {
	return s.Get(f) != ""
}

// Clone returns an independent copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return New()
	}
	return &Session{values: maps.Clone(s.values), PendingConfirmation: s.PendingConfirmation}
}

// IsEmpty reports whether the session holds no form state at all.
func (s *Session) IsEmpty() bool {
	return s == nil || (len(s.values) == 0 && !s.PendingConfirmation)
}

// InFlow reports whether the conversation is part-way through the create
// flow: a confirmation is pending or any core create field is set.
func (s *Session) InFlow() bool {
	if s == nil {
		return false
	}
	if s.PendingConfirmation {
		return true
	}
	for _, f := range Required {
		if s.Has(f) {
			return true
		}
	}
	return false
}

// Missing returns the required fields that are still empty, in Required order.
func (s *Session) Missing() []Field {
	var missing []Field
	for _, f := range Required {
		if !s.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Snapshot renders the session as the flat object returned to callers and
// shown to the language model. The confirmation flag appears only when set.
func (s *Session) Snapshot() map[string]any {
	out := make(map[string]any)
	if s == nil {
		return out
	}
	for f, v := range s.values {
		out[string(f)] = v
	}
	if s.PendingConfirmation {
		out[PendingConfirmationKey] = true
	}
	return out
}

// Package merge folds the three per-turn signal sources (stored session,
// intent classifier output, deterministic text extraction) into a single
// candidate parameter set, recording where every value came from.
//
// The fold order is fixed:
//
//  1. stored session
//  2. classifier params (name dropped unless the text names something)
//  3. deterministic text extraction: explicit name/code statements and
//     the date range stated in this turn
//  4. date normalization, whatever the source
//
// Later steps override earlier ones per field, so a date written in the
// turn beats a stored or classifier date. Only captured name/code text is
// trimmed at the next field keyword; classifier and stored values are kept
// as they are.
package merge

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cortexhub/orchestrator-gateway/internal/extract"
	"github.com/cortexhub/orchestrator-gateway/internal/session"
)

// Source tells which step produced a candidate value.
type Source int

const (
	SourceNone Source = iota
	SourceSession
	SourceClassifier
	SourceTextHint
	SourceDateRange
)

func (s Source) String() string {
	switch s {
	case SourceSession:
		return "session"
	case SourceClassifier:
		return "classifier"
	case SourceTextHint:
		return "text_hint"
	case SourceDateRange:
		return "date_range"
	default:
		return "none"
	}
}

// Value is a candidate field value tagged with its provenance.
type Value struct {
	Text   string
	Source Source
}

// Candidate is the merged parameter set for one turn.
type Candidate struct {
	values              map[session.Field]Value
	PendingConfirmation bool
}

// Get returns the merged value of f.
func (c *Candidate) Get(f session.Field) string {
	return c.values[f].Text
}

// Source returns the provenance of f.
func (c *Candidate) Source(f session.Field) Source {
	return c.values[f].Source
}

// Provenance maps each set field to the step that produced it.
func (c *Candidate) Provenance() map[string]string {
	out := make(map[string]string, len(c.values))
	for f, v := range c.values {
		out[string(f)] = v.Source.String()
	}
	return out
}

// Session materializes the candidate as a session ready to be stored.
func (c *Candidate) Session() *session.Session {
	s := session.New()
	for f, v := range c.values {
		s.Set(f, v.Text)
	}
	s.PendingConfirmation = c.PendingConfirmation
	return s
}

func (c *Candidate) set(f session.Field, text string, src Source) {
	if text == "" {
		return
	}
	c.values[f] = Value{Text: text, Source: src}
}

// ChangeSet lists the tracked fields a turn changed.
type ChangeSet []session.Field

// Has reports whether f changed.
func (cs ChangeSet) Has(f session.Field) bool {
	for _, c := range cs {
		if c == f {
			return true
		}
	}
	return false
}

// Empty reports whether nothing changed.
func (cs ChangeSet) Empty() bool {
	return len(cs) == 0
}

// Strings returns the field names.
func (cs ChangeSet) Strings() []string {
	out := make([]string, len(cs))
	for i, f := range cs {
		out[i] = string(f)
	}
	return out
}

// DefaultNameKeywords must appear in a turn, as whole words, before a
// classifier-supplied name is trusted.
var DefaultNameKeywords = []string{"tên", "ten", "project", "dự án", "du an", "name", "called"}

// Engine runs the merge fold.
type Engine struct {
	NameKeywords []string
	Now          func() time.Time
}

// NewEngine returns an engine with the default keyword list and wall clock.
func NewEngine(nameKeywords []string) *Engine {
	if len(nameKeywords) == 0 {
		nameKeywords = DefaultNameKeywords
	}
	return &Engine{NameKeywords: nameKeywords, Now: time.Now}
}

// Merge builds the turn's candidate from the stored session, the classifier
// params and the raw text, and reports which tracked fields changed.
func (e *Engine) Merge(prior *session.Session, classifier map[string]any, text string) (*Candidate, ChangeSet) {
	now := e.now()
	c := &Candidate{values: make(map[session.Field]Value)}

	// 1. stored session
	for _, f := range session.Fields {
		c.set(f, prior.Get(f), SourceSession)
	}
	c.PendingConfirmation = prior != nil && prior.PendingConfirmation

	// 2. classifier params
	allowName := e.mentionsName(text)
	for key, raw := range classifier {
		f, ok := session.Known(key)
		if !ok {
			continue
		}
		if f == session.Name && !allowName {
			continue
		}
		c.set(f, stringify(raw), SourceClassifier)
	}

	// 3. deterministic extraction
	hints := extract.NameCode(text)
	c.set(session.Name, hints.Name, SourceTextHint)
	c.set(session.Code, hints.Code, SourceTextHint)
	dates := extract.DateRange(text, now)
	c.set(session.StartDate, dates.Start, SourceDateRange)
	c.set(session.EndDate, dates.End, SourceDateRange)

	// 4. normalization
	for _, f := range []session.Field{session.StartDate, session.EndDate} {
		if v, ok := c.values[f]; ok {
			v.Text = extract.NormalizeDate(v.Text, now)
			c.values[f] = v
		}
	}
	if v, ok := c.values[session.Priority]; ok {
		v.Text = strings.ToUpper(strings.TrimSpace(v.Text))
		c.values[session.Priority] = v
	}

	return c, changes(prior, c)
}

func changes(prior *session.Session, c *Candidate) ChangeSet {
	var cs ChangeSet
	for _, f := range session.Tracked {
		v := c.Get(f)
		if v != "" && v != prior.Get(f) {
			cs = append(cs, f)
		}
	}
	return cs
}

func (e *Engine) mentionsName(text string) bool {
	words := extract.Words(text)
	for _, k := range e.NameKeywords {
		if extract.ContainsPhrase(words, extract.Words(k)) {
			return true
		}
	}
	return false
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// stringify flattens a decoded JSON scalar into a form value. Objects,
// arrays and nulls are dropped.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return ""
	}
}

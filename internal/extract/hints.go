package extract

import (
	"regexp"
	"strings"
)

var (
	nameRe = regexp.MustCompile(`(?i)(?:t(?:ê|e)n\s+l(?:à|a)\s+|\bnamed\s+|\bcalled\s+|\bname\s+is\s+)([^,.;\n]+)`)
	codeRe = regexp.MustCompile(`(?i)(?:m(?:ã|a)\s+code|\bcode)\s+(?:l(?:à|a)\s+|is\s+)?([^,.;\n]+)`)

	// fieldRe marks where a captured name or code runs into the next field.
	fieldRe = regexp.MustCompile(`(?i)(m(?:ã|a)\s+code|\bcode\b|b(?:ắ|a)t\s+(?:đ|d)(?:ầ|a)u|k(?:ế|e)t\s+th(?:ú|u)c)`)
	// dateTailRe marks a trailing day/month token together with its connector.
	dateTailRe = regexp.MustCompile(`(?i)\s(?:(?:từ|tu|from|đến|den|to|until)\s+)?\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\b`)
)

// Hints are values stated explicitly in a turn ("named Apollo", "code AP01").
type Hints struct {
	Name string
	Code string
}

// NameCode extracts explicitly stated name and code values.
func NameCode(text string) Hints {
	var h Hints
	if text == "" {
		return h
	}
	if m := nameRe.FindStringSubmatch(text); m != nil {
		h.Name = Sanitize(m[1])
	}
	if m := codeRe.FindStringSubmatch(text); m != nil {
		h.Code = Sanitize(m[1])
	}
	return h
}

// Sanitize trims a captured name or code at the first field keyword or day/month
// token after its start, and strips surrounding quotes. A keyword at the very
// start belongs to the value ("CODE-01").
func Sanitize(v string) string {
	v = strings.TrimSpace(v)
	for _, re := range []*regexp.Regexp{fieldRe, dateTailRe} {
		for _, loc := range re.FindAllStringIndex(v, -1) {
			if loc[0] > 0 {
				v = v[:loc[0]]
				break
			}
		}
	}
	v = strings.TrimSpace(v)
	v = strings.Trim(v, `"'“”`)
	return strings.TrimSpace(v)
}

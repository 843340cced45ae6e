// Package extract holds the deterministic text extractors used to pre-fill
// the create-project form: date ranges and explicit name/code statements.
// Everything here is pure; callers pass the clock in.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DateLayout is the canonical date format sent to the backend.
const DateLayout = "2006-01-02"

var (
	// ISO dates are matched first so "2026-01-15" is not read as 26-01-15.
	dayMonthRe = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})|(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?`)
	monthRe    = regexp.MustCompile(`(?i)(?:th(?:á|a)ng|\bmonth)\s+(\d{1,2})(?:\s+(?:(?:n(?:ă|a)m)|of(?:\s+year)?)\s+(\d{4}))?`)

	isoRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	fullDateRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)
	shortRe    = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})$`)
)

// Range is a start/end pair in DateLayout. Either side may be empty.
type Range struct {
	Start string
	End   string
}

type dateToken struct {
	day, month, year int
}

type monthToken struct {
	month, year int
}

// DateRange pulls a start/end pair out of free text. Two or more day/month
// tokens give start and end; one gives start only. A month phrase ("tháng 2",
// "month 2 of 2026") fills the full calendar month when no day token exists,
// otherwise only the missing end.
func DateRange(text string, now time.Time) Range {
	var r Range
	if text == "" {
		return r
	}
	text = norm.NFC.String(text)

	days, months := tokens(text, now)
	switch {
	case len(days) >= 2:
		r.Start = days[0].format()
		r.End = days[1].format()
	case len(days) == 1:
		r.Start = days[0].format()
	}

	if len(months) > 0 {
		first, last := monthBounds(months[0].month, months[0].year)
		if r.Start == "" {
			r.Start = first
			r.End = last
		} else if r.End == "" {
			r.End = last
		}
	}
	return r
}

func tokens(text string, now time.Time) ([]dateToken, []monthToken) {
	var days []dateToken
	for _, m := range dayMonthRe.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			days = append(days, newDateToken(atoi(m[3]), atoi(m[2]), atoi(m[1])))
			continue
		}
		year := now.Year()
		if m[6] != "" {
			year = expandYear(m[6])
		}
		days = append(days, newDateToken(atoi(m[4]), atoi(m[5]), year))
	}

	var months []monthToken
	for _, m := range monthRe.FindAllStringSubmatch(text, -1) {
		year := now.Year()
		if m[2] != "" {
			year = atoi(m[2])
		}
		months = append(months, monthToken{month: clamp(atoi(m[1]), 1, 12), year: year})
	}
	return days, months
}

func newDateToken(day, month, year int) dateToken {
	month = clamp(month, 1, 12)
	day = clamp(day, 1, daysIn(month, year))
	return dateToken{day: day, month: month, year: year}
}

func (t dateToken) format() string {
	return fmt.Sprintf("%04d-%02d-%02d", t.year, t.month, t.day)
}

func monthBounds(month, year int) (string, string) {
	return fmt.Sprintf("%04d-%02d-01", year, month),
		fmt.Sprintf("%04d-%02d-%02d", year, month, daysIn(month, year))
}

func daysIn(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NormalizeDate rewrites dd/MM/yyyy, dd-MM-yyyy, dd/MM and dd-MM into
// DateLayout. Two-digit years land in the 2000s and missing years take
// now's year. Values already in DateLayout, and anything unrecognised, are
// returned trimmed but otherwise unchanged.
func NormalizeDate(value string, now time.Time) string {
	txt := strings.TrimSpace(value)
	if txt == "" || isoRe.MatchString(txt) {
		return txt
	}
	if m := fullDateRe.FindStringSubmatch(txt); m != nil {
		return fmt.Sprintf("%04d-%02d-%02d", expandYear(m[3]), atoi(m[2]), atoi(m[1]))
	}
	if m := shortRe.FindStringSubmatch(txt); m != nil {
		return fmt.Sprintf("%04d-%02d-%02d", now.Year(), atoi(m[2]), atoi(m[1]))
	}
	return txt
}

// IsNormalized reports whether value is a real calendar date in DateLayout.
func IsNormalized(value string) bool {
	if !isoRe.MatchString(value) {
		return false
	}
	_, err := time.Parse(DateLayout, value)
	return err == nil
}

func expandYear(s string) int {
	y := atoi(s)
	if len(s) == 2 {
		return 2000 + y
	}
	return y
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

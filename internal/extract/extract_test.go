package extract

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func TestDateRange_TwoTokens(t *testing.T) {
	r := DateRange("bắt đầu 15/01/2026 đến 20/01/2026", fixedNow)
	assert.Equal(t, "2026-01-15", r.Start)
	assert.Equal(t, "2026-01-20", r.End)
}

func TestDateRange_SingleTokenIsStartOnly(t *testing.T) {
	r := DateRange("start on 3-4", fixedNow)
	assert.Equal(t, "2026-04-03", r.Start)
	assert.Empty(t, r.End)
}

func TestDateRange_MonthOnly(t *testing.T) {
	r := DateRange("làm trong tháng 2", fixedNow)
	assert.Equal(t, "2026-02-01", r.Start)
	assert.Equal(t, "2026-02-28", r.End)
}

func TestDateRange_DecomposedMonthPhrase(t *testing.T) {
	r := DateRange("trong tha\u0301ng 2", fixedNow)
	assert.Equal(t, Range{Start: "2026-02-01", End: "2026-02-28"}, r)
}

func TestDateRange_MonthWithYear(t *testing.T) {
	r := DateRange("tháng 2 năm 2028", fixedNow)
	assert.Equal(t, "2028-02-01", r.Start)
	assert.Equal(t, "2028-02-29", r.End)

	r = DateRange("during month 12 of 2025", fixedNow)
	assert.Equal(t, "2025-12-01", r.Start)
	assert.Equal(t, "2025-12-31", r.End)
}

func TestDateRange_MonthFillsMissingEnd(t *testing.T) {
	r := DateRange("từ 10/02 trong tháng 2", fixedNow)
	assert.Equal(t, "2026-02-10", r.Start)
	assert.Equal(t, "2026-02-28", r.End)
}

func TestDateRange_ISOTokens(t *testing.T) {
	r := DateRange("from 2026-01-15 to 2026-02-01", fixedNow)
	assert.Equal(t, "2026-01-15", r.Start)
	assert.Equal(t, "2026-02-01", r.End)
}

func TestDateRange_TwoDigitYear(t *testing.T) {
	r := DateRange("05/06/27", fixedNow)
	assert.Equal(t, "2027-06-05", r.Start)
}

func TestDateRange_NoDates(t *testing.T) {
	assert.Equal(t, Range{}, DateRange("create a project named Apollo", fixedNow))
	assert.Equal(t, Range{}, DateRange("", fixedNow))
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-01-15", "2026-01-15"},
		{"15/01/2026", "2026-01-15"},
		{"15-01-2026", "2026-01-15"},
		{"5/1/26", "2026-01-05"},
		{"15/01", "2026-01-15"},
		{"7-9", "2026-09-07"},
		{" 2026-01-15 ", "2026-01-15"},
		{"next monday", "next monday"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDate(tt.in, fixedNow), "input %q", tt.in)
	}
}

func TestNormalizeDate_LeftInverseOfFormatting(t *testing.T) {
	for _, sep := range []string{"/", "-"} {
		for year := 2024; year <= 2028; year++ {
			for month := 1; month <= 12; month++ {
				for _, day := range []int{1, 9, 15, daysIn(month, year)} {
					original := fmt.Sprintf("%02d%s%02d%s%04d", day, sep, month, sep, year)
					normalized := NormalizeDate(original, fixedNow)
					parsed, err := time.Parse(DateLayout, normalized)
					if !assert.NoError(t, err, original) {
						continue
					}
					back := parsed.Format("02" + sep + "01" + sep + "2006")
					assert.Equal(t, original, back)
				}
			}
		}
	}
}

func TestIsNormalized(t *testing.T) {
	assert.True(t, IsNormalized("2026-02-28"))
	assert.False(t, IsNormalized("2026-02-31"))
	assert.False(t, IsNormalized("15/01/2026"))
}

func TestNameCode(t *testing.T) {
	h := NameCode("Tạo dự án tên là Apollo, mã code là AP01")
	assert.Equal(t, "Apollo", h.Name)
	assert.Equal(t, "AP01", h.Code)

	h = NameCode("create a project named Apollo code AP01 from 15/01/2026")
	assert.Equal(t, "Apollo", h.Name)
	assert.Equal(t, "AP01", h.Code)

	h = NameCode("code CODE-01")
	assert.Equal(t, "CODE-01", h.Code)

	h = NameCode("named Road to 2030, code RT30")
	assert.Equal(t, "Road to 2030", h.Name)
	assert.Equal(t, "RT30", h.Code)

	h = NameCode(`actually make the code "XYZ"`)
	assert.Empty(t, h.Name)
	assert.Equal(t, "XYZ", h.Code)

	assert.Equal(t, Hints{}, NameCode("yes please"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Apollo", Sanitize("Apollo bắt đầu 15/01"))
	assert.Equal(t, "Apollo", Sanitize(`"Apollo" kết thúc 20/01`))
	assert.Equal(t, "Frontend", Sanitize("Frontend"))
}

func TestSanitize_CutsAtDateTail(t *testing.T) {
	assert.Equal(t, "AP01", Sanitize("AP01 từ 15/01/2026 đến 20/01/2026"))
	assert.Equal(t, "AP01", Sanitize("AP01 15/01"))
	assert.Equal(t, "Quỹ từ thiện", Sanitize("Quỹ từ thiện"))
}

func TestSanitize_KeepsOrdinaryWords(t *testing.T) {
	for _, v := range []string{"Quick Start Portal", "Road to 2030", "Migration from 2024", "Ending Hunger", "CODE-01", "Code Review Bot"} {
		assert.Equal(t, v, Sanitize(v), v)
	}
}

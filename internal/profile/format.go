// internal/profile/format.go
package profile

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// usd renders grouped digits ("100,000") for salary strings.
var usd = message.NewPrinter(language.AmericanEnglish)

// dateLayouts are tried in order when parsing profile dates. Profiles are
// hand-edited JSON, so entries show up in whatever shape the user typed.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"01/02/2006",
	"1/2/2006",
	"01/2006",
	"1/2006",
	"January 2, 2006",
	"January 2006",
	"Jan 2006",
	"2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// formatDate normalizes a date string to YYYY-MM-DD, the interchange shape
// date inputs accept. Unparseable input passes through unchanged rather
// than being destroyed.
func formatDate(s string) string {
	if t, ok := parseDate(s); ok {
		return t.Format("2006-01-02")
	}
	return s
}

func todayISO() string {
	return time.Now().Format("2006-01-02")
}

// formatSalary renders one amount as "$100,000".
func formatSalary(amount int) string {
	return usd.Sprintf("$%d", amount)
}

// salaryRange renders preferences as "$100,000 - $150,000". With only one
// bound set it renders that bound alone.
func salaryRange(min, max int) (string, bool) {
	switch {
	case min > 0 && max > 0:
		return formatSalary(min) + " - " + formatSalary(max), true
	case min > 0:
		return formatSalary(min), true
	case max > 0:
		return formatSalary(max), true
	default:
		return "", false
	}
}

// experienceYears sums the month span of every work entry and rounds to
// whole years, with a floor of one. Open-ended entries run to now. ok is
// false when no entry has a parseable start date.
func experienceYears(entries []schemas.WorkExperience, now time.Time) (int, bool) {
	months := 0.0
	counted := false
	for _, e := range entries {
		start, ok := parseDate(e.StartDate)
		if !ok {
			continue
		}
		end := now
		if e.EndDate != "" {
			if t, ok := parseDate(e.EndDate); ok {
				end = t
			}
		}
		if end.Before(start) {
			continue
		}
		counted = true
		months += monthsBetween(start, end)
	}
	if !counted {
		return 0, false
	}
	years := int(math.Round(months / 12))
	if years < 1 {
		years = 1
	}
	return years, true
}

func monthsBetween(start, end time.Time) float64 {
	whole := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	frac := float64(end.Day()-start.Day()) / 30.0
	return float64(whole) + frac
}

// formatForField adapts a resolved value to what the field's input type can
// hold: ISO dates for date inputs, bare digits for number inputs.
func formatForField(field schemas.FieldDescriptor, value string) string {
	switch field.Type {
	case schemas.FieldDate:
		return formatDate(value)
	case schemas.FieldNumber:
		return numericOnly(value)
	default:
		return value
	}
}

// numericOnly strips currency and grouping from a single amount; ranges
// keep their first amount. Values without digits pass through.
func numericOnly(value string) string {
	first := value
	for _, sep := range []string{" - ", "-", " to "} {
		if lo, _, found := strings.Cut(first, sep); found && strings.ContainsAny(lo, "0123456789") {
			first = lo
			break
		}
	}
	var b strings.Builder
	for _, r := range first {
		if r >= '0' && r <= '9' || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return value
	}
	out := b.String()
	if f, err := strconv.ParseFloat(out, 64); err == nil && f == math.Trunc(f) {
		return strconv.Itoa(int(f))
	}
	return out
}

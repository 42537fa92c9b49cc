// internal/profile/fallback.go
package profile

import (
	"strconv"
	"strings"
	"time"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// Category names used in fallback results and completeness gaps.
const (
	CategoryDemographic = "demographic"
	CategoryWorkAuth    = "work-authorization"
	CategoryDate        = "date"
	CategorySalary      = "salary"
	CategoryLongText    = "long-text"
	CategoryBoolean     = "boolean"
	CategoryExperience  = "experience"
)

type fallbackResult struct {
	category     string
	value        string
	alternatives []string
}

// category matches a question family by label keywords and synthesizes an
// answer for it. keywords match anywhere in the normalized label; prefixes
// anchor at its start, which keeps "do you ..." phrasing from swallowing
// questions that merely contain those words.
type category struct {
	name     string
	keywords []string
	prefixes []string
	resolve  func(r *Resolver, p *schemas.UserProfile, field schemas.FieldDescriptor, label string) (string, []string, bool)
}

// fallbackCategories are evaluated in order; the first label match wins.
// The keyword tables come from observed application forms across the major
// ATS platforms; extend them rather than reordering.
var fallbackCategories = []category{
	{
		name: CategoryDemographic,
		keywords: []string{
			"gender", "race", "ethnicity", "ethnic", "veteran", "disability",
			"disabled", "sexual orientation", "pronoun", "transgender", "lgbtq",
			"hispanic", "latino", "latinx",
		},
		resolve: func(_ *Resolver, _ *schemas.UserProfile, _ schemas.FieldDescriptor, _ string) (string, []string, bool) {
			return "Prefer not to say", []string{
				"Decline to self identify",
				"I don't wish to answer",
				"Prefer not to disclose",
			}, true
		},
	},
	{
		name: CategoryWorkAuth,
		keywords: []string{
			"authorized to work", "work authorization", "authorization",
			"sponsorship", "sponsor", "visa", "citizen", "legally able",
			"eligible to work", "work permit", "right to work",
		},
		resolve: resolveWorkAuth,
	},
	{
		name: CategoryDate,
		keywords: []string{
			"start date", "available to start", "availability date",
			"when can you start", "earliest start", "date available",
		},
		resolve: func(_ *Resolver, p *schemas.UserProfile, _ schemas.FieldDescriptor, _ string) (string, []string, bool) {
			if p.Preferences.AvailableStartDate != "" {
				return formatDate(p.Preferences.AvailableStartDate), nil, true
			}
			return todayISO(), nil, true
		},
	},
	{
		name: CategorySalary,
		keywords: []string{
			"salary", "compensation", "expected pay", "desired pay",
			"pay expectation", "pay rate", "hourly rate",
		},
		resolve: resolveSalary,
	},
	{
		name: CategoryLongText,
		keywords: []string{
			"why do you want", "why are you interested", "tell us about",
			"describe", "cover letter", "anything else", "additional information",
			"summary", "about yourself",
		},
		resolve: resolveLongText,
	},
	{
		name: CategoryBoolean,
		prefixes: []string{
			"are you", "do you", "have you", "will you", "can you",
			"would you", "willing to",
		},
		resolve: resolveBoolean,
	},
	{
		name:     CategoryExperience,
		keywords: []string{"years of experience", "experience", "years"},
		resolve: func(r *Resolver, p *schemas.UserProfile, _ schemas.FieldDescriptor, _ string) (string, []string, bool) {
			years, ok := experienceYears(p.WorkExperience, time.Now())
			if !ok {
				years = r.cfg.DefaultExperienceYears
			}
			return strconv.Itoa(years), nil, true
		},
	},
}

// fallbackFor matches the field's label against the category tables and
// synthesizes the answer. The same entry point backs both live resolution
// and the completeness report, so the two can never disagree.
func (r *Resolver) fallbackFor(p *schemas.UserProfile, field schemas.FieldDescriptor) (fallbackResult, bool) {
	label := normalize(field.Label)
	if label == "" {
		return fallbackResult{}, false
	}
	for _, cat := range fallbackCategories {
		if !cat.matches(label) {
			continue
		}
		value, alts, ok := cat.resolve(r, p, field, label)
		if !ok {
			continue
		}
		return fallbackResult{category: cat.name, value: value, alternatives: alts}, true
	}
	return fallbackResult{}, false
}

func (c category) matches(label string) bool {
	for _, p := range c.prefixes {
		if strings.HasPrefix(label, p) {
			return true
		}
	}
	for _, k := range c.keywords {
		if strings.Contains(label, k) {
			return true
		}
	}
	return false
}

func resolveWorkAuth(_ *Resolver, p *schemas.UserProfile, field schemas.FieldDescriptor, label string) (string, []string, bool) {
	if strings.Contains(label, "sponsor") || strings.Contains(label, "visa") {
		if p.Preferences.RequiresSponsorship {
			return "Yes", []string{"No"}, true
		}
		return "No", []string{"Yes"}, true
	}
	if booleanPhrased(field, label) {
		return "Yes", []string{"No"}, true
	}
	if p.Preferences.WorkAuthorization != "" {
		return p.Preferences.WorkAuthorization, []string{"Yes"}, true
	}
	return "Yes", []string{"Authorized to work"}, true
}

func resolveSalary(_ *Resolver, p *schemas.UserProfile, field schemas.FieldDescriptor, _ string) (string, []string, bool) {
	min, max := p.Preferences.DesiredSalaryMin, p.Preferences.DesiredSalaryMax
	rng, ok := salaryRange(min, max)
	if !ok {
		return "", nil, false
	}
	if field.Type == schemas.FieldNumber {
		if min > 0 {
			return strconv.Itoa(min), []string{strconv.Itoa(max)}, true
		}
		return strconv.Itoa(max), nil, true
	}
	var alts []string
	if min > 0 {
		alts = append(alts, formatSalary(min))
	}
	if max > 0 {
		alts = append(alts, formatSalary(max))
	}
	return rng, alts, true
}

func resolveLongText(_ *Resolver, p *schemas.UserProfile, _ schemas.FieldDescriptor, _ string) (string, []string, bool) {
	var b strings.Builder
	if e := currentPosition(p.WorkExperience); e != nil && e.Title != "" {
		b.WriteString("In my work as ")
		b.WriteString(articleFor(e.Title))
		b.WriteString(" ")
		b.WriteString(e.Title)
		b.WriteString(", I have built experience directly relevant to this position. ")
	}
	b.WriteString("I am excited about this opportunity and confident my background is a strong match. ")
	b.WriteString("I would welcome the chance to discuss how I can contribute to the team.")
	return b.String(), nil, true
}

func resolveBoolean(_ *Resolver, p *schemas.UserProfile, _ schemas.FieldDescriptor, label string) (string, []string, bool) {
	// Questions where agreeing works against the applicant.
	for _, negative := range []string{"convicted", "felony", "crime", "terminated for", "dismissed for"} {
		if strings.Contains(label, negative) {
			return "No", []string{"Yes"}, true
		}
	}
	if strings.Contains(label, "relocat") {
		return yesNo(p.Preferences.WillingToRelocate), nil, true
	}
	return "Yes", []string{"No"}, true
}

// booleanPhrased reports whether the field wants a yes/no answer rather
// than a status string.
func booleanPhrased(field schemas.FieldDescriptor, label string) bool {
	if field.Type == schemas.FieldCheckbox || field.Type == schemas.FieldRadio {
		return true
	}
	for _, p := range []string{"are you", "do you", "have you", "will you", "can you", "is there"} {
		if strings.HasPrefix(label, p) {
			return true
		}
	}
	return false
}

func articleFor(noun string) string {
	switch {
	case noun == "":
		return "a"
	case strings.ContainsRune("aeiouAEIOU", rune(noun[0])):
		return "an"
	default:
		return "a"
	}
}

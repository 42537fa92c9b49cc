// internal/scanner/mapping.go
package scanner

import (
	"strings"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

type mappingRule struct {
	path     string
	keywords []string
}

// mappingRules associates field vocabulary with profile dot-paths. First
// hit wins, so specific phrasings sit above the generic ones they contain
// ("first name" above "name"). Keywords are matched as whole words against
// the normalized label/name/id/placeholder haystack.
var mappingRules = []mappingRule{
	{path: "personalInfo.firstName", keywords: []string{"first name", "given name", "forename"}},
	{path: "personalInfo.lastName", keywords: []string{"last name", "family name", "surname"}},
	{path: "personalInfo.email", keywords: []string{"email", "e mail"}},
	{path: "personalInfo.phone", keywords: []string{"phone", "mobile", "telephone", "cell"}},
	{path: "personalInfo.linkedin", keywords: []string{"linkedin"}},
	{path: "personalInfo.github", keywords: []string{"github"}},
	{path: "personalInfo.website", keywords: []string{"website", "portfolio", "personal site"}},
	{path: "personalInfo.address", keywords: []string{"street address", "address line", "address"}},
	{path: "personalInfo.city", keywords: []string{"city", "town"}},
	{path: "personalInfo.zipCode", keywords: []string{"zip", "postal code", "postcode"}},
	{path: "personalInfo.country", keywords: []string{"country"}},
	{path: "personalInfo.state", keywords: []string{"state", "province", "region"}},
	{path: "preferences.desiredSalaryRange", keywords: []string{"salary", "compensation", "expected pay", "desired pay"}},
	{path: "preferences.workAuthorization", keywords: []string{"work authorization", "authorized to work", "right to work", "work permit", "work status"}},
	{path: "preferences.requiresSponsorship", keywords: []string{"sponsorship", "visa"}},
	{path: "preferences.willingToRelocate", keywords: []string{"relocate", "relocation"}},
	{path: "preferences.remotePreference", keywords: []string{"remote", "work from home", "hybrid"}},
	{path: "preferences.noticePeriod", keywords: []string{"notice period", "notice"}},
	{path: "preferences.availableStartDate", keywords: []string{"start date", "available to start", "when can you start", "availability"}},
	{path: "workExperience.years", keywords: []string{"years of experience", "years experience", "experience years"}},
	{path: "workExperience.current.company", keywords: []string{"current company", "current employer", "employer", "company"}},
	{path: "workExperience.current.title", keywords: []string{"current title", "job title", "current role", "title"}},
	{path: "education.fieldOfStudy", keywords: []string{"field of study", "major", "discipline"}},
	{path: "education.school", keywords: []string{"school", "university", "college", "alma mater"}},
	{path: "education.gpa", keywords: []string{"gpa", "grade point"}},
	{path: "education.graduationYear", keywords: []string{"graduation"}},
	{path: "education.degree", keywords: []string{"degree", "education level", "highest education"}},
	{path: "personalInfo.fullName", keywords: []string{"full name", "your name", "name"}},
}

// mapField maps a field onto a profile dot-path, or "" when nothing
// applies; unmapped descriptors still resolve through the later resolver
// stages. Typed controls map structurally first: an email input is the
// email no matter what it is labeled, and file inputs are documents.
func mapField(label, name, id, placeholder string, typ schemas.FieldType) string {
	switch typ {
	case schemas.FieldEmail:
		return "personalInfo.email"
	case schemas.FieldPhone:
		return "personalInfo.phone"
	}

	hay := normalizeLabel(strings.Join([]string{label, name, id, placeholder}, " "))
	if hay == "" {
		return ""
	}

	switch typ {
	case schemas.FieldFile:
		if containsWord(hay, "cover letter") || containsWord(hay, "cover") {
			return "documents.coverLetterPath"
		}
		return "documents.resumePath"
	case schemas.FieldURL:
		switch {
		case strings.Contains(hay, "linkedin"):
			return "personalInfo.linkedin"
		case strings.Contains(hay, "github"):
			return "personalInfo.github"
		}
		return "personalInfo.website"
	}

	for _, rule := range mappingRules {
		for _, kw := range rule.keywords {
			if containsWord(hay, kw) {
				return rule.path
			}
		}
	}
	return ""
}

// containsWord reports whether phrase occurs in hay on word boundaries.
// Both must already be normalized.
func containsWord(hay, phrase string) bool {
	return strings.Contains(" "+hay+" ", " "+phrase+" ")
}

// normalizeLabel lowercases, splits camelCase humps, maps punctuation to
// spaces, and collapses runs, so "First Name*", "first_name" and
// "firstName" all yield "first name".
func normalizeLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLower := false
	prevSpace := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevLower = true
			prevSpace = false
		case r >= 'A' && r <= 'Z':
			if prevLower && !prevSpace {
				b.WriteByte(' ')
			}
			b.WriteRune(r - 'A' + 'a')
			prevLower = false
			prevSpace = false
		default:
			if !prevSpace {
				b.WriteByte(' ')
			}
			prevLower = false
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// internal/profile/completeness.go
package profile

import (
	"fmt"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// completenessCatalogue is the set of questions applications ask so often
// that a profile without answers for them will lean on synthesized
// fallbacks. Each entry runs through the regular resolution stages, so the
// report reflects exactly what fill-time behavior would be.
var completenessCatalogue = []struct {
	category string
	prompt   string
	mapped   string
	ftype    schemas.FieldType
}{
	{CategoryDemographic, "Gender identity", "", schemas.FieldText},
	{CategoryDemographic, "Race or ethnicity", "", schemas.FieldText},
	{CategoryDemographic, "Veteran status", "", schemas.FieldText},
	{CategoryDemographic, "Disability status", "", schemas.FieldText},
	{CategoryWorkAuth, "Are you legally authorized to work in this country?", "preferences.workAuthorization", schemas.FieldRadio},
	{CategoryWorkAuth, "Will you now or in the future require sponsorship?", "", schemas.FieldRadio},
	{CategoryDate, "What is your earliest start date?", "preferences.availableStartDate", schemas.FieldDate},
	{CategorySalary, "What are your salary expectations?", "preferences.desiredSalaryRange", schemas.FieldText},
	{CategoryLongText, "Why are you interested in this role?", "", schemas.FieldTextarea},
	{CategoryBoolean, "Are you willing to relocate?", "", schemas.FieldRadio},
	{CategoryExperience, "How many years of relevant experience do you have?", "workExperience.years", schemas.FieldNumber},
}

// CheckCompleteness scores how much of the common question catalogue the
// profile answers from stored data. Questions that would fall back to a
// synthesized value are reported as gaps together with that value.
func (r *Resolver) CheckCompleteness(p *schemas.UserProfile) schemas.CompletenessReport {
	report := schemas.CompletenessReport{Total: len(completenessCatalogue)}
	if p == nil {
		p = &schemas.UserProfile{}
	}

	for i, entry := range completenessCatalogue {
		field := schemas.FieldDescriptor{
			ID:                 fmt.Sprintf("catalogue-%d", i),
			Label:              entry.prompt,
			Type:               entry.ftype,
			MappedProfileField: entry.mapped,
		}
		if _, ok := r.direct(p, field); ok {
			report.Answered++
			continue
		}
		if _, ok := r.defaultAnswer(p, field); ok {
			report.Answered++
			continue
		}

		gap := schemas.CompletenessGap{Category: entry.category, Prompt: entry.prompt}
		if fb, ok := r.fallbackFor(p, field); ok {
			gap.Fallback = formatForField(field, fb.value)
		}
		report.Gaps = append(report.Gaps, gap)
	}

	if report.Total > 0 {
		report.Score = float64(report.Answered) / float64(report.Total)
	}
	return report
}

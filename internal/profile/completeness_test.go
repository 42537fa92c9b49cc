// internal/profile/completeness_test.go
package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

func TestCheckCompletenessEmptyProfile(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	report := r.CheckCompleteness(&schemas.UserProfile{})
	assert.Equal(t, len(completenessCatalogue), report.Total)
	assert.Zero(t, report.Answered)
	assert.Zero(t, report.Score)
	require.Len(t, report.Gaps, report.Total)

	byPrompt := make(map[string]schemas.CompletenessGap, len(report.Gaps))
	for _, g := range report.Gaps {
		byPrompt[g.Prompt] = g
	}

	gender := byPrompt["Gender identity"]
	assert.Equal(t, CategoryDemographic, gender.Category)
	assert.Equal(t, "Prefer not to say", gender.Fallback)

	sponsorship := byPrompt["Will you now or in the future require sponsorship?"]
	assert.Equal(t, CategoryWorkAuth, sponsorship.Category)
	assert.Equal(t, "No", sponsorship.Fallback)

	exp := byPrompt["How many years of relevant experience do you have?"]
	assert.Equal(t, CategoryExperience, exp.Category)
	assert.Equal(t, "2", exp.Fallback, "the configured default experience backs the gap")

	salary := byPrompt["What are your salary expectations?"]
	assert.Equal(t, CategorySalary, salary.Category)
	assert.Empty(t, salary.Fallback, "nothing can be synthesized without preferences")
}

func TestCheckCompletenessCountsStoredAnswers(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)
	p := testProfile()
	p.Preferences.WorkAuthorization = "Authorized"
	p.Preferences.AvailableStartDate = "2026-09-01"

	report := r.CheckCompleteness(p)

	// Work authorization, start date, salary range and experience resolve
	// from profile data; everything else stays a gap.
	assert.Equal(t, 4, report.Answered)
	assert.Len(t, report.Gaps, report.Total-4)
	assert.InDelta(t, 4.0/float64(report.Total), report.Score, 1e-9)

	for _, g := range report.Gaps {
		assert.NotEqual(t, CategorySalary, g.Category, "stored preferences close the salary gap")
	}
}

func TestCheckCompletenessHonorsDefaultAnswers(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)
	p := &schemas.UserProfile{
		DefaultAnswers: map[string]string{
			"Gender identity":   "Woman",
			"Veteran status":    "Not a veteran",
			"Disability status": "No",
		},
	}

	report := r.CheckCompleteness(p)
	assert.Equal(t, 3, report.Answered)
	for _, g := range report.Gaps {
		assert.NotContains(t, []string{"Gender identity", "Veteran status", "Disability status"}, g.Prompt)
	}
}

func TestCheckCompletenessNilProfile(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)
	report := r.CheckCompleteness(nil)
	assert.Equal(t, len(completenessCatalogue), report.Total)
	assert.Zero(t, report.Answered)
}

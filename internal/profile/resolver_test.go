// internal/profile/resolver_test.go
package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(zap.NewNop(), config.NewDefaultConfig().Resolver)
}

func testProfile() *schemas.UserProfile {
	return &schemas.UserProfile{
		PersonalInfo: schemas.PersonalInfo{
			FirstName: "John",
			LastName:  "Smith",
			Email:     "john@example.com",
			Phone:     "+1 555 010 0100",
			LinkedIn:  "https://www.linkedin.com/in/johnsmith",
		},
		WorkExperience: []schemas.WorkExperience{
			{Company: "Acme", Title: "Engineer", StartDate: "2020-01-01", EndDate: "2023-01-01"},
		},
		Preferences: schemas.Preferences{
			DesiredSalaryMin: 100000,
			DesiredSalaryMax: 150000,
		},
		DefaultAnswers: map[string]string{
			"How did you hear about us?": "Job board",
			"noticePeriod":               "Two weeks",
			"security clearance":         "None",
		},
	}
}

func TestResolveDirectMapping(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	got := r.Resolve(testProfile(), schemas.FieldDescriptor{
		ID:                 "first",
		Label:              "First Name",
		Type:               schemas.FieldText,
		MappedProfileField: "personalInfo.firstName",
	})
	require.NotNil(t, got)
	assert.Equal(t, "John", got.Value)
	assert.Equal(t, schemas.SourceProfile, got.Source)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestResolveEscalatesPastEmptyMapping(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)
	p := testProfile()
	p.DefaultAnswers["city"] = "Lisbon"

	// personalInfo.city is empty, so the mapping must not satisfy the field;
	// the terminal key of the mapping finds the stored answer instead.
	got := r.Resolve(p, schemas.FieldDescriptor{
		ID:                 "city",
		Label:              "Which city are you based in?",
		Type:               schemas.FieldText,
		MappedProfileField: "personalInfo.city",
	})
	require.NotNil(t, got)
	assert.Equal(t, "Lisbon", got.Value)
	assert.Equal(t, schemas.SourceDefault, got.Source)
	assert.Equal(t, 0.9, got.Confidence)
}

func TestResolveDefaultAnswerExact(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	got := r.Resolve(testProfile(), schemas.FieldDescriptor{
		ID:    "src",
		Label: "How did you hear about us?",
		Type:  schemas.FieldText,
	})
	require.NotNil(t, got)
	assert.Equal(t, "Job board", got.Value)
	assert.Equal(t, schemas.SourceDefault, got.Source)
}

func TestResolveDefaultAnswerFuzzy(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	// "security clearance" is contained in the longer question label.
	got := r.Resolve(testProfile(), schemas.FieldDescriptor{
		ID:    "clearance",
		Label: "Do you hold an active security clearance?",
		Type:  schemas.FieldText,
	})
	require.NotNil(t, got)
	assert.Equal(t, "None", got.Value)
	assert.Equal(t, schemas.SourceDefault, got.Source)
}

func TestFuzzyFloorBlocksShortKeys(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)
	p := testProfile()
	p.DefaultAnswers = map[string]string{"op": "Yes"}

	got := r.Resolve(p, schemas.FieldDescriptor{
		ID:    "q",
		Label: "Optional question",
		Type:  schemas.FieldText,
	})
	assert.Nil(t, got, "two-character keys must not fuzzy-match anything")
}

func TestResolveDemographicFallback(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	got := r.Resolve(testProfile(), schemas.FieldDescriptor{
		ID:    "gender",
		Label: "Gender Identity",
		Type:  schemas.FieldSelect,
	})
	require.NotNil(t, got)
	assert.Equal(t, "Prefer not to say", got.Value)
	assert.Equal(t, schemas.SourceFallback, got.Source)
	assert.Equal(t, 0.7, got.Confidence)
	assert.NotEmpty(t, got.Alternatives, "ambiguous categories carry alternates for option matching")
}

func TestResolveSalaryFallback(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	got := r.Resolve(testProfile(), schemas.FieldDescriptor{
		ID:    "salary",
		Label: "What are your salary expectations?",
		Type:  schemas.FieldText,
	})
	require.NotNil(t, got)
	assert.Equal(t, "$100,000 - $150,000", got.Value)
	assert.Equal(t, schemas.SourceFallback, got.Source)

	// A numeric input gets bare digits instead of the formatted range.
	num := r.Resolve(testProfile(), schemas.FieldDescriptor{
		ID:    "salary-num",
		Label: "Desired salary",
		Type:  schemas.FieldNumber,
	})
	require.NotNil(t, num)
	assert.Equal(t, "100000", num.Value)
}

func TestResolveSponsorshipFallback(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	got := r.Resolve(testProfile(), schemas.FieldDescriptor{
		ID:    "visa",
		Label: "Will you now or in the future require visa sponsorship?",
		Type:  schemas.FieldRadio,
	})
	require.NotNil(t, got)
	assert.Equal(t, "No", got.Value)
	assert.Equal(t, schemas.SourceFallback, got.Source)

	p := testProfile()
	p.Preferences.RequiresSponsorship = true
	got = r.Resolve(p, schemas.FieldDescriptor{
		ID:    "visa",
		Label: "Do you require sponsorship?",
		Type:  schemas.FieldRadio,
	})
	require.NotNil(t, got)
	assert.Equal(t, "Yes", got.Value)
}

func TestResolveExperienceFallback(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	// 2020-01-01 through 2023-01-01 is 36 months.
	got := r.Resolve(testProfile(), schemas.FieldDescriptor{
		ID:    "exp",
		Label: "How many years of experience do you have?",
		Type:  schemas.FieldNumber,
	})
	require.NotNil(t, got)
	assert.Equal(t, "3", got.Value)
	assert.Equal(t, schemas.SourceFallback, got.Source)

	// No usable work history falls back to the configured default.
	p := testProfile()
	p.WorkExperience = nil
	got = r.Resolve(p, schemas.FieldDescriptor{
		ID:    "exp",
		Label: "Years of experience",
		Type:  schemas.FieldNumber,
	})
	require.NotNil(t, got)
	assert.Equal(t, "2", got.Value)
}

func TestResolveConvictionQuestionStaysNo(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	got := r.Resolve(testProfile(), schemas.FieldDescriptor{
		ID:    "felony",
		Label: "Have you ever been convicted of a felony?",
		Type:  schemas.FieldRadio,
	})
	require.NotNil(t, got)
	assert.Equal(t, "No", got.Value)
}

func TestResolveContextOnlyForRequired(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	field := schemas.FieldDescriptor{
		ID:    "ref",
		Label: "Referral code",
		Type:  schemas.FieldText,
	}
	assert.Nil(t, r.Resolve(testProfile(), field), "optional unknowns are skipped, not guessed")

	field.Required = true
	got := r.Resolve(testProfile(), field)
	require.NotNil(t, got)
	assert.Equal(t, schemas.SourceContext, got.Source)
	assert.Equal(t, 0.5, got.Confidence)
	assert.Equal(t, "N/A", got.Value)
}

func TestResolveContextUsesFieldType(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	tests := []struct {
		ftype schemas.FieldType
		want  string
	}{
		{schemas.FieldEmail, "john@example.com"},
		{schemas.FieldPhone, "+1 555 010 0100"},
		{schemas.FieldURL, "https://www.linkedin.com/in/johnsmith"},
		{schemas.FieldNumber, "0"},
	}
	for _, tt := range tests {
		got := r.Resolve(testProfile(), schemas.FieldDescriptor{
			ID:       "x",
			Label:    "Completely unrecognizable prompt",
			Type:     tt.ftype,
			Required: true,
		})
		require.NotNil(t, got, string(tt.ftype))
		assert.Equal(t, tt.want, got.Value, string(tt.ftype))
		assert.Equal(t, schemas.SourceContext, got.Source)
	}
}

func TestResolveNilProfile(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)
	assert.Nil(t, r.Resolve(nil, schemas.FieldDescriptor{ID: "x", Label: "First Name"}))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"First Name*", "first name"},
		{"first_name", "first name"},
		{"firstName", "first name"},
		{"  Email Address  ", "email address"},
		{"What's your phone #?", "what s your phone"},
		{"LINKEDIN", "linkedin"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalize(tt.in), "normalize(%q)", tt.in)
	}
}

func TestTerminalKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "first name", terminalKey("personalInfo.firstName"))
	assert.Equal(t, "years", terminalKey("workExperience.years"))
	assert.Equal(t, "notice period", terminalKey("noticePeriod"))
	assert.Equal(t, "", terminalKey(""))
}

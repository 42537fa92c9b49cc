// api/schemas/profile.go
package schemas

// -- User Profile Schemas --
//
// Dot-paths into the profile (e.g. "personalInfo.email") follow the JSON
// field names below. The profile file on disk is the JSON encoding of
// UserProfile.

// PersonalInfo holds identity and contact details.
type PersonalInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	ZipCode   string `json:"zipCode,omitempty"`
	Country   string `json:"country,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Website   string `json:"website,omitempty"`
	GitHub    string `json:"github,omitempty"`
}

// WorkExperience is a single employment entry. Dates are YYYY-MM-DD; an
// empty EndDate marks a current position.
type WorkExperience struct {
	Company     string `json:"company"`
	Title       string `json:"title"`
	Location    string `json:"location,omitempty"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate,omitempty"`
	Description string `json:"description,omitempty"`
}

// Education is a single schooling entry.
type Education struct {
	School       string `json:"school"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"fieldOfStudy,omitempty"`
	StartDate    string `json:"startDate,omitempty"`
	EndDate      string `json:"endDate,omitempty"`
	GPA          string `json:"gpa,omitempty"`
}

// Preferences captures compensation, authorization and logistics answers.
type Preferences struct {
	DesiredSalaryMin    int    `json:"desiredSalaryMin,omitempty"`
	DesiredSalaryMax    int    `json:"desiredSalaryMax,omitempty"`
	WorkAuthorization   string `json:"workAuthorization,omitempty"`
	RequiresSponsorship bool   `json:"requiresSponsorship"`
	WillingToRelocate   bool   `json:"willingToRelocate"`
	RemotePreference    string `json:"remotePreference,omitempty"`
	NoticePeriod        string `json:"noticePeriod,omitempty"`
	AvailableStartDate  string `json:"availableStartDate,omitempty"`
}

// Documents points at local files referenced while applying.
type Documents struct {
	ResumePath      string `json:"resumePath,omitempty"`
	CoverLetterPath string `json:"coverLetterPath,omitempty"`
}

// UserProfile is the locally stored applicant profile every fill value
// derives from. It is read-only from the engine's perspective.
type UserProfile struct {
	PersonalInfo   PersonalInfo      `json:"personalInfo"`
	WorkExperience []WorkExperience  `json:"workExperience,omitempty"`
	Education      []Education       `json:"education,omitempty"`
	Preferences    Preferences       `json:"preferences"`
	DefaultAnswers map[string]string `json:"defaultAnswers,omitempty"`
	Documents      Documents         `json:"documents"`
}

// -- Value Resolution Schemas --

// ValueSource tags the provenance of a resolved fill value. The four
// sources are ordered by descending confidence.
type ValueSource string

const (
	SourceProfile  ValueSource = "profile"
	SourceDefault  ValueSource = "default"
	SourceFallback ValueSource = "fallback"
	SourceContext  ValueSource = "context"
)

// Conventional confidence weight per source.
const (
	ConfidenceProfile  = 1.0
	ConfidenceDefault  = 0.9
	ConfidenceFallback = 0.7
	ConfidenceContext  = 0.5
)

// ProfileValue is the outcome of resolving one field against a profile.
// Source must reflect the strategy that actually produced the value, not the
// first one attempted. Alternatives carries other plausible answers for
// fields with inherent ambiguity, ranked best first.
type ProfileValue struct {
	Value        string      `json:"value"`
	Source       ValueSource `json:"source"`
	Confidence   float64     `json:"confidence"`
	Alternatives []string    `json:"alternatives,omitempty"`
}

// CompletenessGap is one commonly asked question category the profile has no
// stored answer for. Fallback is exactly the value the resolver would
// synthesize at fill time, so the report never disagrees with runtime
// behavior.
type CompletenessGap struct {
	Category string `json:"category"`
	Prompt   string `json:"prompt"`
	Fallback string `json:"fallback"`
}

// CompletenessReport summarizes how much of the common question catalogue a
// profile can answer without falling back.
type CompletenessReport struct {
	Answered int               `json:"answered"`
	Total    int               `json:"total"`
	Score    float64           `json:"score"`
	Gaps     []CompletenessGap `json:"gaps,omitempty"`
}

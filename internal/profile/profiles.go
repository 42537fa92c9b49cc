// internal/profile/profiles.go
package profile

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Load reads a profile from path, expanding a leading ~.
func Load(path string) (*schemas.UserProfile, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding profile path: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	var p schemas.UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", expanded, err)
	}
	return &p, nil
}

// Save writes the profile to path with owner-only permissions; the file
// holds contact details and stored answers.
func Save(path string, p *schemas.UserProfile) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("expanding profile path: %w", err)
	}
	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating profile directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := os.WriteFile(expanded, data, 0o600); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	return nil
}

// NewSampleProfile returns a starter profile with every section populated
// so users can see the shape they are editing.
func NewSampleProfile() *schemas.UserProfile {
	return &schemas.UserProfile{
		PersonalInfo: schemas.PersonalInfo{
			FirstName: "Jane",
			LastName:  "Doe",
			Email:     "jane.doe@example.com",
			Phone:     "+1 555 010 0100",
			City:      "Portland",
			State:     "OR",
			Country:   "United States",
			LinkedIn:  "https://www.linkedin.com/in/janedoe",
		},
		WorkExperience: []schemas.WorkExperience{
			{
				Company:     "Acme Corp",
				Title:       "Software Engineer",
				Location:    "Remote",
				StartDate:   "2021-03-01",
				Description: "Backend services and infrastructure.",
			},
		},
		Education: []schemas.Education{
			{
				School:       "State University",
				Degree:       "B.S.",
				FieldOfStudy: "Computer Science",
				EndDate:      "2020-05-15",
			},
		},
		Preferences: schemas.Preferences{
			DesiredSalaryMin:   100000,
			DesiredSalaryMax:   150000,
			WorkAuthorization:  "Authorized to work in the United States",
			WillingToRelocate:  false,
			RemotePreference:   "Remote",
			AvailableStartDate: "",
		},
		DefaultAnswers: map[string]string{
			"How did you hear about us?": "Job board",
		},
		Documents: schemas.Documents{},
	}
}

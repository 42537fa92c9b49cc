// internal/profile/paths.go
package profile

import (
	"sort"
	"strconv"
	"time"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// pathFn reads one dot-path out of a profile. ok is false when the profile
// holds nothing usable at that path, which lets resolution escalate.
type pathFn func(p *schemas.UserProfile) (string, bool)

// profilePaths is the registry of supported dot-paths. Scanner mappings and
// user-authored field maps both address the profile through these names,
// which follow the profile's JSON field names.
var profilePaths = map[string]pathFn{
	"personalInfo.firstName": func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.PersonalInfo.FirstName) },
	"personalInfo.lastName":  func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.PersonalInfo.LastName) },
	"personalInfo.fullName": func(p *schemas.UserProfile) (string, bool) {
		switch {
		case p.PersonalInfo.FirstName != "" && p.PersonalInfo.LastName != "":
			return p.PersonalInfo.FirstName + " " + p.PersonalInfo.LastName, true
		case p.PersonalInfo.FirstName != "":
			return p.PersonalInfo.FirstName, true
		default:
			return nonEmpty(p.PersonalInfo.LastName)
		}
	},
	"personalInfo.email":    func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.PersonalInfo.Email) },
	"personalInfo.phone":    func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.PersonalInfo.Phone) },
	"personalInfo.address":  func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.PersonalInfo.Address) },
	"personalInfo.city":     func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.PersonalInfo.City) },
	"personalInfo.state":    func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.PersonalInfo.State) },
	"personalInfo.zipCode":  func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.PersonalInfo.ZipCode) },
	"personalInfo.country":  func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.PersonalInfo.Country) },
	"personalInfo.linkedin": func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.PersonalInfo.LinkedIn) },
	"personalInfo.website":  func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.PersonalInfo.Website) },
	"personalInfo.github":   func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.PersonalInfo.GitHub) },

	"preferences.desiredSalaryMin": func(p *schemas.UserProfile) (string, bool) {
		if p.Preferences.DesiredSalaryMin <= 0 {
			return "", false
		}
		return strconv.Itoa(p.Preferences.DesiredSalaryMin), true
	},
	"preferences.desiredSalaryMax": func(p *schemas.UserProfile) (string, bool) {
		if p.Preferences.DesiredSalaryMax <= 0 {
			return "", false
		}
		return strconv.Itoa(p.Preferences.DesiredSalaryMax), true
	},
	"preferences.desiredSalaryRange": func(p *schemas.UserProfile) (string, bool) {
		return salaryRange(p.Preferences.DesiredSalaryMin, p.Preferences.DesiredSalaryMax)
	},
	"preferences.workAuthorization": func(p *schemas.UserProfile) (string, bool) {
		return nonEmpty(p.Preferences.WorkAuthorization)
	},
	"preferences.requiresSponsorship": func(p *schemas.UserProfile) (string, bool) {
		return yesNo(p.Preferences.RequiresSponsorship), true
	},
	"preferences.willingToRelocate": func(p *schemas.UserProfile) (string, bool) {
		return yesNo(p.Preferences.WillingToRelocate), true
	},
	"preferences.remotePreference": func(p *schemas.UserProfile) (string, bool) {
		return nonEmpty(p.Preferences.RemotePreference)
	},
	"preferences.noticePeriod": func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.Preferences.NoticePeriod) },
	"preferences.availableStartDate": func(p *schemas.UserProfile) (string, bool) {
		if p.Preferences.AvailableStartDate == "" {
			return "", false
		}
		return formatDate(p.Preferences.AvailableStartDate), true
	},

	"workExperience.current.company": func(p *schemas.UserProfile) (string, bool) {
		if e := currentPosition(p.WorkExperience); e != nil {
			return nonEmpty(e.Company)
		}
		return "", false
	},
	"workExperience.current.title": func(p *schemas.UserProfile) (string, bool) {
		if e := currentPosition(p.WorkExperience); e != nil {
			return nonEmpty(e.Title)
		}
		return "", false
	},
	"workExperience.current.location": func(p *schemas.UserProfile) (string, bool) {
		if e := currentPosition(p.WorkExperience); e != nil {
			return nonEmpty(e.Location)
		}
		return "", false
	},
	"workExperience.years": func(p *schemas.UserProfile) (string, bool) {
		years, ok := experienceYears(p.WorkExperience, time.Now())
		if !ok {
			return "", false
		}
		return strconv.Itoa(years), true
	},

	"education.school": func(p *schemas.UserProfile) (string, bool) {
		if len(p.Education) == 0 {
			return "", false
		}
		return nonEmpty(p.Education[0].School)
	},
	"education.degree": func(p *schemas.UserProfile) (string, bool) {
		if len(p.Education) == 0 {
			return "", false
		}
		return nonEmpty(p.Education[0].Degree)
	},
	"education.fieldOfStudy": func(p *schemas.UserProfile) (string, bool) {
		if len(p.Education) == 0 {
			return "", false
		}
		return nonEmpty(p.Education[0].FieldOfStudy)
	},
	"education.gpa": func(p *schemas.UserProfile) (string, bool) {
		if len(p.Education) == 0 {
			return "", false
		}
		return nonEmpty(p.Education[0].GPA)
	},
	"education.graduationYear": func(p *schemas.UserProfile) (string, bool) {
		if len(p.Education) == 0 || p.Education[0].EndDate == "" {
			return "", false
		}
		t, ok := parseDate(p.Education[0].EndDate)
		if !ok {
			return "", false
		}
		return strconv.Itoa(t.Year()), true
	},

	"documents.resumePath":      func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.Documents.ResumePath) },
	"documents.coverLetterPath": func(p *schemas.UserProfile) (string, bool) { return nonEmpty(p.Documents.CoverLetterPath) },
}

// KnownPaths lists the supported dot-paths, for the profile CLI and for
// validating user-authored field maps.
func KnownPaths() []string {
	paths := make([]string, 0, len(profilePaths))
	for k := range profilePaths {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths
}

// currentPosition picks the entry that represents the present role: the
// first open-ended one, else the one ending latest, else the first listed.
func currentPosition(entries []schemas.WorkExperience) *schemas.WorkExperience {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if entries[i].EndDate == "" {
			return &entries[i]
		}
	}
	best := 0
	bestEnd := time.Time{}
	for i := range entries {
		if t, ok := parseDate(entries[i].EndDate); ok && t.After(bestEnd) {
			best, bestEnd = i, t
		}
	}
	return &entries[best]
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

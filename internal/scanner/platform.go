// internal/scanner/platform.go
package scanner

import (
	"context"
	"strings"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/dom"
)

// platformOf fingerprints the applicant tracking system serving the page:
// hosted URLs first, then markup markers for forms embedded on company
// domains.
func (s *Scanner) platformOf(ctx context.Context, doc dom.Document) schemas.Platform {
	url := strings.ToLower(doc.URL())
	switch {
	case strings.Contains(url, "greenhouse.io"):
		return schemas.PlatformGreenhouse
	case strings.Contains(url, "lever.co"):
		return schemas.PlatformLever
	case strings.Contains(url, "myworkday"):
		return schemas.PlatformWorkday
	}

	probes := []struct {
		selector string
		platform schemas.Platform
	}{
		{"[id^=grnhse]", schemas.PlatformGreenhouse},
		{"[class*=greenhouse]", schemas.PlatformGreenhouse},
		{"[class*=posting-form]", schemas.PlatformLever},
		{"[data-qa=btn-apply]", schemas.PlatformLever},
		{"[data-automation-id]", schemas.PlatformWorkday},
	}
	for _, p := range probes {
		if el, err := doc.QuerySelector(ctx, p.selector); err == nil && el != nil {
			return p.platform
		}
	}
	return schemas.PlatformGeneric
}

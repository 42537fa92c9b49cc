// api/schemas/field.go
package schemas

// -- Form Field Schemas --

// FieldType identifies the basic kind of a fillable form control.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
	FieldFile     FieldType = "file"
	FieldDate     FieldType = "date"
	FieldNumber   FieldType = "number"
	FieldURL      FieldType = "url"
)

// FieldDescriptor represents one fillable unit discovered on a page.
// Descriptors are created fresh on every scan pass and never mutated; a new
// pass supersedes and discards the old set. Selector is a re-locatable
// reference valid at the moment of the scan — it is not guaranteed stable if
// the DOM mutates, and failure to re-resolve it is a hard stop for that
// field, never a crash.
type FieldDescriptor struct {
	ID                 string    `json:"id"`
	Type               FieldType `json:"type"`
	Label              string    `json:"label"`
	Selector           string    `json:"selector"`
	Required           bool      `json:"required"`
	MappedProfileField string    `json:"mappedProfileField,omitempty"`
	Placeholder        string    `json:"placeholder,omitempty"`
	Options            []string  `json:"options,omitempty"`
}

// Platform identifies a known applicant tracking system, inferred from the
// page URL and markup fingerprints during a scan.
type Platform string

const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformGeneric    Platform = "generic"
)

// ScanReport describes the fillable surface discovered on a single page.
type ScanReport struct {
	ScanID    string            `json:"scan_id"`
	Target    string            `json:"target"`
	Platform  Platform          `json:"platform"`
	FormScore float64           `json:"form_score"`
	Fields    []FieldDescriptor `json:"fields"`
}

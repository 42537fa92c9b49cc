// api/schemas/component.go
package schemas

// -- Component Detection Schemas --

// ComponentType classifies a DOM element into one of the widget archetypes
// the interaction engine knows how to drive.
type ComponentType string

const (
	ComponentStandardSelect ComponentType = "standard-select"
	ComponentReactSelect    ComponentType = "react-select"
	ComponentVueSelect      ComponentType = "vue-select"
	ComponentAngularSelect  ComponentType = "angular-select"
	ComponentCustomSelect   ComponentType = "custom-select"
	ComponentNone           ComponentType = "none"
)

// ComponentMatch is a single detection strategy's independent verdict on an
// element. Metadata carries strategy specific signals consumed only by the
// strategy that produced them and by the dropdown filler.
type ComponentMatch struct {
	Type            ComponentType     `json:"type"`
	Confidence      float64           `json:"confidence"`
	DetectionMethod string            `json:"detectionMethod"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// DetectionResult aggregates every strategy's verdict for one element.
// BestMatch is nil when no strategy recognized the element; that is the
// expected outcome for ordinary static HTML, not an error.
type DetectionResult struct {
	Detected  bool             `json:"detected"`
	BestMatch *ComponentMatch  `json:"bestMatch,omitempty"`
	Matches   []ComponentMatch `json:"matches,omitempty"`
}

// IsComplex reports whether the type names a synthetic widget that needs the
// popup driven dropdown protocol rather than native value assignment.
func (t ComponentType) IsComplex() bool {
	switch t {
	case ComponentReactSelect, ComponentVueSelect, ComponentAngularSelect, ComponentCustomSelect:
		return true
	}
	return false
}

// IsComplex reports whether the best match is a synthetic widget.
func (r DetectionResult) IsComplex() bool {
	return r.BestMatch != nil && r.BestMatch.Type.IsComplex()
}

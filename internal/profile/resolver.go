// internal/profile/resolver.go

// Package profile turns scanned form fields into concrete answers from the
// stored applicant profile. Resolution escalates through four stages in
// strict order: the field's dot-path mapping into the profile, the user's
// stored default answers, category fallbacks for commonly asked question
// families, and, for required fields only, a context guess. Each stage tags
// its output with a provenance source and a descending confidence, and a
// stage only runs when every stage before it produced nothing.
package profile

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
)

// Resolver maps fields to profile values.
type Resolver struct {
	log *zap.Logger
	cfg config.ResolverConfig
}

// NewResolver returns a resolver using cfg's fuzzy-match floor and
// default experience years.
func NewResolver(log *zap.Logger, cfg config.ResolverConfig) *Resolver {
	return &Resolver{log: log, cfg: cfg}
}

// Resolve produces the value to fill into field, or nil when the profile
// has nothing to offer. A nil result is the caller's cue to skip the field
// rather than invent input.
func (r *Resolver) Resolve(p *schemas.UserProfile, field schemas.FieldDescriptor) *schemas.ProfileValue {
	if p == nil {
		return nil
	}

	if v, ok := r.direct(p, field); ok {
		return r.resolved(field, v, nil, schemas.SourceProfile, schemas.ConfidenceProfile)
	}
	if v, ok := r.defaultAnswer(p, field); ok {
		return r.resolved(field, v, nil, schemas.SourceDefault, schemas.ConfidenceDefault)
	}
	if fb, ok := r.fallbackFor(p, field); ok {
		return r.resolved(field, fb.value, fb.alternatives, schemas.SourceFallback, schemas.ConfidenceFallback)
	}
	if field.Required {
		if v, ok := r.contextValue(p, field); ok {
			return r.resolved(field, v, nil, schemas.SourceContext, schemas.ConfidenceContext)
		}
	}

	r.log.Debug("field has no resolvable value",
		zap.String("field", field.ID),
		zap.String("label", field.Label))
	return nil
}

func (r *Resolver) resolved(field schemas.FieldDescriptor, value string, alts []string, src schemas.ValueSource, conf float64) *schemas.ProfileValue {
	pv := &schemas.ProfileValue{
		Value:        formatForField(field, value),
		Source:       src,
		Confidence:   conf,
		Alternatives: alts,
	}
	r.log.Debug("field resolved",
		zap.String("field", field.ID),
		zap.String("source", string(src)),
		zap.Float64("confidence", conf))
	return pv
}

// direct resolves the field's dot-path mapping. An empty value is treated
// as unmapped so resolution can escalate instead of filling blanks.
func (r *Resolver) direct(p *schemas.UserProfile, field schemas.FieldDescriptor) (string, bool) {
	if field.MappedProfileField == "" {
		return "", false
	}
	fn, ok := profilePaths[field.MappedProfileField]
	if !ok {
		r.log.Warn("field mapped to unknown profile path",
			zap.String("field", field.ID),
			zap.String("path", field.MappedProfileField))
		return "", false
	}
	v, ok := fn(p)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// defaultAnswer consults the user's stored answers: an exact label match,
// then the terminal key of the field's profile mapping, then a fuzzy
// containment match no shorter than the configured floor.
func (r *Resolver) defaultAnswer(p *schemas.UserProfile, field schemas.FieldDescriptor) (string, bool) {
	if len(p.DefaultAnswers) == 0 {
		return "", false
	}
	label := normalize(field.Label)
	keys := sortedKeys(p.DefaultAnswers)

	if label != "" {
		for _, k := range keys {
			if normalize(k) == label && p.DefaultAnswers[k] != "" {
				return p.DefaultAnswers[k], true
			}
		}
	}

	if term := terminalKey(field.MappedProfileField); term != "" {
		for _, k := range keys {
			if normalize(k) == term && p.DefaultAnswers[k] != "" {
				return p.DefaultAnswers[k], true
			}
		}
	}

	if label != "" {
		for _, k := range keys {
			nk := normalize(k)
			if len(nk) < r.cfg.FuzzyMinLength && len(label) < r.cfg.FuzzyMinLength {
				continue
			}
			shorter := nk
			if len(label) < len(nk) {
				shorter = label
			}
			if len(shorter) < r.cfg.FuzzyMinLength {
				continue
			}
			if strings.Contains(label, nk) || strings.Contains(nk, label) {
				if p.DefaultAnswers[k] != "" {
					return p.DefaultAnswers[k], true
				}
			}
		}
	}
	return "", false
}

// contextValue is the last resort for required fields: an innocuous value
// inferred from the field type alone, so a mandatory control does not block
// submission.
func (r *Resolver) contextValue(p *schemas.UserProfile, field schemas.FieldDescriptor) (string, bool) {
	switch field.Type {
	case schemas.FieldEmail:
		return nonEmpty(p.PersonalInfo.Email)
	case schemas.FieldPhone:
		return nonEmpty(p.PersonalInfo.Phone)
	case schemas.FieldURL:
		for _, v := range []string{p.PersonalInfo.LinkedIn, p.PersonalInfo.Website, p.PersonalInfo.GitHub} {
			if v != "" {
				return v, true
			}
		}
		return "", false
	case schemas.FieldDate:
		return todayISO(), true
	case schemas.FieldNumber:
		return "0", true
	case schemas.FieldCheckbox, schemas.FieldRadio:
		return "Yes", true
	case schemas.FieldText, schemas.FieldTextarea:
		return "N/A", true
	default:
		return "", false
	}
}

func nonEmpty(v string) (string, bool) { return v, v != "" }

// terminalKey returns the normalized last segment of a dot-path.
func terminalKey(path string) string {
	if path == "" {
		return ""
	}
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	return normalize(path)
}

// normalize lowercases, maps camelCase humps and punctuation to spaces, and
// collapses runs, so "First Name*", "first_name" and "firstName" compare
// equal.
func normalize(s string) string {
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

// sortedKeys makes default-answer scans deterministic.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

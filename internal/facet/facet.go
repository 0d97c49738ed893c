// Package facet holds the filter data model shared by the filter panel,
// the catalog and the query codec: facet descriptors, the canonical
// selection variants and the rules that keep them consistent.
package facet

import "strings"

// Kind tags the facet variant.
type Kind int

const (
	Checkbox Kind = iota
	Range
	MinSelect
	// Passthrough is a dynamically named filter (attr.*, spec.*). The panel
	// treats it exactly like a checkbox facet.
	Passthrough
)

// Prefixes of dynamically named filter keys.
const (
	AttrPrefix = "attr."
	SpecPrefix = "spec."
)

func (k Kind) String() string {
	switch k {
	case Checkbox:
		return "checkbox"
	case Range:
		return "range"
	case MinSelect:
		return "min"
	case Passthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// ParseKind parses the textual kind used in schema files.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "checkbox", "":
		return Checkbox, true
	case "range":
		return Range, true
	case "min":
		return MinSelect, true
	case "passthrough", "attr", "spec":
		return Passthrough, true
	default:
		return Checkbox, false
	}
}

// IsDynamicKey reports whether key names an attribute or spec filter.
func IsDynamicKey(key string) bool {
	return strings.HasPrefix(key, AttrPrefix) || strings.HasPrefix(key, SpecPrefix)
}

// KindForKey returns Passthrough for dynamic keys and declared otherwise.
func KindForKey(key string, declared Kind) Kind {
	if IsDynamicKey(key) {
		return Passthrough
	}
	return declared
}

// IsSetKind reports whether selections of k are option sets.
func (k Kind) IsSetKind() bool {
	return k == Checkbox || k == Passthrough
}

// Option is one selectable value of a checkbox, passthrough or min facet.
type Option struct {
	Value    string
	Label    string
	Count    int
	HasCount bool
}

// DisplayLabel falls back to the raw value when no label was supplied.
func (o Option) DisplayLabel() string {
	if o.Label != "" {
		return o.Label
	}
	return o.Value
}

// Facet is a read-only descriptor supplied by the catalog. Options and
// bounds are a snapshot; callers replace the whole slice on re-aggregation.
type Facet struct {
	Key     string
	Label   string
	Kind    Kind
	Options []Option
	Min     int
	Max     int
}

// Bounds returns the range bounds with Min <= Max.
func (f Facet) Bounds() (int, int) {
	if f.Min > f.Max {
		return f.Max, f.Min
	}
	return f.Min, f.Max
}

// EffectiveKind applies the dynamic key rule to the declared kind.
func (f Facet) EffectiveKind() Kind {
	return KindForKey(f.Key, f.Kind)
}

// DisplayLabel falls back to the key when no label was supplied.
func (f Facet) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key
}

// Find returns the facet with the given key.
func Find(facets []Facet, key string) (Facet, bool) {
	for _, f := range facets {
		if f.Key == key {
			return f, true
		}
	}
	return Facet{}, false
}

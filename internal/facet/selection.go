package facet

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Selection is one of the canonical selection variants: Set, RangeValue,
// Number or Raw. Internal code never inspects any other shape.
type Selection interface {
	IsZero() bool
	isSelection()
}

// Set is an unordered set of selected option values. A nil Set is empty.
type Set map[string]struct{}

// NewSet builds a set from values, ignoring empty strings.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		s[v] = struct{}{}
	}
	return s
}

func (Set) isSelection() {}

func (s Set) IsZero() bool { return len(s) == 0 }

func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s Set) Len() int { return len(s) }

// Values returns the members sorted for stable output.
func (s Set) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Toggle returns a new set with v added or removed. s is left untouched.
func (s Set) Toggle(v string) Set {
	out := make(Set, len(s)+1)
	for k := range s {
		out[k] = struct{}{}
	}
	if _, ok := out[v]; ok {
		delete(out, v)
	} else if v != "" {
		out[v] = struct{}{}
	}
	return out
}

// Equal compares by contents.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if _, ok := o[k]; !ok {
			return false
		}
	}
	return true
}

// RangeValue is a range selection; nil bounds default to the facet bounds.
type RangeValue struct {
	Min *int
	Max *int
}

func (RangeValue) isSelection() {}

func (r RangeValue) IsZero() bool { return r.Min == nil && r.Max == nil }

// NewRange builds a range with both bounds present.
func NewRange(lo, hi int) RangeValue {
	return RangeValue{Min: Int(lo), Max: Int(hi)}
}

func (r RangeValue) String() string {
	lo, hi := "*", "*"
	if r.Min != nil {
		lo = strconv.Itoa(*r.Min)
	}
	if r.Max != nil {
		hi = strconv.Itoa(*r.Max)
	}
	return lo + "-" + hi
}

// Number is a single-value "min" selection.
type Number struct {
	Value *int
}

func (Number) isSelection() {}

// IsZero treats an absent value and zero alike.
func (n Number) IsZero() bool { return n.Value == nil || *n.Value == 0 }

// Is reports whether the number is present and equal to v.
func (n Number) Is(v int) bool { return n.Value != nil && *n.Value == v }

// Raw carries a value for a key the panel knows nothing about. It is kept
// opaque and only ever checked for truthiness.
type Raw struct {
	V any
}

func (Raw) isSelection() {}

func (r Raw) IsZero() bool { return !truthy(r.V) }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Normalize coerces an incoming value to the canonical variant for kind.
// Malformed input yields the empty variant; it never fails.
func Normalize(kind Kind, raw any) Selection {
	switch kind {
	case Checkbox, Passthrough:
		return toSet(raw)
	case Range:
		return toRange(raw)
	case MinSelect:
		return toNumber(raw)
	default:
		if sel, ok := raw.(Selection); ok {
			return sel
		}
		return Raw{V: raw}
	}
}

// SetOf returns the selection as a set, or an empty set.
func SetOf(sel Selection) Set {
	if s, ok := toSet(sel).(Set); ok {
		return s
	}
	return Set{}
}

// RangeOf returns the selection as a range, or an empty range.
func RangeOf(sel Selection) RangeValue {
	if r, ok := toRange(sel).(RangeValue); ok {
		return r
	}
	return RangeValue{}
}

// NumberOf returns the selection as a number, or an empty number.
func NumberOf(sel Selection) Number {
	if n, ok := toNumber(sel).(Number); ok {
		return n
	}
	return Number{}
}

// toSet accepts set-shaped values only. A plain list is not a set and is
// treated as an empty selection.
func toSet(raw any) Selection {
	switch v := raw.(type) {
	case Set:
		out := make(Set, len(v))
		for k := range v {
			out[k] = struct{}{}
		}
		return out
	case map[string]bool:
		out := make(Set, len(v))
		for k, on := range v {
			if on && k != "" {
				out[k] = struct{}{}
			}
		}
		return out
	case map[string]struct{}:
		return toSet(Set(v))
	default:
		return Set{}
	}
}

func toRange(raw any) Selection {
	switch v := raw.(type) {
	case RangeValue:
		return v
	case *RangeValue:
		if v == nil {
			return RangeValue{}
		}
		return *v
	case map[string]any:
		var r RangeValue
		if n, ok := ToInt(v["min"]); ok {
			r.Min = Int(n)
		}
		if n, ok := ToInt(v["max"]); ok {
			r.Max = Int(n)
		}
		return r
	case map[string]int:
		var r RangeValue
		if n, ok := v["min"]; ok {
			r.Min = Int(n)
		}
		if n, ok := v["max"]; ok {
			r.Max = Int(n)
		}
		return r
	default:
		return RangeValue{}
	}
}

func toNumber(raw any) Selection {
	if n, ok := raw.(Number); ok {
		return n
	}
	if n, ok := ToInt(raw); ok {
		return Number{Value: Int(n)}
	}
	return Number{}
}

// ToInt converts common numeric shapes to an int, rounding floats.
func ToInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint32:
		return int(v), true
	case float32:
		return roundFloat(float64(v))
	case float64:
		return roundFloat(v)
	case *int:
		if v == nil {
			return 0, false
		}
		return *v, true
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return roundFloat(f)
		}
		return 0, false
	case fmt.Stringer:
		return ToInt(v.String())
	default:
		return 0, false
	}
}

func roundFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Round(f)), true
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []string:
		return len(t) > 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case Selection:
		return !t.IsZero()
	}
	if n, ok := ToInt(v); ok {
		return n != 0
	}
	return true
}

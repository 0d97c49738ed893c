package facet

import "sort"

// Selected maps facet keys to their current selection. The parent owns
// it; the panel only ever reads it and proposes changes.
type Selected map[string]Selection

// Clone returns a shallow copy. Selections are values or treated as
// immutable, so sharing them is safe.
func (s Selected) Clone() Selected {
	out := make(Selected, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// With returns a copy with key set to sel. An empty selection removes
// the key.
func (s Selected) With(key string, sel Selection) Selected {
	out := s.Clone()
	if sel == nil || sel.IsZero() {
		delete(out, key)
		return out
	}
	out[key] = sel
	return out
}

// Keys returns the keys in sorted order.
func (s Selected) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NormalizeSelected coerces every raw entry once, at the boundary. Keys
// without a facet keep an opaque Raw value unless they are dynamic
// attr./spec. keys, which become sets.
func NormalizeSelected(facets []Facet, raw map[string]any) Selected {
	kinds := make(map[string]Kind, len(facets))
	for _, f := range facets {
		kinds[f.Key] = f.EffectiveKind()
	}
	out := make(Selected, len(raw))
	for key, v := range raw {
		kind, ok := kinds[key]
		switch {
		case ok:
			out[key] = Normalize(kind, v)
		case IsDynamicKey(key):
			out[key] = Normalize(Passthrough, v)
		default:
			if sel, isSel := v.(Selection); isSel {
				out[key] = sel
			} else {
				out[key] = Raw{V: v}
			}
		}
	}
	return out
}

// HasApplied reports whether any entry would filter results, judged by
// its runtime shape.
func HasApplied(sel Selected) bool {
	for _, v := range sel {
		if applied(v) {
			return true
		}
	}
	return false
}

func applied(v Selection) bool {
	switch t := v.(type) {
	case nil:
		return false
	case Set:
		return len(t) > 0
	case RangeValue:
		return t.Min != nil || t.Max != nil
	case Number:
		return t.Value != nil && *t.Value != 0
	case Raw:
		return truthy(t.V)
	default:
		return !t.IsZero()
	}
}

// Count returns how many keys carry an applied selection.
func Count(sel Selected) int {
	n := 0
	for _, v := range sel {
		if applied(v) {
			n++
		}
	}
	return n
}

// ClampRange resolves absent bounds to the facet bounds and clamps the
// result so that facetMin <= lo <= hi <= facetMax. A lower bound above the
// upper bound is pulled down to it; the bounds are never swapped.
func ClampRange(r RangeValue, facetMin, facetMax int) (lo, hi int) {
	if facetMin > facetMax {
		facetMin, facetMax = facetMax, facetMin
	}
	lo, hi = facetMin, facetMax
	if r.Min != nil {
		lo = Clamp(*r.Min, facetMin, facetMax)
	}
	if r.Max != nil {
		hi = Clamp(*r.Max, facetMin, facetMax)
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

// CompactRange drops bounds that sit on the facet bounds so that a full
// range reads as "no filter".
func CompactRange(lo, hi, facetMin, facetMax int) RangeValue {
	var r RangeValue
	if lo != facetMin {
		r.Min = Int(lo)
	}
	if hi != facetMax {
		r.Max = Int(hi)
	}
	return r
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package vecstore

import "encoding/json"

// Filter is a metadata predicate in the common vector-database filter
// language: field → scalar means equality, field → operator map supports
// $eq/$gte/$lte, and the top-level $and/$or keys compose sub-filters.
//
//	Filter{"type": "document", "owner_id": projectID}
//	Filter{"$or": []Filter{{"award_ceiling": map[string]any{"$gte": 50000.0}}, ...}}
type Filter map[string]any

// Matches reports whether meta satisfies the filter. A nil or empty filter
// matches everything.
func (f Filter) Matches(meta Metadata) bool {
	for key, cond := range f {
		switch key {
		case "$and":
			for _, sub := range subFilters(cond) {
				if !sub.Matches(meta) {
					return false
				}
			}
		case "$or":
			subs := subFilters(cond)
			if len(subs) == 0 {
				continue
			}
			anyMatch := false
			for _, sub := range subs {
				if sub.Matches(meta) {
					anyMatch = true
					break
				}
			}
			if !anyMatch {
				return false
			}
		default:
			if !fieldMatches(meta[key], cond) {
				return false
			}
		}
	}
	return true
}

// subFilters normalises the operand of $and/$or, which may arrive as
// []Filter from Go callers or []any from decoded JSON.
func subFilters(cond any) []Filter {
	switch v := cond.(type) {
	case []Filter:
		return v
	case []any:
		out := make([]Filter, 0, len(v))
		for _, e := range v {
			switch m := e.(type) {
			case Filter:
				out = append(out, m)
			case map[string]any:
				out = append(out, Filter(m))
			}
		}
		return out
	case Filter:
		return []Filter{v}
	case map[string]any:
		return []Filter{Filter(v)}
	default:
		return nil
	}
}

func fieldMatches(value, cond any) bool {
	ops, ok := asOperatorMap(cond)
	if !ok {
		return equals(value, cond)
	}

	for op, want := range ops {
		switch op {
		case "$eq":
			if !equals(value, want) {
				return false
			}
		case "$gte":
			v, okV := toFloat(value)
			w, okW := toFloat(want)
			if !okV || !okW || v < w {
				return false
			}
		case "$lte":
			v, okV := toFloat(value)
			w, okW := toFloat(want)
			if !okV || !okW || v > w {
				return false
			}
		default:
			// Unknown operator: fail closed.
			return false
		}
	}
	return true
}

func asOperatorMap(cond any) (map[string]any, bool) {
	m, ok := cond.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if len(k) == 0 || k[0] != '$' {
			return nil, false
		}
	}
	return m, true
}

func equals(value, want any) bool {
	if v, okV := toFloat(value); okV {
		if w, okW := toFloat(want); okW {
			return v == w
		}
		return false
	}
	return value == want
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

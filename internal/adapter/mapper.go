package adapter

import (
	"sort"
	"strings"
)

// FeatureMapper renames source property keys to canonical column names.
// Unmapped keys pass through unchanged; mapping keys absent from the input
// are ignored.
type FeatureMapper struct {
	mapping map[string]string
}

// NewFeatureMapper builds a mapper from {source key -> canonical key}.
func NewFeatureMapper(mapping map[string]string) *FeatureMapper {
	m := make(map[string]string, len(mapping))
	for k, v := range mapping {
		m[k] = v
	}
	return &FeatureMapper{mapping: m}
}

// Map returns a renamed copy of props. When several source keys rename to
// the same canonical key, the first non-empty value in sorted key order
// wins, so the result is deterministic and an empty column never shadows a
// populated one. The input map is never mutated.
func (m *FeatureMapper) Map(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		target := k
		if mapped, ok := m.mapping[k]; ok {
			target = mapped
		}
		if prev, taken := out[target]; taken && !emptyValue(prev) {
			continue
		}
		out[target] = props[k]
	}
	return out
}

func emptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// mergeMapping overlays user-supplied entries on an adapter's defaults.
// User entries win on exact source-key match.
func mergeMapping(defaults, user map[string]string) map[string]string {
	merged := make(map[string]string, len(defaults)+len(user))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range user {
		merged[k] = v
	}
	return merged
}

package adapter

import "strings"

// Two-tier highway normalization: numeric codes 1-9 map onto the ordinal
// road-class ladder, free-text synonyms map onto the same ladder. Values
// missing from both tiers pass through lower-cased.
var highwayLadder = map[string]string{
	"1": "motorway",
	"2": "trunk",
	"3": "primary",
	"4": "secondary",
	"5": "tertiary",
	"6": "residential",
	"7": "service",
	"8": "track",
	"9": "path",
}

var highwaySynonyms = map[string]string{
	"interstate":   "motorway",
	"freeway":      "motorway",
	"highway":      "trunk",
	"major":        "primary",
	"arterial":     "primary",
	"collector":    "secondary",
	"minor":        "tertiary",
	"local":        "residential",
	"neighborhood": "residential",
	"access":       "service",
	"driveway":     "service",
	"alley":        "service",
	"dirt":         "track",
	"trail":        "path",
	"footway":      "footway",
	"sidewalk":     "footway",
	"bike":         "cycleway",
	"bikeway":      "cycleway",
}

// NormalizeHighway maps a raw road-class value onto the canonical highway
// vocabulary. Overrides extend and shadow both built-in tiers; override
// keys are matched against the lower-cased input.
func NormalizeHighway(value string, overrides map[string]string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if mapped, ok := overrides[v]; ok {
		return mapped
	}
	if mapped, ok := highwayLadder[v]; ok {
		return mapped
	}
	if mapped, ok := highwaySynonyms[v]; ok {
		return mapped
	}
	return v
}

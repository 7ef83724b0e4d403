// Package pipeline builds feature matrices from canonical edges, trains a
// street-quality classifier, and applies or transfers it to new regions.
package pipeline

import (
	"github.com/gridwise/streetquality/internal/model"
	"github.com/gridwise/streetquality/internal/scoring"
)

// DefaultFeatures is the candidate feature set. The actual feature list of
// a dataset is this set intersected with the columns the source carried,
// which keeps models schema-stable across adapters.
var DefaultFeatures = []string{"highway", "lanes", "maxspeed", "service", "length", "width"}

// numericFeature marks which candidate features are numeric; the rest are
// categorical.
var numericFeature = map[string]bool{
	"lanes":    true,
	"maxspeed": true,
	"length":   true,
	"width":    true,
}

// FeatureRow holds one edge's feature values: *float64 for numeric
// features, *string for categorical ones, nil for missing. Values of any
// other type (including bare float64/string) are treated as missing by
// the preprocessing stage, so rows must be built through Prepare or with
// pointer values.
type FeatureRow map[string]any

// Dataset is a prepared feature matrix with its binary target.
type Dataset struct {
	Rows       []FeatureRow
	Target     []int
	Features   []string
	TargetName string
}

// Prepare selects the candidate features available in the table and builds
// the binary target: 1 for rows flagged quality, 0 otherwise.
func Prepare(t *model.EdgeTable, labels []scoring.Label, targetName string) *Dataset {
	if targetName == "" {
		targetName = "is_quality"
	}

	var features []string
	for _, f := range DefaultFeatures {
		if t.Has(model.Column(f)) {
			features = append(features, f)
		}
	}

	rows := make([]FeatureRow, len(t.Edges))
	target := make([]int, len(t.Edges))
	for i := range t.Edges {
		rows[i] = edgeFeatureRow(&t.Edges[i], features)
		if i < len(labels) && labels[i].IsQuality {
			target[i] = 1
		}
	}

	return &Dataset{
		Rows:       rows,
		Target:     target,
		Features:   features,
		TargetName: targetName,
	}
}

// edgeFeatureRow extracts the named features from an edge.
func edgeFeatureRow(e *model.Edge, features []string) FeatureRow {
	row := make(FeatureRow, len(features))
	for _, f := range features {
		c := model.Column(f)
		if numericFeature[f] {
			if v := e.NumericValue(c); v != nil {
				row[f] = v
			}
		} else {
			if v := e.StringValue(c); v != nil {
				row[f] = v
			}
		}
	}
	return row
}

// featureRows builds rows for a whole table against a fixed feature list;
// used by Apply where the list comes from the trained model.
func featureRows(t *model.EdgeTable, features []string) []FeatureRow {
	rows := make([]FeatureRow, len(t.Edges))
	for i := range t.Edges {
		rows[i] = edgeFeatureRow(&t.Edges[i], features)
	}
	return rows
}

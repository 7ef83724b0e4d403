package pipeline

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// NumericStats summarizes one numeric feature within one target class.
type NumericStats struct {
	Count  int
	Mean   float64
	Median float64
	Std    float64
}

// FeatureSummary describes how a feature distributes across the two
// target classes. Numeric features carry per-class statistics; categorical
// features carry value frequencies per class.
type FeatureSummary struct {
	Numeric     bool
	ByClass     map[int]NumericStats
	Frequencies map[string]map[int]int
}

// AnalyzeFeatures computes a per-feature breakdown of a prepared dataset,
// split by target class. Missing numeric values are excluded from the
// statistics rather than imputed.
func AnalyzeFeatures(ds *Dataset) map[string]FeatureSummary {
	out := make(map[string]FeatureSummary, len(ds.Features))

	for _, f := range ds.Features {
		if numericFeature[f] {
			out[f] = numericSummary(ds, f)
		} else {
			out[f] = categoricalSummary(ds, f)
		}
	}
	return out
}

func numericSummary(ds *Dataset, f string) FeatureSummary {
	byClass := make(map[int][]float64, 2)
	for i, row := range ds.Rows {
		if v, ok := row[f].(*float64); ok && v != nil {
			byClass[ds.Target[i]] = append(byClass[ds.Target[i]], *v)
		}
	}

	summary := FeatureSummary{Numeric: true, ByClass: make(map[int]NumericStats, 2)}
	for class, vals := range byClass {
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		mean, std := stat.MeanStdDev(vals, nil)
		summary.ByClass[class] = NumericStats{
			Count:  len(vals),
			Mean:   mean,
			Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
			Std:    std,
		}
	}
	return summary
}

func categoricalSummary(ds *Dataset, f string) FeatureSummary {
	freq := make(map[string]map[int]int)
	for i, row := range ds.Rows {
		val := categoricalValue(row, f)
		if freq[val] == nil {
			freq[val] = make(map[int]int, 2)
		}
		freq[val][ds.Target[i]]++
	}
	return FeatureSummary{Frequencies: freq}
}

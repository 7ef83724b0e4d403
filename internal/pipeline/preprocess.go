package pipeline

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// missingCategory is the imputation constant for absent categorical values.
const missingCategory = "missing"

// Preprocessor turns feature rows into dense numeric vectors. Numeric
// features are median-imputed and standardized; categorical features are
// constant-imputed and one-hot encoded against the vocabulary seen at fit
// time. Fields are exported so the preprocessor serializes inside a model
// bundle.
type Preprocessor struct {
	NumericFeatures     []string
	CategoricalFeatures []string
	Medians             map[string]float64
	Means               map[string]float64
	Stds                map[string]float64
	Vocab               map[string][]string

	vocabIndex map[string]map[string]int
}

// FitPreprocessor learns imputation and scaling statistics from the given
// rows. Statistics for a numeric feature with no observed values default
// to median 0, mean 0, std 1.
func FitPreprocessor(rows []FeatureRow, features []string) *Preprocessor {
	p := &Preprocessor{
		Medians: make(map[string]float64),
		Means:   make(map[string]float64),
		Stds:    make(map[string]float64),
		Vocab:   make(map[string][]string),
	}

	for _, f := range features {
		if numericFeature[f] {
			p.NumericFeatures = append(p.NumericFeatures, f)
		} else {
			p.CategoricalFeatures = append(p.CategoricalFeatures, f)
		}
	}

	for _, f := range p.NumericFeatures {
		var vals []float64
		for _, row := range rows {
			if v, ok := row[f].(*float64); ok && v != nil {
				vals = append(vals, *v)
			}
		}
		if len(vals) == 0 {
			p.Medians[f] = 0
			p.Means[f] = 0
			p.Stds[f] = 1
			continue
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
		p.Medians[f] = median

		imputed := make([]float64, 0, len(rows))
		for _, row := range rows {
			if v, ok := row[f].(*float64); ok && v != nil {
				imputed = append(imputed, *v)
			} else {
				imputed = append(imputed, median)
			}
		}
		mean, std := stat.MeanStdDev(imputed, nil)
		if std == 0 {
			std = 1
		}
		p.Means[f] = mean
		p.Stds[f] = std
	}

	for _, f := range p.CategoricalFeatures {
		seen := make(map[string]struct{})
		for _, row := range rows {
			seen[categoricalValue(row, f)] = struct{}{}
		}
		vocab := make([]string, 0, len(seen))
		for v := range seen {
			vocab = append(vocab, v)
		}
		sort.Strings(vocab)
		p.Vocab[f] = vocab
	}

	p.buildIndex()
	return p
}

// Transform encodes rows into vectors laid out as all standardized numeric
// features followed by the one-hot blocks in fit order. Categories unseen
// at fit time encode as an all-zero block.
func (p *Preprocessor) Transform(rows []FeatureRow) [][]float64 {
	if p.vocabIndex == nil {
		p.buildIndex()
	}

	width := len(p.NumericFeatures)
	for _, f := range p.CategoricalFeatures {
		width += len(p.Vocab[f])
	}

	out := make([][]float64, len(rows))
	for i, row := range rows {
		vec := make([]float64, width)
		j := 0
		for _, f := range p.NumericFeatures {
			val := p.Medians[f]
			if v, ok := row[f].(*float64); ok && v != nil {
				val = *v
			}
			vec[j] = (val - p.Means[f]) / p.Stds[f]
			j++
		}
		for _, f := range p.CategoricalFeatures {
			if idx, ok := p.vocabIndex[f][categoricalValue(row, f)]; ok {
				vec[j+idx] = 1
			}
			j += len(p.Vocab[f])
		}
		out[i] = vec
	}
	return out
}

// EncodedNames returns one name per output column, with one-hot columns
// named feature=value.
func (p *Preprocessor) EncodedNames() []string {
	names := append([]string(nil), p.NumericFeatures...)
	for _, f := range p.CategoricalFeatures {
		for _, v := range p.Vocab[f] {
			names = append(names, f+"="+v)
		}
	}
	return names
}

func (p *Preprocessor) buildIndex() {
	p.vocabIndex = make(map[string]map[string]int, len(p.Vocab))
	for f, vocab := range p.Vocab {
		idx := make(map[string]int, len(vocab))
		for i, v := range vocab {
			idx[v] = i
		}
		p.vocabIndex[f] = idx
	}
}

func categoricalValue(row FeatureRow, f string) string {
	if v, ok := row[f].(*string); ok && v != nil {
		return *v
	}
	return missingCategory
}

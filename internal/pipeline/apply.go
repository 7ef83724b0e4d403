package pipeline

import (
	"github.com/gridwise/streetquality/internal/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Prediction is the model's verdict for one edge.
type Prediction struct {
	Probability float64
	Predicted   int
}

// Apply scores every edge in the table with a loaded bundle. Edges whose
// probability meets the threshold are predicted quality; threshold <= 0
// means 0.5. When the bundle carries no feature list the default set is
// used, with a logged warning since predictions degrade.
func Apply(b *Bundle, t *model.EdgeTable, threshold float64) ([]Prediction, error) {
	if t.Len() == 0 {
		return nil, eris.New("pipeline: empty edge table")
	}
	if threshold <= 0 {
		threshold = 0.5
	}

	features := b.Metadata.Features
	if len(features) == 0 {
		features = DefaultFeatures
		zap.L().Warn("model bundle lists no features, falling back to defaults",
			zap.String("component", "pipeline"),
			zap.Strings("features", features),
		)
	}

	var missing []string
	for _, f := range features {
		if !t.Has(model.Column(f)) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		zap.L().Warn("target data lacks model features, values will be imputed",
			zap.String("component", "pipeline"),
			zap.Strings("missing", missing),
		)
	}

	rows := featureRows(t, features)
	probs := b.Model.Probabilities(rows)

	preds := make([]Prediction, len(probs))
	quality := 0
	for i, p := range probs {
		preds[i].Probability = p
		if p >= threshold {
			preds[i].Predicted = 1
			quality++
		}
	}

	zap.L().Info("model applied",
		zap.String("component", "pipeline"),
		zap.Int("edges", t.Len()),
		zap.Int("predicted_quality", quality),
		zap.Float64("threshold", threshold),
	)
	return preds, nil
}

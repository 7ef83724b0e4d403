package pipeline

import (
	"math"
	"math/rand"

	randomforest "github.com/malaschitz/randomForest"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrDegenerateTarget indicates the target column holds a single class, so
// no classifier can be trained.
var ErrDegenerateTarget = eris.New("pipeline: target has a single class")

// Model is a trained street-quality classifier together with the
// preprocessor that produced its input encoding.
type Model struct {
	Forest   *randomforest.Forest
	Pre      *Preprocessor
	Features []string
	Trees    int
}

// TrainOptions control the train/test split and forest size. Zero values
// take the defaults: 30% test fraction, seed 42, 100 trees.
type TrainOptions struct {
	TestFraction float64
	Seed         int64
	Trees        int
}

func (o *TrainOptions) applyDefaults() {
	if o.TestFraction <= 0 || o.TestFraction >= 1 {
		o.TestFraction = 0.3
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
	if o.Trees <= 0 {
		o.Trees = 100
	}
}

// Train fits a random forest on a shuffled split of the dataset and
// returns the model plus the held-out rows and their targets for
// evaluation. The split is deterministic for a given seed.
func Train(ds *Dataset, opts TrainOptions) (*Model, []FeatureRow, []int, error) {
	opts.applyDefaults()

	if err := checkTwoClasses(ds.Target); err != nil {
		return nil, nil, nil, err
	}

	n := len(ds.Rows)
	nTest := int(math.Round(float64(n) * opts.TestFraction))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		return nil, nil, nil, eris.Errorf("pipeline: %d rows leave no training data at test fraction %.2f", n, opts.TestFraction)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	perm := rng.Perm(n)

	trainRows := make([]FeatureRow, 0, n-nTest)
	trainY := make([]int, 0, n-nTest)
	testRows := make([]FeatureRow, 0, nTest)
	testY := make([]int, 0, nTest)
	for i, idx := range perm {
		if i < nTest {
			testRows = append(testRows, ds.Rows[idx])
			testY = append(testY, ds.Target[idx])
		} else {
			trainRows = append(trainRows, ds.Rows[idx])
			trainY = append(trainY, ds.Target[idx])
		}
	}

	if err := checkTwoClasses(trainY); err != nil {
		return nil, nil, nil, err
	}

	pre := FitPreprocessor(trainRows, ds.Features)
	x := pre.Transform(trainRows)

	zap.L().Info("training classifier",
		zap.String("component", "pipeline"),
		zap.Int("train_rows", len(trainRows)),
		zap.Int("test_rows", len(testRows)),
		zap.Int("encoded_columns", len(pre.EncodedNames())),
		zap.Int("trees", opts.Trees),
	)

	forest := &randomforest.Forest{
		Data: randomforest.ForestData{X: x, Class: trainY},
	}
	forest.Train(opts.Trees)

	m := &Model{
		Forest:   forest,
		Pre:      pre,
		Features: append([]string(nil), ds.Features...),
		Trees:    opts.Trees,
	}
	return m, testRows, testY, nil
}

// Probability returns the model's quality-class probability for one row.
func (m *Model) Probability(row FeatureRow) float64 {
	x := m.Pre.Transform([]FeatureRow{row})
	votes := m.Forest.Vote(x[0])
	if len(votes) > 1 {
		return votes[1]
	}
	return 0
}

// Probabilities scores a batch of rows.
func (m *Model) Probabilities(rows []FeatureRow) []float64 {
	x := m.Pre.Transform(rows)
	probs := make([]float64, len(rows))
	for i := range x {
		votes := m.Forest.Vote(x[i])
		if len(votes) > 1 {
			probs[i] = votes[1]
		}
	}
	return probs
}

func checkTwoClasses(y []int) error {
	var seen [2]bool
	for _, c := range y {
		if c == 0 || c == 1 {
			seen[c] = true
		}
	}
	if !seen[0] || !seen[1] {
		return eris.Wrap(ErrDegenerateTarget, "pipeline: train")
	}
	return nil
}

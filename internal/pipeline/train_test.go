package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainDegenerateTarget(t *testing.T) {
	ds := syntheticDataset(10)
	for i := range ds.Target {
		ds.Target[i] = 1
	}

	_, _, _, err := Train(ds, TrainOptions{})
	assert.ErrorIs(t, err, ErrDegenerateTarget)
}

func TestTrainTooFewRows(t *testing.T) {
	ds := syntheticDataset(2)

	_, _, _, err := Train(ds, TrainOptions{TestFraction: 0.9})
	assert.Error(t, err)
}

func TestTrainSplitSizes(t *testing.T) {
	ds := syntheticDataset(20)

	m, testRows, testY, err := Train(ds, TrainOptions{TestFraction: 0.3, Seed: 42})
	require.NoError(t, err)

	assert.Len(t, testRows, 6)
	assert.Len(t, testY, 6)
	assert.Equal(t, ds.Features, m.Features)
	assert.Equal(t, 100, m.Trees)
}

func TestTrainSplitDeterministic(t *testing.T) {
	ds := syntheticDataset(20)

	_, rowsA, yA, err := Train(ds, TrainOptions{Seed: 7})
	require.NoError(t, err)
	_, rowsB, yB, err := Train(ds, TrainOptions{Seed: 7})
	require.NoError(t, err)

	assert.Equal(t, yA, yB)
	assert.Equal(t, rowsA, rowsB)
}

func TestTrainSeparatesClasses(t *testing.T) {
	ds := syntheticDataset(40)

	m, _, _, err := Train(ds, TrainOptions{Seed: 42})
	require.NoError(t, err)

	narrow := FeatureRow{
		"highway": ptrString("residential"), "width": ptrFloat64(3.5),
		"lanes": ptrFloat64(1), "maxspeed": ptrFloat64(20), "length": ptrFloat64(85),
	}
	wide := FeatureRow{
		"highway": ptrString("primary"), "width": ptrFloat64(14),
		"lanes": ptrFloat64(4), "maxspeed": ptrFloat64(50), "length": ptrFloat64(85),
	}

	assert.Greater(t, m.Probability(narrow), 0.7)
	assert.Less(t, m.Probability(wide), 0.3)
}

func TestProbabilitiesBatch(t *testing.T) {
	ds := syntheticDataset(40)
	m, testRows, _, err := Train(ds, TrainOptions{Seed: 42})
	require.NoError(t, err)

	probs := m.Probabilities(testRows)
	require.Len(t, probs, len(testRows))
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

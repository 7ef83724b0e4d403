package pipeline

import (
	"math/rand"
	"sort"

	"github.com/rotisserie/eris"
)

// ClassMetrics holds precision/recall/F1 for one class.
type ClassMetrics struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Metrics summarizes a model's held-out performance. ROCAUC is nil when
// the test set contains a single class. FeatureImportance is permutation
// importance: the accuracy drop when one input feature is shuffled.
type Metrics struct {
	Accuracy          float64
	PerClass          map[int]ClassMetrics
	ROCAUC            *float64
	FeatureImportance map[string]float64
}

// Evaluate scores the model against held-out rows at a 0.5 threshold.
func Evaluate(m *Model, rows []FeatureRow, y []int, seed int64) (*Metrics, error) {
	if len(rows) == 0 {
		return nil, eris.New("pipeline: empty evaluation set")
	}
	if len(rows) != len(y) {
		return nil, eris.Errorf("pipeline: %d rows vs %d targets", len(rows), len(y))
	}

	probs := m.Probabilities(rows)
	preds := hardPredictions(probs, 0.5)

	metrics := &Metrics{
		Accuracy: accuracy(preds, y),
		PerClass: classMetrics(preds, y),
	}
	if auc, ok := rocAUC(probs, y); ok {
		metrics.ROCAUC = &auc
	}
	metrics.FeatureImportance = permutationImportance(m, rows, y, metrics.Accuracy, seed)
	return metrics, nil
}

func hardPredictions(probs []float64, threshold float64) []int {
	preds := make([]int, len(probs))
	for i, p := range probs {
		if p >= threshold {
			preds[i] = 1
		}
	}
	return preds
}

func accuracy(preds, y []int) float64 {
	correct := 0
	for i := range preds {
		if preds[i] == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(preds))
}

func classMetrics(preds, y []int) map[int]ClassMetrics {
	out := make(map[int]ClassMetrics, 2)
	for _, class := range []int{0, 1} {
		var tp, fp, fn, support int
		for i := range preds {
			if y[i] == class {
				support++
			}
			switch {
			case preds[i] == class && y[i] == class:
				tp++
			case preds[i] == class && y[i] != class:
				fp++
			case preds[i] != class && y[i] == class:
				fn++
			}
		}
		cm := ClassMetrics{Support: support}
		if tp+fp > 0 {
			cm.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			cm.Recall = float64(tp) / float64(tp+fn)
		}
		if cm.Precision+cm.Recall > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
		}
		out[class] = cm
	}
	return out
}

// rocAUC computes the area under the ROC curve by the rank-sum method,
// with average ranks over probability ties. The second return is false
// when y holds a single class.
func rocAUC(probs []float64, y []int) (float64, bool) {
	n := len(probs)
	var nPos, nNeg int
	for _, c := range y {
		if c == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0, false
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return probs[order[a]] < probs[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && probs[order[j]] == probs[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // 1-based average rank of the tie group
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}

	var sumPos float64
	for i, c := range y {
		if c == 1 {
			sumPos += ranks[i]
		}
	}
	auc := (sumPos - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg))
	return auc, true
}

// permutationImportance shuffles one feature at a time across the rows and
// reports the accuracy drop per feature.
func permutationImportance(m *Model, rows []FeatureRow, y []int, baseline float64, seed int64) map[string]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make(map[string]float64, len(m.Features))

	for _, f := range m.Features {
		shuffled := make([]FeatureRow, len(rows))
		for i, row := range rows {
			cp := make(FeatureRow, len(row))
			for k, v := range row {
				cp[k] = v
			}
			shuffled[i] = cp
		}
		perm := rng.Perm(len(rows))
		for i, j := range perm {
			shuffled[i][f] = rows[j][f]
		}

		probs := m.Probabilities(shuffled)
		preds := hardPredictions(probs, 0.5)
		out[f] = baseline - accuracy(preds, y)
	}
	return out
}

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwise/streetquality/internal/model"
	"github.com/gridwise/streetquality/internal/scoring"
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// syntheticTable builds n edges, alternating narrow and wide streets.
func syntheticTable(n int) *model.EdgeTable {
	edges := make([]model.Edge, n)
	for i := range edges {
		edges[i] = model.Edge{
			U: int64(i), V: int64(n + i),
			Length: ptrFloat64(80 + float64(i)),
		}
		if i%2 == 0 {
			edges[i].Highway = ptrString("residential")
			edges[i].Width = ptrFloat64(3.5)
			edges[i].Lanes = ptrFloat64(1)
			edges[i].Maxspeed = ptrFloat64(20)
		} else {
			edges[i].Highway = ptrString("primary")
			edges[i].Width = ptrFloat64(14)
			edges[i].Lanes = ptrFloat64(4)
			edges[i].Maxspeed = ptrFloat64(50)
		}
	}
	t := model.NewEdgeTable(edges)
	t.MarkPresent(model.ColLength)
	return t
}

func syntheticDataset(n int) *Dataset {
	tbl := syntheticTable(n)
	return Prepare(tbl, scoring.Score(tbl), "is_quality")
}

func TestPrepareSelectsPresentFeatures(t *testing.T) {
	tbl := syntheticTable(4)
	ds := Prepare(tbl, scoring.Score(tbl), "")

	// service is not present in the table, so it is not a feature.
	assert.Equal(t, []string{"highway", "lanes", "maxspeed", "length", "width"}, ds.Features)
	assert.Equal(t, "is_quality", ds.TargetName)
}

func TestPrepareTarget(t *testing.T) {
	tbl := syntheticTable(6)
	ds := Prepare(tbl, scoring.Score(tbl), "is_quality")

	require.Len(t, ds.Target, 6)
	assert.Equal(t, []int{1, 0, 1, 0, 1, 0}, ds.Target)
}

func TestPrepareRowValues(t *testing.T) {
	tbl := syntheticTable(2)
	ds := Prepare(tbl, scoring.Score(tbl), "is_quality")

	row := ds.Rows[0]
	assert.Equal(t, "residential", *row["highway"].(*string))
	assert.Equal(t, 3.5, *row["width"].(*float64))
	assert.Equal(t, 1.0, *row["lanes"].(*float64))

	_, hasService := row["service"]
	assert.False(t, hasService)
}

func TestPrepareMissingValuesAbsentFromRow(t *testing.T) {
	edges := []model.Edge{{U: 1, V: 2, Highway: ptrString("residential")}}
	tbl := model.NewEdgeTable(edges)
	ds := Prepare(tbl, scoring.Score(tbl), "is_quality")

	row := ds.Rows[0]
	_, hasWidth := row["width"]
	assert.False(t, hasWidth, "nil numeric value leaves the key out")
	assert.Contains(t, row, "highway")
}

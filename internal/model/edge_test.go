package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

func TestNewEdgeTableRequiredColumns(t *testing.T) {
	tbl := NewEdgeTable([]Edge{{U: 1, V: 2}})

	for _, c := range RequiredColumns() {
		assert.True(t, tbl.Has(c), "required column %s", c)
	}
	assert.False(t, tbl.Has(ColService))
	assert.False(t, tbl.Has(ColName))
	assert.Equal(t, 1, tbl.Len())
}

func TestMarkPresent(t *testing.T) {
	tbl := NewEdgeTable(nil)
	assert.False(t, tbl.Has(ColService))

	tbl.MarkPresent(ColService, ColName)
	assert.True(t, tbl.Has(ColService))
	assert.True(t, tbl.Has(ColName))
}

func TestEdgeValueAccessors(t *testing.T) {
	e := Edge{
		Width:   ptrFloat64(4.5),
		Lanes:   ptrFloat64(2),
		Highway: ptrString("residential"),
		Service: ptrString("alley"),
	}

	assert.Equal(t, 4.5, *e.NumericValue(ColWidth))
	assert.Equal(t, 2.0, *e.NumericValue(ColLanes))
	assert.Nil(t, e.NumericValue(ColMaxspeed))
	assert.Nil(t, e.NumericValue(ColHighway), "string column through numeric accessor")

	assert.Equal(t, "residential", *e.StringValue(ColHighway))
	assert.Equal(t, "alley", *e.StringValue(ColService))
	assert.Nil(t, e.StringValue(ColName))
	assert.Nil(t, e.StringValue(ColWidth), "numeric column through string accessor")
}

// Package model defines the canonical street-edge schema shared by every
// source adapter and the scoring/prediction pipeline.
package model

import (
	"github.com/twpayne/go-geom"
)

// Column identifies a canonical edge attribute.
type Column string

// Canonical column names. Every adapter emits tables keyed by these names,
// regardless of how the source spells them.
const (
	ColU        Column = "u"
	ColV        Column = "v"
	ColKey      Column = "key"
	ColGeometry Column = "geometry"
	ColHighway  Column = "highway"
	ColWidth    Column = "width"
	ColLanes    Column = "lanes"
	ColMaxspeed Column = "maxspeed"
	ColLength   Column = "length"
	ColName     Column = "name"
	ColService  Column = "service"
	ColOneway   Column = "oneway"
	ColAccess   Column = "access"
	ColBridge   Column = "bridge"
	ColTunnel   Column = "tunnel"
)

// RequiredColumns are present in every adapter's output, even when the
// source carries no such attribute (the values are then all nil).
func RequiredColumns() []Column {
	return []Column{ColGeometry, ColHighway, ColWidth, ColLanes, ColMaxspeed, ColU, ColV, ColKey}
}

// NumericColumns are coerced to float64 during extraction; unparsable
// values become nil rather than errors.
func NumericColumns() []Column {
	return []Column{ColWidth, ColLanes, ColMaxspeed, ColLength}
}

// Edge is one canonical street segment. (U, V, Key) uniquely identifies a
// row within a single extraction. Nil pointers mean "missing".
type Edge struct {
	U   int64 `json:"u"`
	V   int64 `json:"v"`
	Key int   `json:"key"`

	// Geometry is a LineString or MultiLineString in the working CRS.
	Geometry geom.T `json:"-"`

	Highway  *string  `json:"highway,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Lanes    *float64 `json:"lanes,omitempty"`
	Maxspeed *float64 `json:"maxspeed,omitempty"`
	Length   *float64 `json:"length,omitempty"`

	Name    *string `json:"name,omitempty"`
	Service *string `json:"service,omitempty"`
	Oneway  *string `json:"oneway,omitempty"`
	Access  *string `json:"access,omitempty"`
	Bridge  *string `json:"bridge,omitempty"`
	Tunnel  *string `json:"tunnel,omitempty"`
}

// EdgeTable is a collection of canonical edges plus the set of columns the
// source actually carried. Present lets downstream stages distinguish a
// column that is entirely missing from one that merely has nil values.
type EdgeTable struct {
	Edges   []Edge
	Present map[Column]bool
}

// NewEdgeTable builds a table over edges with the required columns marked
// present.
func NewEdgeTable(edges []Edge) *EdgeTable {
	t := &EdgeTable{
		Edges:   edges,
		Present: make(map[Column]bool),
	}
	for _, c := range RequiredColumns() {
		t.Present[c] = true
	}
	return t
}

// Has reports whether the column was observed in the source.
func (t *EdgeTable) Has(c Column) bool {
	return t.Present[c]
}

// MarkPresent records columns observed in the source.
func (t *EdgeTable) MarkPresent(cols ...Column) {
	for _, c := range cols {
		t.Present[c] = true
	}
}

// Len returns the number of edges.
func (t *EdgeTable) Len() int {
	return len(t.Edges)
}

// NumericValue returns the named numeric column of an edge, or nil.
func (e *Edge) NumericValue(c Column) *float64 {
	switch c {
	case ColWidth:
		return e.Width
	case ColLanes:
		return e.Lanes
	case ColMaxspeed:
		return e.Maxspeed
	case ColLength:
		return e.Length
	default:
		return nil
	}
}

// StringValue returns the named string column of an edge, or nil.
func (e *Edge) StringValue(c Column) *string {
	switch c {
	case ColHighway:
		return e.Highway
	case ColName:
		return e.Name
	case ColService:
		return e.Service
	case ColOneway:
		return e.Oneway
	case ColAccess:
		return e.Access
	case ColBridge:
		return e.Bridge
	case ColTunnel:
		return e.Tunnel
	default:
		return nil
	}
}

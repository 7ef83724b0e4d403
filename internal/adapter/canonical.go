package adapter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/gridwise/streetquality/internal/model"
)

// Feature is one raw source row prior to canonicalization: a geometry plus
// a free-form property bag, with optional native topology identifiers.
type Feature struct {
	Geometry geom.T
	Props    map[string]any

	// Native node identifiers and parallel-edge key, when the source has
	// topology. Left nil for flat vector sources.
	U   *int64
	V   *int64
	Key *int
}

// canonicalizeOptions control the shared normalization steps.
type canonicalizeOptions struct {
	// component names the adapter in log output.
	component string
	mapper    *FeatureMapper
	// highwayOverrides extend the built-in highway normalization tiers.
	highwayOverrides map[string]string
}

// canonicalize applies the shared adapter contract to raw features:
// line-geometry filtering with a logged drop count, feature mapping,
// required-column guarantees, u/v/key synthesis, numeric coercion, highway
// normalization, and length derivation.
func canonicalize(features []Feature, opts canonicalizeOptions) (*model.EdgeTable, error) {
	log := zap.L().With(zap.String("component", opts.component))

	// Only line features survive; everything else is dropped with a signal.
	kept := features[:0:0]
	var dropped int
	for _, f := range features {
		if f.Geometry == nil || !model.IsLine(f.Geometry) {
			dropped++
			continue
		}
		kept = append(kept, f)
	}
	if dropped > 0 {
		log.Warn("dropped non-line geometries", zap.Int("dropped", dropped))
	}
	if len(kept) == 0 {
		return nil, ErrEmptyResult
	}

	mapper := opts.mapper
	if mapper == nil {
		mapper = NewFeatureMapper(nil)
	}

	n := int64(len(kept))
	edges := make([]model.Edge, 0, len(kept))
	present := make(map[model.Column]bool)
	keyCounter := make(map[[2]int64]int)

	for i, f := range kept {
		props := mapper.Map(f.Props)
		for k := range props {
			switch c := model.Column(k); c {
			case model.ColHighway, model.ColWidth, model.ColLanes, model.ColMaxspeed,
				model.ColLength, model.ColName, model.ColService, model.ColOneway,
				model.ColAccess, model.ColBridge, model.ColTunnel:
				present[c] = true
			}
		}

		e := model.Edge{Geometry: f.Geometry}

		// Topology: native identifiers when the source has them, disjoint
		// synthetic ranges otherwise.
		switch {
		case f.U != nil && f.V != nil:
			e.U = *f.U
			e.V = *f.V
			if f.Key != nil {
				e.Key = *f.Key
			} else {
				pair := [2]int64{e.U, e.V}
				e.Key = keyCounter[pair]
				keyCounter[pair]++
			}
		default:
			e.U = int64(i)
			e.V = n + int64(i)
			e.Key = 0
		}

		e.Width = coerceFloat(props[string(model.ColWidth)])
		e.Lanes = coerceFloat(props[string(model.ColLanes)])
		e.Maxspeed = coerceFloat(props[string(model.ColMaxspeed)])
		e.Length = coerceFloat(props[string(model.ColLength)])

		if raw, ok := props[string(model.ColHighway)]; ok {
			if s := anyToString(raw); s != "" {
				norm := NormalizeHighway(s, opts.highwayOverrides)
				e.Highway = &norm
			}
		}

		e.Name = stringProp(props, model.ColName)
		e.Service = stringProp(props, model.ColService)
		e.Oneway = stringProp(props, model.ColOneway)
		e.Access = stringProp(props, model.ColAccess)
		e.Bridge = stringProp(props, model.ColBridge)
		e.Tunnel = stringProp(props, model.ColTunnel)

		edges = append(edges, e)
	}
	// Derive length from geometry when the source has none, or coercion
	// left the column entirely missing.
	allMissing := true
	for i := range edges {
		if edges[i].Length != nil {
			allMissing = false
			break
		}
	}
	if allMissing {
		for i := range edges {
			l := model.LineLength(edges[i].Geometry)
			edges[i].Length = &l
		}
	}
	present[model.ColLength] = true

	table := model.NewEdgeTable(edges)
	for c := range present {
		table.MarkPresent(c)
	}
	return table, nil
}

// coerceFloat converts arbitrary source values to a float, returning nil
// for anything unparsable. Invalid values degrade to missing, never error.
func coerceFloat(v any) *float64 {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		f := x
		return &f
	case float32:
		f := float64(x)
		return &f
	case int:
		f := float64(x)
		return &f
	case int32:
		f := float64(x)
		return &f
	case int64:
		f := float64(x)
		return &f
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// anyToString renders a scalar property value as a string. Integral floats
// print without a decimal point so numeric road-class codes normalize the
// same whether the source stored "3" or 3.0.
func anyToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "yes"
		}
		return "no"
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func stringProp(props map[string]any, c model.Column) *string {
	raw, ok := props[string(c)]
	if !ok {
		return nil
	}
	s := anyToString(raw)
	if s == "" {
		return nil
	}
	return &s
}

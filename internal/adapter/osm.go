package adapter

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/rotisserie/eris"
	overpass "github.com/serjvanilla/go-overpass"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/gridwise/streetquality/internal/model"
)

// Road classes excluded per network type, following the usual OSM routing
// profiles. "all" excludes nothing.
var networkTypeExclusions = map[string]map[string]bool{
	"drive": toSet("footway", "path", "cycleway", "steps", "pedestrian", "bridleway",
		"corridor", "platform", "construction", "proposed", "abandoned", "raceway",
		"elevator", "escalator", "track"),
	"walk": toSet("motorway", "motorway_link"),
	"bike": toSet("motorway", "motorway_link", "footway", "steps"),
	"all":  {},
}

func toSet(vals ...string) map[string]bool {
	s := make(map[string]bool, len(vals))
	for _, v := range vals {
		s[v] = true
	}
	return s
}

// OSMAdapter loads OpenStreetMap street networks from place names (via the
// Overpass API), .osm XML extracts, or .osm.pbf binary extracts.
type OSMAdapter struct {
	cfg    OSMConfig
	mapper *FeatureMapper
	client overpass.Client
}

func osmFormats() []string { return []string{".osm", ".osm.pbf", ".pbf"} }

// NewOSMAdapter builds an OSM adapter from a raw JSON config.
func NewOSMAdapter(raw json.RawMessage) (*OSMAdapter, error) {
	var cfg OSMConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	if _, ok := networkTypeExclusions[cfg.NetworkType]; !ok {
		return nil, eris.Errorf("osm: unknown network type %q", cfg.NetworkType)
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second}
	return &OSMAdapter{
		cfg:    cfg,
		mapper: NewFeatureMapper(cfg.FeatureMapping),
		client: overpass.NewWithSettings(cfg.OverpassEndpoint, 1, httpClient),
	}, nil
}

// SupportedFormats implements Adapter.
func (a *OSMAdapter) SupportedFormats() []string { return osmFormats() }

// osmNetwork is the adapter-native raw form: node coordinates plus tagged
// ways referencing them.
type osmNetwork struct {
	nodes map[int64][2]float64 // lon, lat
	ways  []osmWay
}

type osmWay struct {
	id   int64
	refs []int64
	tags map[string]string
}

// Load dispatches on the source suffix: .pbf and .osm.pbf are compiled
// binary extracts, .osm is XML, anything else is treated as a place name
// queried through Overpass.
func (a *OSMAdapter) Load(ctx context.Context, source string) (any, error) {
	lower := strings.ToLower(source)
	switch {
	case strings.HasSuffix(lower, ".pbf"):
		return a.loadFile(ctx, source, true)
	case strings.HasSuffix(lower, ".osm"):
		return a.loadFile(ctx, source, false)
	default:
		return a.loadPlace(source)
	}
}

func (a *OSMAdapter) loadFile(ctx context.Context, path string, pbf bool) (*osmNetwork, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrSourceNotFound, "osm extract %s", path)
	}
	defer func() { _ = f.Close() }()

	var scanner interface {
		Scan() bool
		Object() osm.Object
		Err() error
		Close() error
	}
	if pbf {
		scanner = osmpbf.New(ctx, f, 1)
	} else {
		scanner = osmxml.New(ctx, f)
	}
	defer func() { _ = scanner.Close() }()

	network := &osmNetwork{nodes: make(map[int64][2]float64)}
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			network.nodes[int64(o.ID)] = [2]float64{o.Lon, o.Lat}
		case *osm.Way:
			tags := o.Tags.Map()
			if tags["highway"] == "" {
				continue
			}
			refs := make([]int64, 0, len(o.Nodes))
			for _, wn := range o.Nodes {
				refs = append(refs, int64(wn.ID))
			}
			network.ways = append(network.ways, osmWay{id: int64(o.ID), refs: refs, tags: tags})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "osm: scan %s", path)
	}

	zap.L().Info("osm: extract parsed",
		zap.String("path", path),
		zap.Int("nodes", len(network.nodes)),
		zap.Int("ways", len(network.ways)),
	)
	return network, nil
}

// placeQuery builds an Overpass query for a place string. Each
// comma-separated part becomes an area filter and the filters intersect,
// so "Portland, Oregon" only matches ways inside both the Portland and
// Oregon areas and cannot resolve to Portland, Maine. A bare name still
// carries the ambiguity of every same-named area.
func placeQuery(place string, timeoutSecs int) (string, error) {
	var parts []string
	for _, p := range strings.Split(place, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", eris.Wrapf(ErrSourceNotFound, "osm place %q", place)
	}

	var b strings.Builder
	b.WriteString(`[out:json][timeout:` + strconv.Itoa(timeoutSecs) + `];` + "\n")
	for i, p := range parts {
		b.WriteString(`area["name"="` + strings.ReplaceAll(p, `"`, `\"`) + `"]->.a` + strconv.Itoa(i) + `;` + "\n")
	}
	b.WriteString(`way["highway"]`)
	for i := range parts {
		b.WriteString(`(area.a` + strconv.Itoa(i) + `)`)
	}
	b.WriteString(`;` + "\n(._;>;);\nout body;")
	return b.String(), nil
}

func (a *OSMAdapter) loadPlace(place string) (*osmNetwork, error) {
	query, err := placeQuery(place, a.cfg.TimeoutSecs)
	if err != nil {
		return nil, err
	}

	result, err := a.client.Query(query)
	if err != nil {
		return nil, eris.Wrapf(ErrConnection, "osm: overpass query for %q: %v", place, err)
	}

	network := &osmNetwork{nodes: make(map[int64][2]float64)}
	for id, node := range result.Nodes {
		if node == nil {
			continue
		}
		network.nodes[id] = [2]float64{node.Lon, node.Lat}
	}
	for id, way := range result.Ways {
		if way == nil || way.Tags["highway"] == "" {
			continue
		}
		refs := make([]int64, 0, len(way.Nodes))
		for _, node := range way.Nodes {
			if node == nil {
				continue
			}
			network.nodes[node.ID] = [2]float64{node.Lon, node.Lat}
			refs = append(refs, node.ID)
		}
		network.ways = append(network.ways, osmWay{id: id, refs: refs, tags: way.Tags})
	}

	zap.L().Info("osm: overpass result",
		zap.String("place", place),
		zap.Int("nodes", len(network.nodes)),
		zap.Int("ways", len(network.ways)),
	)
	return network, nil
}

// ExtractEdges converts the way graph into canonical edges. With simplify
// enabled, degree-2 node chains merge into one edge per street segment
// between intersections; otherwise every consecutive node pair becomes an
// edge. Unless retain_all is set, only the largest connected component
// survives.
func (a *OSMAdapter) ExtractEdges(_ context.Context, raw any) (*model.EdgeTable, error) {
	network, ok := raw.(*osmNetwork)
	if !ok {
		return nil, eris.Errorf("osm: unexpected raw type %T", raw)
	}

	excluded := networkTypeExclusions[a.cfg.NetworkType]
	var kept []osmWay
	for _, w := range network.ways {
		if excluded[w.tags["highway"]] || len(w.refs) < 2 {
			continue
		}
		kept = append(kept, w)
	}

	// Node usage across kept ways determines intersections.
	usage := make(map[int64]int)
	for _, w := range kept {
		for _, ref := range w.refs {
			usage[ref]++
		}
	}

	var edges []osmEdge

	for _, w := range kept {
		segStart := -1
		for i, ref := range w.refs {
			if _, known := network.nodes[ref]; !known {
				// Incomplete extract: break the segment at the gap.
				segStart = -1
				continue
			}
			if segStart < 0 {
				segStart = i
				continue
			}

			isSplit := i == len(w.refs)-1 || usage[ref] > 1
			if !*a.cfg.Simplify {
				isSplit = true
			}
			if !isSplit {
				continue
			}

			flat := make([]float64, 0, (i-segStart+1)*2)
			for j := segStart; j <= i; j++ {
				c, known := network.nodes[w.refs[j]]
				if !known {
					continue
				}
				flat = append(flat, c[0], c[1])
			}
			if len(flat) >= 4 {
				edges = append(edges, osmEdge{u: w.refs[segStart], v: ref, flat: flat, tags: w.tags})
			}
			segStart = i
		}
	}

	if !a.cfg.RetainAll {
		edges = largestComponent(edges)
	}

	features := make([]Feature, 0, len(edges))
	for _, e := range edges {
		props := make(map[string]any, len(e.tags)+1)
		for k, v := range e.tags {
			props[k] = v
		}
		props["length"] = haversineLength(e.flat)

		u, v := e.u, e.v
		features = append(features, Feature{
			Geometry: geom.NewLineStringFlat(geom.XY, e.flat),
			Props:    props,
			U:        &u,
			V:        &v,
		})
	}

	return canonicalize(features, canonicalizeOptions{
		component:        "adapter.osm",
		mapper:           a.mapper,
		highwayOverrides: a.cfg.HighwayMapping,
	})
}

// osmEdge is an intermediate segment between two graph nodes.
type osmEdge struct {
	u, v int64
	flat []float64
	tags map[string]string
}

// largestComponent keeps only edges in the biggest connected component,
// using union-find over endpoint node ids.
func largestComponent(edges []osmEdge) []osmEdge {
	parent := make(map[int64]int64)

	var find func(x int64) int64
	find = func(x int64) int64 {
		p, ok := parent[x]
		if !ok {
			parent[x] = x
			return x
		}
		if p == x {
			return x
		}
		root := find(p)
		parent[x] = root
		return root
	}

	for _, e := range edges {
		ru, rv := find(e.u), find(e.v)
		if ru != rv {
			parent[ru] = rv
		}
	}

	counts := make(map[int64]int)
	var best int64
	bestCount := -1
	for _, e := range edges {
		root := find(e.u)
		counts[root]++
		if counts[root] > bestCount {
			best, bestCount = root, counts[root]
		}
	}

	kept := edges[:0:0]
	for _, e := range edges {
		if find(e.u) == best {
			kept = append(kept, e)
		}
	}
	return kept
}

// haversineLength sums great-circle distances over a flat lon/lat
// coordinate sequence, in meters.
func haversineLength(flat []float64) float64 {
	const r = 6371000.0
	var total float64
	for i := 2; i+1 < len(flat); i += 2 {
		lon1, lat1 := flat[i-2]*math.Pi/180, flat[i-1]*math.Pi/180
		lon2, lat2 := flat[i]*math.Pi/180, flat[i+1]*math.Pi/180
		dLat := lat2 - lat1
		dLon := lon2 - lon1
		h := math.Sin(dLat/2)*math.Sin(dLat/2) +
			math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
		total += 2 * r * math.Asin(math.Sqrt(h))
	}
	return total
}

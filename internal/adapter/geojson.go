package adapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"

	"github.com/gridwise/streetquality/internal/model"
)

// geojsonDefaultMapping covers common property spellings in GeoJSON street
// datasets, both camelCase and snake_case.
var geojsonDefaultMapping = map[string]string{
	"roadType":   "highway",
	"road_type":  "highway",
	"type":       "highway",
	"streetType": "highway",

	"roadWidth":  "width",
	"road_width": "width",
	"width_m":    "width",

	"laneCount":  "lanes",
	"lane_count": "lanes",
	"num_lanes":  "lanes",

	"speedLimit":  "maxspeed",
	"speed_limit": "maxspeed",
	"maxSpeed":    "maxspeed",
	"max_speed":   "maxspeed",

	"roadName":    "name",
	"road_name":   "name",
	"street_name": "name",

	"oneWay":   "oneway",
	"one_way":  "oneway",
	"isOneway": "oneway",

	"serviceType":  "service",
	"service_type": "service",

	"length_m":   "length",
	"roadLength": "length",
}

// GeoJSONAdapter reads GeoJSON street networks from local files or remote
// URLs, including documents with non-standard geometry/property keys.
type GeoJSONAdapter struct {
	cfg    GeoJSONConfig
	mapper *FeatureMapper
	client *http.Client
}

func geojsonFormats() []string { return []string{".geojson", ".json"} }

// NewGeoJSONAdapter builds a GeoJSON adapter from a raw JSON config.
func NewGeoJSONAdapter(raw json.RawMessage) (*GeoJSONAdapter, error) {
	var cfg GeoJSONConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	return &GeoJSONAdapter{
		cfg:    cfg,
		mapper: NewFeatureMapper(mergeMapping(geojsonDefaultMapping, cfg.FeatureMapping)),
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second},
	}, nil
}

// SupportedFormats implements Adapter.
func (a *GeoJSONAdapter) SupportedFormats() []string { return geojsonFormats() }

type geojsonData struct {
	features []Feature
}

// Load fetches and parses the document, applying the configured
// property-equality filter. Local paths without a recognized extension are
// retried with .geojson and .json appended.
func (a *GeoJSONAdapter) Load(ctx context.Context, source string) (any, error) {
	var (
		data []byte
		err  error
	)
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		data, err = a.fetch(ctx, source)
	} else {
		data, err = a.readLocal(source)
	}
	if err != nil {
		return nil, err
	}

	features, err := a.parse(data)
	if err != nil {
		return nil, err
	}

	if len(a.cfg.FilterBy) > 0 {
		features = filterByProps(features, a.cfg.FilterBy)
	}

	return &geojsonData{features: features}, nil
}

// ExtractEdges canonicalizes a loaded document. A pre-parsed
// FeatureCollection is accepted in place of the Load handle.
func (a *GeoJSONAdapter) ExtractEdges(_ context.Context, raw any) (*model.EdgeTable, error) {
	var features []Feature
	switch data := raw.(type) {
	case *geojsonData:
		features = data.features
	case *geomjson.FeatureCollection:
		for _, f := range data.Features {
			features = append(features, Feature{Geometry: f.Geometry, Props: f.Properties})
		}
		if len(a.cfg.FilterBy) > 0 {
			features = filterByProps(features, a.cfg.FilterBy)
		}
	default:
		return nil, eris.Errorf("geojson: unexpected raw type %T", raw)
	}

	return canonicalize(features, canonicalizeOptions{
		component:        "adapter.geojson",
		mapper:           a.mapper,
		highwayOverrides: a.cfg.HighwayMapping,
	})
}

func (a *GeoJSONAdapter) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geojson: build request")
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(ErrConnection, "geojson: fetch %s: %v", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, eris.Wrapf(ErrSourceNotFound, "geojson: %s", url)
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Wrapf(ErrConnection, "geojson: fetch %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(ErrConnection, "geojson: read %s: %v", url, err)
	}
	return data, nil
}

func (a *GeoJSONAdapter) readLocal(source string) ([]byte, error) {
	candidates := []string{source}
	lower := strings.ToLower(source)
	if !strings.HasSuffix(lower, ".geojson") && !strings.HasSuffix(lower, ".json") {
		candidates = append(candidates, source+".geojson", source+".json")
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
	}
	return nil, eris.Wrapf(ErrSourceNotFound, "geojson: tried %s", strings.Join(candidates, ", "))
}

// parse decodes a FeatureCollection or a single Feature. Documents with
// custom geometry/property keys go through the generic path.
func (a *GeoJSONAdapter) parse(data []byte) ([]Feature, error) {
	standardKeys := a.cfg.GeometryKey == "geometry" && a.cfg.PropertiesKey == "properties"

	if standardKeys {
		var fc geomjson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err == nil && len(fc.Features) > 0 {
			features := make([]Feature, 0, len(fc.Features))
			for _, f := range fc.Features {
				features = append(features, Feature{Geometry: f.Geometry, Props: f.Properties})
			}
			return features, nil
		}
	}

	return a.parseGeneric(data)
}

// parseGeneric handles documents that the strict decoder rejects: single
// Feature objects and collections with non-standard keys.
func (a *GeoJSONAdapter) parseGeneric(data []byte) ([]Feature, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "geojson: parse document")
	}

	var rawFeatures []json.RawMessage
	if rawList, ok := doc["features"]; ok {
		if err := json.Unmarshal(rawList, &rawFeatures); err != nil {
			return nil, eris.Wrap(err, "geojson: parse features array")
		}
	} else if rawType, ok := doc["type"]; ok {
		var typ string
		if err := json.Unmarshal(rawType, &typ); err == nil && typ == "Feature" {
			rawFeatures = []json.RawMessage{json.RawMessage(data)}
		}
	}
	if rawFeatures == nil {
		return nil, eris.New(`geojson: document must contain a "features" array or be a Feature`)
	}

	var features []Feature
	for i, rawFeature := range rawFeatures {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(rawFeature, &obj); err != nil {
			return nil, eris.Wrapf(err, "geojson: parse feature %d", i)
		}

		var g geom.T
		if rawGeom, ok := obj[a.cfg.GeometryKey]; ok && string(rawGeom) != "null" {
			if err := geomjson.Unmarshal(rawGeom, &g); err != nil {
				// Unsupported geometry: keep the row so the drop is counted.
				g = nil
			}
		}

		props := make(map[string]any)
		if rawProps, ok := obj[a.cfg.PropertiesKey]; ok && string(rawProps) != "null" {
			if err := json.Unmarshal(rawProps, &props); err != nil {
				return nil, eris.Wrapf(err, "geojson: parse properties of feature %d", i)
			}
		}

		features = append(features, Feature{Geometry: g, Props: props})
	}
	return features, nil
}

// filterByProps keeps features whose properties match every configured
// key/value pair, compared as strings.
func filterByProps(features []Feature, filter map[string]any) []Feature {
	kept := features[:0:0]
	for _, f := range features {
		match := true
		for k, want := range filter {
			got, ok := f.Props[k]
			if !ok || anyToString(got) != anyToString(want) {
				match = false
				break
			}
		}
		if match {
			kept = append(kept, f)
		}
	}
	return kept
}

package adapter

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/gridwise/streetquality/internal/model"
)

// shapefileDefaultMapping covers the field spellings seen across municipal
// road shapefiles.
var shapefileDefaultMapping = map[string]string{
	"rd_type":    "highway",
	"road_type":  "highway",
	"type":       "highway",
	"streettype": "highway",

	"rd_width":  "width",
	"roadwidth": "width",
	"width_m":   "width",

	"lanes_cnt":  "lanes",
	"num_lanes":  "lanes",
	"lane_count": "lanes",

	"speed_lim": "maxspeed",
	"max_speed": "maxspeed",
	"speed":     "maxspeed",

	"rd_name":    "name",
	"street_nam": "name",
	"streetname": "name",

	"oneway":    "oneway",
	"one_way":   "oneway",
	"direction": "oneway",

	"rd_service": "service",
	"serv_type":  "service",

	"length_m":   "length",
	"segment_le": "length",
}

// ShapefileAdapter reads ESRI shapefiles of street segments.
type ShapefileAdapter struct {
	cfg     ShapefileConfig
	mapper  *FeatureMapper
	decoder *encoding.Decoder // nil for utf-8
	crs     int
}

func shapefileFormats() []string { return []string{".shp"} }

// NewShapefileAdapter builds a shapefile adapter from a raw JSON config.
func NewShapefileAdapter(raw json.RawMessage) (*ShapefileAdapter, error) {
	var cfg ShapefileConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	crs, err := model.ParseEPSG(cfg.CRS)
	if err != nil {
		return nil, eris.Wrap(err, "shapefile: invalid crs")
	}

	var dec *encoding.Decoder
	switch strings.ToLower(cfg.Encoding) {
	case "utf-8", "utf8":
	case "latin1", "latin-1", "iso-8859-1":
		dec = charmap.ISO8859_1.NewDecoder()
	case "windows-1252", "cp1252":
		dec = charmap.Windows1252.NewDecoder()
	default:
		return nil, eris.Errorf("shapefile: unsupported encoding %q", cfg.Encoding)
	}

	return &ShapefileAdapter{
		cfg:     cfg,
		mapper:  NewFeatureMapper(mergeMapping(shapefileDefaultMapping, cfg.FeatureMapping)),
		decoder: dec,
		crs:     crs,
	}, nil
}

// SupportedFormats implements Adapter.
func (a *ShapefileAdapter) SupportedFormats() []string { return shapefileFormats() }

type shapefileData struct {
	path    string
	srcEPSG int
}

// Load resolves the shapefile path, appending .shp when missing, and sniffs
// the native CRS from the .prj sidecar.
func (a *ShapefileAdapter) Load(_ context.Context, source string) (any, error) {
	path := source
	if !strings.HasSuffix(strings.ToLower(path), ".shp") {
		path += ".shp"
	}
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(ErrSourceNotFound, "shapefile %s", path)
	}

	srcEPSG := a.crs
	prjPath := strings.TrimSuffix(path, ".shp") + ".prj"
	if prj, err := os.ReadFile(prjPath); err == nil {
		if sniffed, ok := sniffEPSG(string(prj)); ok {
			srcEPSG = sniffed
		}
	}

	return &shapefileData{path: path, srcEPSG: srcEPSG}, nil
}

// ExtractEdges reads all records and canonicalizes them. Attribute values
// are keyed by lower-cased, NUL-trimmed DBF field names.
func (a *ShapefileAdapter) ExtractEdges(_ context.Context, raw any) (*model.EdgeTable, error) {
	data, ok := raw.(*shapefileData)
	if !ok {
		return nil, eris.Errorf("shapefile: unexpected raw type %T", raw)
	}

	reader, err := shp.Open(data.path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", data.path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	var features []Feature
	for reader.Next() {
		_, shape := reader.Shape()

		props := make(map[string]any, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val == "" {
				continue
			}
			if a.decoder != nil {
				if decoded, derr := a.decoder.String(val); derr == nil {
					val = decoded
				}
			}
			props[name] = val
		}

		g := shapeToLine(shape)
		if g != nil && data.srcEPSG != a.crs {
			reproj, rerr := model.ReprojectLine(g, data.srcEPSG, a.crs)
			if rerr != nil {
				zap.L().Warn("shapefile: reprojection unavailable, keeping native coordinates",
					zap.Int("src_epsg", data.srcEPSG),
					zap.Int("dst_epsg", a.crs),
					zap.Error(rerr),
				)
			} else {
				g = reproj
			}
		}

		features = append(features, Feature{Geometry: g, Props: props})
	}

	return canonicalize(features, canonicalizeOptions{
		component:        "adapter.shapefile",
		mapper:           a.mapper,
		highwayOverrides: a.cfg.HighwayMapping,
	})
}

// shapeToLine converts a shapefile PolyLine to a go-geom line geometry.
// Non-line shapes return nil and are dropped during canonicalization.
func shapeToLine(s shp.Shape) geom.T {
	pl, ok := s.(*shp.PolyLine)
	if !ok || pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	if pl.NumParts == 1 {
		return geom.NewLineStringFlat(geom.XY, polyLinePartFlat(pl, 0))
	}

	mls := geom.NewMultiLineString(geom.XY)
	for i := int32(0); i < pl.NumParts; i++ {
		ls := geom.NewLineStringFlat(geom.XY, polyLinePartFlat(pl, i))
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("shapefile: skipping malformed polyline part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

func polyLinePartFlat(pl *shp.PolyLine, part int32) []float64 {
	start := pl.Parts[part]
	end := int32(len(pl.Points))
	if part+1 < pl.NumParts {
		end = pl.Parts[part+1]
	}

	flat := make([]float64, 0, (end-start)*2)
	for j := start; j < end; j++ {
		flat = append(flat, pl.Points[j].X, pl.Points[j].Y)
	}
	return flat
}

// sniffEPSG guesses the EPSG code from .prj well-known text.
func sniffEPSG(prj string) (int, bool) {
	upper := strings.ToUpper(prj)
	switch {
	case strings.Contains(upper, "3857"),
		strings.Contains(upper, "WEB_MERCATOR"),
		strings.Contains(upper, "PSEUDO-MERCATOR"),
		strings.Contains(upper, "PSEUDO_MERCATOR"):
		return model.EPSGWebMercator, true
	case strings.Contains(upper, "4326"),
		strings.Contains(upper, "WGS_1984"),
		strings.Contains(upper, "WGS 84"):
		return model.EPSGWGS84, true
	default:
		return 0, false
	}
}

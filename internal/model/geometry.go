package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// EPSG codes the geometry helpers understand natively.
const (
	EPSGWGS84       = 4326
	EPSGWebMercator = 3857
)

const earthRadiusM = 6378137.0

// IsLine reports whether g is a line feature (LineString or
// MultiLineString). All other geometry types are dropped during
// canonicalization.
func IsLine(g geom.T) bool {
	switch g.(type) {
	case *geom.LineString, *geom.MultiLineString:
		return true
	default:
		return false
	}
}

// LineLength returns the planar length of a line geometry in the units of
// its working coordinate system.
func LineLength(g geom.T) float64 {
	switch l := g.(type) {
	case *geom.LineString:
		return flatLength(l.FlatCoords(), l.Stride())
	case *geom.MultiLineString:
		var total float64
		for i := 0; i < l.NumLineStrings(); i++ {
			ls := l.LineString(i)
			total += flatLength(ls.FlatCoords(), ls.Stride())
		}
		return total
	default:
		return 0
	}
}

func flatLength(flat []float64, stride int) float64 {
	var sum float64
	for i := stride; i+1 < len(flat); i += stride {
		dx := flat[i] - flat[i-stride]
		dy := flat[i+1] - flat[i-stride+1]
		sum += math.Hypot(dx, dy)
	}
	return sum
}

// ToWKT serializes a geometry as well-known text for tabular output.
func ToWKT(g geom.T) (string, error) {
	s, err := wkt.Marshal(g)
	if err != nil {
		return "", eris.Wrap(err, "model: encode WKT")
	}
	return s, nil
}

// ParseEPSG parses a CRS spec such as "EPSG:4326" or a bare code.
func ParseEPSG(crs string) (int, error) {
	s := strings.TrimSpace(crs)
	if s == "" {
		return 0, eris.New("model: empty CRS")
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		if !strings.EqualFold(s[:i], "epsg") {
			return 0, eris.Errorf("model: unsupported CRS authority %q", s[:i])
		}
		s = s[i+1:]
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, eris.Wrapf(err, "model: parse CRS %q", crs)
	}
	return code, nil
}

// ReprojectLine converts a line geometry between the supported coordinate
// systems (WGS84 and web mercator). Identity when from == to.
func ReprojectLine(g geom.T, from, to int) (geom.T, error) {
	if from == to {
		return g, nil
	}

	var convert func(x, y float64) (float64, float64)
	switch {
	case from == EPSGWebMercator && to == EPSGWGS84:
		convert = mercatorToWGS84
	case from == EPSGWGS84 && to == EPSGWebMercator:
		convert = wgs84ToMercator
	default:
		return nil, eris.Errorf("model: unsupported reprojection EPSG:%d -> EPSG:%d", from, to)
	}

	switch l := g.(type) {
	case *geom.LineString:
		return geom.NewLineStringFlat(geom.XY, convertFlat(l.FlatCoords(), l.Stride(), convert)), nil
	case *geom.MultiLineString:
		out := geom.NewMultiLineString(geom.XY)
		for i := 0; i < l.NumLineStrings(); i++ {
			ls := l.LineString(i)
			part := geom.NewLineStringFlat(geom.XY, convertFlat(ls.FlatCoords(), ls.Stride(), convert))
			if err := out.Push(part); err != nil {
				return nil, eris.Wrap(err, "model: rebuild multilinestring")
			}
		}
		return out, nil
	default:
		return nil, eris.Errorf("model: cannot reproject %T", g)
	}
}

func convertFlat(flat []float64, stride int, convert func(x, y float64) (float64, float64)) []float64 {
	out := make([]float64, 0, (len(flat)/stride)*2)
	for i := 0; i+1 < len(flat); i += stride {
		x, y := convert(flat[i], flat[i+1])
		out = append(out, x, y)
	}
	return out
}

func mercatorToWGS84(x, y float64) (float64, float64) {
	lon := x / earthRadiusM * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/earthRadiusM)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

func wgs84ToMercator(lon, lat float64) (float64, float64) {
	x := lon * math.Pi / 180 * earthRadiusM
	y := math.Log(math.Tan(math.Pi/4+lat*math.Pi/360)) * earthRadiusM
	return x, y
}

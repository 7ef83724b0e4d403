package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwise/streetquality/internal/model"
)

const geojsonStreets = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"geometry": {"type": "LineString", "coordinates": [[0,0],[1,0]]},
			"properties": {"roadType": "local", "roadWidth": 4.5, "laneCount": 1}
		},
		{
			"type": "Feature",
			"geometry": {"type": "LineString", "coordinates": [[1,0],[2,0]]},
			"properties": {"roadType": "arterial", "speedLimit": 50}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [5,5]},
			"properties": {"roadType": "local"}
		}
	]
}`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func extractGeoJSON(t *testing.T, a *GeoJSONAdapter, source string) *model.EdgeTable {
	t.Helper()
	raw, err := a.Load(context.Background(), source)
	require.NoError(t, err)
	tbl, err := a.ExtractEdges(context.Background(), raw)
	require.NoError(t, err)
	return tbl
}

func TestGeoJSONLocalFile(t *testing.T) {
	a, err := NewGeoJSONAdapter(nil)
	require.NoError(t, err)

	path := writeTempFile(t, "streets.geojson", geojsonStreets)
	tbl := extractGeoJSON(t, a, path)

	require.Equal(t, 2, tbl.Len(), "point feature is dropped")

	first := tbl.Edges[0]
	assert.Equal(t, "residential", *first.Highway, "roadType local normalizes")
	assert.Equal(t, 4.5, *first.Width)
	assert.Equal(t, 1.0, *first.Lanes)

	second := tbl.Edges[1]
	assert.Equal(t, "primary", *second.Highway)
	assert.Equal(t, 50.0, *second.Maxspeed)
}

func TestGeoJSONExtensionFallback(t *testing.T) {
	a, err := NewGeoJSONAdapter(nil)
	require.NoError(t, err)

	path := writeTempFile(t, "streets.geojson", geojsonStreets)
	bare := path[:len(path)-len(".geojson")]

	tbl := extractGeoJSON(t, a, bare)
	assert.Equal(t, 2, tbl.Len())
}

func TestGeoJSONMissingFile(t *testing.T) {
	a, err := NewGeoJSONAdapter(nil)
	require.NoError(t, err)

	_, err = a.Load(context.Background(), filepath.Join(t.TempDir(), "nope.geojson"))
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestGeoJSONRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/streets.geojson":
			_, _ = w.Write([]byte(geojsonStreets))
		case "/missing.geojson":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	a, err := NewGeoJSONAdapter(nil)
	require.NoError(t, err)

	tbl := extractGeoJSON(t, a, srv.URL+"/streets.geojson")
	assert.Equal(t, 2, tbl.Len())

	_, err = a.Load(context.Background(), srv.URL+"/missing.geojson")
	assert.ErrorIs(t, err, ErrSourceNotFound)

	_, err = a.Load(context.Background(), srv.URL+"/boom")
	assert.ErrorIs(t, err, ErrConnection)
}

func TestGeoJSONCustomKeys(t *testing.T) {
	doc := `{
		"streets": [
			{"geom": {"type": "LineString", "coordinates": [[0,0],[1,1]]}, "attrs": {"type": "alley"}}
		],
		"features": [
			{"geom": {"type": "LineString", "coordinates": [[0,0],[1,1]]}, "attrs": {"type": "alley"}}
		]
	}`
	a, err := NewGeoJSONAdapter(json.RawMessage(`{"geometry_key":"geom","properties_key":"attrs"}`))
	require.NoError(t, err)

	path := writeTempFile(t, "custom.json", doc)
	tbl := extractGeoJSON(t, a, path)

	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "service", *tbl.Edges[0].Highway)
}

func TestGeoJSONSingleFeature(t *testing.T) {
	doc := `{
		"type": "Feature",
		"geometry": {"type": "LineString", "coordinates": [[0,0],[0,1]]},
		"properties": {"road_type": "trail"}
	}`
	a, err := NewGeoJSONAdapter(nil)
	require.NoError(t, err)

	path := writeTempFile(t, "single.geojson", doc)
	tbl := extractGeoJSON(t, a, path)

	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "path", *tbl.Edges[0].Highway)
}

func TestGeoJSONFilterBy(t *testing.T) {
	a, err := NewGeoJSONAdapter(json.RawMessage(`{"filter_by":{"roadType":"local"}}`))
	require.NoError(t, err)

	path := writeTempFile(t, "streets.geojson", geojsonStreets)
	tbl := extractGeoJSON(t, a, path)

	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "residential", *tbl.Edges[0].Highway)
}

func TestGeoJSONInvalidDocument(t *testing.T) {
	a, err := NewGeoJSONAdapter(nil)
	require.NoError(t, err)

	path := writeTempFile(t, "bad.geojson", `{"hello": "world"}`)
	_, err = a.Load(context.Background(), path)
	assert.Error(t, err)
}

func TestGeoJSONUnexpectedRawType(t *testing.T) {
	a, err := NewGeoJSONAdapter(nil)
	require.NoError(t, err)

	_, err = a.ExtractEdges(context.Background(), "not a document")
	assert.Error(t, err)
}

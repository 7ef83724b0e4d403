package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwise/streetquality/internal/model"
)

// testOSMXML is a small network: a residential chain 1-2-3 that merges to
// one edge, a service alley 3-4, a disconnected residential pair 5-6, and
// a footway that only exists for the walk profile.
const testOSMXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="0.000" lon="0"/>
  <node id="2" lat="0.001" lon="0"/>
  <node id="3" lat="0.002" lon="0"/>
  <node id="4" lat="0.003" lon="0"/>
  <node id="5" lat="1.000" lon="1"/>
  <node id="6" lat="1.001" lon="1"/>
  <way id="100">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/>
    <tag k="highway" v="residential"/>
    <tag k="name" v="Main Street"/>
    <tag k="maxspeed" v="25"/>
  </way>
  <way id="101">
    <nd ref="3"/><nd ref="4"/>
    <tag k="highway" v="service"/>
    <tag k="service" v="alley"/>
  </way>
  <way id="102">
    <nd ref="5"/><nd ref="6"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="103">
    <nd ref="1"/><nd ref="2"/>
    <tag k="highway" v="footway"/>
  </way>
</osm>`

func writeTestOSM(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.osm")
	require.NoError(t, os.WriteFile(path, []byte(testOSMXML), 0o644))
	return path
}

func extractOSM(t *testing.T, a *OSMAdapter, source string) *model.EdgeTable {
	t.Helper()
	raw, err := a.Load(context.Background(), source)
	require.NoError(t, err)
	tbl, err := a.ExtractEdges(context.Background(), raw)
	require.NoError(t, err)
	return tbl
}

func TestOSMFileSimplifiedDriveNetwork(t *testing.T) {
	a, err := NewOSMAdapter(nil)
	require.NoError(t, err)

	tbl := extractOSM(t, a, writeTestOSM(t))

	// The chain 1-2-3 merges into one edge, the alley joins at node 3,
	// the footway is excluded from the drive profile, and the detached
	// pair 5-6 falls outside the largest component.
	require.Equal(t, 2, tbl.Len())

	first := tbl.Edges[0]
	assert.Equal(t, int64(1), first.U)
	assert.Equal(t, int64(3), first.V)
	assert.Equal(t, "residential", *first.Highway)
	assert.Equal(t, "Main Street", *first.Name)
	assert.Equal(t, 25.0, *first.Maxspeed)
	require.NotNil(t, first.Length)
	assert.InDelta(t, 222.4, *first.Length, 1.0, "two 0.001-degree latitude steps")

	second := tbl.Edges[1]
	assert.Equal(t, int64(3), second.U)
	assert.Equal(t, int64(4), second.V)
	assert.Equal(t, "alley", *second.Service)

	assert.True(t, tbl.Has(model.ColService))
	assert.True(t, tbl.Has(model.ColLength))
}

func TestOSMFileUnsimplified(t *testing.T) {
	a, err := NewOSMAdapter(json.RawMessage(`{"simplify":false}`))
	require.NoError(t, err)

	tbl := extractOSM(t, a, writeTestOSM(t))

	// Every consecutive node pair is its own edge: 1-2, 2-3, 3-4.
	assert.Equal(t, 3, tbl.Len())
}

func TestOSMFileRetainAll(t *testing.T) {
	a, err := NewOSMAdapter(json.RawMessage(`{"retain_all":true}`))
	require.NoError(t, err)

	tbl := extractOSM(t, a, writeTestOSM(t))

	// The detached pair 5-6 survives.
	assert.Equal(t, 3, tbl.Len())
}

func TestOSMWalkProfileKeepsFootways(t *testing.T) {
	a, err := NewOSMAdapter(json.RawMessage(`{"network_type":"walk"}`))
	require.NoError(t, err)

	tbl := extractOSM(t, a, writeTestOSM(t))

	var footways int
	for _, e := range tbl.Edges {
		if e.Highway != nil && *e.Highway == "footway" {
			footways++
		}
	}
	assert.Greater(t, footways, 0)
}

func TestOSMUnknownNetworkType(t *testing.T) {
	_, err := NewOSMAdapter(json.RawMessage(`{"network_type":"boat"}`))
	assert.Error(t, err)
}

func TestOSMMissingFile(t *testing.T) {
	a, err := NewOSMAdapter(nil)
	require.NoError(t, err)

	_, err = a.Load(context.Background(), filepath.Join(t.TempDir(), "nope.osm"))
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestOSMPlaceQueryViaOverpass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"version": 0.6,
			"generator": "test",
			"osm3s": {},
			"elements": [
				{"type": "node", "id": 1, "lat": 0.0, "lon": 0.0},
				{"type": "node", "id": 2, "lat": 0.001, "lon": 0.0},
				{"type": "way", "id": 100, "nodes": [1, 2], "tags": {"highway": "residential"}}
			]
		}`)
	}))
	defer srv.Close()

	a, err := NewOSMAdapter(json.RawMessage(fmt.Sprintf(`{"overpass_endpoint":%q}`, srv.URL)))
	require.NoError(t, err)

	tbl := extractOSM(t, a, "Fulton, Missouri")
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "residential", *tbl.Edges[0].Highway)
}

func TestPlaceQueryIntersectsQualifiers(t *testing.T) {
	q, err := placeQuery("Portland, Oregon", 180)
	require.NoError(t, err)

	// Both the city and the state constrain the way lookup, so this
	// query cannot match Portland, Maine.
	assert.Contains(t, q, `area["name"="Portland"]->.a0;`)
	assert.Contains(t, q, `area["name"="Oregon"]->.a1;`)
	assert.Contains(t, q, `way["highway"](area.a0)(area.a1);`)
	assert.Contains(t, q, "[timeout:180]")

	q, err = placeQuery("Berlin", 60)
	require.NoError(t, err)
	assert.Contains(t, q, `area["name"="Berlin"]->.a0;`)
	assert.Contains(t, q, `way["highway"](area.a0);`)

	q, err = placeQuery(`Land "End"`, 60)
	require.NoError(t, err)
	assert.Contains(t, q, `area["name"="Land \"End\""]`)

	_, err = placeQuery(" , ", 60)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestOSMPlaceQueryConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a, err := NewOSMAdapter(json.RawMessage(fmt.Sprintf(`{"overpass_endpoint":%q}`, srv.URL)))
	require.NoError(t, err)

	_, err = a.Load(context.Background(), "Nowhere")
	assert.ErrorIs(t, err, ErrConnection)
}

func TestLargestComponent(t *testing.T) {
	edges := []osmEdge{
		{u: 1, v: 2},
		{u: 2, v: 3},
		{u: 10, v: 11},
	}

	kept := largestComponent(edges)
	require.Len(t, kept, 2)
	assert.Equal(t, int64(1), kept[0].u)
	assert.Equal(t, int64(2), kept[1].u)
}

func TestHaversineLength(t *testing.T) {
	// One degree of latitude is about 111.19 km.
	flat := []float64{0, 0, 0, 1}
	assert.InDelta(t, 111194, haversineLength(flat), 100)

	assert.Zero(t, haversineLength([]float64{0, 0}))
	assert.Zero(t, haversineLength(nil))
}

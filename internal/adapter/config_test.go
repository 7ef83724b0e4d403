package adapter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfigStrict(t *testing.T) {
	var cfg OSMConfig
	err := decodeConfig(json.RawMessage(`{"network_type":"walk","bogus":1}`), &cfg)
	assert.Error(t, err, "unknown keys are rejected")

	cfg = OSMConfig{}
	require.NoError(t, decodeConfig(json.RawMessage(`{"network_type":"walk"}`), &cfg))
	assert.Equal(t, "walk", cfg.NetworkType)
}

func TestDecodeConfigEmpty(t *testing.T) {
	var cfg ShapefileConfig
	require.NoError(t, decodeConfig(nil, &cfg))
	assert.Zero(t, cfg)
}

func TestOSMConfigDefaults(t *testing.T) {
	var cfg OSMConfig
	cfg.ApplyDefaults()

	assert.Equal(t, "drive", cfg.NetworkType)
	require.NotNil(t, cfg.Simplify)
	assert.True(t, *cfg.Simplify)
	assert.False(t, cfg.RetainAll)
	assert.Equal(t, "https://overpass-api.de/api/interpreter", cfg.OverpassEndpoint)
	assert.Equal(t, 180, cfg.TimeoutSecs)
}

func TestOSMConfigSimplifyOffSurvivesDefaults(t *testing.T) {
	var cfg OSMConfig
	require.NoError(t, decodeConfig(json.RawMessage(`{"simplify":false}`), &cfg))
	cfg.ApplyDefaults()

	require.NotNil(t, cfg.Simplify)
	assert.False(t, *cfg.Simplify)
}

func TestShapefileConfigDefaults(t *testing.T) {
	var cfg ShapefileConfig
	cfg.ApplyDefaults()

	assert.Equal(t, "EPSG:4326", cfg.CRS)
	assert.Equal(t, "utf-8", cfg.Encoding)
}

func TestGeoJSONConfigDefaults(t *testing.T) {
	var cfg GeoJSONConfig
	cfg.ApplyDefaults()

	assert.Equal(t, "geometry", cfg.GeometryKey)
	assert.Equal(t, "properties", cfg.PropertiesKey)
	assert.Equal(t, 60, cfg.TimeoutSecs)
}

func TestPostGISConfigDefaults(t *testing.T) {
	var cfg PostGISConfig
	cfg.ApplyDefaults()

	assert.Equal(t, "geom", cfg.GeometryColumn)
}

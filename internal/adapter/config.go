package adapter

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Per-adapter configuration. Configs are decoded from a JSON object,
// validated strictly (unknown keys are an error, not silently ignored),
// defaulted, and never mutated after construction.

// OSMConfig configures the OSM adapter.
type OSMConfig struct {
	NetworkType      string            `json:"network_type"`
	Simplify         *bool             `json:"simplify"`
	RetainAll        bool              `json:"retain_all"`
	OverpassEndpoint string            `json:"overpass_endpoint"`
	TimeoutSecs      int               `json:"timeout_secs"`
	FeatureMapping   map[string]string `json:"feature_mapping"`
	HighwayMapping   map[string]string `json:"highway_mapping"`
}

// ApplyDefaults fills unset fields.
func (c *OSMConfig) ApplyDefaults() {
	if c.NetworkType == "" {
		c.NetworkType = "drive"
	}
	if c.Simplify == nil {
		t := true
		c.Simplify = &t
	}
	if c.OverpassEndpoint == "" {
		c.OverpassEndpoint = "https://overpass-api.de/api/interpreter"
	}
	if c.TimeoutSecs <= 0 {
		c.TimeoutSecs = 180
	}
}

// ShapefileConfig configures the shapefile adapter.
type ShapefileConfig struct {
	FeatureMapping map[string]string `json:"feature_mapping"`
	HighwayMapping map[string]string `json:"highway_mapping"`
	CRS            string            `json:"crs"`
	Encoding       string            `json:"encoding"`
}

// ApplyDefaults fills unset fields.
func (c *ShapefileConfig) ApplyDefaults() {
	if c.CRS == "" {
		c.CRS = "EPSG:4326"
	}
	if c.Encoding == "" {
		c.Encoding = "utf-8"
	}
}

// GeoJSONConfig configures the GeoJSON adapter.
type GeoJSONConfig struct {
	FeatureMapping map[string]string `json:"feature_mapping"`
	HighwayMapping map[string]string `json:"highway_mapping"`
	CRS            string            `json:"crs"`
	GeometryKey    string            `json:"geometry_key"`
	PropertiesKey  string            `json:"properties_key"`
	FilterBy       map[string]any    `json:"filter_by"`
	TimeoutSecs    int               `json:"timeout_secs"`
}

// ApplyDefaults fills unset fields.
func (c *GeoJSONConfig) ApplyDefaults() {
	if c.CRS == "" {
		c.CRS = "EPSG:4326"
	}
	if c.GeometryKey == "" {
		c.GeometryKey = "geometry"
	}
	if c.PropertiesKey == "" {
		c.PropertiesKey = "properties"
	}
	if c.TimeoutSecs <= 0 {
		c.TimeoutSecs = 60
	}
}

// PostGISConfig configures the PostGIS adapter.
type PostGISConfig struct {
	ConnectionString string            `json:"connection_string"`
	TableName        string            `json:"table_name"`
	GeometryColumn   string            `json:"geometry_column"`
	WhereClause      string            `json:"where_clause"`
	Limit            int               `json:"limit"`
	FeatureMapping   map[string]string `json:"feature_mapping"`
	HighwayMapping   map[string]string `json:"highway_mapping"`
}

// ApplyDefaults fills unset fields.
func (c *PostGISConfig) ApplyDefaults() {
	if c.GeometryColumn == "" {
		c.GeometryColumn = "geom"
	}
}

// decodeConfig strictly decodes a raw JSON config into v. A nil or empty
// raw config leaves v at its zero value.
func decodeConfig(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return eris.Wrap(err, "adapter: decode config")
	}
	return nil
}

// Package adapter translates heterogeneous street-network sources (OSM
// extracts, shapefiles, GeoJSON, PostGIS tables) into canonical edge
// tables. Each source family gets one Adapter; a Registry picks the right
// one for a given source string.
package adapter

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/gridwise/streetquality/internal/model"
)

// Error taxonomy for source resolution and extraction. Adapters fail fast
// and never fall back between source kinds.
var (
	// ErrNoAdapterFound means the registry could not resolve a source or
	// explicit type to a registered adapter.
	ErrNoAdapterFound = eris.New("adapter: no adapter found for source")

	// ErrSourceNotFound means a path, URL, or table does not exist.
	ErrSourceNotFound = eris.New("adapter: source not found")

	// ErrConnection means a network or database source was unreachable.
	ErrConnection = eris.New("adapter: connection failed")

	// ErrEmptyResult means zero usable rows remained after geometry
	// filtering.
	ErrEmptyResult = eris.New("adapter: no line geometries in source")
)

// Adapter loads one source family and extracts canonical edges from it.
type Adapter interface {
	// Load resolves the source into adapter-native form. It must not
	// partially mutate external state on failure.
	Load(ctx context.Context, source string) (any, error)

	// ExtractEdges converts the raw handle returned by Load into a
	// canonical edge table.
	ExtractEdges(ctx context.Context, raw any) (*model.EdgeTable, error)

	// SupportedFormats lists the file extensions (".shp") and URI schemes
	// ("postgresql://") this adapter handles.
	SupportedFormats() []string
}

// Process runs Load then ExtractEdges in one call.
func Process(ctx context.Context, a Adapter, source string) (*model.EdgeTable, error) {
	raw, err := a.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return a.ExtractEdges(ctx, raw)
}

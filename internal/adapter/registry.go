package adapter

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Constructor builds an adapter instance from a raw JSON config.
type Constructor func(raw json.RawMessage) (Adapter, error)

type registration struct {
	name    string
	formats []string
	build   Constructor
}

// Registry maps source patterns and explicit names to adapter
// constructors. It is an explicit value owned by the caller; populate it
// once at startup and pass it to the pipeline entry points.
type Registry struct {
	byName map[string]*registration
	order  []*registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*registration)}
}

// Register records an adapter under a name and indexes it by every
// extension and scheme it declares. Re-registering a name overwrites the
// previous entry while keeping its position in resolution order.
func (r *Registry) Register(name string, formats []string, build Constructor) {
	reg := &registration{name: name, formats: formats, build: build}
	if old, ok := r.byName[name]; ok {
		for i, e := range r.order {
			if e == old {
				r.order[i] = reg
				break
			}
		}
	} else {
		r.order = append(r.order, reg)
	}
	r.byName[name] = reg
}

// Resolve returns an adapter instance for a source along with the name it
// resolved to. An explicit type always wins. Otherwise registered patterns
// are scanned in registration order, matching extensions against the end
// of the source and schemes against its start, case-insensitively; the
// first match wins. A source equal to a registered name is treated as an
// explicit type. Anything else fails with ErrNoAdapterFound.
func (r *Registry) Resolve(source, explicitType string, raw json.RawMessage) (Adapter, string, error) {
	if explicitType != "" {
		reg, ok := r.byName[explicitType]
		if !ok {
			return nil, "", eris.Wrapf(ErrNoAdapterFound, "explicit type %q", explicitType)
		}
		a, err := reg.build(raw)
		return a, reg.name, err
	}

	lower := strings.ToLower(source)
	for _, reg := range r.order {
		for _, f := range reg.formats {
			pattern := strings.ToLower(f)
			var match bool
			if strings.Contains(pattern, "://") {
				match = strings.HasPrefix(lower, pattern)
			} else {
				match = strings.HasSuffix(lower, pattern)
			}
			if match {
				a, err := reg.build(raw)
				return a, reg.name, err
			}
		}
	}

	if reg, ok := r.byName[source]; ok {
		a, err := reg.build(raw)
		return a, reg.name, err
	}

	return nil, "", eris.Wrapf(ErrNoAdapterFound, "source %q", source)
}

// List returns registered adapter names and their supported formats.
func (r *Registry) List() map[string][]string {
	out := make(map[string][]string, len(r.byName))
	for name, reg := range r.byName {
		formats := make([]string, len(reg.formats))
		copy(formats, reg.formats)
		out[name] = formats
	}
	return out
}

// NewDefaultRegistry registers the four standard adapters. OSM is
// registered first so bare place names resolve to it last only via the
// name fallback; pattern order matters for sources matching multiple
// patterns.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("osm", osmFormats(), func(raw json.RawMessage) (Adapter, error) {
		return NewOSMAdapter(raw)
	})
	r.Register("shapefile", shapefileFormats(), func(raw json.RawMessage) (Adapter, error) {
		return NewShapefileAdapter(raw)
	})
	r.Register("geojson", geojsonFormats(), func(raw json.RawMessage) (Adapter, error) {
		return NewGeoJSONAdapter(raw)
	})
	r.Register("postgis", postgisFormats(), func(raw json.RawMessage) (Adapter, error) {
		return NewPostGISAdapter(raw)
	})
	return r
}

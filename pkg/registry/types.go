package registry

// Provider identifies the upstream vendor a style belongs to. The provider
// is an explicit tag on every descriptor, set at registration time; it is
// never inferred from style id naming conventions.
type Provider string

const (
	// ProviderMapTiler is the MapTiler Cloud style/tile service.
	ProviderMapTiler Provider = "maptiler"

	// ProviderMapbox is the Mapbox style/tile service.
	ProviderMapbox Provider = "mapbox"

	// ProviderStadia is the Stadia Maps style/tile service.
	ProviderStadia Provider = "stadia"

	// ProviderESRI is the ArcGIS/ESRI vector tile service.
	ProviderESRI Provider = "esri"

	// ProviderNone marks styles whose upstream needs no credential.
	ProviderNone Provider = "none"
)

// DefaultSourceKey is the tile-template key that applies to any source id
// without its own entry.
const DefaultSourceKey = "default"

// StyleDescriptor describes one registered upstream style: where the real
// style document lives, which provider credential it needs, and the upstream
// tile templates for each source found inside the style document.
type StyleDescriptor struct {
	// ID is the opaque style identifier clients use.
	ID string

	// UpstreamURL is the absolute URL of the real style document.
	UpstreamURL string

	// Provider selects the credential used for upstream fetches.
	Provider Provider

	// TileTemplates maps source ids to upstream tile URL templates with
	// {z}/{x}/{y} placeholders. The DefaultSourceKey entry is the
	// fallback for sources without their own template.
	TileTemplates map[string]string
}

// Clone returns a deep copy of the descriptor. The registry hands out
// clones so callers cannot mutate shared state.
func (d *StyleDescriptor) Clone() *StyleDescriptor {
	templates := make(map[string]string, len(d.TileTemplates))
	for k, v := range d.TileTemplates {
		templates[k] = v
	}
	return &StyleDescriptor{
		ID:            d.ID,
		UpstreamURL:   d.UpstreamURL,
		Provider:      d.Provider,
		TileTemplates: templates,
	}
}

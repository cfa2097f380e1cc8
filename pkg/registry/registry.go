package registry

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"tilehub/atlas/pkg/config"
)

// Registry holds the table of registered style descriptors. Lookups are
// pure; the only mutation is Replace, which atomically swaps the whole
// table during a hot reload.
type Registry struct {
	mu     sync.RWMutex
	styles map[string]*StyleDescriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{styles: make(map[string]*StyleDescriptor)}
}

// NewFromConfig builds a registry from the configuration section: inline
// style definitions first, then (when configured) definitions from the
// styles file merged over them.
func NewFromConfig(cfg config.RegistryConfig) (*Registry, error) {
	descriptors, err := LoadDescriptors(cfg)
	if err != nil {
		return nil, err
	}

	r := New()
	r.Replace(descriptors)
	return r, nil
}

// Register adds or overwrites a single descriptor.
func (r *Registry) Register(desc *StyleDescriptor) error {
	if desc.ID == "" {
		return fmt.Errorf("style descriptor has empty id")
	}
	if err := validateDescriptor(desc); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.styles[desc.ID] = desc.Clone()
	return nil
}

// Resolve returns the descriptor for a style id, or a NotFoundError.
func (r *Registry) Resolve(styleID string) (*StyleDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.styles[styleID]
	if !ok {
		return nil, &NotFoundError{StyleID: styleID}
	}
	return desc.Clone(), nil
}

// TileTemplate returns the upstream tile template for a (style, source)
// pair, falling back to the style's default template. Unknown style ids and
// unmapped source ids both signal NotFoundError.
func (r *Registry) TileTemplate(styleID, sourceID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.styles[styleID]
	if !ok {
		return "", &NotFoundError{StyleID: styleID}
	}
	if tmpl, ok := desc.TileTemplates[sourceID]; ok {
		return tmpl, nil
	}
	if tmpl, ok := desc.TileTemplates[DefaultSourceKey]; ok {
		return tmpl, nil
	}
	return "", &NotFoundError{StyleID: styleID, SourceID: sourceID}
}

// IDs returns all registered style ids, sorted. Served in 404 bodies to aid
// debugging without leaking anything sensitive.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.styles))
	for id := range r.styles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered styles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.styles)
}

// Replace atomically swaps the descriptor table. Used by the file watcher
// so in-flight lookups see either the old table or the new one, never a mix.
func (r *Registry) Replace(descriptors map[string]*StyleDescriptor) {
	table := make(map[string]*StyleDescriptor, len(descriptors))
	for id, desc := range descriptors {
		table[id] = desc.Clone()
	}

	r.mu.Lock()
	r.styles = table
	r.mu.Unlock()
}

// LoadDescriptors resolves the configured style definitions into descriptor
// form, merging the styles file (if any) over inline definitions.
func LoadDescriptors(cfg config.RegistryConfig) (map[string]*StyleDescriptor, error) {
	descriptors := make(map[string]*StyleDescriptor)

	for id, style := range cfg.Styles {
		desc, err := descriptorFromConfig(id, style)
		if err != nil {
			return nil, err
		}
		descriptors[id] = desc
	}

	if cfg.File != "" {
		fromFile, err := loadStylesFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for id, desc := range fromFile {
			descriptors[id] = desc
		}
	}

	return descriptors, nil
}

// stylesFile is the shape of a standalone styles YAML file.
type stylesFile struct {
	Styles map[string]config.StyleConfig `yaml:"styles"`
}

func loadStylesFile(path string) (map[string]*StyleDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read styles file %q: %w", path, err)
	}

	var file stylesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse styles file %q: %w", path, err)
	}

	descriptors := make(map[string]*StyleDescriptor, len(file.Styles))
	for id, style := range file.Styles {
		desc, err := descriptorFromConfig(id, style)
		if err != nil {
			return nil, err
		}
		descriptors[id] = desc
	}
	return descriptors, nil
}

func descriptorFromConfig(id string, style config.StyleConfig) (*StyleDescriptor, error) {
	provider := Provider(style.Provider)
	if provider == "" {
		provider = ProviderNone
	}

	templates := make(map[string]string, len(style.Tiles))
	for source, tmpl := range style.Tiles {
		templates[source] = tmpl
	}

	desc := &StyleDescriptor{
		ID:            id,
		UpstreamURL:   style.URL,
		Provider:      provider,
		TileTemplates: templates,
	}
	if err := validateDescriptor(desc); err != nil {
		return nil, err
	}
	return desc, nil
}

func validateDescriptor(desc *StyleDescriptor) error {
	u, err := url.Parse(desc.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("style %q: upstream URL %q must be absolute", desc.ID, desc.UpstreamURL)
	}
	return nil
}

package convert

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"tilehub/atlas/pkg/upstream"
)

// converterVersion is recorded in the provenance metadata of every
// converted document.
const converterVersion = "1.0"

// baseSegment is the path segment the logical base URL is truncated at.
// Vendor style endpoints keep their sprites, fonts and tiles under it.
const baseSegment = "/resources"

// vendorPrefixes are property-key prefixes stripped from layers during
// conversion. Renderers reject unknown vendor extensions.
var vendorPrefixes = []string{"esri:", "arcgis:"}

// FontRule maps a foreign font name onto one the glyph service can serve.
// From matches as a substring; the first matching rule wins.
type FontRule struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Input is a conversion request.
type Input struct {
	// StyleURL is the absolute URL of the foreign style document.
	StyleURL string `json:"styleUrl"`

	// SpriteURL, when set, overrides the document's sprite reference.
	SpriteURL string `json:"spriteUrl,omitempty"`

	// GlyphsURL, when set, overrides the document's glyphs template.
	GlyphsURL string `json:"glyphsUrl,omitempty"`

	// FontMapping remaps text-font entries, first match wins.
	FontMapping []FontRule `json:"fontMapping,omitempty"`
}

// Statistics summarizes a conversion so callers can sanity-check the result.
type Statistics struct {
	LayerCount     int            `json:"layerCount"`
	SourceCount    int            `json:"sourceCount"`
	LayersByType   map[string]int `json:"layersByType"`
	OriginalBytes  int            `json:"originalBytes"`
	ConvertedBytes int            `json:"convertedBytes"`
	SizeRatio      float64        `json:"sizeRatio"`
}

// Output is a completed conversion.
type Output struct {
	Style      map[string]any `json:"style"`
	Statistics Statistics     `json:"statistics"`
}

// Converter turns a foreign vendor's vector-style document into the
// canonical schema. The transform is deterministic and side-effect-free:
// no caching, no credential injection, and the output carries real
// upstream URLs rather than proxy-relative ones.
type Converter struct {
	client  *upstream.Client
	timeout time.Duration
}

// New builds a Converter over the shared upstream client.
func New(client *upstream.Client, timeout time.Duration) *Converter {
	return &Converter{client: client, timeout: timeout}
}

// Convert fetches the foreign style and rewrites it: relative references
// are absolutized under the document's base URL, vector sources without
// tiles get a synthesized template, fonts are remapped, and
// vendor-prefixed layer properties are dropped. The input URL is validated
// before any network access.
func (c *Converter) Convert(ctx context.Context, in Input) (*Output, error) {
	styleURL, err := validateStyleURL(in.StyleURL)
	if err != nil {
		return nil, err
	}

	res, err := c.client.Fetch(ctx, in.StyleURL, c.timeout)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(res.Body, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}

	base := baseURL(styleURL)

	convertSources(doc, base)
	convertSpriteGlyphs(doc, base, in)
	convertLayers(doc, in.FontMapping)
	stampProvenance(doc, in.StyleURL)

	converted, err := json.Marshal(doc)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	return &Output{
		Style:      doc,
		Statistics: computeStatistics(doc, len(res.Body), len(converted)),
	}, nil
}

func validateStyleURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &BadInputError{Field: "styleUrl", Reason: "not a valid URL"}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &BadInputError{Field: "styleUrl", Reason: "must be an absolute http(s) URL"}
	}
	return u, nil
}

// baseURL truncates the style URL's path at the well-known resources
// segment. Style documents that do not live under one fall back to their
// containing directory.
func baseURL(u *url.URL) string {
	path := u.Path
	if i := strings.Index(path, baseSegment); i >= 0 {
		path = path[:i+len(baseSegment)]
	} else if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return u.Scheme + "://" + u.Host + path
}

// absolutize resolves a document-relative reference under base. Leading
// parent segments collapse onto the base rather than climbing above it, so
// "../resources/x" under ".../root/resources" lands at
// ".../root/resources/resources/x".
func absolutize(base, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	for strings.HasPrefix(ref, "../") {
		ref = ref[len("../"):]
	}
	ref = strings.TrimPrefix(ref, "./")
	ref = strings.TrimPrefix(ref, "/")
	return base + "/" + ref
}

func convertSources(doc map[string]any, base string) {
	sources, ok := doc["sources"].(map[string]any)
	if !ok {
		return
	}

	for _, v := range sources {
		src, ok := v.(map[string]any)
		if !ok {
			continue
		}

		if tiles, ok := src["tiles"].([]any); ok && len(tiles) > 0 {
			for i, entry := range tiles {
				if s, ok := entry.(string); ok {
					tiles[i] = absolutize(base, s)
				}
			}
			delete(src, "url")
			continue
		}

		if src["type"] == "vector" {
			src["tiles"] = []any{base + "/tile/{z}/{y}/{x}.pbf"}
			delete(src, "url")
			continue
		}

		if ref, ok := src["url"].(string); ok && ref != "" {
			src["url"] = absolutize(base, ref)
		}
	}
}

func convertSpriteGlyphs(doc map[string]any, base string, in Input) {
	switch {
	case in.SpriteURL != "":
		doc["sprite"] = in.SpriteURL
	default:
		if sprite, ok := doc["sprite"].(string); ok && sprite != "" {
			doc["sprite"] = absolutize(base, sprite)
		}
	}

	switch {
	case in.GlyphsURL != "":
		doc["glyphs"] = in.GlyphsURL
	default:
		if glyphs, ok := doc["glyphs"].(string); ok && glyphs != "" {
			doc["glyphs"] = absolutize(base, glyphs)
		}
	}
}

func convertLayers(doc map[string]any, fonts []FontRule) {
	layers, ok := doc["layers"].([]any)
	if !ok {
		return
	}

	for _, v := range layers {
		layer, ok := v.(map[string]any)
		if !ok {
			continue
		}

		stripVendorKeys(layer)
		if layout, ok := layer["layout"].(map[string]any); ok {
			stripVendorKeys(layout)
			remapFonts(layout, fonts)
		}
		if paint, ok := layer["paint"].(map[string]any); ok {
			stripVendorKeys(paint)
		}
	}
}

func stripVendorKeys(m map[string]any) {
	for key := range m {
		for _, prefix := range vendorPrefixes {
			if strings.HasPrefix(key, prefix) {
				delete(m, key)
				break
			}
		}
	}
}

func remapFonts(layout map[string]any, rules []FontRule) {
	if len(rules) == 0 {
		return
	}
	fonts, ok := layout["text-font"].([]any)
	if !ok {
		return
	}
	for i, v := range fonts {
		name, ok := v.(string)
		if !ok {
			continue
		}
		for _, rule := range rules {
			if strings.Contains(name, rule.From) {
				fonts[i] = rule.To
				break
			}
		}
	}
}

func stampProvenance(doc map[string]any, sourceURL string) {
	meta, ok := doc["metadata"].(map[string]any)
	if !ok {
		meta = make(map[string]any)
	}
	meta["converted"] = true
	meta["sourceUrl"] = sourceURL
	meta["converterVersion"] = converterVersion
	meta["reportId"] = uuid.NewString()
	meta["convertedAt"] = time.Now().UTC().Format(time.RFC3339)
	doc["metadata"] = meta
}

func computeStatistics(doc map[string]any, originalBytes, convertedBytes int) Statistics {
	stats := Statistics{
		LayersByType:   make(map[string]int),
		OriginalBytes:  originalBytes,
		ConvertedBytes: convertedBytes,
	}
	if originalBytes > 0 {
		stats.SizeRatio = float64(convertedBytes) / float64(originalBytes)
	}

	if layers, ok := doc["layers"].([]any); ok {
		stats.LayerCount = len(layers)
		for _, v := range layers {
			if layer, ok := v.(map[string]any); ok {
				if t, ok := layer["type"].(string); ok {
					stats.LayersByType[t]++
				}
			}
		}
	}
	if sources, ok := doc["sources"].(map[string]any); ok {
		stats.SourceCount = len(sources)
	}
	return stats
}

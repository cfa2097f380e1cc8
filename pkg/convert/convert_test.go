package convert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tilehub/atlas/pkg/config"
	"tilehub/atlas/pkg/telemetry/logging"
	"tilehub/atlas/pkg/upstream"
)

func newTestConverter(t *testing.T, doc string) (*Converter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}))
	t.Cleanup(srv.Close)

	client := upstream.NewClient(config.UpstreamConfig{MaxRetries: 0}, logging.NewRedactor())
	return New(client, 5*time.Second), srv
}

// ===========================================================================
// Base URL and reference absolutization
// ===========================================================================

func TestAbsolutize(t *testing.T) {
	base := "https://host/root/resources"
	tests := []struct {
		ref  string
		want string
	}{
		{"../resources/sprites/sprite", base + "/resources/sprites/sprite"},
		{"../../fonts/f", base + "/fonts/f"},
		{"./styles/root.json", base + "/styles/root.json"},
		{"tiles/index.json", base + "/tiles/index.json"},
		{"/tiles/index.json", base + "/tiles/index.json"},
		{"https://other.example.com/abs.json", "https://other.example.com/abs.json"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := absolutize(base, tt.ref); got != tt.want {
			t.Errorf("absolutize(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestConvertSpriteAgainstResourcesBase(t *testing.T) {
	doc := `{
		"version": 8,
		"sprite": "../resources/sprites/sprite",
		"sources": {"esri": {"type": "vector", "url": "../../"}},
		"layers": [{"id": "bg", "type": "background"}]
	}`
	c, srv := newTestConverter(t, doc)

	out, err := c.Convert(context.Background(), Input{
		StyleURL: srv.URL + "/root/resources/styles/root.json",
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	// srv.URL stands in for https://host; the base extraction rule keeps
	// everything up to and including /resources.
	wantSprite := srv.URL + "/root/resources/resources/sprites/sprite"
	if got := out.Style["sprite"]; got != wantSprite {
		t.Errorf("sprite = %v, want %q", got, wantSprite)
	}

	if out.Statistics.LayerCount != 1 || out.Statistics.SourceCount != 1 {
		t.Errorf("statistics = %+v, want 1 layer / 1 source", out.Statistics)
	}
}

func TestConvertSynthesizesVectorTiles(t *testing.T) {
	doc := `{
		"version": 8,
		"sources": {
			"esri": {"type": "vector", "url": "../../"},
			"hillshade": {"type": "raster", "url": "rasters/hillshade.json"}
		},
		"layers": []
	}`
	c, srv := newTestConverter(t, doc)

	out, err := c.Convert(context.Background(), Input{
		StyleURL: srv.URL + "/root/resources/styles/root.json",
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	base := srv.URL + "/root/resources"
	vector := out.Style["sources"].(map[string]any)["esri"].(map[string]any)
	tiles, ok := vector["tiles"].([]any)
	if !ok || len(tiles) != 1 {
		t.Fatalf("vector source tiles = %v, want synthesized single entry", vector["tiles"])
	}
	if tiles[0] != base+"/tile/{z}/{y}/{x}.pbf" {
		t.Errorf("synthesized tiles = %v", tiles[0])
	}
	if _, ok := vector["url"]; ok {
		t.Error("vector source should drop url once tiles exist")
	}

	raster := out.Style["sources"].(map[string]any)["hillshade"].(map[string]any)
	if got := raster["url"]; got != base+"/rasters/hillshade.json" {
		t.Errorf("raster url = %v", got)
	}
}

func TestConvertTilesWinOverURL(t *testing.T) {
	doc := `{
		"version": 8,
		"sources": {
			"both": {"type": "vector", "url": "index.json", "tiles": ["tile/{z}/{y}/{x}.pbf"]}
		},
		"layers": []
	}`
	c, srv := newTestConverter(t, doc)

	out, err := c.Convert(context.Background(), Input{StyleURL: srv.URL + "/root/resources/styles/root.json"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	src := out.Style["sources"].(map[string]any)["both"].(map[string]any)
	if _, ok := src["url"]; ok {
		t.Error("url should be dropped when tiles is present")
	}
	tiles := src["tiles"].([]any)
	if tiles[0] != srv.URL+"/root/resources/tile/{z}/{y}/{x}.pbf" {
		t.Errorf("tiles[0] = %v", tiles[0])
	}
}

// ===========================================================================
// Layers: fonts and vendor properties
// ===========================================================================

func TestConvertRemapsFontsFirstMatchWins(t *testing.T) {
	doc := `{
		"version": 8,
		"sources": {},
		"layers": [{
			"id": "labels",
			"type": "symbol",
			"layout": {"text-font": ["Arial Unicode MS Regular", "Custom Face", "Untouched Font"]}
		}]
	}`
	c, srv := newTestConverter(t, doc)

	out, err := c.Convert(context.Background(), Input{
		StyleURL: srv.URL + "/root/resources/styles/root.json",
		FontMapping: []FontRule{
			{From: "Arial", To: "Noto Sans Regular"},
			{From: "Arial Unicode", To: "Should Not Apply"},
			{From: "Custom", To: "Noto Sans Bold"},
		},
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	layer := out.Style["layers"].([]any)[0].(map[string]any)
	fonts := layer["layout"].(map[string]any)["text-font"].([]any)
	want := []string{"Noto Sans Regular", "Noto Sans Bold", "Untouched Font"}
	for i, w := range want {
		if fonts[i] != w {
			t.Errorf("fonts[%d] = %v, want %q", i, fonts[i], w)
		}
	}
}

func TestConvertStripsVendorProperties(t *testing.T) {
	doc := `{
		"version": 8,
		"sources": {},
		"layers": [{
			"id": "roads",
			"type": "line",
			"esri:styleOrigin": "vendor",
			"layout": {"line-cap": "round", "esri:defaults": {}},
			"paint": {"line-color": "#333", "arcgis:rendering": true}
		}]
	}`
	c, srv := newTestConverter(t, doc)

	out, err := c.Convert(context.Background(), Input{StyleURL: srv.URL + "/root/resources/styles/root.json"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	layer := out.Style["layers"].([]any)[0].(map[string]any)
	if _, ok := layer["esri:styleOrigin"]; ok {
		t.Error("vendor key survived at layer top level")
	}
	layout := layer["layout"].(map[string]any)
	if _, ok := layout["esri:defaults"]; ok {
		t.Error("vendor key survived in layout")
	}
	if layout["line-cap"] != "round" {
		t.Error("standard layout key was dropped")
	}
	paint := layer["paint"].(map[string]any)
	if _, ok := paint["arcgis:rendering"]; ok {
		t.Error("vendor key survived in paint")
	}
	if paint["line-color"] != "#333" {
		t.Error("standard paint key was dropped")
	}
}

// ===========================================================================
// Overrides, provenance, statistics
// ===========================================================================

func TestConvertOverridesAndProvenance(t *testing.T) {
	doc := `{
		"version": 8,
		"sprite": "../sprites/sprite",
		"glyphs": "../fonts/{fontstack}/{range}.pbf",
		"sources": {},
		"layers": [
			{"id": "a", "type": "fill"},
			{"id": "b", "type": "fill"},
			{"id": "c", "type": "symbol"}
		]
	}`
	c, srv := newTestConverter(t, doc)

	styleURL := srv.URL + "/root/resources/styles/root.json"
	out, err := c.Convert(context.Background(), Input{
		StyleURL:  styleURL,
		SpriteURL: "https://cdn.example.com/sprite",
		GlyphsURL: "https://cdn.example.com/fonts/{fontstack}/{range}.pbf",
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if out.Style["sprite"] != "https://cdn.example.com/sprite" {
		t.Errorf("sprite override not applied: %v", out.Style["sprite"])
	}
	if out.Style["glyphs"] != "https://cdn.example.com/fonts/{fontstack}/{range}.pbf" {
		t.Errorf("glyphs override not applied: %v", out.Style["glyphs"])
	}

	meta := out.Style["metadata"].(map[string]any)
	if meta["converted"] != true {
		t.Error("metadata.converted should be true")
	}
	if meta["sourceUrl"] != styleURL {
		t.Errorf("sourceUrl = %v", meta["sourceUrl"])
	}
	if meta["reportId"] == "" || meta["converterVersion"] == "" {
		t.Error("provenance is incomplete")
	}
	if _, err := time.Parse(time.RFC3339, meta["convertedAt"].(string)); err != nil {
		t.Errorf("convertedAt is not RFC3339: %v", err)
	}

	stats := out.Statistics
	if stats.LayerCount != 3 {
		t.Errorf("LayerCount = %d", stats.LayerCount)
	}
	if stats.LayersByType["fill"] != 2 || stats.LayersByType["symbol"] != 1 {
		t.Errorf("LayersByType = %v", stats.LayersByType)
	}
	if stats.SizeRatio <= 0 {
		t.Errorf("SizeRatio = %f", stats.SizeRatio)
	}
}

func TestConvertNoRelativeRefsSurvive(t *testing.T) {
	doc := `{
		"version": 8,
		"sprite": "../sprites/sprite",
		"glyphs": "fonts/{fontstack}/{range}.pbf",
		"sources": {
			"v": {"type": "vector", "tiles": ["../tile/{z}/{y}/{x}.pbf"]},
			"r": {"type": "raster", "url": "./rasters/index.json"}
		},
		"layers": []
	}`
	c, srv := newTestConverter(t, doc)

	out, err := c.Convert(context.Background(), Input{StyleURL: srv.URL + "/root/resources/styles/root.json"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	for _, ref := range collectRefs(out.Style) {
		if strings.HasPrefix(ref, "../") || strings.HasPrefix(ref, "./") || !strings.Contains(ref, "://") {
			t.Errorf("relative reference survived conversion: %q", ref)
		}
	}
}

// ===========================================================================
// Failure modes
// ===========================================================================

func TestConvertRejectsBadURLBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client := upstream.NewClient(config.UpstreamConfig{}, logging.NewRedactor())
	c := New(client, time.Second)

	for _, bad := range []string{"", "not a url at all", "ftp://example.com/style.json", "/relative/only"} {
		_, err := c.Convert(context.Background(), Input{StyleURL: bad})
		if _, ok := err.(*BadInputError); !ok {
			t.Errorf("Convert(%q) err = %v, want BadInputError", bad, err)
		}
	}
	if calls.Load() != 0 {
		t.Error("network was reached for invalid input URL")
	}
}

func TestConvertRejectsMalformedJSON(t *testing.T) {
	c, srv := newTestConverter(t, `{"version": 8, "sources":`)
	_, err := c.Convert(context.Background(), Input{StyleURL: srv.URL + "/root/resources/styles/root.json"})
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("err = %v, want ParseError", err)
	}
}

func collectRefs(style map[string]any) []string {
	var refs []string
	if s, ok := style["sprite"].(string); ok {
		refs = append(refs, s)
	}
	if g, ok := style["glyphs"].(string); ok {
		refs = append(refs, g)
	}
	if sources, ok := style["sources"].(map[string]any); ok {
		for _, v := range sources {
			src, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if u, ok := src["url"].(string); ok {
				refs = append(refs, u)
			}
			if tiles, ok := src["tiles"].([]any); ok {
				for _, tile := range tiles {
					if s, ok := tile.(string); ok {
						refs = append(refs, s)
					}
				}
			}
		}
	}
	return refs
}

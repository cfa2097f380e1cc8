package proxy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tilehub/atlas/pkg/cache"
	"tilehub/atlas/pkg/credentials"
	"tilehub/atlas/pkg/registry"
	"tilehub/atlas/pkg/upstream"
)

// MaxZoom is the highest zoom level the proxy will request upstream.
// Vector tile schemes top out at 22.
const MaxZoom = 22

// TileResult is a resolved tile payload.
type TileResult struct {
	// Payload is the tile bytes.
	Payload []byte

	// ContentType is the MIME type to serve the payload with.
	ContentType string

	// FromCache reports whether the payload came from the cache.
	FromCache bool
}

// TileProxy resolves tile requests through the cache, substituting
// coordinates into the registered upstream template and injecting the
// provider credential only on the upstream side.
type TileProxy struct {
	registry *registry.Registry
	creds    *credentials.Store
	cache    *cache.ByteCache
	client   *upstream.Client
	tileTTL  time.Duration
	timeout  time.Duration
}

// NewTileProxy builds a TileProxy over the shared cache and upstream client.
func NewTileProxy(reg *registry.Registry, creds *credentials.Store, c *cache.ByteCache, client *upstream.Client, tileTTL, timeout time.Duration) *TileProxy {
	return &TileProxy{
		registry: reg,
		creds:    creds,
		cache:    c,
		client:   client,
		tileTTL:  tileTTL,
		timeout:  timeout,
	}
}

// Tile returns the tile at styleID/sourceID/z/x/y. Coordinates are validated
// before any lookup or network call. Cache misses fetch upstream and
// populate the cache; a stale entry counts as a miss.
func (p *TileProxy) Tile(ctx context.Context, styleID, sourceID string, z, x, y int) (*TileResult, error) {
	if err := ValidateCoordinates(z, x, y); err != nil {
		return nil, err
	}

	key := tileCacheKey(styleID, sourceID, z, x, y)
	if entry, ok := p.cache.Get(key); ok {
		return &TileResult{
			Payload:     entry.Payload,
			ContentType: entry.ContentType,
			FromCache:   true,
		}, nil
	}

	desc, err := p.registry.Resolve(styleID)
	if err != nil {
		return nil, err
	}
	template, err := p.registry.TileTemplate(styleID, sourceID)
	if err != nil {
		return nil, err
	}

	target := expandTemplate(template, z, x, y)
	if cred, ok := p.creds.For(string(desc.Provider)); ok {
		target = credentials.Inject(target, cred)
	}

	res, err := p.client.Fetch(ctx, target, p.timeout)
	if err != nil {
		if upstream.IsNotFound(err) {
			return nil, &TileNotFoundError{StyleID: styleID, SourceID: sourceID, Z: z, X: x, Y: y}
		}
		return nil, err
	}

	contentType := res.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFor(template)
	}

	p.cache.Set(key, res.Body, contentType, p.tileTTL)
	return &TileResult{
		Payload:     res.Body,
		ContentType: contentType,
		FromCache:   false,
	}, nil
}

// ValidateCoordinates rejects zoom levels outside 0..MaxZoom and x/y values
// outside the 2^z grid.
func ValidateCoordinates(z, x, y int) error {
	if z < 0 || z > MaxZoom {
		return &BadCoordinatesError{Z: z, X: x, Y: y, Reason: fmt.Sprintf("zoom must be between 0 and %d", MaxZoom)}
	}
	max := 1 << uint(z)
	if x < 0 || x >= max {
		return &BadCoordinatesError{Z: z, X: x, Y: y, Reason: fmt.Sprintf("x must be between 0 and %d at zoom %d", max-1, z)}
	}
	if y < 0 || y >= max {
		return &BadCoordinatesError{Z: z, X: x, Y: y, Reason: fmt.Sprintf("y must be between 0 and %d at zoom %d", max-1, z)}
	}
	return nil
}

func tileCacheKey(styleID, sourceID string, z, x, y int) string {
	return fmt.Sprintf("tile:%s/%s/%d/%d/%d", styleID, sourceID, z, x, y)
}

// StyleCacheKey is the cache key for a rewritten style document.
func StyleCacheKey(styleID string) string {
	return "style:" + styleID
}

func expandTemplate(template string, z, x, y int) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	)
	return r.Replace(template)
}

// contentTypeFor infers a MIME type from the template's file extension when
// the upstream did not provide a useful one.
func contentTypeFor(template string) string {
	path := template
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	switch {
	case strings.HasSuffix(path, ".pbf"), strings.HasSuffix(path, ".mvt"):
		return "application/x-protobuf"
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".jpg"), strings.HasSuffix(path, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(path, ".webp"):
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

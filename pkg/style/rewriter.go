package style

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"tilehub/atlas/pkg/credentials"
	"tilehub/atlas/pkg/registry"
	"tilehub/atlas/pkg/upstream"
)

// Rewriter fetches an upstream style document and produces a proxied copy in
// which every upstream reference is replaced with a route on this service.
// Credential parameters present in the upstream document are stripped, and
// any literal secret value known to the credential store is scrubbed from
// the output before it is returned.
type Rewriter struct {
	registry *registry.Registry
	creds    *credentials.Store
	client   *upstream.Client
	origin   string
	timeout  time.Duration
}

// NewRewriter builds a Rewriter. origin is the public origin of this
// service (scheme://host[:port], no trailing slash) used as the prefix for
// every rewritten reference.
func NewRewriter(reg *registry.Registry, creds *credentials.Store, client *upstream.Client, origin string, timeout time.Duration) *Rewriter {
	return &Rewriter{
		registry: reg,
		creds:    creds,
		client:   client,
		origin:   strings.TrimRight(origin, "/"),
		timeout:  timeout,
	}
}

// Rewrite resolves styleID, fetches the upstream document and returns the
// rewritten JSON. The upstream fetch carries the provider credential; the
// returned bytes never do.
func (rw *Rewriter) Rewrite(ctx context.Context, styleID string) ([]byte, error) {
	desc, err := rw.registry.Resolve(styleID)
	if err != nil {
		return nil, err
	}

	fetchURL := desc.UpstreamURL
	if cred, ok := rw.creds.For(string(desc.Provider)); ok {
		fetchURL = credentials.Inject(fetchURL, cred)
	}

	res, err := rw.client.Fetch(ctx, fetchURL, rw.timeout)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(res.Body, &doc); err != nil {
		return nil, &MalformedDocumentError{StyleID: styleID, Reason: "not a JSON object"}
	}

	rw.rewriteSources(doc, desc)
	rw.rewriteSprite(doc, desc)
	rw.rewriteGlyphs(doc, desc)
	rw.stampMetadata(doc, desc)

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, &MalformedDocumentError{StyleID: styleID, Reason: err.Error()}
	}
	return rw.scrubSecrets(out), nil
}

// ResolveRef decodes a reference minted by Rewrite and fetches it upstream,
// injecting the credential for the provider named in the path. suffix is an
// optional extra path (glyph fontstack/range segments) appended to the
// decoded URL.
func (rw *Rewriter) ResolveRef(ctx context.Context, provider, encoded, suffix string) (*upstream.Result, error) {
	raw, err := DecodeRef(encoded)
	if err != nil {
		return nil, &BadReferenceError{Encoded: encoded, Reason: err.Error()}
	}

	target := raw
	if suffix != "" {
		target = strings.TrimRight(raw, "/") + "/" + strings.TrimLeft(suffix, "/")
	}
	if cred, ok := rw.creds.For(provider); ok {
		target = credentials.Inject(target, cred)
	}
	return rw.client.Fetch(ctx, target, rw.timeout)
}

// rewriteSources walks doc["sources"]. A source with a tiles array gets a
// single proxy-relative tile template and loses any url entry; a source
// with only a url gets a proxied reference to it. Non-object sources and
// non-string entries are left untouched.
func (rw *Rewriter) rewriteSources(doc map[string]any, desc *registry.StyleDescriptor) {
	sources, ok := doc["sources"].(map[string]any)
	if !ok {
		return
	}

	for name, v := range sources {
		src, ok := v.(map[string]any)
		if !ok {
			continue
		}

		if tiles, ok := src["tiles"].([]any); ok && len(tiles) > 0 {
			src["tiles"] = []any{rw.tileTemplate(desc.ID, name)}
			delete(src, "url")
			continue
		}

		if ref, ok := src["url"].(string); ok && ref != "" {
			src["url"] = rw.refURL(desc.Provider, ref)
		}
	}
}

func (rw *Rewriter) rewriteSprite(doc map[string]any, desc *registry.StyleDescriptor) {
	sprite, ok := doc["sprite"].(string)
	if !ok || sprite == "" {
		return
	}
	doc["sprite"] = rw.refURL(desc.Provider, sprite)
}

// rewriteGlyphs handles the {fontstack}/{range} template. The template
// placeholders are substituted by the client, so they must stay outside the
// encoded portion: the prefix up to {fontstack} is encoded and the
// placeholder tail is re-appended verbatim. ResolveRef joins the tail back
// onto the decoded prefix.
func (rw *Rewriter) rewriteGlyphs(doc map[string]any, desc *registry.StyleDescriptor) {
	glyphs, ok := doc["glyphs"].(string)
	if !ok || glyphs == "" {
		return
	}

	stripped := credentials.Strip(glyphs)
	if i := strings.Index(stripped, "{fontstack}"); i >= 0 {
		prefix := strings.TrimRight(stripped[:i], "/")
		doc["glyphs"] = rw.refURL(desc.Provider, prefix) + "/" + stripped[i:]
		return
	}
	doc["glyphs"] = rw.refURL(desc.Provider, stripped)
}

func (rw *Rewriter) stampMetadata(doc map[string]any, desc *registry.StyleDescriptor) {
	meta, ok := doc["metadata"].(map[string]any)
	if !ok {
		meta = make(map[string]any)
	}
	meta["proxied"] = true
	meta["originalProvider"] = string(desc.Provider)
	meta["proxiedAt"] = time.Now().UTC().Format(time.RFC3339)
	doc["metadata"] = meta
}

func (rw *Rewriter) tileTemplate(styleID, sourceName string) string {
	return rw.origin + "/tiles/" + styleID + "/" + sourceName + "/{z}/{x}/{y}"
}

func (rw *Rewriter) refURL(provider registry.Provider, rawURL string) string {
	return rw.origin + "/ref/" + string(provider) + "/" + EncodeRef(credentials.Strip(rawURL))
}

// scrubSecrets removes any literal secret value from the marshaled output.
// The per-URL stripping above should already have removed them; this is the
// invariant the rest of the system relies on, so it is enforced here too.
func (rw *Rewriter) scrubSecrets(data []byte) []byte {
	s := string(data)
	for _, secret := range rw.creds.SecretValues() {
		s = strings.ReplaceAll(s, secret, "")
	}
	return []byte(s)
}

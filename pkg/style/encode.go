package style

import (
	"encoding/base64"
	"fmt"
	"net/url"
)

// Reference encoding wraps an upstream URL in base64url so rewritten style
// documents can point back at this service without exposing the raw
// upstream location. The encoding is reversible; the second-stage /ref
// handler decodes it and performs the upstream fetch server-side.

// EncodeRef encodes an upstream URL for embedding in a proxy path segment.
func EncodeRef(rawURL string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(rawURL))
}

// DecodeRef decodes a reference produced by EncodeRef and checks that the
// result is an absolute http(s) URL. Anything else is a client error; the
// proxy only ever follows references it minted itself.
func DecodeRef(encoded string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("malformed reference encoding: %w", err)
	}

	u, err := url.Parse(string(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("reference does not decode to an absolute URL")
	}
	return string(raw), nil
}

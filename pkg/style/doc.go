// Package style rewrites upstream map style documents so that every
// reference they contain points back at this service. Tile templates become
// proxy-relative /tiles routes, and url, sprite and glyphs references become
// base64url-encoded /ref routes that a second-stage handler resolves.
// Credential parameters never survive the rewrite.
package style

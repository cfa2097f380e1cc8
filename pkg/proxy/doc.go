// Package proxy contains the tile resolution core: coordinate validation,
// cache read-through, upstream template expansion, and credential injection.
// HTTP concerns live in the handlers and middleware subpackages.
package proxy

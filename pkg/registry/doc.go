// Package registry maps style ids to upstream style descriptors: the real
// style document URL, the provider credential tag, and per-source tile URL
// templates. Descriptors come from configuration, an optional watched YAML
// file, or a sqlite-backed configuration record store.
package registry

// Package credentials holds upstream provider API keys and performs query
// parameter credential injection and stripping. It is the single component
// allowed to read or write secret values.
package credentials

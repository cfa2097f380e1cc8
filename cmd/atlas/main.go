// Atlas is a credential-guarding map style and tile proxy.
//
// It sits between map-rendering clients and commercial tile providers,
// rewriting upstream style documents into a credential-free, proxy-relative
// form and serving tiles through a bounded in-memory cache with per-client
// rate limiting. Provider API keys live only on the upstream side of the
// proxy and never reach a client.
//
// Usage:
//
//	# Start the proxy with default configuration
//	atlas run
//
//	# Start with a custom configuration file
//	atlas run --config /etc/atlas/config.yaml
//
//	# Validate configuration without starting
//	atlas validate
//
//	# Convert a foreign vendor style document
//	atlas convert --url https://host/root/resources/styles/root.json
//
//	# Show version information
//	atlas version
package main

func main() {
	Execute()
}

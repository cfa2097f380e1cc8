package credentials

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"tilehub/atlas/pkg/config"
)

// Credential is an upstream API credential for a single provider.
type Credential struct {
	// Provider is the provider name this credential belongs to.
	Provider string

	// Secret is the API key value. An empty secret means the provider
	// needs no credential; requests go upstream without one.
	Secret string

	// Param is the query parameter name used for injection
	// (e.g. "key", "access_token").
	Param string
}

// Store maps provider names to credentials. It is the only place secret
// values are read or written; every other component goes through Inject
// and Strip and never touches raw secrets.
type Store struct {
	creds map[string]Credential
}

// envPrefix namespaces credential environment variables.
// Example: provider "maptiler" reads ATLAS_CREDENTIAL_MAPTILER.
const envPrefix = "ATLAS_CREDENTIAL_"

// NewStore builds a credential store from configuration. Secrets present in
// the environment override file values; a provider configured without any
// secret is kept as a credential-free entry rather than rejected.
func NewStore(cfgs map[string]config.CredentialConfig) *Store {
	creds := make(map[string]Credential, len(cfgs))
	for provider, cfg := range cfgs {
		secret := cfg.Secret
		if env := os.Getenv(envVarFor(provider)); env != "" {
			secret = env
		}
		param := cfg.Param
		if param == "" {
			param = "key"
		}
		creds[provider] = Credential{
			Provider: provider,
			Secret:   secret,
			Param:    param,
		}
	}
	return &Store{creds: creds}
}

// For returns the credential for a provider. The second return value is
// false when the provider is unknown or has no usable secret; callers
// degrade to sending the request without a credential.
func (s *Store) For(provider string) (Credential, bool) {
	cred, ok := s.creds[provider]
	if !ok || cred.Secret == "" {
		return Credential{}, false
	}
	return cred, true
}

// SecretValues returns all configured secret values. Used by the log
// redactor and by leak tests; never exposed over HTTP.
func (s *Store) SecretValues() []string {
	var values []string
	for _, cred := range s.creds {
		if cred.Secret != "" {
			values = append(values, cred.Secret)
		}
	}
	return values
}

func envVarFor(provider string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(provider, "-", "_"))
}

// credentialParams are query parameter names recognized as carrying
// credentials across the supported providers.
var credentialParams = []string{"key", "apikey", "api_key", "token", "x-api-key"}

// Inject appends the credential to a URL's query string, using "?" or "&"
// depending on whether a query is already present. Injection is idempotent:
// any existing parameter with the same name (or any recognized credential
// parameter) is stripped first, so repeated injection never duplicates.
//
// URLs are handled textually rather than through net/url so that tile
// templates keep their literal {z}/{x}/{y} placeholders intact.
func Inject(rawURL string, cred Credential) string {
	if cred.Secret == "" {
		return rawURL
	}

	out := stripParams(rawURL, append([]string{cred.Param}, credentialParams...))

	sep := "?"
	if strings.Contains(out, "?") {
		sep = "&"
	}
	return out + sep + cred.Param + "=" + cred.Secret
}

// Strip removes all recognized credential-like query parameters from a URL
// and normalizes any dangling "?" or "&" artifacts left behind.
func Strip(rawURL string) string {
	return stripParams(rawURL, credentialParams)
}

// stripParams removes the named query parameters via pattern matching.
func stripParams(rawURL string, names []string) string {
	out := rawURL
	for _, name := range names {
		re := regexp.MustCompile(fmt.Sprintf(`(?i)[?&]%s=[^&]*`, regexp.QuoteMeta(name)))
		out = re.ReplaceAllStringFunc(out, func(match string) string {
			// Keep the leading "?" so later parameters stay attached to
			// the query; a stray "?&" is normalized below.
			if strings.HasPrefix(match, "?") {
				return "?"
			}
			return ""
		})
	}

	out = strings.ReplaceAll(out, "?&", "?")
	out = strings.TrimRight(out, "?&")
	return out
}

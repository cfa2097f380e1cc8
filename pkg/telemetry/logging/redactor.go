package logging

import (
	"regexp"
	"strings"
)

// Redactor scrubs credential material from strings before they reach log
// output. It removes credential-shaped query parameters and masks any
// configured secret values wherever they appear.
type Redactor struct {
	paramPattern *regexp.Regexp
	secrets      []string
}

// replacement substitutes a masked value for a credential parameter value.
const replacement = "${1}${2}=***"

// paramRegex matches recognized credential query parameters and their values.
var paramRegex = regexp.MustCompile(`(?i)([?&])(key|apikey|api_key|token|x-api-key|access_token)=[^&\s"]*`)

// NewRedactor creates a redactor with the built-in credential parameter
// patterns and no known secret values.
func NewRedactor() *Redactor {
	return &Redactor{paramPattern: paramRegex}
}

// WithSecrets returns a redactor that additionally masks the given literal
// secret values. Called at startup with the credential store's secrets so a
// secret leaking into any logged string is still masked.
func (r *Redactor) WithSecrets(secrets []string) *Redactor {
	out := &Redactor{paramPattern: r.paramPattern}
	for _, s := range secrets {
		if s != "" {
			out.secrets = append(out.secrets, s)
		}
	}
	return out
}

// RedactURL masks credential query parameter values in a URL.
func (r *Redactor) RedactURL(rawURL string) string {
	return r.Redact(rawURL)
}

// Redact masks credential parameters and known secret values in s.
func (r *Redactor) Redact(s string) string {
	out := r.paramPattern.ReplaceAllString(s, replacement)
	for _, secret := range r.secrets {
		out = strings.ReplaceAll(out, secret, "***")
	}
	return out
}

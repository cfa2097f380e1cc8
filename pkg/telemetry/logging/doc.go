// Package logging configures structured logging and provides the credential
// redactor applied to every logged URL and error string.
package logging

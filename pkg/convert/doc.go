// Package convert implements the one-shot foreign style importer. It is
// independent of the live proxy flow: references come out fully qualified
// to the real upstream host, not proxy-relative, and no credentials are
// involved at any point.
package convert

// Package names normalizes the case-insensitive names used as catalog and
// per-actor map keys.
package names

import "strings"

// Key returns the canonical map key for name. Every insert, lookup, and
// delete against a name-keyed map goes through Key.
func Key(name string) string {
	return strings.ToLower(name)
}

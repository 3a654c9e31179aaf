// Package utils holds small DNS name helpers shared across layers.
package utils

import "strings"

// CanonicalDNSName returns a DNS name in the canonical form used throughout
// this server: trimmed of surrounding whitespace, lowercased, and without a
// trailing dot. Wire encoding re-adds the root terminator.
func CanonicalDNSName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

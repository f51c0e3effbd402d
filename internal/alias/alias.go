// Package alias derives the organization-routing key from a recipient
// address.
package alias

import (
	"regexp"
	"strings"
)

// Generated inbox aliases look like u_<slug>. The relay never checks
// this; only the ingestion API does, at the trust boundary.
var aliasPattern = regexp.MustCompile(`^u_[a-z0-9][a-z0-9_-]*$`)

// Resolve returns the local part of an email address. Addresses without
// an @ are returned unchanged; existence checks are the ingestion API's
// concern.
func Resolve(addr string) string {
	addr = strings.TrimSpace(addr)
	if i := strings.Index(addr, "@"); i >= 0 {
		return addr[:i]
	}
	return addr
}

// Valid reports whether a routing key has the generated-alias shape.
func Valid(a string) bool {
	return aliasPattern.MatchString(a)
}

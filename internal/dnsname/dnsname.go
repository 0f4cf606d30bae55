// Package dnsname normalizes and validates domain names for blocklist and
// allow/deny handling.
package dnsname

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

const (
	maxNameLength  = 253
	maxLabelLength = 63
)

var labelRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// Normalize lowercases a domain, converts it to IDNA ASCII, strips the
// trailing dot and validates every label. It returns an error for anything
// that cannot appear in a dnsmasq address= rule.
func Normalize(domain string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimSuffix(d, ".")
	if d == "" {
		return "", fmt.Errorf("invalid domain %q", domain)
	}

	ascii, err := idna.Lookup.ToASCII(d)
	if err != nil {
		return "", fmt.Errorf("invalid domain %q: %v", domain, err)
	}

	if len(ascii) > maxNameLength {
		return "", fmt.Errorf("invalid domain %q: name too long", domain)
	}
	for _, label := range strings.Split(ascii, ".") {
		if len(label) > maxLabelLength || !labelRe.MatchString(label) {
			return "", fmt.Errorf("invalid domain %q: bad label %q", domain, label)
		}
	}
	return ascii, nil
}

// IsLocalhost reports hosts-file self entries that must never be blocked.
func IsLocalhost(domain string) bool {
	return domain == "localhost" || domain == "localhost.localdomain" ||
		domain == "broadcasthost"
}

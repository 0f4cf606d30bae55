// Package resolvers reads the OS resolver table (`scutil --dns`) into the
// default and per-domain upstream buckets the upstream renderer consumes.
package resolvers

import (
	"bufio"
	"strings"
	"time"

	"macblock/internal/execx"
)

// Table is the parsed resolver configuration.
type Table struct {
	// Default holds global upstreams in order of first appearance.
	Default []string
	// PerDomain maps a scoped suffix (trailing dot stripped) to its
	// upstreams in order of first appearance.
	PerDomain map[string][]string
	// domainOrder preserves first-appearance ordering for Domains().
	domainOrder []string
}

// Domains returns the scoped suffixes in first-appearance order.
func (t *Table) Domains() []string { return t.domainOrder }

// IsForwardIP reports whether ip is usable as an upstream. Loopback and
// zero addresses would forward queries back to ourselves.
func IsForwardIP(ip string) bool {
	switch ip {
	case "", "127.0.0.1", "::1", "0.0.0.0", "::":
		return false
	}
	return true
}

// Read runs scutil --dns and parses its output.
func Read() (*Table, error) {
	res, err := execx.Run(10*time.Second, "/usr/sbin/scutil", "--dns")
	if err != nil {
		return nil, err
	}
	if !res.Ok() {
		// An empty table is not fatal; the renderer falls back.
		return Parse(""), nil
	}
	return Parse(res.Stdout), nil
}

// Parse parses scutil --dns output. Sections are keyed by "resolver #N";
// each may carry a "domain : X" line (scoped) and "nameserver[i] : IP"
// lines. Duplicate IPs within a bucket and non-forwardable IPs are dropped;
// a scoped section left with no nameserver (mDNS "local") adds no domain.
func Parse(out string) *Table {
	t := &Table{PerDomain: map[string][]string{}}

	var domain string
	var servers []string
	inSection := false

	flush := func() {
		if !inSection {
			return
		}
		if domain == "" {
			for _, ip := range servers {
				if !contains(t.Default, ip) {
					t.Default = append(t.Default, ip)
				}
			}
		} else if len(servers) > 0 {
			bucket := t.PerDomain[domain]
			for _, ip := range servers {
				if !contains(bucket, ip) {
					bucket = append(bucket, ip)
				}
			}
			if _, seen := t.PerDomain[domain]; !seen {
				t.domainOrder = append(t.domainOrder, domain)
			}
			t.PerDomain[domain] = bucket
		}
		domain = ""
		servers = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "resolver #") {
			flush()
			inSection = true
			continue
		}
		if !inSection {
			continue
		}

		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		switch {
		case key == "domain":
			domain = strings.TrimSuffix(strings.TrimSpace(value), ".")
		case strings.HasPrefix(key, "nameserver"):
			ip := strings.TrimSpace(value)
			if IsForwardIP(ip) {
				servers = append(servers, ip)
			}
		}
	}
	flush()
	return t
}

func splitKeyValue(line string) (key, value string, ok bool) {
	i := strings.Index(line, ":")
	if i < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	// Strip the [i] index from keys like "nameserver[0]".
	if j := strings.Index(key, "["); j >= 0 {
		key = key[:j]
	}
	return key, strings.TrimSpace(line[i+1:]), true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Package upstreams renders the dnsmasq servers-file from the OS resolver
// table and manages the fallback upstream list used when the table has no
// usable default entries.
package upstreams

import (
	"net"
	"os"
	"sort"
	"strings"

	"macblock/internal/atomicfs"
	"macblock/internal/resolvers"
)

// DefaultFallbacks seed the fallback file at install and on reset.
var DefaultFallbacks = []string{"1.1.1.1", "8.8.8.8"}

// Render produces the upstream.conf contents: one server= line per default
// upstream (or per fallback when the table has none), then server=/dom/IP
// lines sorted by domain.
func Render(table *resolvers.Table, fallbacks []string) string {
	var b strings.Builder

	defaults := table.Default
	if len(defaults) == 0 {
		defaults = fallbacks
	}
	written := map[string]bool{}
	for _, ip := range defaults {
		if !resolvers.IsForwardIP(ip) || written[ip] {
			continue
		}
		written[ip] = true
		b.WriteString("server=")
		b.WriteString(ip)
		b.WriteByte('\n')
	}

	domains := make([]string, 0, len(table.PerDomain))
	for d := range table.PerDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	for _, d := range domains {
		for _, ip := range table.PerDomain[d] {
			if !resolvers.IsForwardIP(ip) {
				continue
			}
			b.WriteString("server=/")
			b.WriteString(d)
			b.WriteString("/")
			b.WriteString(ip)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// WriteConf renders and atomically replaces the servers-file.
func WriteConf(path string, table *resolvers.Table, fallbacks []string) error {
	return atomicfs.WriteString(path, Render(table, fallbacks), 0o644)
}

// LoadFallbacks reads the fallback file: one IP per line, # comments.
// Invalid lines are dropped; a missing file yields the defaults.
func LoadFallbacks(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return append([]string(nil), DefaultFallbacks...)
	}
	var ips []string
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if net.ParseIP(line) == nil || !resolvers.IsForwardIP(line) {
			continue
		}
		ips = append(ips, line)
	}
	if len(ips) == 0 {
		return append([]string(nil), DefaultFallbacks...)
	}
	return ips
}

// SaveFallbacks persists the fallback list, one IP per line. The addresses
// are written as given; callers validate them.
func SaveFallbacks(path string, ips []string) error {
	var b strings.Builder
	for _, ip := range ips {
		b.WriteString(ip)
		b.WriteByte('\n')
	}
	return atomicfs.WriteString(path, b.String(), 0o644)
}

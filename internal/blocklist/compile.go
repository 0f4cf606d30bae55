package blocklist

import (
	"net"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"macblock/internal/atomicfs"
	"macblock/internal/cmderr"
	"macblock/internal/dnsname"
)

// ParseHosts extracts normalized domains from hosts-format text. Accepted
// line shapes: "IP host [host...]" (hostnames only) and a bare "host".
// Comments, localhost entries and invalid names are dropped.
func ParseHosts(text string) map[string]bool {
	domains := map[string]bool{}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}

		fields := strings.Fields(line)
		var hosts []string
		switch {
		case len(fields) == 1:
			hosts = fields
		case len(fields) > 1 && net.ParseIP(fields[0]) != nil:
			hosts = fields[1:]
		default:
			continue
		}

		for _, h := range hosts {
			d, err := dnsname.Normalize(h)
			if err != nil || dnsname.IsLocalhost(d) {
				continue
			}
			domains[d] = true
		}
	}
	return domains
}

// CompileResult reports what a compile produced.
type CompileResult struct {
	// SourceCount is the domain count parsed from the source, before the
	// allow/deny adjustments; the safety floor applies to it.
	SourceCount int
	// FinalCount is the size of the emitted set.
	FinalCount int
}

// Compile applies the allow/deny adjustments and emits the raw-domain file
// and the dnsmasq rules file, in that order, both atomic with mode 0644.
// When the parsed source is below floor nothing is written.
func Compile(parsed map[string]bool, allow, deny []string, floor int, rawPath, confPath string) (CompileResult, error) {
	res := CompileResult{SourceCount: len(parsed)}

	if res.SourceCount < floor {
		return res, cmderr.New(cmderr.User,
			"source produced %d domains, below safety floor %d; keeping the existing blocklist",
			res.SourceCount, floor)
	}

	final := make(map[string]bool, len(parsed))
	for d := range parsed {
		final[d] = true
	}
	for _, d := range allow {
		delete(final, d)
	}
	for _, d := range deny {
		final[d] = true
	}

	sorted := make([]string, 0, len(final))
	for d := range final {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)
	res.FinalCount = len(sorted)

	var raw, conf strings.Builder
	for _, d := range sorted {
		raw.WriteString(d)
		raw.WriteByte('\n')
		conf.WriteString("address=/")
		conf.WriteString(d)
		conf.WriteString("/\n")
	}

	// Rename order matters: raw first, then the file dnsmasq reads.
	if err := atomicfs.WriteString(rawPath, raw.String(), 0o644); err != nil {
		return res, cmderr.Wrap(cmderr.Transient, err, "write %s", rawPath)
	}
	if err := atomicfs.WriteString(confPath, conf.String(), 0o644); err != nil {
		return res, cmderr.Wrap(cmderr.Transient, err, "write %s", confPath)
	}

	logrus.WithFields(logrus.Fields{
		"source_domains": res.SourceCount,
		"final_domains":  res.FinalCount,
	}).Info("compiled blocklist")
	return res, nil
}

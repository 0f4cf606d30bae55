// Package lists manages the allow/deny files: one normalized domain per
// line, # comments. Readers are tolerant — invalid lines produce warnings,
// never failures.
package lists

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"macblock/internal/atomicfs"
	"macblock/internal/dnsname"
)

// Warning describes one skipped line.
type Warning struct {
	File string
	Line int
	Text string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s:%d: skipping %q: %v", w.File, w.Line, w.Text, w.Err)
}

// Read returns the valid normalized domains in path plus a warning for each
// invalid line. A missing file is an empty list.
func Read(path string) ([]string, []Warning, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var domains []string
	var warnings []Warning
	seen := map[string]bool{}

	for i, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d, err := dnsname.Normalize(line)
		if err != nil {
			warnings = append(warnings, Warning{File: path, Line: i + 1, Text: line, Err: err})
			continue
		}
		if !seen[d] {
			seen[d] = true
			domains = append(domains, d)
		}
	}
	return domains, warnings, nil
}

// Write persists domains sorted, one per line, atomically with mode 0644.
func Write(path string, domains []string) error {
	sorted := append([]string(nil), domains...)
	sort.Strings(sorted)

	var b strings.Builder
	for _, d := range sorted {
		b.WriteString(d)
		b.WriteByte('\n')
	}
	return atomicfs.WriteString(path, b.String(), 0o644)
}

// Add normalizes domain and inserts it. It reports whether the file changed.
func Add(path, domain string) (bool, []Warning, error) {
	d, err := dnsname.Normalize(domain)
	if err != nil {
		return false, nil, err
	}
	domains, warnings, err := Read(path)
	if err != nil {
		return false, warnings, err
	}
	for _, existing := range domains {
		if existing == d {
			return false, warnings, nil
		}
	}
	return true, warnings, Write(path, append(domains, d))
}

// Remove normalizes domain and deletes it. It reports whether the file
// changed.
func Remove(path, domain string) (bool, []Warning, error) {
	d, err := dnsname.Normalize(domain)
	if err != nil {
		return false, nil, err
	}
	domains, warnings, err := Read(path)
	if err != nil {
		return false, warnings, err
	}
	kept := domains[:0]
	found := false
	for _, existing := range domains {
		if existing == d {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return false, warnings, nil
	}
	return true, warnings, Write(path, kept)
}

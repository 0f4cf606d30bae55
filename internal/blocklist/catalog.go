// Package blocklist downloads, verifies and compiles blocklist sources into
// the dnsmasq NXDOMAIN rules file and the raw-domain file beside it.
package blocklist

import (
	"strings"

	"macblock/internal/cmderr"
)

// Source is one entry of the built-in catalog or a custom location.
type Source struct {
	Key  string
	Name string
	URL  string
	// SHA256 optionally pins the expected content hash.
	SHA256 string
	// Custom marks https:// and s3:// sources supplied by the user;
	// these may lower the safety floor, built-ins never do.
	Custom bool
}

// DefaultSource is used when state carries no source selection.
const DefaultSource = "stevenblack"

// Catalog maps source keys to their download locations. Order of CatalogKeys
// is the display order for `sources list`.
var Catalog = map[string]Source{
	"stevenblack": {
		Key:  "stevenblack",
		Name: "StevenBlack Unified",
		URL:  "https://raw.githubusercontent.com/StevenBlack/hosts/master/hosts",
	},
	"stevenblack-fakenews": {
		Key:  "stevenblack-fakenews",
		Name: "StevenBlack + Fakenews",
		URL:  "https://raw.githubusercontent.com/StevenBlack/hosts/master/alternates/fakenews/hosts",
	},
	"stevenblack-gambling": {
		Key:  "stevenblack-gambling",
		Name: "StevenBlack + Gambling",
		URL:  "https://raw.githubusercontent.com/StevenBlack/hosts/master/alternates/gambling/hosts",
	},
	"hagezi-pro": {
		Key:  "hagezi-pro",
		Name: "HaGeZi Pro",
		URL:  "https://cdn.jsdelivr.net/gh/hagezi/dns-blocklists@latest/hosts/pro.txt",
	},
	"hagezi-ultimate": {
		Key:  "hagezi-ultimate",
		Name: "HaGeZi Ultimate",
		URL:  "https://cdn.jsdelivr.net/gh/hagezi/dns-blocklists@latest/hosts/ultimate.txt",
	},
	"oisd-small": {
		Key:  "oisd-small",
		Name: "OISD Small",
		URL:  "https://small.oisd.nl/hosts",
	},
	"oisd-big": {
		Key:  "oisd-big",
		Name: "OISD Big",
		URL:  "https://big.oisd.nl/hosts",
	},
}

// CatalogKeys lists catalog entries in display order.
var CatalogKeys = []string{
	"stevenblack",
	"stevenblack-fakenews",
	"stevenblack-gambling",
	"hagezi-pro",
	"hagezi-ultimate",
	"oisd-small",
	"oisd-big",
}

// Resolve maps a source selector (catalog key, https:// URL or s3:// URI)
// to a Source.
func Resolve(selector string) (Source, error) {
	if src, ok := Catalog[selector]; ok {
		return src, nil
	}
	if strings.HasPrefix(selector, "https://") || strings.HasPrefix(selector, "s3://") {
		return Source{Key: selector, Name: selector, URL: selector, Custom: true}, nil
	}
	return Source{}, cmderr.New(cmderr.User,
		"unknown source %q (run 'macblock sources list', or pass an https:// or s3:// URL)", selector)
}

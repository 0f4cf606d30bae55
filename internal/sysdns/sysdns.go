// Package sysdns reads and writes per-service DNS settings through
// networksetup and decides which network services the controller manages.
package sysdns

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"macblock/internal/execx"
	"macblock/internal/state"
)

const networksetup = "/usr/sbin/networksetup"

const cmdTimeout = 15 * time.Second

// LoopbackDNS is the intercepted per-service configuration.
var LoopbackDNS = []string{"127.0.0.1"}

// Service is one entry from networksetup -listallnetworkservices, plus its
// device from -getinfo.
type Service struct {
	Name   string
	Device string
}

// ListServices returns the enabled network services with their devices.
func ListServices() ([]Service, error) {
	res, err := execx.Run(cmdTimeout, networksetup, "-listallnetworkservices")
	if err != nil {
		return nil, err
	}
	if !res.Ok() {
		return nil, nil
	}

	var services []Service
	for _, name := range ParseServiceList(res.Stdout) {
		services = append(services, Service{Name: name, Device: serviceDevice(name)})
	}
	return services, nil
}

// ParseServiceList parses -listallnetworkservices output, skipping the
// header and services disabled with a leading asterisk.
func ParseServiceList(out string) []string {
	var names []string
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "An asterisk") || strings.HasPrefix(line, "*") {
			continue
		}
		names = append(names, line)
	}
	return names
}

func serviceDevice(name string) string {
	res, err := execx.Run(cmdTimeout, networksetup, "-getinfo", name)
	if err != nil || !res.Ok() {
		return ""
	}
	return ParseDevice(res.Stdout)
}

// ParseDevice extracts the Device: line from -getinfo output.
func ParseDevice(out string) string {
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "Device:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Device:"))
		}
	}
	return ""
}

// GetDNS reads the configured DNS servers for a service. The Empty backup
// means the service follows DHCP defaults.
func GetDNS(service string) (state.Backup, error) {
	res, err := execx.Run(cmdTimeout, networksetup, "-getdnsservers", service)
	if err != nil {
		return state.Backup{}, err
	}
	if !res.Ok() {
		return state.Backup{Empty: true}, nil
	}
	return ParseDNSServers(res.Stdout), nil
}

// ParseDNSServers parses -getdnsservers output into a backup value.
func ParseDNSServers(out string) state.Backup {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" || strings.Contains(trimmed, "There aren't any DNS Servers") {
		return state.Backup{Empty: true}
	}
	var servers []string
	for _, raw := range strings.Split(trimmed, "\n") {
		ip := strings.TrimSpace(raw)
		if ip != "" {
			servers = append(servers, ip)
		}
	}
	if len(servers) == 0 {
		return state.Backup{Empty: true}
	}
	return state.Backup{Servers: servers}
}

// SetDNS writes the given servers for a service.
func SetDNS(service string, servers []string) bool {
	argv := append([]string{networksetup, "-setdnsservers", service}, servers...)
	res, err := execx.Run(cmdTimeout, argv...)
	if err != nil || !res.Ok() {
		logrus.WithFields(logrus.Fields{
			"service": service,
			"servers": servers,
			"stderr":  strings.TrimSpace(res.Stderr),
		}).Error("failed to set DNS servers")
		return false
	}
	return true
}

// Restore writes a backup back to a service; the Empty sentinel returns the
// service to DHCP defaults.
func Restore(service string, b state.Backup) bool {
	if b.Empty || len(b.Servers) == 0 {
		res, err := execx.Run(cmdTimeout, networksetup, "-setdnsservers", service, "Empty")
		return err == nil && res.Ok()
	}
	return SetDNS(service, b.Servers)
}

// Intercepted reports a service currently pointing at the loopback resolver.
func Intercepted(b state.Backup) bool {
	return !b.Empty && len(b.Servers) == 1 && b.Servers[0] == LoopbackDNS[0]
}

var excludeTokens = []string{"vpn", "tailscale", "wireguard", "openvpn", "anyconnect", "ipsec"}

var excludeDevicePrefixes = []string{"utun", "ppp", "ipsec", "tun", "tap"}

var includeTokens = []string{"wi-fi", "wifi", "ethernet", "usb", "thunderbolt", "bridge"}

// Managed applies the default filter plus the user exclusion set: VPN-ish
// services and tunnel devices are never touched, ordinary user-facing
// interfaces are.
func Managed(services []Service, exclude map[string]bool) []Service {
	var managed []Service
	for _, svc := range services {
		if exclude[svc.Name] {
			continue
		}
		nameL := strings.ToLower(svc.Name)

		if hasPrefixAny(svc.Device, excludeDevicePrefixes) || containsAny(nameL, excludeTokens) {
			continue
		}
		if strings.HasPrefix(svc.Device, "en") || strings.HasPrefix(svc.Device, "bridge") {
			managed = append(managed, svc)
			continue
		}
		if containsAny(nameL, includeTokens) {
			managed = append(managed, svc)
		}
	}
	return managed
}

// ParseExcludeFile parses the one-service-per-line override file. Format is
// stable: exact names, # comments, blank lines ignored.
func ParseExcludeFile(text string) map[string]bool {
	exclude := map[string]bool{}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		exclude[line] = true
	}
	return exclude
}

// LoadExcludeFile reads the override file; a missing file is an empty set.
func LoadExcludeFile(path string) map[string]bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]bool{}
	}
	return ParseExcludeFile(string(data))
}

var ipv4Re = regexp.MustCompile(`^(?:\d{1,3}\.){3}\d{1,3}$`)

// DHCPNameservers asks the DHCP lease on device for its domain_name_server
// option. Used to seed the fallback upstream file.
func DHCPNameservers(device string) []string {
	if device == "" {
		return nil
	}
	res, err := execx.Run(cmdTimeout, "/usr/sbin/ipconfig", "getoption", device, "domain_name_server")
	if err != nil || !res.Ok() {
		return nil
	}
	var ips []string
	for _, token := range strings.Fields(res.Stdout) {
		if ipv4Re.MatchString(token) && token != "127.0.0.1" && !containsStr(ips, token) {
			ips = append(ips, token)
		}
	}
	return ips
}

func hasPrefixAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package daemon

import "strings"

// parseRouteInterface extracts the "interface:" field from route -n get
// output.
func parseRouteInterface(out string) string {
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "interface:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "interface:"))
		}
	}
	return ""
}

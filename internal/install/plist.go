package install

import (
	"fmt"
	"path/filepath"

	"macblock/internal/paths"
)

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
  <key>Label</key>
  <string>%s</string>
  <key>ProgramArguments</key>
  <array>
%s  </array>
  <key>StandardOutPath</key>
  <string>%s</string>
  <key>StandardErrorPath</key>
  <string>%s</string>
  <key>RunAtLoad</key>
  <true/>
  <key>KeepAlive</key>
  <true/>
  <key>WorkingDirectory</key>
  <string>/var/empty</string>
</dict>
</plist>
`

func renderPlist(label string, argv []string, logBase string) string {
	var args string
	for _, a := range argv {
		args += fmt.Sprintf("    <string>%s</string>\n", a)
	}
	return fmt.Sprintf(plistTemplate, label, args,
		filepath.Join(paths.LogDir, logBase+".out.log"),
		filepath.Join(paths.LogDir, logBase+".err.log"))
}

// RenderDaemonPlist produces the launchd manifest for the reconcile daemon.
func RenderDaemonPlist(binPath string) string {
	return renderPlist(paths.DaemonLabel, []string{binPath, "daemon"}, "daemon")
}

// RenderDnsmasqPlist produces the launchd manifest for the resolver.
func RenderDnsmasqPlist(dnsmasqBin string) string {
	return renderPlist(paths.DnsmasqLabel,
		[]string{dnsmasqBin, "--keep-in-foreground", "-C", paths.DnsmasqConf}, "dnsmasq")
}

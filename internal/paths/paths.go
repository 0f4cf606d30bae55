// Package paths holds the canonical on-disk layout. File names are part of
// the compatibility contract with dnsmasq and launchd; do not rename them.
package paths

import "path/filepath"

const (
	AppName  = "macblock"
	AppOrg   = "com.local"
	AppLabel = AppOrg + "." + AppName

	// DnsmasqUser is the dedicated unprivileged account dnsmasq drops to.
	DnsmasqUser = "_macblockd"

	DnsmasqListenAddr = "127.0.0.1"
	DnsmasqListenPort = 53
)

// Config tree under /Library/Application Support.
var (
	SupportDir = filepath.Join("/Library/Application Support", AppName)
	ConfigDir  = filepath.Join(SupportDir, "etc")

	StateFile = filepath.Join(SupportDir, "state.json")
	LockFile  = filepath.Join(SupportDir, ".lock")

	WhitelistFile       = filepath.Join(SupportDir, "whitelist.txt")
	BlacklistFile       = filepath.Join(SupportDir, "blacklist.txt")
	ExcludeServicesFile = filepath.Join(SupportDir, "dns.exclude_services")
	FallbackUpstreams   = filepath.Join(SupportDir, "upstream.fallbacks")

	DnsmasqConf = filepath.Join(ConfigDir, "dnsmasq.conf")
	ConfigFile  = filepath.Join(ConfigDir, "config.yaml")
)

// Runtime tree under /var/db.
var (
	RunDir = filepath.Join("/var/db", AppName)

	UpstreamConf = filepath.Join(RunDir, "upstream.conf")
	RawBlocklist = filepath.Join(RunDir, "blocklist.raw")
	Blocklist    = filepath.Join(RunDir, "blocklist.conf")
	// SourceCache keeps the last accepted download so allow/deny edits
	// can recompile without refetching.
	SourceCache = filepath.Join(RunDir, "source.hosts")

	DnsmasqPIDFile  = filepath.Join(RunDir, "dnsmasq.pid")
	DnsmasqLogFile  = filepath.Join(RunDir, "dnsmasq.log")
	DaemonPIDFile   = filepath.Join(RunDir, "daemon.pid")
	DaemonReadyFile = filepath.Join(RunDir, "daemon.ready")
	LastApplyFile   = filepath.Join(RunDir, "daemon.last_apply")
)

var (
	LogDir = filepath.Join("/Library/Logs", AppName)

	LaunchdDir          = "/Library/LaunchDaemons"
	LaunchdDaemonPlist  = filepath.Join(LaunchdDir, AppLabel+".daemon.plist")
	LaunchdDnsmasqPlist = filepath.Join(LaunchdDir, AppLabel+".dnsmasq.plist")
)

// Launchd service labels.
const (
	DaemonLabel  = AppLabel + ".daemon"
	DnsmasqLabel = AppLabel + ".dnsmasq"
)

// Environment variables. The *Bin overrides are honored only before
// privilege escalation; EscalatedEnv marks a re-exec under sudo and
// prevents both recursion and binary-path injection.
const (
	BinEnv        = "MACBLOCK_BIN"
	DnsmasqBinEnv = "MACBLOCK_DNSMASQ_BIN"
	EscalatedEnv  = "MACBLOCK_ESCALATED"
)

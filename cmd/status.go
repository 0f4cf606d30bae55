package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"macblock/internal/dnsmasq"
	"macblock/internal/paths"
	"macblock/internal/state"
	"macblock/internal/sysdns"
)

// NewStatusCmd creates the read-only status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current blocking state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := state.Load(paths.StateFile)
			if err != nil {
				return err
			}

			now := time.Now()
			mode := "off"
			if st.EffectiveOn(now) {
				mode = "on"
			} else if st.Enabled && st.PausedUntil != nil {
				mode = fmt.Sprintf("paused until %s",
					time.Unix(*st.PausedUntil, 0).Format("15:04:05"))
			}
			fmt.Printf("blocking: %s\n", mode)

			source := st.Source
			if source == "" {
				source = "(default)"
			}
			fmt.Printf("source: %s\n", source)
			if st.LastUpdateAt != nil {
				fmt.Printf("last update: %s\n",
					time.Unix(*st.LastUpdateAt, 0).Format("2006-01-02 15:04:05"))
			} else {
				fmt.Println("last update: never")
			}

			if dnsmasq.Running() {
				fmt.Println("dnsmasq: running")
			} else {
				fmt.Println("dnsmasq: not running")
			}

			pid := dnsmasq.ReadPIDFile(paths.DaemonPIDFile)
			switch {
			case pid != 0 && dnsmasq.ProcessRunning(pid):
				fmt.Printf("daemon: running (pid %d)\n", pid)
			default:
				fmt.Println("daemon: not running")
			}
			if applied := readEpochMarker(paths.LastApplyFile); applied != 0 {
				fmt.Printf("last apply: %s\n",
					time.Unix(applied, 0).Format("2006-01-02 15:04:05"))
			}

			if len(st.ManagedServices) > 0 {
				fmt.Println("\nmanaged services:")
				for _, svc := range st.ManagedServices {
					cur, err := sysdns.GetDNS(svc)
					switch {
					case err != nil:
						fmt.Printf("  %s: (unreadable)\n", svc)
					case cur.Empty:
						fmt.Printf("  %s: dhcp\n", svc)
					default:
						fmt.Printf("  %s: %s\n", svc, strings.Join(cur.Servers, ", "))
					}
				}
			}
			return nil
		},
	}
}

// readEpochMarker reads a single-integer marker file, tolerating absence
// and garbage.
func readEpochMarker(path string) int64 {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

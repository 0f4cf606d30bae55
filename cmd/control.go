package cmd

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"macblock/internal/cmderr"
	"macblock/internal/state"
)

// NewEnableCmd creates the enable command.
func NewEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable",
		Short: "Turn DNS blocking on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireInstalled(); err != nil {
				return err
			}
			if err := requireRoot(); err != nil {
				return err
			}

			err := mutateState(func(st *state.State) error {
				st.Enabled = true
				st.PausedUntil = nil
				return nil
			})
			if err != nil {
				return err
			}
			triggerDaemon()

			if !waitDaemonReady(5 * time.Second) {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: daemon may not be ready")
			}
			if failing := waitForIntercepted(); len(failing) > 0 {
				return cmderr.PartialFailure("DNS not redirected for", failing)
			}
			fmt.Println("enabled - DNS blocking is now active")
			return nil
		},
	}
}

// NewDisableCmd creates the disable command.
func NewDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Turn DNS blocking off and restore original DNS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireInstalled(); err != nil {
				return err
			}
			if err := requireRoot(); err != nil {
				return err
			}

			err := mutateState(func(st *state.State) error {
				st.Enabled = false
				st.PausedUntil = nil
				return nil
			})
			if err != nil {
				return err
			}
			triggerDaemon()

			if failing := waitForRestored(); len(failing) > 0 {
				return cmderr.PartialFailure("DNS not restored for", failing)
			}
			fmt.Println("disabled - DNS restored to original settings")
			return nil
		},
	}
}

var durationRe = regexp.MustCompile(`^(\d+)(s|m|h|d)$`)

// ParseDuration parses the pause duration syntax: <N>(s|m|h|d).
func ParseDuration(value string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(value)
	if m == nil {
		return 0, cmderr.New(cmderr.User, "invalid duration %q (want e.g. 30s, 10m, 2h, 1d)", value)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, cmderr.New(cmderr.User, "invalid duration %q", value)
	}
	unitSeconds := map[string]int64{
		"s": 1,
		"m": 60,
		"h": 3600,
		"d": 86400,
	}[m[2]]
	seconds := n * unitSeconds
	if n > (1<<62)/unitSeconds || seconds > 30*86400 {
		return 0, cmderr.New(cmderr.User, "duration %q exceeds the 30 day maximum", value)
	}
	return time.Duration(seconds) * time.Second, nil
}

// NewPauseCmd creates the pause command.
func NewPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <duration>",
		Short: "Suspend blocking and auto-resume after the given duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ParseDuration(args[0])
			if err != nil {
				return err
			}
			if err := requireInstalled(); err != nil {
				return err
			}
			if err := requireRoot(); err != nil {
				return err
			}

			resumeAt := time.Now().Add(d).Unix()
			err = mutateState(func(st *state.State) error {
				st.Enabled = true
				st.PausedUntil = &resumeAt
				return nil
			})
			if err != nil {
				return err
			}
			triggerDaemon()

			if failing := waitForRestored(); len(failing) > 0 {
				return cmderr.PartialFailure("DNS not restored for", failing)
			}
			fmt.Printf("paused until %s - blocking auto-resumes\n",
				time.Unix(resumeAt, 0).Format("15:04:05"))
			return nil
		},
	}
}

// NewResumeCmd creates the resume command.
func NewResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "End a pause and re-activate blocking now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireInstalled(); err != nil {
				return err
			}
			if err := requireRoot(); err != nil {
				return err
			}

			err := mutateState(func(st *state.State) error {
				st.Enabled = true
				st.PausedUntil = nil
				return nil
			})
			if err != nil {
				return err
			}
			triggerDaemon()

			if failing := waitForIntercepted(); len(failing) > 0 {
				return cmderr.PartialFailure("DNS not redirected for", failing)
			}
			fmt.Println("resumed - DNS blocking is now active")
			return nil
		},
	}
}

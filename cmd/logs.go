package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"macblock/internal/cmderr"
	"macblock/internal/logging"
)

// NewLogsCmd creates the logs command.
func NewLogsCmd() *cobra.Command {
	var (
		follow    bool
		stream    string
		component string
		lines     int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon or dnsmasq logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if component != "daemon" && component != "dnsmasq" {
				return cmderr.New(cmderr.User, "unknown component %q (want daemon or dnsmasq)", component)
			}

			var path string
			switch stream {
			case "stdout":
				path = logging.LogPath(component, false)
			case "stderr":
				path = logging.LogPath(component, true)
			case "auto":
				path = logging.LogPath(component, false)
				if info, err := os.Stat(path); err != nil || info.Size() == 0 {
					path = logging.LogPath(component, true)
				}
			default:
				return cmderr.New(cmderr.User, "unknown stream %q (want stdout, stderr or auto)", stream)
			}

			if _, err := os.Stat(path); err != nil {
				return cmderr.New(cmderr.User,
					"log file %s not found; has 'sudo macblock install' been run?", path)
			}

			if err := printTail(path, lines); err != nil {
				return cmderr.Wrap(cmderr.Transient, err, "read %s", path)
			}
			if !follow {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "--- following %s (interrupt to stop) ---\n", path)
			return followFile(path)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing as the log grows")
	cmd.Flags().StringVar(&stream, "stream", "auto", "stdout, stderr or auto")
	cmd.Flags().StringVar(&component, "component", "daemon", "daemon or dnsmasq")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of trailing lines")
	return cmd
}

func printTail(path string, count int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(all) == 1 && all[0] == "" {
		return nil
	}
	if count > 0 && len(all) > count {
		all = all[len(all)-count:]
	}
	for _, line := range all {
		fmt.Println(line)
	}
	return nil
}

// followFile polls the file for appended data, tail -f style.
func followFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	buf := make([]byte, 16*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			os.Stdout.Write(buf[:n])
		}
		if err != nil && err != io.EOF {
			return err
		}
		if n == 0 {
			time.Sleep(250 * time.Millisecond)
		}
	}
}

package daemon

import (
	"fmt"
	"os"
	"time"

	"macblock/internal/atomicfs"
	"macblock/internal/paths"
)

// Marker files are single decimal integers with a trailing newline, written
// atomically and read by status/doctor.

func writePIDMarker() error {
	return atomicfs.WriteString(paths.DaemonPIDFile, fmt.Sprintf("%d\n", os.Getpid()), 0o644)
}

func writeReadyMarker(now time.Time) error {
	return atomicfs.WriteString(paths.DaemonReadyFile, fmt.Sprintf("%d\n", now.Unix()), 0o644)
}

func writeLastApplyMarker(now time.Time) error {
	return atomicfs.WriteString(paths.LastApplyFile, fmt.Sprintf("%d\n", now.Unix()), 0o644)
}

func removeMarkers() {
	os.Remove(paths.DaemonReadyFile)
	os.Remove(paths.DaemonPIDFile)
}

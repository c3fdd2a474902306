//go:build windows

package authview

import (
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// flockWithTimeout is a no-op on Windows; the PID check alone guards the
// lock file there.
func flockWithTimeout(*os.File, time.Duration) error { return nil }

func flockRelease(*os.File) error { return nil }

// processAlive opens pid with the minimum query right. OpenProcess fails
// when the process does not exist.
func processAlive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	windows.CloseHandle(h)
	return true
}

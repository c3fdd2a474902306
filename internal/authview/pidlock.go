package authview

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// PIDLockPath returns the default PID lock file path (~/.authview/authview.pid).
func PIDLockPath() string {
	return filepath.Join(ConfigDir(), "authview.pid")
}

// AcquirePIDLock checks for an existing authview front end holding path and
// writes the current PID if no other instance is running. Only one front end
// may serve a host socket at a time.
func AcquirePIDLock(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create pid dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open pid lock: %w", err)
	}
	defer f.Close()

	// Serialize concurrent starts on the lock file itself.
	if err := flockWithTimeout(f, 2*time.Second); err != nil {
		return fmt.Errorf("lock pid file: %w", err)
	}
	defer flockRelease(f)

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read pid lock: %w", err)
	}
	if pid, alive := parsePID(data); alive && pid != os.Getpid() {
		return fmt.Errorf("authview is already running (PID: %d)", pid)
	}

	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate pid lock: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		return fmt.Errorf("write pid lock: %w", err)
	}
	return nil
}

// ReleasePIDLock removes the PID lock file. Safe to call even if the file
// does not exist.
func ReleasePIDLock(path string) {
	_ = os.Remove(path)
}

// RunningPID reports whether another authview process holds the lock at
// path. Returns the PID if alive, 0 otherwise.
func RunningPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	return parsePID(data)
}

// parsePID reads a PID and checks the process is alive.
func parsePID(data []byte) (int, bool) {
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	if !processAlive(pid) {
		return 0, false // stale PID file
	}
	return pid, true
}

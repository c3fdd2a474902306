package authview

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	maxLogSize = 1 << 20 // 1 MB
	logTime    = "2006-01-02 15:04:05"
)

// LogLevel orders log entries by severity.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return "INFO"
	}
	return levelNames[l]
}

// ParseLogLevel maps "debug", "info", "warn" or "error" to a level. Anything
// else is info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes timestamped log entries to ~/.authview/authview.log. When
// the file passes maxLogSize it is moved to authview.log.1 and a fresh one
// is started. It satisfies bridge.Logger and devapi.Logger.
type Logger struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	mirror io.Writer
	min    LogLevel
}

// NewLogger opens (or creates) the log file under ~/.authview/.
func NewLogger() *Logger {
	home, err := os.UserHomeDir()
	if err != nil {
		return &Logger{}
	}
	return NewLoggerAt(filepath.Join(home, ".authview", "authview.log"))
}

// NewLoggerAt opens (or creates) a log file at path. On failure the logger
// discards file output.
func NewLoggerAt(path string) *Logger {
	_ = os.MkdirAll(filepath.Dir(path), 0755)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return &Logger{}
	}
	return &Logger{path: path, file: f}
}

// Path returns the log file path, or "" for a no-op logger.
func (l *Logger) Path() string {
	return l.path
}

// SetLevel drops entries below min.
func (l *Logger) SetLevel(min LogLevel) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.min = min
	return l
}

// Mirror also writes every entry to w. Used by the dev commands that print
// to the terminal.
func (l *Logger) Mirror(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mirror = w
	return l
}

// Close closes the underlying file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.write(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.write(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.write(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.write(LevelError, format, args...) }

func (l *Logger) write(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.min {
		return
	}

	line := fmt.Sprintf("%s [%s] %s\n", time.Now().Format(logTime), level, fmt.Sprintf(format, args...))
	if l.mirror != nil {
		io.WriteString(l.mirror, line)
	}
	if l.file == nil {
		return
	}
	l.rotateIfNeeded()
	if l.file != nil {
		io.WriteString(l.file, line)
	}
}

// rotateIfNeeded keeps a single backup. Caller holds l.mu.
func (l *Logger) rotateIfNeeded() {
	info, err := l.file.Stat()
	if err != nil || info.Size() < maxLogSize {
		return
	}

	l.file.Close()
	l.file = nil
	_ = os.Rename(l.path, l.path+".1")

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	l.file = f
	fmt.Fprintf(l.file, "%s [INFO] Log rotated (exceeded %d bytes, previous entries in %s.1)\n",
		time.Now().Format(logTime), maxLogSize, filepath.Base(l.path))
}

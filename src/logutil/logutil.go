package logutil

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultLogFile = "notify_shell.log"
	maxSizeMB      = 10
	maxBackups     = 3
	maxLogLength   = 100
)

// Setup enables rotating file logging (10MB, 3 backups) when enabled.
// When disabled, logs are discarded so CLI output stays clean.
func Setup(enableFileLogging bool, path string) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		log.SetOutput(io.Discard)
		return nopCloser{}
	}
	if path == "" {
		path = DefaultPath()
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	log.SetOutput(lj)
	return lj
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Verbose sends logs to stderr.
func Verbose() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stderr)
}

// DefaultPath puts the log next to the user cache, falling back to the working directory.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return defaultLogFile
	}
	return filepath.Join(dir, "notify-shell", defaultLogFile)
}

// Sanitize truncates user text and escapes control characters before logging.
func Sanitize(text string) string {
	if len(text) > maxLogLength {
		text = text[:maxLogLength] + "..."
	}
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 32 || r == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

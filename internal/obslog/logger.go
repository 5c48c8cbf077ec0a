// Package obslog is a small channelled logger, grounded on the original
// per-channel logging_manager factory and rendered in the teacher's own
// log.Printf/key=value style (see security/persist.go, httputil.go) — no
// corpus example pulls in a structured-logging third-party library for a
// CLI tool of this shape, so this ambient concern is the one built on the
// standard library, justified in DESIGN.md.
package obslog

import (
	"log"
)

// Channel names the fixed set of logical logging channels the pipeline uses.
type Channel string

const (
	Download Channel = "download"
	Ingest   Channel = "ingest"
	Security Channel = "security"
	Cache    Channel = "cache"
	DB       Channel = "db"
)

// Logger writes channel-tagged messages through the standard log package.
type Logger struct {
	*log.Logger
}

// New constructs a Logger writing through the standard library's default
// logger destination (os.Stderr, by default) with no extra prefix: every
// call already carries its own channel= token.
func New() *Logger {
	return &Logger{Logger: log.Default()}
}

func (l *Logger) Info(ch Channel, format string, args ...any) {
	l.Printf("level=info channel=%s "+format, append([]any{ch}, args...)...)
}

func (l *Logger) Warn(ch Channel, format string, args ...any) {
	l.Printf("level=warn channel=%s "+format, append([]any{ch}, args...)...)
}

func (l *Logger) Error(ch Channel, format string, args ...any) {
	l.Printf("level=error channel=%s "+format, append([]any{ch}, args...)...)
}

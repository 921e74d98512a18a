// Package cli implements the cargo-lock-fetch command-line interface.
//
// The tool is usually invoked by cargo as the lock-fetch subcommand, so
// "cargo lock-fetch --vendor vendor" ends up here as
// "cargo-lock-fetch lock-fetch --vendor vendor". Commands are built with
// cobra and log through charmbracelet/log on stderr.
//
// # Commands
//
//   - lock-fetch: assemble the scratch workspace and run cargo fetch or vendor
//   - lock-fetch plan: show the batches and translated dependencies without running cargo
//   - completion: shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. --quiet on
// lock-fetch discards every log line and is passed on to cargo as -q.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Assembled 3 batches (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

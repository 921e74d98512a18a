// Package cli implements the cargo-lock-fetch command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cargo-lock-fetch/pkg/buildinfo"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for scratch directories and display.
	appName = "cargo-lock-fetch"

	// defaultLockfile is read when --lockfile-path is not given.
	defaultLockfile = "Cargo.lock"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Stdout receives command output; Stderr receives cargo's output and
	// anything meant for scripts reading stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// silence discards all log output for the rest of the run.
func (c *CLI) silence() {
	c.Logger.SetOutput(io.Discard)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Fetch crates listed in Cargo.lock without any Cargo.toml",
		Long: `cargo-lock-fetch downloads or vendors every crate pinned by a Cargo.lock,
without reading the workspace manifests that produced it. It assembles a
throwaway cargo workspace that pins the same packages and runs cargo fetch
or cargo vendor on it.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.lockFetchCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Exit Codes
// =============================================================================

// Exit codes used by main.
const (
	ExitFailure  = 2   // any failure before or around cargo
	ExitCanceled = 130 // interrupted by a signal
)

// ExitError requests a specific process exit code. Code carries cargo's own
// exit status when cargo ran and failed. Silent errors print nothing.
type ExitError struct {
	Code   int
	Silent bool
	Err    error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

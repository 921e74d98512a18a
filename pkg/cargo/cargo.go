// Package cargo runs the cargo executable.
//
// [Runner] knows the handful of subcommands a run needs: creating empty
// projects, fetching and vendoring. Project creation captures cargo's
// stderr and turns a failure into an EXTERNAL_TOOL error carrying it;
// fetch and vendor stream cargo's output to the user and report the exit
// code, which the caller is expected to pass on.
package cargo

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cargo-lock-fetch/pkg/errors"
	"github.com/matzehuels/cargo-lock-fetch/pkg/observability"
)

// EnvCargo names the environment variable cargo sets for its subcommands,
// pointing at the cargo binary that invoked them.
const EnvCargo = "CARGO"

// Runner invokes cargo subcommands.
type Runner struct {
	Bin    string      // cargo executable
	Quiet  bool        // pass -q to every subcommand
	Logger *log.Logger // never nil after NewRunner

	// Stdout and Stderr receive the output of passthrough commands.
	Stdout io.Writer
	Stderr io.Writer
}

// NewRunner returns a runner for the cargo binary named by $CARGO, or for
// "cargo" on PATH when the variable is unset.
func NewRunner(quiet bool, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	bin, ok := os.LookupEnv(EnvCargo)
	if !ok || bin == "" {
		logger.Debug("CARGO not set, calling cargo from PATH")
		bin = "cargo"
	} else {
		logger.Debug("using cargo from environment", "cargo", bin)
	}
	return &Runner{
		Bin:    bin,
		Quiet:  quiet,
		Logger: logger,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// CreateProject creates an empty library project called name in dir,
// creating dir first if needed. It fails if dir already holds a project.
func (r *Runner) CreateProject(ctx context.Context, dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create project directory %s", dir)
	}
	return r.Run(ctx, dir, "init", "--lib", "--vcs", "none", "--name", name)
}

// Fetch runs cargo fetch in dir with extra arguments appended.
func (r *Runner) Fetch(ctx context.Context, dir string, extra []string) (int, error) {
	return r.Passthrough(ctx, dir, "fetch", extra...)
}

// Vendor runs cargo vendor in dir, writing sources to dest. With versioned
// set every vendored directory name includes the package version.
func (r *Runner) Vendor(ctx context.Context, dir, dest string, versioned bool, extra []string) (int, error) {
	args := []string{dest}
	if versioned {
		args = append(args, "--versioned-dirs")
	}
	return r.Passthrough(ctx, dir, "vendor", append(args, extra...)...)
}

// Run executes a cargo subcommand in dir, discarding stdout. A non-zero exit
// is returned as an EXTERNAL_TOOL error that includes cargo's stderr.
func (r *Runner) Run(ctx context.Context, dir, subcommand string, args ...string) error {
	var stderr bytes.Buffer
	code, err := r.run(ctx, dir, subcommand, args, io.Discard, &stderr)
	if err != nil {
		return err
	}
	if code != 0 {
		return errors.New(errors.ErrCodeExternalTool, "\"cargo %s\" returned error:\n%s",
			subcommand, strings.TrimRight(stderr.String(), "\n"))
	}
	return nil
}

// Passthrough executes a cargo subcommand in dir with output going to the
// runner's Stdout and Stderr, and returns cargo's exit code. An error means
// cargo could not be run at all.
func (r *Runner) Passthrough(ctx context.Context, dir, subcommand string, args ...string) (int, error) {
	return r.run(ctx, dir, subcommand, args, r.Stdout, r.Stderr)
}

func (r *Runner) run(ctx context.Context, dir, subcommand string, args []string, stdout, stderr io.Writer) (int, error) {
	if err := checkDir(dir); err != nil {
		return -1, err
	}

	argv := []string{subcommand}
	if r.Quiet {
		argv = append(argv, "-q")
	}
	argv = append(argv, args...)

	cmd := exec.CommandContext(ctx, r.Bin, argv...) //nolint:gosec // arguments are built by this package
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	r.Logger.Info("running cargo", "cmd", strings.Join(append([]string{r.Bin}, argv...), " "), "dir", dir)
	observability.Cargo().OnCargoStart(ctx, subcommand, dir)
	start := time.Now()

	err := cmd.Run()
	code := 0
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case stderrors.As(err, &exitErr):
		code = exitErr.ExitCode()
		err = nil
	default:
		code = -1
		err = errors.Wrap(errors.ErrCodeExternalTool, err, "failed to invoke cargo %s", subcommand)
	}

	observability.Cargo().OnCargoComplete(ctx, subcommand, dir, code, time.Since(start), err)
	r.Logger.Debug("cargo finished", "cmd", subcommand, "exit", code, "duration", time.Since(start).Round(time.Millisecond))
	return code, err
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return errors.New(errors.ErrCodeIO, "%q does not exist", dir)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "stat %s", dir)
	}
	if !info.IsDir() {
		return errors.New(errors.ErrCodeIO, "%q is not a directory", dir)
	}
	return nil
}

// AbsPath resolves path against the working directory. Cargo runs inside
// the scratch project, so paths given by the user must not stay relative.
func AbsPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", path)
	}
	return abs, nil
}

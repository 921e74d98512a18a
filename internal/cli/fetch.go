package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cargo-lock-fetch/pkg/assemble"
	"github.com/matzehuels/cargo-lock-fetch/pkg/cargo"
	"github.com/matzehuels/cargo-lock-fetch/pkg/errors"
	"github.com/matzehuels/cargo-lock-fetch/pkg/lockfile"
)

// fetchOpts holds the command-line flags for the lock-fetch command.
type fetchOpts struct {
	lockfile  string   // path to Cargo.lock
	vendor    string   // vendor into this directory instead of fetching
	versioned bool     // always include the version in vendored directory names
	quiet     bool     // no log output, cargo runs with -q
	keepTmp   bool     // keep the scratch directory and print its path
	tmpDir    string   // assemble in this existing directory and keep it
	cargoArgs []string // passed on to cargo fetch or cargo vendor
}

// validate checks flag combinations cobra cannot express.
func (o *fetchOpts) validate() error {
	if err := errors.ValidatePath(o.lockfile); err != nil {
		return err
	}
	if o.versioned && o.vendor == "" {
		return errors.New(errors.ErrCodeInvalidInput, "--versioned-dirs requires --vendor")
	}
	if o.vendor != "" {
		if err := errors.ValidatePath(o.vendor); err != nil {
			return err
		}
	}
	if o.keepTmp && o.tmpDir != "" {
		return errors.New(errors.ErrCodeInvalidInput, "--keep-tmp and --tmp-dir cannot be used together")
	}
	if o.tmpDir != "" {
		info, err := os.Stat(o.tmpDir)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidInput, "--tmp-dir %q does not exist", o.tmpDir)
		}
		if !info.IsDir() {
			return errors.New(errors.ErrCodeInvalidInput, "--tmp-dir %q is not a directory", o.tmpDir)
		}
	}
	return nil
}

// lockFetchCommand creates the lock-fetch command, the one cargo runs for
// "cargo lock-fetch".
func (c *CLI) lockFetchCommand() *cobra.Command {
	opts := fetchOpts{lockfile: defaultLockfile}

	cmd := &cobra.Command{
		Use:   "lock-fetch [flags] [-- CARGO_ARGS...]",
		Short: "Fetch or vendor the crates pinned by a Cargo.lock",
		Long: `Fetch or vendor every crate pinned by a Cargo.lock without reading any Cargo.toml.

The lockfile's packages are split into batches so that no batch holds two
versions of the same crate. Each batch becomes a cargo project depending on
its packages at their exact versions, and a root project depends on all
batches. cargo fetch (or cargo vendor with --vendor) then runs on the root.
Arguments after -- are passed on to cargo unchanged.`,
		Example: `  cargo lock-fetch
  cargo lock-fetch --lockfile-path sub/Cargo.lock
  cargo lock-fetch --vendor vendor --versioned-dirs
  cargo lock-fetch -- --offline`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.cargoArgs = args
			return c.runLockFetch(cmd.Context(), &opts)
		},
	}

	cmd.AddCommand(c.planCommand())

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&opts.lockfile, "lockfile-path", opts.lockfile, "path to Cargo.lock")
	cmd.Flags().StringVar(&opts.vendor, "vendor", "", "vendor all dependencies into `DIR` instead of fetching them")
	cmd.Flags().BoolVar(&opts.versioned, "versioned-dirs", false, "always include the version in vendored directory names")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "no output, passed on to cargo")
	cmd.Flags().BoolVar(&opts.keepTmp, "keep-tmp", false, "keep the scratch workspace and print its path")
	cmd.Flags().StringVar(&opts.tmpDir, "tmp-dir", "", "assemble in existing `DIR` and keep it")
	cmd.MarkFlagsMutuallyExclusive("keep-tmp", "tmp-dir")
	_ = cmd.MarkFlagFilename("lockfile-path", "lock")
	_ = cmd.MarkFlagDirname("vendor")
	_ = cmd.MarkFlagDirname("tmp-dir")

	return cmd
}

func (c *CLI) runLockFetch(ctx context.Context, opts *fetchOpts) error {
	if opts.quiet {
		c.silence()
	}
	code, err := c.lockFetch(ctx, opts)
	if err != nil {
		if opts.quiet {
			return &ExitError{Code: ExitFailure, Silent: true, Err: err}
		}
		return err
	}
	if code != 0 {
		return &ExitError{Code: code, Silent: true}
	}
	return nil
}

// lockFetch runs the whole flow and returns cargo's exit code.
func (c *CLI) lockFetch(ctx context.Context, opts *fetchOpts) (int, error) {
	if err := opts.validate(); err != nil {
		return 0, err
	}

	lf, err := lockfile.Load(opts.lockfile)
	if err != nil {
		return 0, err
	}
	c.Logger.Debug("loaded lockfile", "path", opts.lockfile, "version", lf.Version, "packages", len(lf.Packages))

	plan, err := assemble.NewPlan(ctx, lf.Packages, c.Logger)
	if err != nil {
		return 0, err
	}

	dir, cleanup, err := c.scratchDir(opts)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	runner := cargo.NewRunner(opts.quiet, c.Logger)
	runner.Stdout = c.Stdout
	runner.Stderr = c.Stderr

	prog := newProgress(c.Logger)
	if _, err := assemble.NewAssembler(runner, c.Logger).Assemble(ctx, dir, plan); err != nil {
		return 0, err
	}
	prog.done(fmt.Sprintf("Assembled %d batches", len(plan.Batches)))

	var code int
	if opts.vendor != "" {
		dest, err := cargo.AbsPath(opts.vendor)
		if err != nil {
			return 0, err
		}
		code, err = runner.Vendor(ctx, dir, dest, opts.versioned, opts.cargoArgs)
		if err != nil {
			return 0, err
		}
	} else {
		code, err = runner.Fetch(ctx, dir, opts.cargoArgs)
		if err != nil {
			return 0, err
		}
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return code, nil
}

// scratchDir returns the directory to assemble the workspace in, and a
// function that removes it unless it is to be kept.
func (c *CLI) scratchDir(opts *fetchOpts) (string, func(), error) {
	keep := func() {}

	if opts.tmpDir != "" {
		dir, err := cargo.AbsPath(opts.tmpDir)
		if err != nil {
			return "", nil, err
		}
		c.Logger.Debug("assembling in given directory", "dir", dir)
		return dir, keep, nil
	}

	dir := filepath.Join(os.TempDir(), appName+"-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeIO, err, "create scratch directory")
	}
	c.Logger.Debug("created scratch directory", "dir", dir)

	if opts.keepTmp {
		fmt.Fprintln(c.Stderr, dir)
		return dir, keep, nil
	}
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			c.Logger.Warn("could not remove scratch directory", "dir", dir, "err", err)
		}
	}, nil
}

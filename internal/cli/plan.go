package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/cargo-lock-fetch/pkg/assemble"
	"github.com/matzehuels/cargo-lock-fetch/pkg/errors"
	"github.com/matzehuels/cargo-lock-fetch/pkg/lockfile"
	"github.com/matzehuels/cargo-lock-fetch/pkg/translate"
)

// Plan output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// planOpts holds the command-line flags for the plan command.
type planOpts struct {
	lockfile string // path to Cargo.lock
	format   string // text, json or yaml
	output   string // output file path (stdout if empty)
}

// planDocument is the machine-readable form of a plan.
type planDocument struct {
	Digest        string `json:"digest" yaml:"digest"`
	assemble.Plan `yaml:",inline"`
}

func (c *CLI) planCommand() *cobra.Command {
	opts := planOpts{lockfile: defaultLockfile, format: formatText}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show how a Cargo.lock would be batched, without running cargo",
		Long: `Show the batches, translated dependencies and registry aliases that
lock-fetch would generate for a Cargo.lock. Nothing is written and cargo is
not run. The digest changes whenever the generated projects would change.`,
		Example: `  cargo lock-fetch plan
  cargo lock-fetch plan --format json -o plan.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlan(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.lockfile, "lockfile-path", opts.lockfile, "path to Cargo.lock")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: text, json, yaml")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	_ = cmd.MarkFlagFilename("lockfile-path", "lock")
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{formatText, formatJSON, formatYAML}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func (c *CLI) runPlan(ctx context.Context, opts *planOpts) error {
	switch opts.format {
	case formatText, formatJSON, formatYAML:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want text, json or yaml)", opts.format)
	}
	if err := errors.ValidatePath(opts.lockfile); err != nil {
		return err
	}

	lf, err := lockfile.Load(opts.lockfile)
	if err != nil {
		return err
	}
	plan, err := assemble.NewPlan(ctx, lf.Packages, c.Logger)
	if err != nil {
		return err
	}

	w := c.Stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "create %s", opts.output)
		}
		defer f.Close()
		w = f
	}

	if err := writePlan(w, opts.format, plan); err != nil {
		return err
	}
	if opts.output != "" {
		c.Logger.Info("wrote plan", "path", opts.output)
	}
	return nil
}

func writePlan(w io.Writer, format string, plan *assemble.Plan) error {
	doc := planDocument{Digest: plan.Digest(), Plan: *plan}
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write plan")
		}
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write plan")
		}
		if err := enc.Close(); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write plan")
		}
	default:
		printPlan(printer{w: w}, doc)
	}
	return nil
}

func printPlan(p printer, doc planDocument) {
	p.success("Planned %d packages in %d batches", doc.PackageCount(), len(doc.Batches))

	for _, b := range doc.Batches {
		p.newline()
		p.title(b.Name)
		for _, id := range b.Packages {
			name, _, _ := strings.Cut(id, "@")
			p.entry(id, translate.Describe(b.Dependencies[name]))
		}
	}

	if len(doc.Registries) > 0 {
		p.newline()
		p.title("registries")
		for _, e := range doc.Registries {
			p.keyValue(e.Alias, e.Endpoint)
		}
	}

	if len(doc.Skipped) > 0 || len(doc.Warnings) > 0 {
		p.newline()
	}
	for _, id := range doc.Skipped {
		p.entry(id, "skipped, no source")
	}
	for _, w := range doc.Warnings {
		p.warning("%s", w)
	}

	p.newline()
	p.stats(
		fmt.Sprintf("%d packages", doc.PackageCount()),
		fmt.Sprintf("%d batches", len(doc.Batches)),
		fmt.Sprintf("%d registries", len(doc.Registries)),
		"digest "+doc.Digest,
	)
	p.nextStep("Fetch with", "cargo lock-fetch")
}
